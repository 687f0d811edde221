package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-prompt-service/internal/handler"
	"github.com/iliyamo/table-prompt-service/internal/middleware"
	"github.com/iliyamo/table-prompt-service/internal/model"
)

// RegisterState registers the reconciled-state surface. Any
// authenticated session may inspect the snapshot and subscribe to the
// change stream; manual refresh is rate-limited by the coordinator's
// own cooldown rather than middleware.
func RegisterState(e *echo.Echo, h *handler.StateHandler, jwtSecret string) {
	g := e.Group(
		"/v1/state",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(append([]string{model.RoleGuest}, model.AdminRoles...)...),
	)
	g.GET("", h.Snapshot)
	g.GET("/status", h.Status)
	g.POST("/refresh", h.Refresh)
	g.GET("/stream", h.Stream)
}
