package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-prompt-service/internal/handler"
	"github.com/iliyamo/table-prompt-service/internal/middleware"
	"github.com/iliyamo/table-prompt-service/internal/model"
)

// RegisterGuest registers the guest terminal surface. Login is open (a
// guest has no credentials yet); everything else requires the GUEST
// token issued at login, which pins the session to one table and seat.
func RegisterGuest(e *echo.Echo, h *handler.GuestHandler, jwtSecret string) {
	e.POST("/v1/guest/login", h.Login)

	g := e.Group(
		"/v1/guest",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleGuest),
	)
	g.POST("/logout", h.Logout)
	g.GET("/state", h.State)
	g.GET("/prompt", h.CurrentPrompt)
	g.GET("/announcements", h.ListAnnouncements)
	g.POST("/respond", h.Respond)
}
