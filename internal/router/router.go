package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework routing

	"github.com/iliyamo/table-prompt-service/internal/handler"    // HTTP handlers
	"github.com/iliyamo/table-prompt-service/internal/middleware" // JWT + role middleware
	"github.com/iliyamo/table-prompt-service/internal/model"      // role constants
)

// RegisterRoutes registers routes that need no authentication. Only the
// health check lives here; everything else is role-gated.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the admin session endpoints. Login and refresh are
// open; logout accepts either a refresh token in the body or a valid
// JWT; /v1/me requires an authenticated admin.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.AdminRoles...),
	)
	auth.GET("/me", a.Me)
	auth.POST("/logout-all", a.Logout)
}
