package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-prompt-service/internal/handler"
	"github.com/iliyamo/table-prompt-service/internal/middleware"
	"github.com/iliyamo/table-prompt-service/internal/model"
)

// RegisterAdmin registers the admin surface under /v1. Every route
// requires a valid JWT with an admin role; table admins pass the role
// gate here and are pinned to their own table inside the handlers.
// Account management is additionally restricted to the floor-wide
// roles.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.AdminRoles...),
	)

	// ---- Tables ----
	g.POST("/tables", h.CreateTable)
	g.GET("/tables", h.ListTables)
	g.GET("/tables/:number", h.GetTable)
	g.PATCH("/tables/:number/active", h.SetTableActive)
	g.POST("/tables/:number/prompt", h.AssignPrompt)

	// ---- Seats (addressed by table number + code) ----
	g.GET("/tables/:number/seats", h.ListSeats)
	g.PATCH("/tables/:number/seats/:code/active", h.SetSeatActive)
	g.PUT("/tables/:number/seats/:code/occupant", h.SetSeatOccupant)
	g.PATCH("/tables/:number/seats/:code/dealer", h.SetSeatDealer)

	// ---- Prompts ----
	g.POST("/prompts", h.CreatePrompt)
	g.GET("/prompts", h.ListPrompts)
	g.PUT("/prompts/:id", h.UpdatePrompt)
	g.PATCH("/prompts/:id/active", h.SetPromptActive)
	g.POST("/prompts/:id/dispatch-all", h.DispatchPromptAll)

	// ---- Announcements ----
	g.POST("/announcements", h.CreateAnnouncement)
	g.GET("/announcements", h.ListAnnouncements)

	// ---- Responses ----
	g.GET("/responses", h.ListResponses)
	g.GET("/responses/export", h.ExportResponsesCSV)
	g.DELETE("/responses/:id", h.DeleteResponse)

	// ---- Accounts (floor-wide roles only) ----
	u := e.Group(
		"/v1/users",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUserAdmin, model.RoleSuperAdmin),
	)
	u.POST("", h.CreateUser)
	u.GET("", h.ListUsers)
	u.PUT("/:id", h.UpdateUser)
	u.DELETE("/:id", h.DeleteUser)
}
