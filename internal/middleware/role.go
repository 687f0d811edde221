package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // standard HTTP status codes

	"github.com/labstack/echo/v4" // middleware chaining and context
)

// RequireRole returns a middleware that enforces that the authenticated
// account holds one of the given roles, matched against the "role"
// claim JWTAuth stored in the context. Requests from any other role are
// rejected with 403 Forbidden. Table-admin scoping to a specific table
// number is a handler concern, not enforced here.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("role").(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
