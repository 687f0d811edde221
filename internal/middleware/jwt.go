package middleware // reusable HTTP middleware shared by all route groups

import (
	"net/http" // HTTP status codes for responses
	"strings"  // prefix checks on the Authorization header

	"github.com/golang-jwt/jwt/v5" // JWT parsing and validation
	"github.com/labstack/echo/v4"  // Echo middleware plumbing
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects its claims into the request context. The provided secret
// must match the one used when issuing tokens. Handlers behind this
// middleware read the authenticated identity via c.Get("user_id"),
// c.Get("role") and, for table admins, c.Get("table_number").
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Parse with HS256 only; reject any other signing method the
			// token might claim.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			// Expose the claims handlers care about. Type assertions are
			// left to the consumers; JSON numbers arrive as float64.
			c.Set("user_id", claims["sub"])
			c.Set("role", claims["role"])
			if tn, ok := claims["table_number"]; ok {
				c.Set("table_number", tn)
			}
			return next(c)
		}
	}
}
