package middleware

// identity.go holds helpers shared across middleware files for
// identifying the requester from context values set by JWTAuth.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID returns a stable string identifier for the requester,
// used for rate-limit keying. JWT numeric claims arrive as float64, so
// several numeric shapes are normalized here. Unauthenticated requests
// key as "guest".
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return "guest"
}
