package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-prompt-service/internal/model"
	"github.com/iliyamo/table-prompt-service/internal/utils"
)

const authTestSecret = "middleware-test-secret"

// doRequest runs a GET through the given middleware chain and returns
// the recorder plus the context as seen by the innermost handler (nil
// when the chain short-circuited).
func doRequest(t *testing.T, header string, mws ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen echo.Context
	h := func(c echo.Context) error {
		seen = c
		return c.NoContent(http.StatusOK)
	}
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	require.NoError(t, h(c))
	return rec, seen
}

func TestJWTAuthMissingHeader(t *testing.T) {
	rec, seen := doRequest(t, "", JWTAuth(authTestSecret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)
}

func TestJWTAuthMalformedToken(t *testing.T) {
	rec, seen := doRequest(t, "Bearer not-a-jwt", JWTAuth(authTestSecret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)
}

func TestJWTAuthWrongSecret(t *testing.T) {
	at, err := utils.NewAccessToken("another-secret", 1, model.RoleUserAdmin, nil, 15)
	require.NoError(t, err)

	rec, seen := doRequest(t, "Bearer "+at.Token, JWTAuth(authTestSecret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)
}

func TestJWTAuthInjectsClaims(t *testing.T) {
	table := uint32(4)
	at, err := utils.NewAccessToken(authTestSecret, 11, model.RoleTableAdmin, &table, 15)
	require.NoError(t, err)

	rec, seen := doRequest(t, "Bearer "+at.Token, JWTAuth(authTestSecret))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)

	assert.Equal(t, float64(11), seen.Get("user_id"))
	assert.Equal(t, model.RoleTableAdmin, seen.Get("role"))
	assert.Equal(t, float64(4), seen.Get("table_number"))
}

func TestJWTAuthOmitsAbsentTableClaim(t *testing.T) {
	at, err := utils.NewAccessToken(authTestSecret, 11, model.RoleSuperAdmin, nil, 15)
	require.NoError(t, err)

	rec, seen := doRequest(t, "Bearer "+at.Token, JWTAuth(authTestSecret))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Nil(t, seen.Get("table_number"))
}

func TestRequireRole(t *testing.T) {
	at, err := utils.NewAccessToken(authTestSecret, 11, model.RoleGuest, nil, 15)
	require.NoError(t, err)
	header := "Bearer " + at.Token

	rec, _ := doRequest(t, header, JWTAuth(authTestSecret), RequireRole(model.RoleGuest))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, seen := doRequest(t, header, JWTAuth(authTestSecret), RequireRole(model.AdminRoles...))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, seen)
}

func TestRequireRoleWithoutAuth(t *testing.T) {
	// RequireRole on its own (no role claim set) must reject.
	rec, seen := doRequest(t, "", RequireRole(model.RoleSuperAdmin))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, seen)
}
