package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func parseClaims(t *testing.T, token string) jwt.MapClaims {
	t.Helper()
	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	return claims
}

func TestNewAccessTokenClaims(t *testing.T) {
	table := uint32(9)
	at, err := NewAccessToken(testSecret, 42, "TABLE_ADMIN", &table, 15)
	require.NoError(t, err)
	require.NotEmpty(t, at.Token)

	claims := parseClaims(t, at.Token)
	// Numeric claims come back as float64 after JSON round-tripping.
	assert.Equal(t, float64(42), claims["sub"])
	assert.Equal(t, "TABLE_ADMIN", claims["role"])
	assert.Equal(t, float64(9), claims["table_number"])

	exp, ok := claims["exp"].(float64)
	require.True(t, ok)
	assert.InDelta(t, time.Now().UTC().Add(15*time.Minute).Unix(), int64(exp), 5)
	assert.WithinDuration(t, time.Unix(int64(exp), 0), at.Exp, time.Second)
}

func TestNewAccessTokenOmitsTableClaim(t *testing.T) {
	at, err := NewAccessToken(testSecret, 7, "USER_ADMIN", nil, 15)
	require.NoError(t, err)

	claims := parseClaims(t, at.Token)
	assert.Equal(t, "USER_ADMIN", claims["role"])
	_, present := claims["table_number"]
	assert.False(t, present, "non table-scoped roles must not carry a table claim")
}

func TestNewAccessTokenRejectsWrongSecret(t *testing.T) {
	at, err := NewAccessToken(testSecret, 1, "GUEST", nil, 15)
	require.NoError(t, err)

	_, err = jwt.Parse(at.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("other-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	assert.Error(t, err)
}

func TestNewRefreshToken(t *testing.T) {
	rt, err := NewRefreshToken(7)
	require.NoError(t, err)
	assert.Len(t, rt.Raw, 96) // 48 random bytes, hex encoded
	assert.WithinDuration(t, time.Now().UTC().Add(7*24*time.Hour), rt.Exp, time.Minute)

	other, err := NewRefreshToken(7)
	require.NoError(t, err)
	assert.NotEqual(t, rt.Raw, other.Raw)
}

func TestHashRefreshRaw(t *testing.T) {
	h := HashRefreshRaw("some-token")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashRefreshRaw("some-token"), "hashing must be deterministic")
	assert.NotEqual(t, h, HashRefreshRaw("Some-token"))
}
