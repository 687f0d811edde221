package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("pit-boss-9", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEqual(t, "pit-boss-9", hash)

	assert.True(t, VerifyPassword(hash, "pit-boss-9"))
	assert.False(t, VerifyPassword(hash, "pit-boss-8"))
	assert.False(t, VerifyPassword("", "pit-boss-9"), "empty hash must never verify")
}

func TestHashPasswordHonorsCost(t *testing.T) {
	hash, err := HashPassword("pit-boss-9", 6)
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 6, cost)
}
