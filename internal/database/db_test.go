package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	assert.Equal(t,
		"svc:secret@tcp(db.internal:3306)/prompts?charset=utf8mb4&parseTime=true&loc=UTC",
		dsn("svc", "secret", "db.internal", "3306", "prompts"))

	// Empty password omits the colon entirely.
	assert.Equal(t,
		"svc@tcp(localhost:3306)/prompts?charset=utf8mb4&parseTime=true&loc=UTC",
		dsn("svc", "", "localhost", "3306", "prompts"))
}
