// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to perform an operation on someone else's resource, while
// ErrVersionConflict signals that a compare-and-swap update lost a race
// against a concurrent writer and should be retried after a refetch.
package repository

import (
	"errors"
	"strings"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as attempting to
// create a table whose number is already taken. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrVersionConflict is returned by compare-and-swap updates when the
// expected version no longer matches the stored row. The caller holds a
// stale snapshot and must refetch before retrying.
var ErrVersionConflict = errors.New("version conflict")

// isDuplicateKey detects a MySQL duplicate-key violation (error 1062)
// without depending on driver-specific error types.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
