// Package reconcile drives convergence between the shared state store
// and the authoritative remote store: a change-feed subscription with a
// polling fallback, reconnect with backoff, and debounced refetches.
// This file defines the error taxonomy shared by the reconciliation
// components; the coordinator itself lives in coordinator.go.
package reconcile

import (
	"errors"
	"fmt"
)

// ConnectionError wraps a change-feed subscription failure. It is
// retried with backoff and surfaced to users only as a transient
// banner, never as a hard failure.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string { return fmt.Sprintf("feed connection: %v", e.Err) }
func (e *ConnectionError) Unwrap() error { return e.Err }

// FetchError wraps a failed read of one resource. The reconciliation
// loop degrades to cached/stale data and logs it; it reaches the user
// only when every resource is failing.
type FetchError struct {
	Resource string
	Err      error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.Resource, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// WriteError wraps a rejected mutation. It is always surfaced to the
// initiating user and triggers rollback of the optimistic update.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Op, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// ErrCacheMiss signals that neither the remote store nor any cache had
// data for a resource. It only occurs on a first-ever load with no
// network; callers resolve it with a synthetic default and never show
// it to the user.
var ErrCacheMiss = errors.New("no cached snapshot available")

// ErrRefreshCooldown is returned by manual refresh when a previous
// manual refresh ran too recently.
var ErrRefreshCooldown = errors.New("refresh cooling down")
