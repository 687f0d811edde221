// Package mutate wraps user-initiated writes with optimistic local
// updates. The intended effect lands in the shared state store before
// the remote write is attempted, so the initiating context sees its own
// change immediately; if the remote write is rejected the exact
// pre-mutation value is restored and the failure is surfaced as a
// WriteError. On success nothing further happens here: the change-feed
// notification (or the next poll) reconciles the provisional value with
// authoritative data, which is idempotent with it.
package mutate

import (
	"context"

	"github.com/iliyamo/table-prompt-service/internal/reconcile"
	"github.com/iliyamo/table-prompt-service/internal/store"
)

// Mutator applies optimistic mutations against one store.
type Mutator struct {
	store *store.Store
}

// New constructs a Mutator over the given store.
func New(st *store.Store) *Mutator {
	return &Mutator{store: st}
}

// Do captures the current value under key, runs update (which is
// expected to write the optimistic value to the store), then awaits
// remote. When remote fails, the captured value is written back —
// or the key deleted, if it did not exist before — and a WriteError
// naming op is returned for user-facing notification.
func (m *Mutator) Do(ctx context.Context, op, key string, update func(), remote func(context.Context) error) error {
	prev, had := m.store.Raw(key)

	update()

	if err := remote(ctx); err != nil {
		if had {
			m.store.WriteRaw(ctx, key, prev)
		} else {
			m.store.Delete(ctx, key)
		}
		return &reconcile.WriteError{Op: op, Err: err}
	}
	return nil
}
