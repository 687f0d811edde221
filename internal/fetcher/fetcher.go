// Package fetcher performs full snapshot reads of the watched resources
// and writes the result into the shared state store. Each resource is
// fetched independently; one failing resource never aborts the others,
// and a failed resource keeps its previous (stale-but-present) value,
// falling back to the persisted cache and finally to an empty default.
package fetcher

import (
	"context"
	"log"
	"sync"

	"github.com/iliyamo/table-prompt-service/internal/model"
	"github.com/iliyamo/table-prompt-service/internal/queue"
	"github.com/iliyamo/table-prompt-service/internal/reconcile"
	"github.com/iliyamo/table-prompt-service/internal/store"
)

// SeatKey returns the store key holding the table-scoped seat snapshot
// for one table, e.g. "seats:12".
func SeatKey(tableNumber uint32) string {
	return queue.ResourceSeats + ":" + utoa(tableNumber)
}

func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Backend is the remote read surface the fetcher normalizes from.
// *SQLBackend implements it; tests substitute fakes.
type Backend interface {
	Tables(ctx context.Context) ([]model.Table, error)
	Prompts(ctx context.Context) ([]model.Prompt, error)
	Announcements(ctx context.Context) ([]model.Announcement, error)
	TableSeats(ctx context.Context, tableNumber uint32) ([]model.Seat, error)
}

// Fetcher reads snapshots from a Backend and publishes them to the
// store. Results are applied under a per-resource monotonic sequence:
// a fetch that resolves after a later-started fetch already applied is
// discarded instead of overwriting fresher data.
type Fetcher struct {
	backend Backend
	store   *store.Store

	mu      sync.Mutex
	issued  map[string]uint64 // last sequence handed out per resource
	applied map[string]uint64 // last sequence applied per resource
}

// New constructs a Fetcher over the given backend and store.
func New(backend Backend, st *store.Store) *Fetcher {
	return &Fetcher{
		backend: backend,
		store:   st,
		issued:  make(map[string]uint64),
		applied: make(map[string]uint64),
	}
}

// next reserves the sequence number for a fetch of resource.
func (f *Fetcher) next(resource string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued[resource]++
	return f.issued[resource]
}

// apply writes rows for resource unless a fetch with a higher sequence
// already applied. Returns whether the write happened. The lock stays
// held across the store write: releasing it between the sequence check
// and the write would let a slow fetch land after the fresher result
// it lost the race to.
func (f *Fetcher) apply(ctx context.Context, resource string, seq uint64, rows interface{}) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if seq < f.applied[resource] {
		log.Printf("fetcher: discarding stale %s result (seq %d < %d)", resource, seq, f.applied[resource])
		return false
	}
	f.applied[resource] = seq

	if err := f.store.Write(ctx, resource, rows); err != nil {
		log.Printf("fetcher: persist %s failed: %v", resource, err)
		return false
	}
	return true
}

// fallback handles a failed fetch of resource: keep the in-memory value
// if one exists, otherwise fall back to the persisted cache, otherwise
// seed the synthetic default so consumers never see a missing key.
func (f *Fetcher) fallback(ctx context.Context, resource string, def interface{}, err error) {
	log.Printf("fetcher: %v (serving cached data)", &reconcile.FetchError{Resource: resource, Err: err})
	var existing interface{}
	if f.store.Read(ctx, resource, &existing) {
		return // stale-but-present beats empty
	}
	// First-ever load with no cache: resolve the miss with the default.
	log.Printf("fetcher: %s: %v, seeding default", resource, reconcile.ErrCacheMiss)
	if werr := f.store.Write(ctx, resource, def); werr != nil {
		log.Printf("fetcher: seed %s failed: %v", resource, werr)
	}
}

// FetchAll reads tables (with seats), prompts and announcements and
// writes each into the store, refreshing the per-table seat snapshot
// keys from the tables result. It returns an error only when every
// resource failed; partial failure degrades per resource and returns
// nil, matching the propagation policy.
func (f *Fetcher) FetchAll(ctx context.Context) error {
	failures := 0
	var firstErr error

	seq := f.next(queue.ResourceTables)
	if tables, err := f.backend.Tables(ctx); err != nil {
		failures++
		firstErr = &reconcile.FetchError{Resource: queue.ResourceTables, Err: err}
		f.fallback(ctx, queue.ResourceTables, []model.Table{}, err)
	} else {
		if tables == nil {
			tables = []model.Table{}
		}
		f.apply(ctx, queue.ResourceTables, seq, tables)
		// The tables read already carries every table's seats, so the
		// table-scoped seat snapshots reconcile from the same result.
		// Without this, a warm "seats:N" key would only ever see
		// optimistic admin writes and never guest occupancy changes.
		for _, t := range tables {
			seats := t.Seats
			if seats == nil {
				seats = []model.Seat{}
			}
			key := SeatKey(t.Number)
			f.apply(ctx, key, f.next(key), seats)
		}
	}

	seq = f.next(queue.ResourcePrompts)
	if prompts, err := f.backend.Prompts(ctx); err != nil {
		failures++
		if firstErr == nil {
			firstErr = &reconcile.FetchError{Resource: queue.ResourcePrompts, Err: err}
		}
		f.fallback(ctx, queue.ResourcePrompts, []model.Prompt{}, err)
	} else {
		if prompts == nil {
			prompts = []model.Prompt{}
		}
		f.apply(ctx, queue.ResourcePrompts, seq, prompts)
	}

	seq = f.next(queue.ResourceAnnouncements)
	if anns, err := f.backend.Announcements(ctx); err != nil {
		failures++
		if firstErr == nil {
			firstErr = &reconcile.FetchError{Resource: queue.ResourceAnnouncements, Err: err}
		}
		f.fallback(ctx, queue.ResourceAnnouncements, []model.Announcement{}, err)
	} else {
		if anns == nil {
			anns = []model.Announcement{}
		}
		f.apply(ctx, queue.ResourceAnnouncements, seq, anns)
	}

	if failures == 3 {
		return firstErr
	}
	return nil
}

// FetchSeats refreshes the table-scoped seat snapshot for one table.
// Guest terminals watch a single table and use this instead of the full
// tables read.
func (f *Fetcher) FetchSeats(ctx context.Context, tableNumber uint32) error {
	key := SeatKey(tableNumber)
	seq := f.next(key)
	seats, err := f.backend.TableSeats(ctx, tableNumber)
	if err != nil {
		f.fallback(ctx, key, []model.Seat{}, err)
		return &reconcile.FetchError{Resource: key, Err: err}
	}
	if seats == nil {
		seats = []model.Seat{}
	}
	f.apply(ctx, key, seq, seats)
	return nil
}
