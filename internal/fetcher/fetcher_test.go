package fetcher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-prompt-service/internal/model"
	"github.com/iliyamo/table-prompt-service/internal/queue"
	"github.com/iliyamo/table-prompt-service/internal/store"
)

// fakeBackend serves canned rows and injectable per-resource errors.
type fakeBackend struct {
	tables  []model.Table
	prompts []model.Prompt
	anns    []model.Announcement
	seats   []model.Seat

	tablesErr  error
	promptsErr error
	annsErr    error
	seatsErr   error
}

func (f *fakeBackend) Tables(context.Context) ([]model.Table, error) {
	return f.tables, f.tablesErr
}
func (f *fakeBackend) Prompts(context.Context) ([]model.Prompt, error) {
	return f.prompts, f.promptsErr
}
func (f *fakeBackend) Announcements(context.Context) ([]model.Announcement, error) {
	return f.anns, f.annsErr
}
func (f *fakeBackend) TableSeats(context.Context, uint32) ([]model.Seat, error) {
	return f.seats, f.seatsErr
}

func TestFetchAllWritesEveryResource(t *testing.T) {
	st := store.New(nil, "test")
	b := &fakeBackend{
		tables:  []model.Table{{ID: 1, Number: 7, IsActive: true}},
		prompts: []model.Prompt{{ID: 2, Text: "another round?", IsActive: true}},
		anns:    []model.Announcement{{ID: 3, Text: "last call"}},
	}
	f := New(b, st)
	ctx := context.Background()

	require.NoError(t, f.FetchAll(ctx))

	var tables []model.Table
	require.True(t, st.Read(ctx, queue.ResourceTables, &tables))
	require.Len(t, tables, 1)
	require.Equal(t, uint32(7), tables[0].Number)

	var prompts []model.Prompt
	require.True(t, st.Read(ctx, queue.ResourcePrompts, &prompts))
	require.Len(t, prompts, 1)

	var anns []model.Announcement
	require.True(t, st.Read(ctx, queue.ResourceAnnouncements, &anns))
	require.Len(t, anns, 1)
}

// One failing resource keeps its previous value while the others
// refresh.
func TestFetchAllPartialFailureKeepsStaleResource(t *testing.T) {
	st := store.New(nil, "test")
	b := &fakeBackend{
		tables:  []model.Table{{ID: 1, Number: 1, IsActive: true}},
		prompts: []model.Prompt{{ID: 10, Text: "old prompt"}},
		anns:    []model.Announcement{{ID: 20, Text: "old"}},
	}
	f := New(b, st)
	ctx := context.Background()
	require.NoError(t, f.FetchAll(ctx))

	// prompts starts failing; tables and announcements move on.
	b.promptsErr = errors.New("permission denied")
	b.tables = []model.Table{{ID: 1, Number: 1, IsActive: false}}
	b.anns = []model.Announcement{{ID: 21, Text: "new"}}

	require.NoError(t, f.FetchAll(ctx), "partial failure must not surface")

	var tables []model.Table
	require.True(t, st.Read(ctx, queue.ResourceTables, &tables))
	require.False(t, tables[0].IsActive, "tables must be fresh")

	var anns []model.Announcement
	require.True(t, st.Read(ctx, queue.ResourceAnnouncements, &anns))
	require.Equal(t, uint64(21), anns[0].ID, "announcements must be fresh")

	var prompts []model.Prompt
	require.True(t, st.Read(ctx, queue.ResourcePrompts, &prompts))
	require.Equal(t, "old prompt", prompts[0].Text, "prompts must keep the cached value")
}

func TestFetchAllTotalFailureReturnsErrorAndSeedsDefaults(t *testing.T) {
	st := store.New(nil, "test")
	boom := errors.New("network down")
	b := &fakeBackend{tablesErr: boom, promptsErr: boom, annsErr: boom}
	f := New(b, st)
	ctx := context.Background()

	err := f.FetchAll(ctx)
	require.Error(t, err, "all resources failing must surface")

	// First-ever load with no cache resolves to empty defaults, so
	// consumers never see a missing key.
	var tables []model.Table
	require.True(t, st.Read(ctx, queue.ResourceTables, &tables))
	require.Empty(t, tables)
}

// Applying the same snapshot twice produces no observable difference.
func TestFetchAllIdempotent(t *testing.T) {
	st := store.New(nil, "test")
	b := &fakeBackend{tables: []model.Table{{ID: 1, Number: 4, IsActive: true}}}
	f := New(b, st)
	ctx := context.Background()

	require.NoError(t, f.FetchAll(ctx))
	var first []model.Table
	require.True(t, st.Read(ctx, queue.ResourceTables, &first))

	require.NoError(t, f.FetchAll(ctx))
	var second []model.Table
	require.True(t, st.Read(ctx, queue.ResourceTables, &second))

	require.Equal(t, first, second)
}

// A fetch that resolves after a later-sequenced result was applied must
// be discarded rather than overwrite the fresher data.
func TestStaleSequenceDiscarded(t *testing.T) {
	st := store.New(nil, "test")
	f := New(&fakeBackend{}, st)
	ctx := context.Background()

	early := f.next(queue.ResourceTables)
	late := f.next(queue.ResourceTables)

	require.True(t, f.apply(ctx, queue.ResourceTables, late, []model.Table{{ID: 2, Number: 2}}))
	require.False(t, f.apply(ctx, queue.ResourceTables, early, []model.Table{{ID: 1, Number: 1}}),
		"earlier-sequenced result arriving late must be dropped")

	var tables []model.Table
	require.True(t, st.Read(ctx, queue.ResourceTables, &tables))
	require.Equal(t, uint64(2), tables[0].ID)
}

// A warm per-table seat snapshot must converge on the backend's view
// after a full fetch: guest seating and vacating write occupancy to
// the authoritative store, and the refresh is the only path by which
// other nodes' seat caches pick that up.
func TestFetchAllReconcilesSeatSnapshots(t *testing.T) {
	st := store.New(nil, "test")
	occupant := uint64(99)
	b := &fakeBackend{
		tables: []model.Table{{
			ID: 1, Number: 3, IsActive: true,
			Seats: []model.Seat{{ID: 10, TableID: 1, Code: "A", IsActive: true}},
		}},
	}
	f := New(b, st)
	ctx := context.Background()

	require.NoError(t, f.FetchAll(ctx))
	var seats []model.Seat
	require.True(t, st.Read(ctx, SeatKey(3), &seats), "fetch must warm the seat snapshot")
	require.Nil(t, seats[0].OccupantID)

	// A guest sits down at another node; the backend now reports seat A
	// occupied. The next fetch must converge the warm snapshot.
	b.tables[0].Seats[0].OccupantID = &occupant
	require.NoError(t, f.FetchAll(ctx))

	seats = nil
	require.True(t, st.Read(ctx, SeatKey(3), &seats))
	require.NotNil(t, seats[0].OccupantID, "seat occupancy must converge after a fetch")
	require.Equal(t, occupant, *seats[0].OccupantID)

	// And back again when the guest leaves.
	b.tables[0].Seats[0].OccupantID = nil
	require.NoError(t, f.FetchAll(ctx))
	seats = nil
	require.True(t, st.Read(ctx, SeatKey(3), &seats))
	require.Nil(t, seats[0].OccupantID)
}

// Concurrent applies must leave the value of the highest sequence in
// the store: the sequence check and the write happen under one lock,
// so a slower fetch can never slip its rows in after a fresher one.
func TestConcurrentAppliesKeepHighestSequence(t *testing.T) {
	st := store.New(nil, "test")
	f := New(&fakeBackend{}, st)
	ctx := context.Background()

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq := f.next(queue.ResourceTables)
			f.apply(ctx, queue.ResourceTables, seq, []model.Table{{ID: seq, Number: uint32(seq)}})
		}()
	}
	wg.Wait()

	// The fetch holding the highest sequence always applies (nothing can
	// outrank it), so the final stored rows must be its rows.
	var tables []model.Table
	require.True(t, st.Read(ctx, queue.ResourceTables, &tables))
	require.Equal(t, uint64(workers), tables[0].ID)
}

func TestFetchSeats(t *testing.T) {
	st := store.New(nil, "test")
	b := &fakeBackend{seats: []model.Seat{{ID: 1, TableID: 3, Code: "A", IsActive: true}}}
	f := New(b, st)
	ctx := context.Background()

	require.NoError(t, f.FetchSeats(ctx, 3))

	var seats []model.Seat
	require.True(t, st.Read(ctx, SeatKey(3), &seats))
	require.Equal(t, "A", seats[0].Code)

	b.seatsErr = errors.New("offline")
	require.Error(t, f.FetchSeats(ctx, 3))
	// Stale seats survive the failure.
	seats = nil
	require.True(t, st.Read(ctx, SeatKey(3), &seats))
	require.Len(t, seats, 1)
}
