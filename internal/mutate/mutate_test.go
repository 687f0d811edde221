package mutate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-prompt-service/internal/model"
	"github.com/iliyamo/table-prompt-service/internal/reconcile"
	"github.com/iliyamo/table-prompt-service/internal/store"
)

func TestSuccessKeepsOptimisticValue(t *testing.T) {
	st := store.New(nil, "test")
	m := New(st)
	ctx := context.Background()

	require.NoError(t, st.Write(ctx, "tables", []model.Table{{ID: 1, IsActive: true}}))

	err := m.Do(ctx, "toggle table", "tables",
		func() { _ = st.Write(ctx, "tables", []model.Table{{ID: 1, IsActive: false}}) },
		func(context.Context) error { return nil })
	require.NoError(t, err)

	var tables []model.Table
	require.True(t, st.Read(ctx, "tables", &tables))
	require.False(t, tables[0].IsActive)
}

// Rollback law: after a rejected write, the store's value equals the
// value immediately before Do was called.
func TestFailureRestoresPreMutationValue(t *testing.T) {
	st := store.New(nil, "test")
	m := New(st)
	ctx := context.Background()

	before := []model.Table{{ID: 1, IsActive: true, Version: 3}}
	require.NoError(t, st.Write(ctx, "tables", before))

	boom := errors.New("version conflict")
	err := m.Do(ctx, "toggle table", "tables",
		func() { _ = st.Write(ctx, "tables", []model.Table{{ID: 1, IsActive: false, Version: 3}}) },
		func(context.Context) error { return boom })

	var werr *reconcile.WriteError
	require.ErrorAs(t, err, &werr)
	require.Equal(t, "toggle table", werr.Op)
	require.ErrorIs(t, err, boom)

	var after []model.Table
	require.True(t, st.Read(ctx, "tables", &after))
	require.Equal(t, before, after)
}

func TestFailureOnFreshKeyDeletesIt(t *testing.T) {
	st := store.New(nil, "test")
	m := New(st)
	ctx := context.Background()

	err := m.Do(ctx, "guest response", "guest",
		func() { _ = st.Write(ctx, "guest", model.GuestState{HasResponded: true}) },
		func(context.Context) error { return errors.New("rejected") })
	require.Error(t, err)

	var gs model.GuestState
	require.False(t, st.Read(ctx, "guest", &gs), "key absent before mutate must be absent after rollback")
}

// A SERVICE call leaves the guest able to ring again; YES/NO are final.
func TestGuestResponseFinality(t *testing.T) {
	st := store.New(nil, "test")
	m := New(st)
	ctx := context.Background()

	submit := func(answer string) model.GuestState {
		gs := model.GuestState{TableNumber: 5, SeatCode: "B", PromptID: 9}
		err := m.Do(ctx, "guest response", "guest",
			func() {
				gs.HasResponded = model.AnswerFinal(answer)
				_ = st.Write(ctx, "guest", gs)
			},
			func(context.Context) error { return nil })
		require.NoError(t, err)

		var got model.GuestState
		require.True(t, st.Read(ctx, "guest", &got))
		return got
	}

	require.False(t, submit(model.AnswerService).HasResponded,
		"SERVICE must remain re-triggerable")
	require.True(t, submit(model.AnswerYes).HasResponded)
	require.True(t, submit(model.AnswerNo).HasResponded)
}
