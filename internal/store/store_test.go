package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteThenRead(t *testing.T) {
	s := New(nil, "test")
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "tables", []string{"a", "b"}))

	var got []string
	require.True(t, s.Read(ctx, "tables", &got))
	require.Equal(t, []string{"a", "b"}, got)
}

func TestReadMissKeepsDefault(t *testing.T) {
	s := New(nil, "test")

	got := []string{"default"}
	require.False(t, s.Read(context.Background(), "absent", &got))
	require.Equal(t, []string{"default"}, got)
}

func TestReadMalformedValueIsMiss(t *testing.T) {
	s := New(nil, "test")
	ctx := context.Background()

	s.WriteRaw(ctx, "tables", json.RawMessage(`{not valid json`))

	var got map[string]int
	require.False(t, s.Read(ctx, "tables", &got), "malformed payload must read as a miss")
}

func TestWriterObservesOwnWrite(t *testing.T) {
	s := New(nil, "test")
	ctx := context.Background()

	var seen []string
	cancel := s.Subscribe("tables", func(key string, value json.RawMessage) {
		seen = append(seen, string(value))
	})
	defer cancel()

	require.NoError(t, s.Write(ctx, "tables", 1))
	require.NoError(t, s.Write(ctx, "tables", 2))

	// The storage-change event does not fire in the writer's own
	// context; the synthesized local notification must.
	require.Equal(t, []string{"1", "2"}, seen)
}

func TestSubscribeKeyFilter(t *testing.T) {
	s := New(nil, "test")
	ctx := context.Background()

	var tableEvents, allEvents int
	cancelTables := s.Subscribe("tables", func(string, json.RawMessage) { tableEvents++ })
	cancelAll := s.Subscribe("", func(string, json.RawMessage) { allEvents++ })
	defer cancelTables()
	defer cancelAll()

	require.NoError(t, s.Write(ctx, "tables", 1))
	require.NoError(t, s.Write(ctx, "prompts", 1))

	require.Equal(t, 1, tableEvents)
	require.Equal(t, 2, allEvents)
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	s := New(nil, "test")
	ctx := context.Background()

	var n int
	cancel := s.Subscribe("tables", func(string, json.RawMessage) { n++ })
	require.NoError(t, s.Write(ctx, "tables", 1))
	cancel()
	cancel() // second cancel must be harmless
	require.NoError(t, s.Write(ctx, "tables", 2))

	require.Equal(t, 1, n)
}

// Two contexts writing X then Y in physical order must both converge to
// Y, and a context must never regress to an older value it already saw.
func TestConvergenceAcrossContexts(t *testing.T) {
	s := New(nil, "test")
	ctx := context.Background()

	var observed []string
	cancel := s.Subscribe("tables", func(_ string, v json.RawMessage) {
		observed = append(observed, string(v))
	})
	defer cancel()

	// Local write of X, then a remote context writes Y.
	require.NoError(t, s.Write(ctx, "tables", "X"))
	s.applyRemote(notification{Origin: "other", Key: "tables", Value: json.RawMessage(`"Y"`)})

	var got string
	require.True(t, s.Read(ctx, "tables", &got))
	require.Equal(t, "Y", got)
	require.Equal(t, []string{`"X"`, `"Y"`}, observed)
}

func TestOwnOriginRemoteNotificationSkipped(t *testing.T) {
	s := New(nil, "test")
	ctx := context.Background()

	var n int
	cancel := s.Subscribe("tables", func(string, json.RawMessage) { n++ })
	defer cancel()

	require.NoError(t, s.Write(ctx, "tables", "X"))
	// Echo of our own publication must not notify again.
	s.applyRemote(notification{Origin: s.origin, Key: "tables", Value: json.RawMessage(`"stale"`)})

	require.Equal(t, 1, n)
	var got string
	require.True(t, s.Read(ctx, "tables", &got))
	require.Equal(t, "X", got)
}

func TestDeleteRemovesAndNotifies(t *testing.T) {
	s := New(nil, "test")
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "guest", "state"))

	var gotNil bool
	cancel := s.Subscribe("guest", func(_ string, v json.RawMessage) { gotNil = v == nil })
	defer cancel()

	s.Delete(ctx, "guest")
	require.True(t, gotNil)

	var out string
	require.False(t, s.Read(ctx, "guest", &out))
}

// Listen manages its own goroutine: callers invoke it directly and must
// not get blocked, with or without Redis behind the store.
func TestListenReturnsImmediately(t *testing.T) {
	s := New(nil, "test")

	done := make(chan struct{})
	go func() {
		s.Listen(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Listen must return to the caller immediately")
	}
}

func TestRawRoundTrip(t *testing.T) {
	s := New(nil, "test")
	ctx := context.Background()

	_, ok := s.Raw("tables")
	require.False(t, ok)

	require.NoError(t, s.Write(ctx, "tables", map[string]int{"n": 1}))
	raw, ok := s.Raw("tables")
	require.True(t, ok)

	// Writing the captured raw value back restores the exact state.
	s.WriteRaw(ctx, "tables", raw)
	var got map[string]int
	require.True(t, s.Read(ctx, "tables", &got))
	require.Equal(t, map[string]int{"n": 1}, got)
}
