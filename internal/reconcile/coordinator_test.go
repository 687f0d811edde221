package reconcile

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-prompt-service/internal/feed"
)

// fastConfig keeps test runs short while preserving the interval
// relationships (debounce < reconnect < poll).
func fastConfig(guest bool) Config {
	return Config{
		Resources:       []string{"tables", "prompts"},
		GuestMode:       guest,
		PollInterval:    25 * time.Millisecond,
		ReconnectDelay:  40 * time.Millisecond,
		Debounce:        10 * time.Millisecond,
		RefreshCooldown: 200 * time.Millisecond,
	}
}

type fakeSub struct{ closes *int32 }

func (s *fakeSub) Close() error {
	atomic.AddInt32(s.closes, 1)
	return nil
}

// fakeOpener acknowledges every open (or fails them all) and lets the
// test drive the feed callbacks afterwards.
type fakeOpener struct {
	mu       sync.Mutex
	opens    int
	closes   int32
	failOpen bool
	onChange func(string)
	onStatus func(feed.Status, error)
}

func (f *fakeOpener) Open(_ []string, onChange func(string), onStatus func(feed.Status, error)) (io.Closer, error) {
	f.mu.Lock()
	f.opens++
	f.onChange = onChange
	f.onStatus = onStatus
	fail := f.failOpen
	f.mu.Unlock()

	onStatus(feed.StatusConnecting, nil)
	if fail {
		err := errors.New("dial refused")
		onStatus(feed.StatusError, err)
		return nil, err
	}
	onStatus(feed.StatusConnected, nil)
	return &fakeSub{closes: &f.closes}, nil
}

func (f *fakeOpener) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func (f *fakeOpener) emitError(err error) {
	f.mu.Lock()
	fn := f.onStatus
	f.mu.Unlock()
	fn(feed.StatusError, err)
}

func (f *fakeOpener) emitChange(resource string) {
	f.mu.Lock()
	fn := f.onChange
	f.mu.Unlock()
	fn(resource)
}

type countingFetcher struct{ n int32 }

func (c *countingFetcher) FetchAll(context.Context) error {
	atomic.AddInt32(&c.n, 1)
	return nil
}

func (c *countingFetcher) count() int32 { return atomic.LoadInt32(&c.n) }

func startCoordinator(t *testing.T, cfg Config, opener Opener, fetch SnapshotFetcher) *Coordinator {
	t.Helper()
	c := New(cfg, opener, fetch)
	c.Start(context.Background())
	t.Cleanup(c.Stop)
	return c
}

func TestMountFetchesAndConnects(t *testing.T) {
	opener := &fakeOpener{}
	fetch := &countingFetcher{}
	c := startCoordinator(t, fastConfig(false), opener, fetch)

	require.Eventually(t, func() bool { return fetch.count() >= 1 }, time.Second, time.Millisecond,
		"mount must trigger an immediate fetch")
	require.Eventually(t, func() bool { return c.Status() == feed.StatusConnected }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return !c.Polling() }, time.Second, time.Millisecond,
		"polling must stop once the feed acknowledges")
}

// Bounded liveness, suppression half: while connected, the poll timer
// must not trigger fetches.
func TestPollSuppressedWhenConnected(t *testing.T) {
	opener := &fakeOpener{}
	fetch := &countingFetcher{}
	c := startCoordinator(t, fastConfig(false), opener, fetch)

	require.Eventually(t, func() bool { return c.Status() == feed.StatusConnected }, time.Second, time.Millisecond)
	base := fetch.count()

	time.Sleep(150 * time.Millisecond) // six poll intervals
	require.Equal(t, base, fetch.count(), "no poll fetch may fire while connected")
}

// Bounded liveness, liveness half: when the feed never connects, a poll
// must occur at least once per interval.
func TestPollLivenessWhenDisconnected(t *testing.T) {
	opener := &fakeOpener{failOpen: true}
	fetch := &countingFetcher{}
	c := startCoordinator(t, fastConfig(false), opener, fetch)

	require.Eventually(t, func() bool { return fetch.count() >= 4 }, 2*time.Second, time.Millisecond,
		"poll fallback must keep fetching while not connected")
	require.True(t, c.Polling())
}

// Feed error on a non-guest client: status becomes error, polling
// activates, and a reconnect attempt fires within the delay window.
func TestChannelErrorReconnects(t *testing.T) {
	opener := &fakeOpener{}
	fetch := &countingFetcher{}
	c := startCoordinator(t, fastConfig(false), opener, fetch)

	require.Eventually(t, func() bool { return c.Status() == feed.StatusConnected }, time.Second, time.Millisecond)
	require.Equal(t, 1, opener.openCount())

	opener.emitError(errors.New("CHANNEL_ERROR"))

	require.Eventually(t, func() bool { return c.Status() == feed.StatusError }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return c.Polling() }, time.Second, time.Millisecond,
		"polling must be active during the error window")
	require.Eventually(t, func() bool { return opener.openCount() == 2 }, time.Second, time.Millisecond,
		"a reconnect must fire within the fixed delay")
	require.Eventually(t, func() bool { return atomic.LoadInt32(&opener.closes) == 1 }, time.Second, time.Millisecond,
		"the failed subscription must be closed exactly once")
}

// A guest client downgrades a feed error to connected so the guest UI
// is never blocked, but the poll fallback still runs underneath.
func TestGuestDowngradesFeedError(t *testing.T) {
	opener := &fakeOpener{}
	fetch := &countingFetcher{}
	c := startCoordinator(t, fastConfig(true), opener, fetch)

	require.Eventually(t, func() bool { return c.Status() == feed.StatusConnected }, time.Second, time.Millisecond)
	opener.emitError(errors.New("permission denied"))

	require.Eventually(t, func() bool { return c.Polling() }, time.Second, time.Millisecond)
	require.Equal(t, feed.StatusConnected, c.Status(), "guest status must stay connected")
}

// A burst of change notifications debounces into a single refetch.
func TestChangeNotificationsDebounce(t *testing.T) {
	opener := &fakeOpener{}
	fetch := &countingFetcher{}
	startCoordinator(t, fastConfig(false), opener, fetch)

	require.Eventually(t, func() bool { return fetch.count() == 1 }, time.Second, time.Millisecond)

	for i := 0; i < 5; i++ {
		opener.emitChange("tables")
	}

	require.Eventually(t, func() bool { return fetch.count() == 2 }, time.Second, time.Millisecond,
		"burst must produce exactly one debounced fetch")
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, int32(2), fetch.count())
}

func TestManualRefreshCooldown(t *testing.T) {
	opener := &fakeOpener{}
	fetch := &countingFetcher{}
	c := startCoordinator(t, fastConfig(false), opener, fetch)

	require.Eventually(t, func() bool { return fetch.count() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, c.Refresh(), "refresh must work regardless of status")
	require.ErrorIs(t, c.Refresh(), ErrRefreshCooldown, "second refresh within cooldown must be rejected")

	require.Eventually(t, func() bool { return fetch.count() == 2 }, time.Second, time.Millisecond)
}

// A hanging broker dial must not stall the loop: the mount fetch, the
// poll fallback and manual refreshes all keep being served while Open
// blocks.
func TestSlowDialDoesNotStallLoop(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	opener := OpenerFunc(func(_ []string, _ func(string), onStatus func(feed.Status, error)) (io.Closer, error) {
		onStatus(feed.StatusConnecting, nil)
		<-release
		err := errors.New("dial timeout")
		onStatus(feed.StatusError, err)
		return nil, err
	})

	fetch := &countingFetcher{}
	c := startCoordinator(t, fastConfig(false), opener, fetch)

	require.Eventually(t, func() bool { return fetch.count() >= 1 }, time.Second, time.Millisecond,
		"mount fetch must complete while the dial hangs")
	require.NoError(t, c.Refresh(), "refresh must be served while the dial hangs")
	require.Eventually(t, func() bool { return fetch.count() >= 2 }, time.Second, time.Millisecond,
		"the loop must keep fetching while the dial hangs")
}

func TestStopClosesSubscription(t *testing.T) {
	opener := &fakeOpener{}
	fetch := &countingFetcher{}
	c := New(fastConfig(false), opener, fetch)
	c.Start(context.Background())

	require.Eventually(t, func() bool { return c.Status() == feed.StatusConnected }, time.Second, time.Millisecond)

	c.Stop()
	c.Stop() // idempotent
	require.Equal(t, int32(1), atomic.LoadInt32(&opener.closes),
		"unmount must close the feed handle exactly once")
}
