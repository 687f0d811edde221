package reconcile

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/iliyamo/table-prompt-service/internal/feed"
)

// Default cadence of the reconciliation loop. Guest terminals poll
// faster than admin dashboards because a guest staring at a stale
// prompt is worse than extra read load.
const (
	DefaultGuestPoll       = 10 * time.Second
	DefaultAdminPoll       = 20 * time.Second
	DefaultReconnectDelay  = 5 * time.Second
	DefaultDebounce        = 500 * time.Millisecond
	DefaultRefreshCooldown = 2 * time.Second
)

// SnapshotFetcher is the one operation the coordinator needs from the
// snapshot layer. *fetcher.Fetcher implements it.
type SnapshotFetcher interface {
	FetchAll(ctx context.Context) error
}

// FetchFunc adapts a plain function to SnapshotFetcher, e.g. to bundle
// the table-scoped seat fetch into a guest node's refresh.
type FetchFunc func(ctx context.Context) error

// FetchAll implements SnapshotFetcher.
func (f FetchFunc) FetchAll(ctx context.Context) error { return f(ctx) }

// Opener opens a change-feed subscription. *feed.Subscriber satisfies
// it through OpenerFunc; tests substitute fakes.
type Opener interface {
	Open(resources []string, onChange func(resource string), onStatus func(feed.Status, error)) (io.Closer, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(resources []string, onChange func(resource string), onStatus func(feed.Status, error)) (io.Closer, error)

// Open implements Opener.
func (f OpenerFunc) Open(resources []string, onChange func(resource string), onStatus func(feed.Status, error)) (io.Closer, error) {
	return f(resources, onChange, onStatus)
}

// Config tunes one coordinator. Zero durations take the defaults above;
// PollInterval defaults by GuestMode.
type Config struct {
	Resources       []string // resource names to watch
	GuestMode       bool     // guest terminals downgrade feed errors (see Status)
	PollInterval    time.Duration
	ReconnectDelay  time.Duration
	Debounce        time.Duration
	RefreshCooldown time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		if c.GuestMode {
			c.PollInterval = DefaultGuestPoll
		} else {
			c.PollInterval = DefaultAdminPoll
		}
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.RefreshCooldown <= 0 {
		c.RefreshCooldown = DefaultRefreshCooldown
	}
	return c
}

type statusEvent struct {
	status feed.Status
	err    error
}

// Coordinator converges the shared state store with the remote store.
// One goroutine owns the whole loop: the change-feed callbacks and the
// public methods only post events into it, so there is exactly one
// authoritative timer and no two-writer race between push and poll.
// The loop's mode is explicit: push-active while the feed is connected
// (polling suppressed), poll-fallback otherwise.
type Coordinator struct {
	cfg    Config
	opener Opener
	fetch  SnapshotFetcher

	changeCh  chan string
	statusCh  chan statusEvent
	refreshCh chan struct{}
	subCh     chan io.Closer
	done      chan struct{}
	finished  chan struct{}
	stopOnce  sync.Once

	mu         sync.Mutex
	connState  feed.Status
	polling    bool
	opening    bool // a dial is in flight
	lastErr    error
	lastManual time.Time
	sub        io.Closer
}

// New constructs a Coordinator. Call Start to mount it and Stop to
// tear it down; both are required for a leak-free lifecycle.
func New(cfg Config, opener Opener, fetch SnapshotFetcher) *Coordinator {
	return &Coordinator{
		cfg:       cfg.withDefaults(),
		opener:    opener,
		fetch:     fetch,
		changeCh:  make(chan string, 16),
		statusCh:  make(chan statusEvent, 16),
		refreshCh: make(chan struct{}, 1),
		subCh:     make(chan io.Closer),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
	}
}

// Start mounts the coordinator: immediate snapshot fetch, change-feed
// open, poll fallback armed. It returns once the loop goroutine is up.
func (c *Coordinator) Start(ctx context.Context) {
	go c.run(ctx)
}

// Stop unmounts the coordinator: the poll timer stops and the feed
// subscription closes, on every exit path, before Stop returns. Safe
// to call more than once.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
	<-c.finished
}

// Status returns the connection status consumers should display.
// Guest terminals downgrade a feed error to connected so a transient
// permission failure never blocks the guest UI; the poll fallback is
// still driven by the real state underneath.
func (c *Coordinator) Status() feed.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.GuestMode && c.connState == feed.StatusError {
		return feed.StatusConnected
	}
	return c.connState
}

// Polling reports whether the poll fallback is currently active.
func (c *Coordinator) Polling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.polling
}

// LastError returns the most recent total-fetch failure, nil when the
// last fetch succeeded. Only an all-resources failure lands here;
// per-resource degradation is absorbed by the fetcher.
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Refresh requests an immediate snapshot fetch regardless of
// connection status. Repeated calls within the cooldown window return
// ErrRefreshCooldown instead of stacking fetches.
func (c *Coordinator) Refresh() error {
	c.mu.Lock()
	if time.Since(c.lastManual) < c.cfg.RefreshCooldown {
		c.mu.Unlock()
		return ErrRefreshCooldown
	}
	c.lastManual = time.Now()
	c.mu.Unlock()

	select {
	case c.refreshCh <- struct{}{}:
	default: // a refresh is already queued
	}
	return nil
}

// onChange posts a change notification into the loop. Dropping on a
// full channel is harmless: notifications are payload-free and
// coalesced by the debounce anyway.
func (c *Coordinator) onChange(resource string) {
	select {
	case c.changeCh <- resource:
	default:
	}
}

// onStatus posts a feed lifecycle transition into the loop.
func (c *Coordinator) onStatus(st feed.Status, err error) {
	select {
	case c.statusCh <- statusEvent{status: st, err: err}:
	default:
		log.Printf("reconcile: status event dropped: %s (%v)", st, err)
	}
}

func (c *Coordinator) run(ctx context.Context) {
	defer close(c.finished)

	// One authoritative poll ticker; fires always, fetches only in
	// poll-fallback mode.
	poll := time.NewTicker(c.cfg.PollInterval)
	defer poll.Stop()

	debounce := newStoppedTimer()
	defer debounce.Stop()
	reconnect := newStoppedTimer()
	defer reconnect.Stop()

	// Mount: fetch immediately, then open the feed. Polling stays
	// active until the subscription acknowledges.
	c.setState(feed.StatusConnecting, true)
	c.goFetch(ctx)
	c.openFeed(ctx)

	for {
		select {
		case <-ctx.Done():
			c.closeSub()
			return
		case <-c.done:
			c.closeSub()
			return

		case ev := <-c.statusCh:
			switch ev.status {
			case feed.StatusConnecting:
				c.setState(feed.StatusConnecting, true)
			case feed.StatusConnected:
				c.setState(feed.StatusConnected, false)
				stopTimer(reconnect) // a pending reconnect would double-open
			case feed.StatusError:
				log.Printf("reconcile: %v", &ConnectionError{Err: ev.err})
				c.setState(feed.StatusError, true)
				c.closeSub()
				resetTimer(reconnect, c.cfg.ReconnectDelay)
			}

		case <-c.changeCh:
			// Brief debounce: a burst of change events becomes one fetch.
			resetTimer(debounce, c.cfg.Debounce)

		case <-debounce.C:
			c.goFetch(ctx)

		case <-poll.C:
			if c.Polling() {
				c.goFetch(ctx)
			}

		case sub := <-c.subCh:
			c.adoptSub(sub)

		case <-reconnect.C:
			if c.subClosed() {
				c.openFeed(ctx)
			}

		case <-c.refreshCh:
			c.goFetch(ctx)
		}
	}
}

// goFetch runs one snapshot fetch off the loop goroutine. Out-of-order
// completions are handled by the fetcher's sequence guard, so fetches
// are never cancelled when superseded.
func (c *Coordinator) goFetch(ctx context.Context) {
	go func() {
		err := c.fetch.FetchAll(ctx)
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		if err != nil {
			log.Printf("reconcile: snapshot fetch degraded: %v", err)
		}
	}()
}

// openFeed opens the change-feed subscription. The dial runs off the
// loop goroutine so a slow broker cannot stall debounce, poll or
// refresh handling; the resulting subscription is posted back through
// subCh. Failures surface through the status callback, which schedules
// the next reconnect attempt. At most one dial is in flight.
func (c *Coordinator) openFeed(ctx context.Context) {
	c.mu.Lock()
	if c.opening {
		c.mu.Unlock()
		return
	}
	c.opening = true
	c.mu.Unlock()

	go func() {
		sub, err := c.opener.Open(c.cfg.Resources, c.onChange, c.onStatus)
		if err != nil {
			c.mu.Lock()
			c.opening = false
			c.mu.Unlock()
			return // onStatus(StatusError) already posted by the opener
		}
		select {
		case c.subCh <- sub:
		case <-c.done:
			_ = sub.Close() // loop already gone; release the orphan
		case <-ctx.Done():
			_ = sub.Close()
		}
	}()
}

// adoptSub records a subscription the dial goroutine handed back. When
// the feed already errored while the handle was in flight the handle is
// released instead, leaving the reconnect timer to drive a clean
// re-open. An existing subscription (a reconnect that raced a late
// dial) is closed in favor of the new one.
func (c *Coordinator) adoptSub(sub io.Closer) {
	c.mu.Lock()
	c.opening = false
	if c.connState == feed.StatusError {
		c.mu.Unlock()
		if err := sub.Close(); err != nil {
			log.Printf("reconcile: close errored subscription: %v", err)
		}
		return
	}
	old := c.sub
	c.sub = sub
	c.mu.Unlock()
	if old != nil {
		if err := old.Close(); err != nil {
			log.Printf("reconcile: close superseded subscription: %v", err)
		}
	}
}

// closeSub releases the current subscription, if any. Pairing every
// open with exactly one close is what keeps repeated error/reconnect
// cycles from leaking broker channels.
func (c *Coordinator) closeSub() {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()
	if sub != nil {
		if err := sub.Close(); err != nil {
			log.Printf("reconcile: close subscription: %v", err)
		}
	}
}

func (c *Coordinator) subClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sub == nil && !c.opening
}

func (c *Coordinator) setState(st feed.Status, polling bool) {
	c.mu.Lock()
	c.connState = st
	c.polling = polling
	c.mu.Unlock()
}

// newStoppedTimer returns a timer that will not fire until reset.
func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	stopTimer(t)
	return t
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	stopTimer(t)
	t.Reset(d)
}
