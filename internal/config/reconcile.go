package config

// reconcile.go loads the tuning knobs for the state reconciliation
// loop. Every value has a production default; env vars exist mainly so
// integration environments can shrink the timers.

import "time"

// ReconcileConfig carries the coordinator intervals and the node
// profile. A guest node polls faster and masks feed errors; an admin
// node polls slower and surfaces them.
type ReconcileConfig struct {
	GuestMode       bool          // guest reconciliation profile
	PollInterval    time.Duration // fallback poll cadence while not connected
	ReconnectDelay  time.Duration // fixed delay before reopening the change feed
	Debounce        time.Duration // quiet window that coalesces change bursts
	RefreshCooldown time.Duration // minimum gap between manual refreshes
}

// LoadReconcileConfig reads the reconciliation settings. The default
// poll cadence depends on the node profile: guests poll every 10s,
// admin nodes every 20s.
func LoadReconcileConfig() ReconcileConfig {
	guest := envBool("NODE_GUEST_MODE", false)
	poll := 20 * time.Second
	if guest {
		poll = 10 * time.Second
	}
	return ReconcileConfig{
		GuestMode:       guest,
		PollInterval:    envDur("RECONCILE_POLL_INTERVAL", poll),
		ReconnectDelay:  envDur("FEED_RECONNECT_DELAY", 5*time.Second),
		Debounce:        envDur("RECONCILE_DEBOUNCE", 500*time.Millisecond),
		RefreshCooldown: envDur("REFRESH_COOLDOWN", 2*time.Second),
	}
}
