// Package queue defines message payloads exchanged over the message broker.
package queue

// Resource names carried on the change feed. Each has its own fanout
// exchange and its own key in the shared state store.
const (
	ResourceTables        = "tables"
	ResourceSeats         = "seats"
	ResourcePrompts       = "prompts"
	ResourceAnnouncements = "announcements"
)

// WatchedResources lists every resource a reconciliation node watches.
var WatchedResources = []string{
	ResourceTables,
	ResourceSeats,
	ResourcePrompts,
	ResourceAnnouncements,
}

// ChangeEvent is published after a committed write to a resource. It
// deliberately carries no row payload: subscribers always refetch the
// full snapshot, so the event only needs to say that something changed.
type ChangeEvent struct {
	Resource  string `json:"resource"`   // which resource changed
	ChangedAt string `json:"changed_at"` // RFC3339 publish time, for log lines
}
