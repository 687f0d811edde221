package model

import "time"

// Table represents a physical table on the floor.  A table is identified
// by its Number, which is what staff and guests see; ID is the surrogate
// primary key.  Tables are never hard-deleted in normal operation: an
// admin disables a table by clearing IsActive.
//
// Fields:
//  ID             – primary key identifier.
//  Number         – table number shown on the floor (unique, positive).
//  IsActive       – whether the table is enabled.
//  ActivePromptID – prompt currently assigned to this table (nil when none).
//  Version        – optimistic locking counter, bumped on every update.
//  Seats          – the table's seats, ordered by code.  Owned by the table.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Table struct {
	ID             uint64    `json:"id"`               // tables.id
	Number         uint32    `json:"number"`           // tables.number
	IsActive       bool      `json:"is_active"`        // tables.is_active
	ActivePromptID *uint64   `json:"active_prompt_id"` // tables.active_prompt_id (nullable)
	Version        uint32    `json:"version"`          // tables.version
	Seats          []Seat    `json:"seats"`            // loaded from the seats table
	CreatedAt      time.Time `json:"created_at"`       // tables.created_at
	UpdatedAt      time.Time `json:"updated_at"`       // tables.updated_at
}

// MinSeats and MaxSeats bound the seat count accepted when creating a table.
const (
	MinSeats = 2
	MaxSeats = 12
)

// Status returns the display status for the table.  The stored field is a
// plain boolean; the two-valued vocabulary exists only at the edges.
func (t Table) Status() string {
	if t.IsActive {
		return "active"
	}
	return "inactive"
}
