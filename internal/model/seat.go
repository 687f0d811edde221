package model

import "time"

// Seat describes a single position at a table.  Seats are uniquely
// identified by their table and code (a letter or short alphanumeric
// label).  Enablement and occupancy are deliberately two orthogonal
// fields: IsActive says whether the seat may be used at all, while
// OccupantID records who, if anyone, currently sits there.  The old
// three-valued available/occupied/unavailable vocabulary is derived
// display logic, never stored.
//
// Fields:
//  ID              – primary key identifier.
//  TableID         – table to which this seat belongs.
//  Code            – seat label within the table (A, B, ... unique per table).
//  IsActive        – whether the seat is enabled.
//  OccupantID      – user currently occupying the seat (nil when empty).
//  IsDealer        – whether the occupant is the current dealer.
//  DealerHandsLeft – remaining dealer hands for this seat (nil if untracked).
//  Version         – optimistic locking counter, bumped on every update.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Seat struct {
	ID              uint64    `json:"id"`                // seats.id
	TableID         uint64    `json:"table_id"`          // seats.table_id
	Code            string    `json:"code"`              // seats.code
	IsActive        bool      `json:"is_active"`         // seats.is_active
	OccupantID      *uint64   `json:"occupant_id"`       // seats.occupant_id (nullable)
	IsDealer        bool      `json:"is_dealer"`         // seats.is_dealer
	DealerHandsLeft *uint32   `json:"dealer_hands_left"` // seats.dealer_hands_left (nullable)
	Version         uint32    `json:"version"`           // seats.version
	CreatedAt       time.Time `json:"created_at"`        // seats.created_at
	UpdatedAt       time.Time `json:"updated_at"`        // seats.updated_at
}

// Occupied reports whether a guest currently sits at this seat.
func (s Seat) Occupied() bool { return s.OccupantID != nil }

// DisplayStatus derives the legacy three-valued status from the two
// stored fields: a disabled seat is "unavailable" regardless of
// occupancy; an enabled seat is "occupied" or "available".
func (s Seat) DisplayStatus() string {
	switch {
	case !s.IsActive:
		return "unavailable"
	case s.Occupied():
		return "occupied"
	default:
		return "available"
	}
}
