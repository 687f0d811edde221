package model

import "time"

// Prompt is a question pushed to one table or to every table.  A nil
// TableID means the prompt targets all tables.  Prompts authored by a
// table admin are always pinned to that admin's own table regardless of
// the requested target; the repository enforces this.
//
// Fields:
//  ID        – primary key identifier.
//  Text      – the question shown to guests.
//  TableID   – target table (nil = all tables).
//  IsActive  – whether the prompt may still be dispatched.
//  CreatedAt – creation timestamp.
type Prompt struct {
	ID        uint64    `json:"id"`         // prompts.id
	Text      string    `json:"text"`       // prompts.text
	TableID   *uint64   `json:"table_id"`   // prompts.table_id (nullable)
	IsActive  bool      `json:"is_active"`  // prompts.is_active
	CreatedAt time.Time `json:"created_at"` // prompts.created_at
}

// Broadcast reports whether the prompt targets every table.
func (p Prompt) Broadcast() bool { return p.TableID == nil }
