package model

import "time"

// Announcement is a one-way broadcast message that does not expect a
// response.  TableNumbers lists the targeted tables; nil means every
// table.  Announcements are immutable once created and deletion is not
// modeled.
//
// Fields:
//  ID           – primary key identifier.
//  Text         – the message shown to guests.
//  TableNumbers – explicit target tables (nil = all).
//  CreatedAt    – creation timestamp.
type Announcement struct {
	ID           uint64    `json:"id"`            // announcements.id
	Text         string    `json:"text"`          // announcements.text
	TableNumbers []uint32  `json:"table_numbers"` // announcements.table_numbers (JSON column, nullable)
	CreatedAt    time.Time `json:"created_at"`    // announcements.created_at
}

// Targets reports whether the announcement is addressed to the given
// table number.
func (a Announcement) Targets(table uint32) bool {
	if a.TableNumbers == nil {
		return true
	}
	for _, n := range a.TableNumbers {
		if n == table {
			return true
		}
	}
	return false
}
