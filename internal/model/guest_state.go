package model

import "time"

// GuestState is the per-terminal view of a guest session kept in the
// shared state store (it never touches the database).  HasResponded
// gates the answer buttons on the guest UI: a final answer (YES/NO)
// sets it, a SERVICE call leaves it clear so the guest can ring again.
//
// Fields:
//  TableNumber  – table the guest is bound to.
//  SeatCode     – seat the guest is bound to.
//  PromptID     – prompt currently shown (0 when none).
//  HasResponded – whether the guest has given a final answer to PromptID.
//  UpdatedAt    – last local change, for display only.
type GuestState struct {
	TableNumber  uint32    `json:"table_number"`
	SeatCode     string    `json:"seat_code"`
	PromptID     uint64    `json:"prompt_id"`
	HasResponded bool      `json:"has_responded"`
	UpdatedAt    time.Time `json:"updated_at"`
}
