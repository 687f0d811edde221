package model

import "time"

// Answer values a guest may submit for a prompt.
const (
	AnswerYes     = "YES"
	AnswerNo      = "NO"
	AnswerService = "SERVICE"
)

// ValidAnswer reports whether s is one of the accepted answer values.
func ValidAnswer(s string) bool {
	return s == AnswerYes || s == AnswerNo || s == AnswerService
}

// AnswerFinal reports whether submitting this answer ends the guest's
// turn for the current prompt.  YES and NO are final; SERVICE is a call
// for staff and remains re-triggerable.
func AnswerFinal(answer string) bool {
	return answer == AnswerYes || answer == AnswerNo
}

// Response is a guest's answer to a prompt.  Responses are immutable
// once created; the only permitted change is deletion by an admin.
// UserID is optional to support anonymized guest flows.  TableNumber
// and SeatCode record where the guest sat at answering time, so the
// row stays meaningful even after the seat is reassigned.
//
// Fields:
//  ID          – primary key identifier.
//  PromptID    – the prompt being answered.
//  UserID      – the answering user (nil for anonymized flows).
//  TableNumber – table number at time of answering.
//  SeatCode    – seat code at time of answering.
//  Answer      – YES, NO or SERVICE.
//  CreatedAt   – when the answer was recorded.
type Response struct {
	ID          uint64    `json:"id"`           // responses.id
	PromptID    uint64    `json:"prompt_id"`    // responses.prompt_id
	UserID      *uint64   `json:"user_id"`      // responses.user_id (nullable)
	TableNumber uint32    `json:"table_number"` // responses.table_number
	SeatCode    string    `json:"seat_code"`    // responses.seat_code
	Answer      string    `json:"answer"`       // responses.answer
	CreatedAt   time.Time `json:"created_at"`   // responses.created_at
}
