package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeatDisplayStatus(t *testing.T) {
	occupant := uint64(7)
	cases := []struct {
		name string
		seat Seat
		want string
	}{
		{"disabled and empty", Seat{IsActive: false}, "unavailable"},
		{"disabled keeps occupant", Seat{IsActive: false, OccupantID: &occupant}, "unavailable"},
		{"enabled and occupied", Seat{IsActive: true, OccupantID: &occupant}, "occupied"},
		{"enabled and empty", Seat{IsActive: true}, "available"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.seat.DisplayStatus())
		})
	}
}

func TestAnswerFinality(t *testing.T) {
	assert.True(t, AnswerFinal(AnswerYes))
	assert.True(t, AnswerFinal(AnswerNo))
	assert.False(t, AnswerFinal(AnswerService), "SERVICE must stay re-triggerable")

	assert.True(t, ValidAnswer(AnswerService))
	assert.False(t, ValidAnswer("MAYBE"))
	assert.False(t, ValidAnswer("yes"), "answers are case sensitive at the model level")
}

func TestAnnouncementTargets(t *testing.T) {
	broadcast := Announcement{TableNumbers: nil}
	assert.True(t, broadcast.Targets(1))
	assert.True(t, broadcast.Targets(42))

	scoped := Announcement{TableNumbers: []uint32{3, 5}}
	assert.True(t, scoped.Targets(3))
	assert.True(t, scoped.Targets(5))
	assert.False(t, scoped.Targets(4))

	empty := Announcement{TableNumbers: []uint32{}}
	assert.False(t, empty.Targets(1), "empty target list addresses nobody")
}

func TestTableStatus(t *testing.T) {
	assert.Equal(t, "active", Table{IsActive: true}.Status())
	assert.Equal(t, "inactive", Table{}.Status())
}
