package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookingIsTerminal(t *testing.T) {
	cases := []struct {
		status   string
		terminal bool
	}{
		{BookingPending, false},
		{BookingApproved, false},
		{BookingConfirmed, false},
		{BookingAssigned, false},
		{BookingInProgress, false},
		{BookingCompleted, true},
		{BookingCancelled, true},
		{BookingRejected, true},
	}

	for _, tc := range cases {
		b := &Booking{Status: tc.status}
		assert.Equal(t, tc.terminal, b.IsTerminal(), tc.status)
	}
}

func TestJobCardIsTerminal(t *testing.T) {
	assert.False(t, (&JobCard{Status: JobCardPending}).IsTerminal())
	assert.False(t, (&JobCard{Status: JobCardInProgress}).IsTerminal())
	assert.True(t, (&JobCard{Status: JobCardCompleted}).IsTerminal())
	assert.True(t, (&JobCard{Status: JobCardCancelled}).IsTerminal())
}
