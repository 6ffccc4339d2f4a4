package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisitStatusValid(t *testing.T) {
	assert.True(t, VisitStatusWaiting.Valid())
	assert.True(t, VisitStatusCheckedIn.Valid())
	assert.True(t, VisitStatusCompleted.Valid())
	assert.False(t, VisitStatus("ARRIVED").Valid())
	assert.False(t, VisitStatus("").Valid())
}

func TestVisitStatusNextCycles(t *testing.T) {
	assert.Equal(t, VisitStatusCheckedIn, VisitStatusWaiting.Next())
	assert.Equal(t, VisitStatusCompleted, VisitStatusCheckedIn.Next())
	assert.Equal(t, VisitStatusWaiting, VisitStatusCompleted.Next())
}
