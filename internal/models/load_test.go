package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		allowed bool
	}{
		{"draft to posted", LoadStatusDraft, LoadStatusPosted, true},
		{"draft to cancelled", LoadStatusDraft, LoadStatusCancelled, true},
		{"draft to assigned skips posting", LoadStatusDraft, LoadStatusAssigned, false},
		{"posted to assigned", LoadStatusPosted, LoadStatusAssigned, true},
		{"posted to in_transit skips assignment", LoadStatusPosted, LoadStatusInTransit, false},
		{"assigned to in_transit", LoadStatusAssigned, LoadStatusInTransit, true},
		{"in_transit to delivered", LoadStatusInTransit, LoadStatusDelivered, true},
		{"delivered to completed", LoadStatusDelivered, LoadStatusCompleted, true},
		{"delivered back to in_transit", LoadStatusDelivered, LoadStatusInTransit, false},
		{"in_transit to cancelled", LoadStatusInTransit, LoadStatusCancelled, true},
		{"completed to cancelled", LoadStatusCompleted, LoadStatusCancelled, false},
		{"cancelled to posted", LoadStatusCancelled, LoadStatusPosted, false},
		{"unknown from status", "bogus", LoadStatusPosted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsTerminalStatus(t *testing.T) {
	assert.True(t, IsTerminalStatus(LoadStatusCompleted))
	assert.True(t, IsTerminalStatus(LoadStatusCancelled))

	for _, s := range []string{LoadStatusDraft, LoadStatusPosted, LoadStatusAssigned, LoadStatusInTransit, LoadStatusDelivered} {
		assert.False(t, IsTerminalStatus(s), s)
	}
}

func TestValidLoadStatus(t *testing.T) {
	assert.True(t, ValidLoadStatus(LoadStatusDraft))
	assert.True(t, ValidLoadStatus(LoadStatusCancelled))
	assert.False(t, ValidLoadStatus("shipped"))
	assert.False(t, ValidLoadStatus(""))
}

func TestEveryNonTerminalStatusCanCancel(t *testing.T) {
	for from, nexts := range loadTransitions {
		if len(nexts) == 0 {
			continue
		}
		assert.True(t, CanTransition(from, LoadStatusCancelled), "expected %s to allow cancellation", from)
	}
}
