package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBidIsExpired(t *testing.T) {
	fresh := Bid{ExpiresAt: time.Now().Add(time.Hour)}
	stale := Bid{ExpiresAt: time.Now().Add(-time.Minute)}

	assert.False(t, fresh.IsExpired())
	assert.True(t, stale.IsExpired())
}

func TestBidIsActionable(t *testing.T) {
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name       string
		bid        Bid
		actionable bool
	}{
		{"pending and fresh", Bid{Status: BidStatusPending, ExpiresAt: future}, true},
		{"pending but past deadline", Bid{Status: BidStatusPending, ExpiresAt: past}, false},
		{"already accepted", Bid{Status: BidStatusAccepted, ExpiresAt: future}, false},
		{"withdrawn", Bid{Status: BidStatusWithdrawn, ExpiresAt: future}, false},
		{"rejected", Bid{Status: BidStatusRejected, ExpiresAt: future}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.actionable, tt.bid.IsActionable())
		})
	}
}
