package models

import (
	"time"

	"gorm.io/gorm"
)

// Bid status constants
const (
	BidStatusPending   = "pending"
	BidStatusAccepted  = "accepted"
	BidStatusRejected  = "rejected"
	BidStatusExpired   = "expired"
	BidStatusWithdrawn = "withdrawn"
)

// DefaultBidExpiry is how long a bid stays open when the carrier does not
// supply an explicit expiry.
const DefaultBidExpiry = 48 * time.Hour

// Bid is a carrier's priced offer against one posted load. At most one
// pending bid may exist per (load, carrier) pair; a partial unique index
// enforces this at the storage layer.
type Bid struct {
	gorm.Model
	LoadID      uint      `json:"loadId" gorm:"not null;index"`
	CarrierID   uint      `json:"carrierId" gorm:"not null;index"`
	UserID      uint      `json:"userId" gorm:"not null"`
	AmountCents int64     `json:"amountCents" gorm:"not null"`
	Notes       string    `json:"notes,omitempty"`
	Status      string    `json:"status" gorm:"not null;default:'pending'"`
	ExpiresAt   time.Time `json:"expiresAt" gorm:"not null"`

	Load    *Load    `json:"load,omitempty" gorm:"foreignKey:LoadID"`
	Carrier *Carrier `json:"carrier,omitempty" gorm:"foreignKey:CarrierID"`
	User    *User    `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// TableName specifies the table name
func (Bid) TableName() string {
	return "bids"
}

// IsExpired reports whether the bid is past its expiry. Expiry is lazily
// evaluated at decision points; the stored status is only flipped by the
// background sweep for audit clarity.
func (b *Bid) IsExpired() bool {
	return time.Now().After(b.ExpiresAt)
}

// IsActionable reports whether the bid can still be accepted, rejected or
// updated.
func (b *Bid) IsActionable() bool {
	return b.Status == BidStatusPending && !b.IsExpired()
}
