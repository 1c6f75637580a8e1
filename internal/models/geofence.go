package models

import (
	"time"

	"gorm.io/gorm"
)

// Geofence type constants
const (
	GeofenceTypePickup   = "pickup"
	GeofenceTypeDelivery = "delivery"
	GeofenceTypeStop     = "stop"
)

// Geofence event type constants
const (
	GeofenceEventEntry = "entry"
	GeofenceEventExit  = "exit"
)

// Geofence is a named circular region tied to a load's pickup or delivery
// point. Center and radius are immutable once created; only IsActive can
// be toggled.
type Geofence struct {
	gorm.Model
	LoadID    uint    `json:"loadId" gorm:"not null;index"`
	Name      string  `json:"name" gorm:"not null"`
	Type      string  `json:"type" gorm:"not null"`
	Latitude  float64 `json:"latitude" gorm:"not null"`
	Longitude float64 `json:"longitude" gorm:"not null"`
	RadiusM   float64 `json:"radius" gorm:"column:radius_m;not null"`
	Address   string  `json:"address"`
	IsActive  bool    `json:"isActive" gorm:"not null;default:true"`

	Load *Load `json:"load,omitempty" gorm:"foreignKey:LoadID"`
}

// TableName specifies the table name
func (Geofence) TableName() string {
	return "geofences"
}

// GeofenceEvent is an observed entry or exit crossing. ReportedAt is the
// caller-supplied device timestamp, distinct from the row's CreatedAt.
// Rows are append-only and never mutated.
type GeofenceEvent struct {
	gorm.Model
	GeofenceID uint      `json:"geofenceId" gorm:"not null;index"`
	LoadID     uint      `json:"loadId" gorm:"not null;index"`
	UserID     uint      `json:"userId" gorm:"not null"`
	EventType  string    `json:"eventType" gorm:"not null"`
	Latitude   float64   `json:"latitude" gorm:"not null"`
	Longitude  float64   `json:"longitude" gorm:"not null"`
	AccuracyM  *float64  `json:"accuracy,omitempty" gorm:"column:accuracy_m"`
	ReportedAt time.Time `json:"timestamp" gorm:"not null"`

	Geofence *Geofence `json:"geofence,omitempty" gorm:"foreignKey:GeofenceID"`
}

// TableName specifies the table name
func (GeofenceEvent) TableName() string {
	return "geofence_events"
}
