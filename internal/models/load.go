package models

import (
	"time"

	"gorm.io/gorm"
)

// Load status constants
const (
	LoadStatusDraft     = "draft"
	LoadStatusPosted    = "posted"
	LoadStatusAssigned  = "assigned"
	LoadStatusInTransit = "in_transit"
	LoadStatusDelivered = "delivered"
	LoadStatusCompleted = "completed"
	LoadStatusCancelled = "cancelled"
)

// Rate type constants
const (
	RateTypeFlat    = "flat"
	RateTypePerMile = "per_mile"
)

// Load is the central aggregate: a single shipment tracked from posting
// through delivery.
type Load struct {
	gorm.Model
	ReferenceNumber string `json:"referenceNumber" gorm:"uniqueIndex;not null"`
	Status          string `json:"status" gorm:"not null;default:'draft'"`
	ShipperID       uint   `json:"shipperId" gorm:"not null"`
	CarrierID       *uint  `json:"carrierId,omitempty"`
	DriverID        *uint  `json:"driverId,omitempty"`
	VehicleID       *uint  `json:"vehicleId,omitempty"`

	PickupAddress    string    `json:"pickupAddress" gorm:"not null"`
	PickupLat        float64   `json:"pickupLat"`
	PickupLng        float64   `json:"pickupLng"`
	PickupWindowFrom time.Time `json:"pickupWindowFrom"`
	PickupWindowTo   time.Time `json:"pickupWindowTo"`

	DeliveryAddress    string    `json:"deliveryAddress" gorm:"not null"`
	DeliveryLat        float64   `json:"deliveryLat"`
	DeliveryLng        float64   `json:"deliveryLng"`
	DeliveryWindowFrom time.Time `json:"deliveryWindowFrom"`
	DeliveryWindowTo   time.Time `json:"deliveryWindowTo"`

	ActualPickupTime   *time.Time `json:"actualPickupTime,omitempty"`
	ActualDeliveryTime *time.Time `json:"actualDeliveryTime,omitempty"`

	WeightLbs float64 `json:"weightLbs"`
	LengthFt  float64 `json:"lengthFt"`
	WidthFt   float64 `json:"widthFt"`
	HeightFt  float64 `json:"heightFt"`
	Hazmat    bool    `json:"hazmat" gorm:"not null;default:false"`

	RateCents int64  `json:"rateCents"`
	RateType  string `json:"rateType" gorm:"default:'flat'"`

	TrackingEnabled bool `json:"trackingEnabled" gorm:"not null;default:true"`

	Shipper *User    `json:"shipper,omitempty" gorm:"foreignKey:ShipperID"`
	Carrier *Carrier `json:"carrier,omitempty" gorm:"foreignKey:CarrierID"`
	Driver  *User    `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
}

// TableName specifies the table name
func (Load) TableName() string {
	return "loads"
}

// loadTransitions maps each status to the statuses it may move to via an
// explicit status-change mutation. Automatic geofence transitions apply a
// stricter current-status equality guard on top of this.
var loadTransitions = map[string][]string{
	LoadStatusDraft:     {LoadStatusPosted, LoadStatusCancelled},
	LoadStatusPosted:    {LoadStatusAssigned, LoadStatusCancelled},
	LoadStatusAssigned:  {LoadStatusInTransit, LoadStatusCancelled},
	LoadStatusInTransit: {LoadStatusDelivered, LoadStatusCancelled},
	LoadStatusDelivered: {LoadStatusCompleted, LoadStatusCancelled},
	LoadStatusCompleted: {},
	LoadStatusCancelled: {},
}

// CanTransition reports whether a load may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range loadTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether a status permits no further transitions.
func IsTerminalStatus(status string) bool {
	return len(loadTransitions[status]) == 0
}

// ValidLoadStatus reports whether the given string is a known load status.
func ValidLoadStatus(status string) bool {
	_, ok := loadTransitions[status]
	return ok
}
