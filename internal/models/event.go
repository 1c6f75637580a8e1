package models

import "gorm.io/gorm"

// Event type tags written by the mutation handlers. Free-form strings by
// design; these constants cover the tags the core emits itself.
const (
	EventStatusChange        = "status_change"
	EventLoadCreated         = "load_created"
	EventLoadUpdated         = "load_updated"
	EventLoadCancelled       = "load_cancelled"
	EventBidCreated          = "bid_created"
	EventBidUpdated          = "bid_updated"
	EventBidAccepted         = "bid_accepted"
	EventBidRejected         = "bid_rejected"
	EventBidWithdrawn        = "bid_withdrawn"
	EventBidExpired          = "bid_expired"
	EventDriverAssigned      = "driver_assigned"
	EventDocumentUploaded    = "document_uploaded"
	EventDocumentVerified    = "document_verified"
	EventDocumentDeleted     = "document_deleted"
	EventGeofenceCreated     = "geofence_created"
	EventGeofenceActivated   = "geofence_activated"
	EventGeofenceDeactivated = "geofence_deactivated"
	EventGeofenceEntry       = "geofence_entry"
	EventGeofenceExit        = "geofence_exit"
)

// Event is the compact append-only audit row: one per meaningful domain
// action against a load. Never mutated or deleted.
type Event struct {
	gorm.Model
	LoadID        uint   `json:"loadId" gorm:"not null;index"`
	UserID        uint   `json:"userId" gorm:"not null"`
	EventType     string `json:"eventType" gorm:"not null;index"`
	PreviousValue string `json:"previousValue,omitempty"`
	NewValue      string `json:"newValue,omitempty"`
	Notes         string `json:"notes,omitempty"`
	Metadata      string `json:"metadata,omitempty"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// TableName specifies the table name
func (Event) TableName() string {
	return "events"
}
