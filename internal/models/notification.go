package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification type constants
const (
	NotificationBidReceived      = "bid_received"
	NotificationBidAccepted      = "bid_accepted"
	NotificationBidRejected      = "bid_rejected"
	NotificationStatusChanged    = "status_changed"
	NotificationDocumentUploaded = "document_uploaded"
	NotificationDocumentVerified = "document_verified"
	NotificationDriverAssigned   = "driver_assigned"
	NotificationGeofenceAlert    = "geofence_alert"
)

// Notification is a per-user inbox entry derived from domain events.
type Notification struct {
	gorm.Model
	UserID           uint   `json:"userId" gorm:"not null;index"`
	Type             string `json:"type" gorm:"not null"`
	Title            string `json:"title" gorm:"not null"`
	Body             string `json:"body"`
	LoadID           *uint  `json:"loadId,omitempty"`
	IsRead           bool   `json:"isRead" gorm:"not null;default:false"`
	IsActionRequired bool   `json:"isActionRequired" gorm:"not null;default:false"`
	ActionURL        string `json:"actionUrl,omitempty"`
}

// TableName specifies the table name
func (Notification) TableName() string {
	return "notifications"
}

// NotificationPreference represents user notification preferences
type NotificationPreference struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"uniqueIndex;not null" json:"userId"`
	User      User           `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// General push notification toggle
	PushEnabled bool `gorm:"column:push_enabled;default:true" json:"pushEnabled"`

	// Specific notification preferences
	BidAlerts       bool `gorm:"column:bid_alerts;default:true" json:"bidAlerts"`
	StatusAlerts    bool `gorm:"column:status_alerts;default:true" json:"statusAlerts"`
	DocumentAlerts  bool `gorm:"column:document_alerts;default:true" json:"documentAlerts"`
	GeofenceAlerts  bool `gorm:"column:geofence_alerts;default:true" json:"geofenceAlerts"`
	BroadcastAlerts bool `gorm:"column:broadcast_alerts;default:true" json:"broadcastAlerts"`
}

// TableName specifies the table name for NotificationPreference
func (NotificationPreference) TableName() string {
	return "notification_preferences"
}

// DefaultPreferences returns default notification preferences for a new user
func DefaultPreferences(userID uint) *NotificationPreference {
	return &NotificationPreference{
		UserID:          userID,
		PushEnabled:     true,
		BidAlerts:       true,
		StatusAlerts:    true,
		DocumentAlerts:  true,
		GeofenceAlerts:  true,
		BroadcastAlerts: true,
	}
}
