package models

import "gorm.io/gorm"

// LoadHistory action types
const (
	ActionLoadCreated       = "LOAD_CREATED"
	ActionStatusChange      = "STATUS_CHANGE"
	ActionCarrierAssigned   = "CARRIER_ASSIGNED"
	ActionDriverAssigned    = "DRIVER_ASSIGNED"
	ActionRouteModified     = "ROUTE_MODIFIED"
	ActionDeliveryConfirmed = "DELIVERY_CONFIRMED"
	ActionDocumentUploaded  = "DOCUMENT_UPLOADED"
	ActionDocumentVerified  = "DOCUMENT_VERIFIED"
	ActionBidCreated        = "BID_CREATED"
	ActionBidAccepted       = "BID_ACCEPTED"
	ActionBidRejected       = "BID_REJECTED"
	ActionLoadCancelled     = "LOAD_CANCELLED"
)

// HistoryVisibleActions maps a role to the action types it may see in the
// audit view. A missing entry (admin) means all action types are visible.
// Adding a role or an action type is a data change here, not a code change.
var HistoryVisibleActions = map[UserRole][]string{
	RoleShipper: {ActionStatusChange, ActionCarrierAssigned, ActionDeliveryConfirmed, ActionLoadCreated},
	RoleCarrier: {ActionDriverAssigned, ActionStatusChange, ActionRouteModified, ActionDeliveryConfirmed},
}

// LoadHistory is the detailed append-only audit row: full before/after
// entity snapshots plus a human-readable description, filtered by role on
// read.
type LoadHistory struct {
	gorm.Model
	LoadID      uint   `json:"loadId" gorm:"not null;index"`
	UserID      uint   `json:"userId" gorm:"not null"`
	ActionType  string `json:"actionType" gorm:"not null;index"`
	Description string `json:"description"`
	Before      string `json:"before,omitempty"`
	After       string `json:"after,omitempty"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// TableName specifies the table name
func (LoadHistory) TableName() string {
	return "load_history"
}
