package services

import (
	"context"
	"fmt"

	"github.com/freightflow/freightflow-backend/internal/models"
	"github.com/freightflow/freightflow-backend/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NotificationInput describes one inbox notification to fan out.
type NotificationInput struct {
	UserID           uint
	Type             string
	Title            string
	Body             string
	LoadID           *uint
	IsActionRequired bool
	ActionURL        string
}

// CreateNotifications writes inbox rows inside the caller's transaction,
// so they commit or roll back with the mutation that caused them.
// External delivery happens separately after commit via Deliver.
func CreateNotifications(tx *gorm.DB, inputs []NotificationInput) error {
	for _, in := range inputs {
		n := models.Notification{
			UserID:           in.UserID,
			Type:             in.Type,
			Title:            in.Title,
			Body:             in.Body,
			LoadID:           in.LoadID,
			IsRead:           false,
			IsActionRequired: in.IsActionRequired,
			ActionURL:        in.ActionURL,
		}
		if err := tx.Create(&n).Error; err != nil {
			return err
		}
	}
	return nil
}

// Deliver pushes already-committed notifications to external channels:
// FCM push (per user preference), the websocket hub, and the message
// broker. Every channel is best-effort; failures are logged and never
// surfaced to the request that triggered them. Intended to run in a
// goroutine after the mutation's transaction commits.
func Deliver(db *gorm.DB, hub *Hub, inputs []NotificationInput, event *DomainEventMessage) {
	ctx := context.Background()

	for _, in := range inputs {
		var user models.User
		if err := db.First(&user, in.UserID).Error; err != nil {
			logger.L.Warn("notify: user lookup failed", zap.Uint("userId", in.UserID), zap.Error(err))
			continue
		}

		if pushAllowed(db, in) {
			payload := PushPayload{
				Title: in.Title,
				Body:  in.Body,
				Data:  map[string]string{"type": in.Type},
			}
			if in.LoadID != nil {
				payload.Data["loadId"] = fmt.Sprintf("%d", *in.LoadID)
			}
			if err := SendPushToToken(ctx, user.FCMToken, payload); err != nil {
				logger.L.Warn("notify: push failed", zap.Uint("userId", in.UserID), zap.Error(err))
			}
		}

		if hub != nil {
			message := fmt.Sprintf(`{"type":"notification","data":{"notificationType":%q,"title":%q}}`, in.Type, in.Title)
			hub.BroadcastToUser(in.UserID, []byte(message))
		}
	}

	if event != nil {
		if err := PublishDomainEvent(ctx, *event); err != nil {
			logger.L.Warn("notify: queue publish failed", zap.String("eventType", event.EventType), zap.Error(err))
		}
	}
}

func pushAllowed(db *gorm.DB, in NotificationInput) bool {
	var pref models.NotificationPreference
	if err := db.Where("user_id = ?", in.UserID).First(&pref).Error; err != nil {
		// No stored preference means defaults, and defaults allow push.
		return true
	}
	if !pref.PushEnabled {
		return false
	}
	switch in.Type {
	case models.NotificationBidReceived, models.NotificationBidAccepted, models.NotificationBidRejected:
		return pref.BidAlerts
	case models.NotificationStatusChanged:
		return pref.StatusAlerts
	case models.NotificationDocumentUploaded, models.NotificationDocumentVerified:
		return pref.DocumentAlerts
	case models.NotificationGeofenceAlert:
		return pref.GeofenceAlerts
	default:
		return true
	}
}
