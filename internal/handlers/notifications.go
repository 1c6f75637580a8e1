package handlers

import (
	"errors"
	"fmt"

	"github.com/freightflow/freightflow-backend/internal/apperr"
	"github.com/freightflow/freightflow-backend/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetNotifications lists the caller's inbox, newest first.
func GetNotifications(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		query := db.Where("user_id = ?", userID)
		if c.Query("unread") == "true" {
			query = query.Where("is_read = ?", false)
		}

		var notifications []models.Notification
		if err := query.Order("created_at DESC").Limit(100).Find(&notifications).Error; err != nil {
			fail(c, err)
			return
		}

		var unreadCount int64
		db.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Count(&unreadCount)

		c.JSON(200, gin.H{
			"notifications": notifications,
			"unreadCount":   unreadCount,
		})
	}
}

// MarkNotificationRead marks one of the caller's notifications as read.
func MarkNotificationRead(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		notifID, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		userID := c.GetUint("userId")

		res := db.Model(&models.Notification{}).
			Where("id = ? AND user_id = ?", notifID, userID).
			Update("is_read", true)
		if res.Error != nil {
			fail(c, res.Error)
			return
		}
		if res.RowsAffected == 0 {
			fail(c, fmt.Errorf("%w: notification", apperr.ErrNotFound))
			return
		}

		c.JSON(200, gin.H{"message": "Notification marked as read"})
	}
}

// MarkAllNotificationsRead marks the caller's whole inbox as read.
func MarkAllNotificationsRead(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		res := db.Model(&models.Notification{}).
			Where("user_id = ? AND is_read = ?", userID, false).
			Update("is_read", true)
		if res.Error != nil {
			fail(c, res.Error)
			return
		}

		c.JSON(200, gin.H{"message": "All notifications marked as read", "updated": res.RowsAffected})
	}
}

// RegisterFCMToken stores the caller's device token for push delivery.
func RegisterFCMToken(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input struct {
			Token string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if err := db.Model(&models.User{}).Where("id = ?", userID).
			Update("fcm_token", input.Token).Error; err != nil {
			fail(c, err)
			return
		}

		c.JSON(200, gin.H{"message": "FCM token registered"})
	}
}

// RemoveFCMToken clears the caller's device token, typically on logout.
func RemoveFCMToken(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		if err := db.Model(&models.User{}).Where("id = ?", userID).
			Update("fcm_token", "").Error; err != nil {
			fail(c, err)
			return
		}

		c.JSON(200, gin.H{"message": "FCM token removed"})
	}
}

// GetNotificationPreferences returns the caller's preferences, creating
// the default row on first read.
func GetNotificationPreferences(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var pref models.NotificationPreference
		if err := db.Where("user_id = ?", userID).First(&pref).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, err)
				return
			}
			pref = *models.DefaultPreferences(userID)
			if err := db.Create(&pref).Error; err != nil {
				fail(c, err)
				return
			}
		}

		c.JSON(200, pref)
	}
}

// UpdateNotificationPreferences updates the caller's preference toggles.
func UpdateNotificationPreferences(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input struct {
			PushEnabled     *bool `json:"pushEnabled"`
			BidAlerts       *bool `json:"bidAlerts"`
			StatusAlerts    *bool `json:"statusAlerts"`
			DocumentAlerts  *bool `json:"documentAlerts"`
			GeofenceAlerts  *bool `json:"geofenceAlerts"`
			BroadcastAlerts *bool `json:"broadcastAlerts"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var pref models.NotificationPreference
		if err := db.Where("user_id = ?", userID).First(&pref).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, err)
				return
			}
			pref = *models.DefaultPreferences(userID)
			if err := db.Create(&pref).Error; err != nil {
				fail(c, err)
				return
			}
		}

		if input.PushEnabled != nil {
			pref.PushEnabled = *input.PushEnabled
		}
		if input.BidAlerts != nil {
			pref.BidAlerts = *input.BidAlerts
		}
		if input.StatusAlerts != nil {
			pref.StatusAlerts = *input.StatusAlerts
		}
		if input.DocumentAlerts != nil {
			pref.DocumentAlerts = *input.DocumentAlerts
		}
		if input.GeofenceAlerts != nil {
			pref.GeofenceAlerts = *input.GeofenceAlerts
		}
		if input.BroadcastAlerts != nil {
			pref.BroadcastAlerts = *input.BroadcastAlerts
		}

		if err := db.Save(&pref).Error; err != nil {
			fail(c, err)
			return
		}

		c.JSON(200, pref)
	}
}
