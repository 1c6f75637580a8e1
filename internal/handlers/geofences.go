package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/freightflow/freightflow-backend/internal/access"
	"github.com/freightflow/freightflow-backend/internal/apperr"
	"github.com/freightflow/freightflow-backend/internal/audit"
	"github.com/freightflow/freightflow-backend/internal/models"
	"github.com/freightflow/freightflow-backend/internal/services"
	"github.com/freightflow/freightflow-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	// Device timestamps outside this window are rejected as stale or
	// clock-skewed rather than silently accepted into the trail.
	maxEventAge    = 24 * time.Hour
	maxClockSkew   = 5 * time.Minute
	minGeofenceRad = 10.0
	maxGeofenceRad = 10000.0
)

// CreateGeofence defines a circular region on a load. Center and radius
// are fixed at creation; only IsActive can change afterwards.
func CreateGeofence(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		loadID, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		user, err := currentUser(c, db)
		if err != nil {
			fail(c, err)
			return
		}
		load, err := access.AuthorizeLoad(db, user, loadID, false)
		if err != nil {
			fail(c, err)
			return
		}

		// Coordinates are pointers so a legitimate zero (equator, prime
		// meridian) is distinguishable from a missing field.
		var input struct {
			Name      string   `json:"name" binding:"required"`
			Type      string   `json:"type" binding:"required,oneof=pickup delivery stop"`
			Latitude  *float64 `json:"latitude" binding:"required,min=-90,max=90"`
			Longitude *float64 `json:"longitude" binding:"required,min=-180,max=180"`
			RadiusM   float64  `json:"radius" binding:"required"`
			Address   string   `json:"address"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		if input.RadiusM < minGeofenceRad || input.RadiusM > maxGeofenceRad {
			c.JSON(400, gin.H{"error": fmt.Sprintf("radius must be between %.0f and %.0f meters", minGeofenceRad, maxGeofenceRad)})
			return
		}

		fence := models.Geofence{
			LoadID:    load.ID,
			Name:      input.Name,
			Type:      input.Type,
			Latitude:  *input.Latitude,
			Longitude: *input.Longitude,
			RadiusM:   input.RadiusM,
			Address:   input.Address,
			IsActive:  true,
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&fence).Error; err != nil {
				return err
			}
			return audit.Record(tx, audit.Entry{
				LoadID:    load.ID,
				UserID:    user.ID,
				EventType: models.EventGeofenceCreated,
				NewValue:  fence.Type,
				Notes:     fence.Name,
				Metadata: map[string]interface{}{
					"geofenceId": fence.ID,
					"latitude":   fence.Latitude,
					"longitude":  fence.Longitude,
					"radiusM":    fence.RadiusM,
				},
			})
		})
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(201, fence)
	}
}

// ToggleGeofence activates or deactivates a geofence.
func ToggleGeofence(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		fenceID, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		user, err := currentUser(c, db)
		if err != nil {
			fail(c, err)
			return
		}

		var fence models.Geofence
		if err := db.First(&fence, fenceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, fmt.Errorf("%w: geofence", apperr.ErrNotFound))
				return
			}
			fail(c, err)
			return
		}

		load, err := access.AuthorizeLoad(db, user, fence.LoadID, false)
		if err != nil {
			fail(c, err)
			return
		}

		var input struct {
			IsActive *bool `json:"isActive" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		if fence.IsActive == *input.IsActive {
			c.JSON(200, fence)
			return
		}

		eventType := models.EventGeofenceDeactivated
		if *input.IsActive {
			eventType = models.EventGeofenceActivated
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&fence).Update("is_active", *input.IsActive).Error; err != nil {
				return err
			}
			return audit.Record(tx, audit.Entry{
				LoadID:        load.ID,
				UserID:        user.ID,
				EventType:     eventType,
				PreviousValue: strconv.FormatBool(!*input.IsActive),
				NewValue:      strconv.FormatBool(*input.IsActive),
				Metadata:      map[string]interface{}{"geofenceId": fence.ID},
			})
		})
		if err != nil {
			fail(c, err)
			return
		}

		fence.IsActive = *input.IsActive
		c.JSON(200, fence)
	}
}

// RecordGeofenceEvent ingests an entry or exit crossing reported by a
// driver's device. An entry into an active pickup fence moves the load
// assigned→in_transit; entry into an active delivery fence moves it
// in_transit→delivered. The guard is a conditional update, so a crossing
// that arrives when the load has already moved on records the event and
// leaves the status alone.
func RecordGeofenceEvent(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		fenceID, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		user, err := currentUser(c, db)
		if err != nil {
			fail(c, err)
			return
		}

		var fence models.Geofence
		if err := db.First(&fence, fenceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, fmt.Errorf("%w: geofence", apperr.ErrNotFound))
				return
			}
			fail(c, err)
			return
		}

		load, err := access.AuthorizeLoad(db, user, fence.LoadID, false)
		if err != nil {
			fail(c, err)
			return
		}

		var input struct {
			EventType string    `json:"eventType" binding:"required,oneof=entry exit"`
			Latitude  *float64  `json:"latitude" binding:"required,min=-90,max=90"`
			Longitude *float64  `json:"longitude" binding:"required,min=-180,max=180"`
			Accuracy  *float64  `json:"accuracy"`
			Timestamp time.Time `json:"timestamp" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		now := time.Now()
		if input.Timestamp.Before(now.Add(-maxEventAge)) {
			fail(c, fmt.Errorf("%w: event timestamp is more than 24 hours old", apperr.ErrInvalidState))
			return
		}
		if input.Timestamp.After(now.Add(maxClockSkew)) {
			fail(c, fmt.Errorf("%w: event timestamp is in the future", apperr.ErrInvalidState))
			return
		}

		event := models.GeofenceEvent{
			GeofenceID: fence.ID,
			LoadID:     load.ID,
			UserID:     user.ID,
			EventType:  input.EventType,
			Latitude:   *input.Latitude,
			Longitude:  *input.Longitude,
			AccuracyM:  input.Accuracy,
			ReportedAt: input.Timestamp,
		}

		containment := utils.EvaluateContainment(fence.Latitude, fence.Longitude, fence.RadiusM,
			*input.Latitude, *input.Longitude, input.Accuracy)

		auditType := models.EventGeofenceExit
		if input.EventType == models.GeofenceEventEntry {
			auditType = models.EventGeofenceEntry
		}

		var (
			notifs     []services.NotificationInput
			prevStatus string
			nextStatus string
		)
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&event).Error; err != nil {
				return err
			}
			if err := audit.Record(tx, audit.Entry{
				LoadID:    load.ID,
				UserID:    user.ID,
				EventType: auditType,
				NewValue:  fence.Type,
				Metadata: map[string]interface{}{
					"geofenceId": fence.ID,
					"eventId":    event.ID,
					"distanceM":  containment.DistanceM,
					"confidence": containment.Confidence,
				},
			}); err != nil {
				return err
			}

			if input.EventType == models.GeofenceEventEntry && fence.IsActive {
				switch fence.Type {
				case models.GeofenceTypePickup:
					applied, err := transitionLoadStatus(tx, load.ID, models.LoadStatusAssigned, models.LoadStatusInTransit,
						map[string]interface{}{"actual_pickup_time": event.ReportedAt})
					if err != nil {
						return err
					}
					if applied {
						prevStatus, nextStatus = models.LoadStatusAssigned, models.LoadStatusInTransit
					}
				case models.GeofenceTypeDelivery:
					applied, err := transitionLoadStatus(tx, load.ID, models.LoadStatusInTransit, models.LoadStatusDelivered,
						map[string]interface{}{"actual_delivery_time": event.ReportedAt})
					if err != nil {
						return err
					}
					if applied {
						prevStatus, nextStatus = models.LoadStatusInTransit, models.LoadStatusDelivered
					}
				}
			}

			if nextStatus != "" {
				action := models.ActionStatusChange
				desc := fmt.Sprintf("Load %s entered %s zone, status %s", load.ReferenceNumber, fence.Type, nextStatus)
				if nextStatus == models.LoadStatusDelivered {
					action = models.ActionDeliveryConfirmed
					desc = fmt.Sprintf("Load %s delivered on geofence entry", load.ReferenceNumber)
				}
				if err := audit.Record(tx, audit.Entry{
					LoadID:        load.ID,
					UserID:        user.ID,
					EventType:     models.EventStatusChange,
					PreviousValue: prevStatus,
					NewValue:      nextStatus,
					Notes:         "automatic geofence transition",
					Metadata:      map[string]interface{}{"geofenceId": fence.ID, "reportedAt": event.ReportedAt},
					ActionType:    action,
					Description:   desc,
				}); err != nil {
					return err
				}
				notifs = statusChangeNotifications(tx, load, prevStatus, nextStatus)
			} else {
				notifs = []services.NotificationInput{{
					UserID: load.ShipperID,
					Type:   models.NotificationGeofenceAlert,
					Title:  fmt.Sprintf("Geofence %s", input.EventType),
					Body:   fmt.Sprintf("Driver %s the %s zone on load %s", crossingVerb(input.EventType), fence.Type, load.ReferenceNumber),
					LoadID: &load.ID,
				}}
			}
			return services.CreateNotifications(tx, notifs)
		})
		if err != nil {
			fail(c, err)
			return
		}

		if nextStatus != "" {
			afterStatusCommit(db, hub, load, prevStatus, nextStatus, "geofence", user.ID, notifs)
		} else {
			go services.Deliver(db, hub, notifs, nil)
		}

		c.JSON(201, gin.H{
			"eventId":     event.ID,
			"containment": containment,
			"statusChanged": gin.H{
				"applied":  nextStatus != "",
				"previous": prevStatus,
				"next":     nextStatus,
			},
		})
	}
}

func crossingVerb(eventType string) string {
	if eventType == models.GeofenceEventEntry {
		return "entered"
	}
	return "exited"
}

// CheckGeofenceContainment evaluates a point against a geofence without
// recording anything.
func CheckGeofenceContainment(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		fenceID, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		user, err := currentUser(c, db)
		if err != nil {
			fail(c, err)
			return
		}

		var fence models.Geofence
		if err := db.First(&fence, fenceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, fmt.Errorf("%w: geofence", apperr.ErrNotFound))
				return
			}
			fail(c, err)
			return
		}
		if _, err := access.AuthorizeLoad(db, user, fence.LoadID, true); err != nil {
			fail(c, err)
			return
		}

		lat, err := strconv.ParseFloat(c.Query("latitude"), 64)
		if err != nil || lat < -90 || lat > 90 {
			c.JSON(400, gin.H{"error": "latitude is required and must be between -90 and 90"})
			return
		}
		lng, err := strconv.ParseFloat(c.Query("longitude"), 64)
		if err != nil || lng < -180 || lng > 180 {
			c.JSON(400, gin.H{"error": "longitude is required and must be between -180 and 180"})
			return
		}
		var accuracy *float64
		if raw := c.Query("accuracy"); raw != "" {
			a, err := strconv.ParseFloat(raw, 64)
			if err != nil || a < 0 {
				c.JSON(400, gin.H{"error": "accuracy must be a non-negative number"})
				return
			}
			accuracy = &a
		}

		result := utils.EvaluateContainment(fence.Latitude, fence.Longitude, fence.RadiusM, lat, lng, accuracy)
		c.JSON(200, result)
	}
}

// GetLoadGeofences lists a load's geofences.
func GetLoadGeofences(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		loadID, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		user, err := currentUser(c, db)
		if err != nil {
			fail(c, err)
			return
		}
		load, err := access.AuthorizeLoad(db, user, loadID, true)
		if err != nil {
			fail(c, err)
			return
		}

		var fences []models.Geofence
		if err := db.Where("load_id = ?", load.ID).Order("created_at ASC").Find(&fences).Error; err != nil {
			fail(c, err)
			return
		}

		c.JSON(200, fences)
	}
}

// GetGeofenceEvents lists the recorded crossings for a geofence.
func GetGeofenceEvents(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		fenceID, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		user, err := currentUser(c, db)
		if err != nil {
			fail(c, err)
			return
		}

		var fence models.Geofence
		if err := db.First(&fence, fenceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, fmt.Errorf("%w: geofence", apperr.ErrNotFound))
				return
			}
			fail(c, err)
			return
		}
		if _, err := access.AuthorizeLoad(db, user, fence.LoadID, true); err != nil {
			fail(c, err)
			return
		}

		var events []models.GeofenceEvent
		if err := db.Where("geofence_id = ?", fence.ID).Order("reported_at DESC").Find(&events).Error; err != nil {
			fail(c, err)
			return
		}

		c.JSON(200, events)
	}
}
