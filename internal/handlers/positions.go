package handlers

import (
	"context"
	"fmt"

	"github.com/freightflow/freightflow-backend/internal/access"
	"github.com/freightflow/freightflow-backend/internal/apperr"
	"github.com/freightflow/freightflow-backend/internal/models"
	"github.com/freightflow/freightflow-backend/internal/services"
	"github.com/freightflow/freightflow-backend/pkg/logger"
	"github.com/freightflow/freightflow-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// activeDriverStatuses are the load statuses a driver is actively moving
// freight under. Position updates only matter against these.
var activeDriverStatuses = []string{models.LoadStatusAssigned, models.LoadStatusInTransit}

// UpdateDriverPosition caches a driver's reported location, broadcasts it
// over the hub, and returns containment evaluations against the active
// geofences of the driver's in-flight loads so the client knows whether
// to report a crossing.
func UpdateDriverPosition(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := currentUser(c, db)
		if err != nil {
			fail(c, err)
			return
		}
		if err := access.RequireRole(user, models.RoleDriver); err != nil {
			fail(c, err)
			return
		}

		// Pointer coordinates keep "required" from rejecting a genuine
		// zero latitude or longitude.
		var input struct {
			Latitude  *float64 `json:"latitude" binding:"required,min=-90,max=90"`
			Longitude *float64 `json:"longitude" binding:"required,min=-180,max=180"`
			Accuracy  *float64 `json:"accuracy"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		lat, lng := *input.Latitude, *input.Longitude

		ctx := c.Request.Context()
		if services.RedisClient != nil {
			pos := services.DriverPosition{
				Lat:       lat,
				Lng:       lng,
				AccuracyM: input.Accuracy,
			}
			// Caching is best-effort; the containment results below are
			// what the client actually needs.
			if err := services.SetDriverPosition(ctx, user.ID, pos); err != nil {
				logger.L.Warn("failed to cache driver position", zap.Uint("driverId", user.ID), zap.Error(err))
			}
		}

		var loads []models.Load
		if err := db.Where("driver_id = ? AND status IN ?", user.ID, activeDriverStatuses).
			Find(&loads).Error; err != nil {
			fail(c, err)
			return
		}

		type fenceCheck struct {
			GeofenceID uint                    `json:"geofenceId"`
			LoadID     uint                    `json:"loadId"`
			Type       string                  `json:"type"`
			Result     utils.ContainmentResult `json:"result"`
		}
		checks := make([]fenceCheck, 0)
		for _, load := range loads {
			var fences []models.Geofence
			if err := db.Where("load_id = ? AND is_active = ?", load.ID, true).Find(&fences).Error; err != nil {
				fail(c, err)
				return
			}
			for _, fence := range fences {
				result := utils.EvaluateContainment(fence.Latitude, fence.Longitude, fence.RadiusM,
					lat, lng, input.Accuracy)
				checks = append(checks, fenceCheck{
					GeofenceID: fence.ID,
					LoadID:     load.ID,
					Type:       fence.Type,
					Result:     result,
				})
			}

			if hub != nil {
				loadID := load.ID
				hub.SendDriverPositionUpdate(services.DriverPositionUpdate{
					DriverID: user.ID,
					LoadID:   &loadID,
					Lat:      lat,
					Lng:      lng,
					Accuracy: input.Accuracy,
				})
			}
		}

		c.JSON(200, gin.H{"geofences": checks})
	}
}

// GetDriverPosition returns a driver's last cached position to anyone
// who can read one of the driver's loads.
func GetDriverPosition(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		user, err := currentUser(c, db)
		if err != nil {
			fail(c, err)
			return
		}

		if user.Role != models.RoleAdmin && user.ID != driverID {
			var load models.Load
			query := db.Where("driver_id = ? AND status IN ?", driverID, activeDriverStatuses)
			switch user.Role {
			case models.RoleShipper:
				query = query.Where("shipper_id = ?", user.ID)
			case models.RoleCarrier:
				if user.CarrierID == nil {
					fail(c, fmt.Errorf("%w: user has no carrier", apperr.ErrForbidden))
					return
				}
				query = query.Where("carrier_id = ?", *user.CarrierID)
			default:
				fail(c, fmt.Errorf("%w: cannot view another driver's position", apperr.ErrForbidden))
				return
			}
			if err := query.First(&load).Error; err != nil {
				fail(c, fmt.Errorf("%w: no active load with this driver", apperr.ErrForbidden))
				return
			}
		}

		if services.RedisClient == nil {
			fail(c, fmt.Errorf("%w: position tracking unavailable", apperr.ErrNotFound))
			return
		}
		pos, err := services.GetDriverPosition(context.Background(), driverID)
		if err != nil {
			fail(c, fmt.Errorf("%w: no recent position for driver", apperr.ErrNotFound))
			return
		}

		c.JSON(200, pos)
	}
}
