package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/freightflow/freightflow-backend/internal/access"
	"github.com/freightflow/freightflow-backend/internal/apperr"
	"github.com/freightflow/freightflow-backend/internal/audit"
	"github.com/freightflow/freightflow-backend/internal/models"
	"github.com/freightflow/freightflow-backend/internal/services"
	"github.com/freightflow/freightflow-backend/pkg/logger"
	"github.com/freightflow/freightflow-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func newReferenceNumber() string {
	return "FF-" + strings.ToUpper(uuid.NewString()[:8])
}

// CreateLoad handles the creation of a new load by a shipper
func CreateLoad(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := currentUser(c, db)
		if err != nil {
			fail(c, err)
			return
		}
		if err := access.RequireRole(user, models.RoleShipper, models.RoleAdmin); err != nil {
			fail(c, err)
			return
		}

		var input struct {
			Status             string    `json:"status" binding:"omitempty,oneof=draft posted"`
			PickupAddress      string    `json:"pickupAddress" binding:"required"`
			PickupLat          float64   `json:"pickupLat"`
			PickupLng          float64   `json:"pickupLng"`
			PickupWindowFrom   time.Time `json:"pickupWindowFrom" binding:"required"`
			PickupWindowTo     time.Time `json:"pickupWindowTo" binding:"required"`
			DeliveryAddress    string    `json:"deliveryAddress" binding:"required"`
			DeliveryLat        float64   `json:"deliveryLat"`
			DeliveryLng        float64   `json:"deliveryLng"`
			DeliveryWindowFrom time.Time `json:"deliveryWindowFrom" binding:"required"`
			DeliveryWindowTo   time.Time `json:"deliveryWindowTo" binding:"required"`
			WeightLbs          float64   `json:"weightLbs"`
			LengthFt           float64   `json:"lengthFt"`
			WidthFt            float64   `json:"widthFt"`
			HeightFt           float64   `json:"heightFt"`
			Hazmat             bool      `json:"hazmat"`
			RateCents          int64     `json:"rateCents" binding:"required,gt=0"`
			RateType           string    `json:"rateType" binding:"omitempty,oneof=flat per_mile"`
			TrackingEnabled    *bool     `json:"trackingEnabled"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		status := input.Status
		if status == "" {
			status = models.LoadStatusDraft
		}
		rateType := input.RateType
		if rateType == "" {
			rateType = models.RateTypeFlat
		}

		load := models.Load{
			ReferenceNumber:    newReferenceNumber(),
			Status:             status,
			ShipperID:          user.ID,
			PickupAddress:      input.PickupAddress,
			PickupLat:          input.PickupLat,
			PickupLng:          input.PickupLng,
			PickupWindowFrom:   input.PickupWindowFrom,
			PickupWindowTo:     input.PickupWindowTo,
			DeliveryAddress:    input.DeliveryAddress,
			DeliveryLat:        input.DeliveryLat,
			DeliveryLng:        input.DeliveryLng,
			DeliveryWindowFrom: input.DeliveryWindowFrom,
			DeliveryWindowTo:   input.DeliveryWindowTo,
			WeightLbs:          input.WeightLbs,
			LengthFt:           input.LengthFt,
			WidthFt:            input.WidthFt,
			HeightFt:           input.HeightFt,
			Hazmat:             input.Hazmat,
			RateCents:          input.RateCents,
			RateType:           rateType,
			TrackingEnabled:    true,
		}
		if input.TrackingEnabled != nil {
			load.TrackingEnabled = *input.TrackingEnabled
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&load).Error; err != nil {
				return err
			}
			return audit.Record(tx, audit.Entry{
				LoadID:      load.ID,
				UserID:      user.ID,
				EventType:   models.EventLoadCreated,
				NewValue:    load.Status,
				ActionType:  models.ActionLoadCreated,
				Description: fmt.Sprintf("Load %s created in %s", load.ReferenceNumber, load.Status),
				After:       load,
			})
		})
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(201, load)
	}
}

// UpdateLoad edits a load's attributes while it is still draft or posted.
func UpdateLoad(db *gorm.DB) gin.HandlerFunc {
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
		if err := access.RequireRole(user, models.RoleShipper, models.RoleAdmin); err != nil {
			fail(c, err)
			return
		}
		load, err := access.AuthorizeLoad(db, user, loadID, false)
		if err != nil {
			fail(c, err)
			return
		}
		if load.Status != models.LoadStatusDraft && load.Status != models.LoadStatusPosted {
			fail(c, fmt.Errorf("%w: load can only be edited while draft or posted", apperr.ErrInvalidState))
			return
		}

		var input struct {
			PickupAddress   *string  `json:"pickupAddress"`
			PickupLat       *float64 `json:"pickupLat"`
			PickupLng       *float64 `json:"pickupLng"`
			DeliveryAddress *string  `json:"deliveryAddress"`
			DeliveryLat     *float64 `json:"deliveryLat"`
			DeliveryLng     *float64 `json:"deliveryLng"`
			WeightLbs       *float64 `json:"weightLbs"`
			Hazmat          *bool    `json:"hazmat"`
			RateCents       *int64   `json:"rateCents"`
			RateType        *string  `json:"rateType"`
			TrackingEnabled *bool    `json:"trackingEnabled"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		before := *load
		routeChanged := false

		if input.PickupAddress != nil {
			load.PickupAddress = *input.PickupAddress
			routeChanged = true
		}
		if input.PickupLat != nil {
			load.PickupLat = *input.PickupLat
			routeChanged = true
		}
		if input.PickupLng != nil {
			load.PickupLng = *input.PickupLng
			routeChanged = true
		}
		if input.DeliveryAddress != nil {
			load.DeliveryAddress = *input.DeliveryAddress
			routeChanged = true
		}
		if input.DeliveryLat != nil {
			load.DeliveryLat = *input.DeliveryLat
			routeChanged = true
		}
		if input.DeliveryLng != nil {
			load.DeliveryLng = *input.DeliveryLng
			routeChanged = true
		}
		if input.WeightLbs != nil {
			load.WeightLbs = *input.WeightLbs
		}
		if input.Hazmat != nil {
			load.Hazmat = *input.Hazmat
		}
		if input.RateCents != nil {
			if *input.RateCents <= 0 {
				c.JSON(400, gin.H{"error": "rateCents must be positive"})
				return
			}
			load.RateCents = *input.RateCents
		}
		if input.RateType != nil {
			if *input.RateType != models.RateTypeFlat && *input.RateType != models.RateTypePerMile {
				c.JSON(400, gin.H{"error": "Invalid rateType"})
				return
			}
			load.RateType = *input.RateType
		}
		if input.TrackingEnabled != nil {
			load.TrackingEnabled = *input.TrackingEnabled
		}

		entry := audit.Entry{
			LoadID:    load.ID,
			UserID:    user.ID,
			EventType: models.EventLoadUpdated,
			Before:    before,
			After:     *load,
		}
		if routeChanged {
			entry.ActionType = models.ActionRouteModified
			entry.Description = fmt.Sprintf("Route modified for load %s", load.ReferenceNumber)
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(load).Error; err != nil {
				return err
			}
			return audit.Record(tx, entry)
		})
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(200, load)
	}
}

// transitionLoadStatus applies a conditional status update so a
// concurrent writer cannot be silently overwritten: the write only lands
// if the status is still what the caller observed.
func transitionLoadStatus(tx *gorm.DB, loadID uint, from, to string, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := tx.Model(&models.Load{}).
		Where("id = ? AND status = ?", loadID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateLoadStatus handles an explicit status-change mutation by the
// owning shipper or an admin.
func UpdateLoadStatus(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
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
		if err := access.RequireRole(user, models.RoleShipper, models.RoleAdmin); err != nil {
			fail(c, err)
			return
		}
		load, err := access.AuthorizeLoad(db, user, loadID, false)
		if err != nil {
			fail(c, err)
			return
		}

		var input struct {
			Status string `json:"status" binding:"required"`
			Notes  string `json:"notes"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		if !models.ValidLoadStatus(input.Status) {
			c.JSON(400, gin.H{"error": "Unknown status"})
			return
		}
		if !models.CanTransition(load.Status, input.Status) {
			fail(c, fmt.Errorf("%w: cannot move load from %s to %s", apperr.ErrInvalidState, load.Status, input.Status))
			return
		}

		previous := load.Status
		extra := map[string]interface{}{}
		now := time.Now()
		if input.Status == models.LoadStatusInTransit && load.ActualPickupTime == nil {
			extra["actual_pickup_time"] = now
		}
		if input.Status == models.LoadStatusDelivered && load.ActualDeliveryTime == nil {
			extra["actual_delivery_time"] = now
		}

		var notifs []services.NotificationInput
		err = db.Transaction(func(tx *gorm.DB) error {
			applied, err := transitionLoadStatus(tx, load.ID, previous, input.Status, extra)
			if err != nil {
				return err
			}
			if !applied {
				return fmt.Errorf("%w: load status changed concurrently", apperr.ErrInvalidState)
			}

			actionType := models.ActionStatusChange
			if input.Status == models.LoadStatusDelivered {
				actionType = models.ActionDeliveryConfirmed
			}
			if err := audit.Record(tx, audit.Entry{
				LoadID:        load.ID,
				UserID:        user.ID,
				EventType:     models.EventStatusChange,
				PreviousValue: previous,
				NewValue:      input.Status,
				Notes:         input.Notes,
				ActionType:    actionType,
				Description:   fmt.Sprintf("Load %s moved from %s to %s", load.ReferenceNumber, previous, input.Status),
				Before:        gin.H{"status": previous},
				After:         gin.H{"status": input.Status},
			}); err != nil {
				return err
			}

			notifs = statusChangeNotifications(tx, load, previous, input.Status)
			return services.CreateNotifications(tx, notifs)
		})
		if err != nil {
			fail(c, err)
			return
		}

		afterStatusCommit(db, hub, load, previous, input.Status, "manual", user.ID, notifs)

		c.JSON(200, gin.H{"message": "Status updated", "status": input.Status, "previousStatus": previous})
	}
}

// CancelLoad moves a load to the terminal cancelled status.
func CancelLoad(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
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
		if err := access.RequireRole(user, models.RoleShipper, models.RoleAdmin); err != nil {
			fail(c, err)
			return
		}
		load, err := access.AuthorizeLoad(db, user, loadID, false)
		if err != nil {
			fail(c, err)
			return
		}
		if models.IsTerminalStatus(load.Status) {
			fail(c, fmt.Errorf("%w: load is already %s", apperr.ErrInvalidState, load.Status))
			return
		}

		var input struct {
			Reason string `json:"reason"`
		}
		_ = c.ShouldBindJSON(&input)

		previous := load.Status
		var notifs []services.NotificationInput
		err = db.Transaction(func(tx *gorm.DB) error {
			applied, err := transitionLoadStatus(tx, load.ID, previous, models.LoadStatusCancelled, nil)
			if err != nil {
				return err
			}
			if !applied {
				return fmt.Errorf("%w: load status changed concurrently", apperr.ErrInvalidState)
			}
			if err := audit.Record(tx, audit.Entry{
				LoadID:        load.ID,
				UserID:        user.ID,
				EventType:     models.EventLoadCancelled,
				PreviousValue: previous,
				NewValue:      models.LoadStatusCancelled,
				Notes:         input.Reason,
				ActionType:    models.ActionLoadCancelled,
				Description:   fmt.Sprintf("Load %s cancelled", load.ReferenceNumber),
				Before:        gin.H{"status": previous},
				After:         gin.H{"status": models.LoadStatusCancelled},
			}); err != nil {
				return err
			}
			notifs = statusChangeNotifications(tx, load, previous, models.LoadStatusCancelled)
			return services.CreateNotifications(tx, notifs)
		})
		if err != nil {
			fail(c, err)
			return
		}

		afterStatusCommit(db, hub, load, previous, models.LoadStatusCancelled, "manual", user.ID, notifs)

		c.JSON(200, gin.H{"message": "Load cancelled"})
	}
}

// AssignCarrier assigns a carrier to a posted load directly, without a bid.
func AssignCarrier(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
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
		if err := access.RequireRole(user, models.RoleShipper, models.RoleAdmin); err != nil {
			fail(c, err)
			return
		}
		load, err := access.AuthorizeLoad(db, user, loadID, false)
		if err != nil {
			fail(c, err)
			return
		}

		var input struct {
			CarrierID uint `json:"carrierId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var carrier models.Carrier
		if err := db.First(&carrier, input.CarrierID).Error; err != nil {
			fail(c, fmt.Errorf("%w: carrier", apperr.ErrNotFound))
			return
		}

		previous := load.Status
		var notifs []services.NotificationInput
		err = db.Transaction(func(tx *gorm.DB) error {
			applied, err := transitionLoadStatus(tx, load.ID, models.LoadStatusPosted, models.LoadStatusAssigned,
				map[string]interface{}{"carrier_id": input.CarrierID})
			if err != nil {
				return err
			}
			if !applied {
				return fmt.Errorf("%w: load is not posted", apperr.ErrInvalidState)
			}
			if err := audit.Record(tx, audit.Entry{
				LoadID:        load.ID,
				UserID:        user.ID,
				EventType:     models.EventStatusChange,
				PreviousValue: previous,
				NewValue:      models.LoadStatusAssigned,
				ActionType:    models.ActionCarrierAssigned,
				Description:   fmt.Sprintf("Carrier %s assigned to load %s", carrier.Name, load.ReferenceNumber),
				Before:        gin.H{"status": previous, "carrierId": nil},
				After:         gin.H{"status": models.LoadStatusAssigned, "carrierId": input.CarrierID},
			}); err != nil {
				return err
			}
			notifs = carrierUserNotifications(tx, input.CarrierID, services.NotificationInput{
				Type:   models.NotificationStatusChanged,
				Title:  "Load assigned to your carrier",
				Body:   fmt.Sprintf("Load %s has been assigned to %s", load.ReferenceNumber, carrier.Name),
				LoadID: &load.ID,
			})
			return services.CreateNotifications(tx, notifs)
		})
		if err != nil {
			fail(c, err)
			return
		}

		afterStatusCommit(db, hub, load, previous, models.LoadStatusAssigned, "manual", user.ID, notifs)

		c.JSON(200, gin.H{"message": "Carrier assigned", "carrierId": input.CarrierID})
	}
}

// AssignDriver lets the assigned carrier (or an admin) put a driver and
// vehicle on the load.
func AssignDriver(db *gorm.DB) gin.HandlerFunc {
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
		if err := access.RequireRole(user, models.RoleCarrier, models.RoleAdmin); err != nil {
			fail(c, err)
			return
		}
		load, err := access.AuthorizeLoad(db, user, loadID, false)
		if err != nil {
			fail(c, err)
			return
		}
		if load.Status != models.LoadStatusAssigned {
			fail(c, fmt.Errorf("%w: drivers can only be assigned while the load is assigned", apperr.ErrInvalidState))
			return
		}

		var input struct {
			DriverID  uint  `json:"driverId" binding:"required"`
			VehicleID *uint `json:"vehicleId"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var driver models.User
		if err := db.First(&driver, input.DriverID).Error; err != nil {
			fail(c, fmt.Errorf("%w: driver", apperr.ErrNotFound))
			return
		}
		if driver.Role != models.RoleDriver {
			fail(c, fmt.Errorf("%w: user is not a driver", apperr.ErrInvalidState))
			return
		}
		if load.CarrierID != nil && (driver.CarrierID == nil || *driver.CarrierID != *load.CarrierID) {
			fail(c, fmt.Errorf("%w: driver does not belong to the assigned carrier", apperr.ErrForbidden))
			return
		}

		var notifs []services.NotificationInput
		err = db.Transaction(func(tx *gorm.DB) error {
			updates := map[string]interface{}{"driver_id": input.DriverID}
			if input.VehicleID != nil {
				updates["vehicle_id"] = *input.VehicleID
			}
			res := tx.Model(&models.Load{}).
				Where("id = ? AND status = ?", load.ID, models.LoadStatusAssigned).
				Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return fmt.Errorf("%w: load status changed concurrently", apperr.ErrInvalidState)
			}
			if err := audit.Record(tx, audit.Entry{
				LoadID:      load.ID,
				UserID:      user.ID,
				EventType:   models.EventDriverAssigned,
				NewValue:    strconv.FormatUint(uint64(input.DriverID), 10),
				ActionType:  models.ActionDriverAssigned,
				Description: fmt.Sprintf("Driver %s assigned to load %s", driver.Username, load.ReferenceNumber),
				Before:      gin.H{"driverId": load.DriverID},
				After:       gin.H{"driverId": input.DriverID},
			}); err != nil {
				return err
			}
			notifs = []services.NotificationInput{{
				UserID:           driver.ID,
				Type:             models.NotificationDriverAssigned,
				Title:            "New load assignment",
				Body:             fmt.Sprintf("You have been assigned load %s", load.ReferenceNumber),
				LoadID:           &load.ID,
				IsActionRequired: true,
				ActionURL:        fmt.Sprintf("/loads/%d", load.ID),
			}}
			return services.CreateNotifications(tx, notifs)
		})
		if err != nil {
			fail(c, err)
			return
		}

		go services.Deliver(db, nil, notifs, nil)

		c.JSON(200, gin.H{"message": "Driver assigned", "driverId": input.DriverID})
	}
}

// GetLoadByID retrieves a single load the caller may see.
func GetLoadByID(db *gorm.DB) gin.HandlerFunc {
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

		// Reload with relations resolved.
		var full models.Load
		if err := db.Preload("Shipper").Preload("Carrier").Preload("Driver").First(&full, load.ID).Error; err != nil {
			fail(c, err)
			return
		}

		c.JSON(200, full)
	}
}

// GetLoadQuote returns the computed line-haul total for a load.
func GetLoadQuote(db *gorm.DB) gin.HandlerFunc {
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

		c.JSON(200, utils.QuoteLoadRate(load))
	}
}

// GetShipperLoads retrieves all loads owned by the calling shipper.
func GetShipperLoads(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := currentUser(c, db)
		if err != nil {
			fail(c, err)
			return
		}
		if err := access.RequireRole(user, models.RoleShipper, models.RoleAdmin); err != nil {
			fail(c, err)
			return
		}

		var loads []models.Load
		query := db.Preload("Carrier").Preload("Driver").Where("shipper_id = ?", user.ID)
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		if err := query.Order("created_at DESC").Find(&loads).Error; err != nil {
			fail(c, err)
			return
		}

		c.JSON(200, loads)
	}
}

// GetCarrierLoads retrieves loads assigned to the caller's carrier.
func GetCarrierLoads(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := currentUser(c, db)
		if err != nil {
			fail(c, err)
			return
		}
		if err := access.RequireRole(user, models.RoleCarrier); err != nil {
			fail(c, err)
			return
		}
		if user.CarrierID == nil {
			fail(c, fmt.Errorf("%w: user has no carrier", apperr.ErrForbidden))
			return
		}

		var loads []models.Load
		if err := db.Preload("Shipper").Preload("Driver").
			Where("carrier_id = ?", *user.CarrierID).
			Order("created_at DESC").
			Find(&loads).Error; err != nil {
			fail(c, err)
			return
		}

		c.JSON(200, loads)
	}
}

// GetDriverLoads retrieves loads the calling driver is assigned to.
func GetDriverLoads(db *gorm.DB) gin.HandlerFunc {
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

		var loads []models.Load
		if err := db.Preload("Shipper").Preload("Carrier").
			Where("driver_id = ?", user.ID).
			Order("created_at DESC").
			Find(&loads).Error; err != nil {
			fail(c, err)
			return
		}

		c.JSON(200, loads)
	}
}

// GetAvailableLoads retrieves posted loads carriers can bid on, with
// optional search over lane endpoints.
func GetAvailableLoads(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := currentUser(c, db)
		if err != nil {
			fail(c, err)
			return
		}
		if err := access.RequireRole(user, models.RoleCarrier, models.RoleAdmin); err != nil {
			fail(c, err)
			return
		}

		var loads []models.Load
		query := db.Preload("Shipper").Where("status = ?", models.LoadStatusPosted)

		if origin := c.Query("origin"); origin != "" {
			query = query.Where("LOWER(pickup_address) LIKE LOWER(?)", "%"+strings.ToLower(origin)+"%")
		}
		if destination := c.Query("destination"); destination != "" {
			query = query.Where("LOWER(delivery_address) LIKE LOWER(?)", "%"+strings.ToLower(destination)+"%")
		}

		if err := query.Order("pickup_window_from ASC").Find(&loads).Error; err != nil {
			fail(c, err)
			return
		}

		c.JSON(200, loads)
	}
}

// GetAllLoads retrieves every load in the system. Admin only.
func GetAllLoads(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := currentUser(c, db)
		if err != nil {
			fail(c, err)
			return
		}
		if err := access.RequireRole(user, models.RoleAdmin); err != nil {
			fail(c, err)
			return
		}

		var loads []models.Load
		query := db.Preload("Shipper").Preload("Carrier").Preload("Driver")
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		if err := query.Order("created_at DESC").Find(&loads).Error; err != nil {
			fail(c, err)
			return
		}

		c.JSON(200, loads)
	}
}

// statusChangeNotifications builds the inbox notifications for a status
// change: the shipper always hears about it, the assigned carrier's users
// do when a carrier is on the load.
func statusChangeNotifications(tx *gorm.DB, load *models.Load, previous, next string) []services.NotificationInput {
	title := fmt.Sprintf("Load %s is now %s", load.ReferenceNumber, next)
	body := fmt.Sprintf("Status changed from %s to %s", previous, next)

	notifs := []services.NotificationInput{{
		UserID: load.ShipperID,
		Type:   models.NotificationStatusChanged,
		Title:  title,
		Body:   body,
		LoadID: &load.ID,
	}}
	if load.CarrierID != nil {
		notifs = append(notifs, carrierUserNotifications(tx, *load.CarrierID, services.NotificationInput{
			Type:   models.NotificationStatusChanged,
			Title:  title,
			Body:   body,
			LoadID: &load.ID,
		})...)
	}
	return notifs
}

// carrierUserNotifications fans one notification template out to every
// user belonging to a carrier.
func carrierUserNotifications(tx *gorm.DB, carrierID uint, template services.NotificationInput) []services.NotificationInput {
	var users []models.User
	if err := tx.Where("carrier_id = ?", carrierID).Find(&users).Error; err != nil {
		logger.L.Warn("failed to resolve carrier users", zap.Uint("carrierId", carrierID), zap.Error(err))
		return nil
	}
	notifs := make([]services.NotificationInput, 0, len(users))
	for _, u := range users {
		n := template
		n.UserID = u.ID
		notifs = append(notifs, n)
	}
	return notifs
}

// afterStatusCommit performs the best-effort side effects of a committed
// status change: redis pub/sub, websocket push, external queue, push
// notifications.
func afterStatusCommit(db *gorm.DB, hub *services.Hub, load *models.Load, previous, next, trigger string, userID uint, notifs []services.NotificationInput) {
	go func() {
		if services.RedisClient != nil {
			if err := services.PublishLoadStatusUpdate(context.Background(), load.ID, previous, next); err != nil {
				logger.L.Warn("redis publish failed", zap.Uint("loadId", load.ID), zap.Error(err))
			}
		}

		if hub != nil {
			userIDs := make([]uint, 0, len(notifs))
			for _, n := range notifs {
				userIDs = append(userIDs, n.UserID)
			}
			hub.SendLoadStatusUpdate(userIDs, services.LoadStatusUpdate{
				LoadID:         load.ID,
				PreviousStatus: previous,
				Status:         next,
				Trigger:        trigger,
			})
		}

		services.Deliver(db, hub, notifs, &services.DomainEventMessage{
			EventType:     models.EventStatusChange,
			LoadID:        load.ID,
			ReferenceNum:  load.ReferenceNumber,
			UserID:        userID,
			PreviousValue: previous,
			NewValue:      next,
		})
	}()
}
