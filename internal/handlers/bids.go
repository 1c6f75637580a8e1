package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/freightflow/freightflow-backend/internal/access"
	"github.com/freightflow/freightflow-backend/internal/apperr"
	"github.com/freightflow/freightflow-backend/internal/audit"
	"github.com/freightflow/freightflow-backend/internal/models"
	"github.com/freightflow/freightflow-backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// isUniqueViolation reports whether the error came from the partial
// unique index guarding one-pending-bid-per-carrier.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique")
}

// CreateBid handles a carrier submitting a price offer on a posted load.
func CreateBid(db *gorm.DB) gin.HandlerFunc {
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

		var input struct {
			LoadID      uint       `json:"loadId" binding:"required"`
			AmountCents int64      `json:"amountCents" binding:"required,gt=0"`
			Notes       string     `json:"notes"`
			ExpiresAt   *time.Time `json:"expiresAt"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		load, err := access.AuthorizeLoad(db, user, input.LoadID, true)
		if err != nil {
			fail(c, err)
			return
		}
		if load.Status != models.LoadStatusPosted {
			fail(c, fmt.Errorf("%w: bids are only accepted on posted loads", apperr.ErrInvalidState))
			return
		}

		expiresAt := time.Now().Add(models.DefaultBidExpiry)
		if input.ExpiresAt != nil {
			if input.ExpiresAt.Before(time.Now()) {
				c.JSON(400, gin.H{"error": "expiresAt must be in the future"})
				return
			}
			expiresAt = *input.ExpiresAt
		}

		bid := models.Bid{
			LoadID:      load.ID,
			CarrierID:   *user.CarrierID,
			UserID:      user.ID,
			AmountCents: input.AmountCents,
			Notes:       input.Notes,
			Status:      models.BidStatusPending,
			ExpiresAt:   expiresAt,
		}

		var notifs []services.NotificationInput
		err = db.Transaction(func(tx *gorm.DB) error {
			// The partial unique index is the real guard; this check just
			// produces a friendlier error for the common case. Expired
			// pending bids do not block a fresh offer.
			var existing models.Bid
			lookupErr := tx.Where("load_id = ? AND carrier_id = ? AND status = ? AND expires_at > ?",
				load.ID, *user.CarrierID, models.BidStatusPending, time.Now()).
				First(&existing).Error
			if lookupErr == nil {
				return fmt.Errorf("%w: carrier already has a pending bid on this load", apperr.ErrConflict)
			}
			if !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
				return lookupErr
			}

			// A stale pending bid from this carrier must release the index
			// slot before the new insert.
			if err := tx.Model(&models.Bid{}).
				Where("load_id = ? AND carrier_id = ? AND status = ? AND expires_at <= ?",
					load.ID, *user.CarrierID, models.BidStatusPending, time.Now()).
				Update("status", models.BidStatusExpired).Error; err != nil {
				return err
			}

			if err := tx.Create(&bid).Error; err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("%w: carrier already has a pending bid on this load", apperr.ErrConflict)
				}
				return err
			}

			if err := audit.Record(tx, audit.Entry{
				LoadID:      load.ID,
				UserID:      user.ID,
				EventType:   models.EventBidCreated,
				NewValue:    fmt.Sprintf("%d", bid.AmountCents),
				Notes:       input.Notes,
				Metadata:    map[string]interface{}{"bidId": bid.ID, "carrierId": bid.CarrierID},
				ActionType:  models.ActionBidCreated,
				Description: fmt.Sprintf("Bid of %d cents submitted on load %s", bid.AmountCents, load.ReferenceNumber),
				After:       bid,
			}); err != nil {
				return err
			}

			notifs = []services.NotificationInput{{
				UserID:           load.ShipperID,
				Type:             models.NotificationBidReceived,
				Title:            "New bid received",
				Body:             fmt.Sprintf("A carrier bid %d cents on load %s", bid.AmountCents, load.ReferenceNumber),
				LoadID:           &load.ID,
				IsActionRequired: true,
				ActionURL:        fmt.Sprintf("/loads/%d/bids", load.ID),
			}}
			return services.CreateNotifications(tx, notifs)
		})
		if err != nil {
			fail(c, err)
			return
		}

		go services.Deliver(db, nil, notifs, &services.DomainEventMessage{
			EventType:    models.EventBidCreated,
			LoadID:       load.ID,
			ReferenceNum: load.ReferenceNumber,
			UserID:       user.ID,
			NewValue:     fmt.Sprintf("%d", bid.AmountCents),
		})

		c.JSON(201, gin.H{"bidId": bid.ID, "status": bid.Status, "expiresAt": bid.ExpiresAt})
	}
}

// UpdateBid lets the owning carrier edit a pending bid.
func UpdateBid(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		bidID, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		user, err := currentUser(c, db)
		if err != nil {
			fail(c, err)
			return
		}
		if err := access.RequireRole(user, models.RoleCarrier); err != nil {
			fail(c, err)
			return
		}

		var bid models.Bid
		if err := db.Preload("Load").First(&bid, bidID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, fmt.Errorf("%w: bid", apperr.ErrNotFound))
				return
			}
			fail(c, err)
			return
		}
		if user.CarrierID == nil || bid.CarrierID != *user.CarrierID {
			fail(c, fmt.Errorf("%w: bid belongs to another carrier", apperr.ErrForbidden))
			return
		}
		if !bid.IsActionable() {
			fail(c, fmt.Errorf("%w: only pending bids can be updated", apperr.ErrInvalidState))
			return
		}
		if bid.Load != nil && bid.Load.Status != models.LoadStatusPosted {
			fail(c, fmt.Errorf("%w: load is no longer posted", apperr.ErrInvalidState))
			return
		}

		var input struct {
			AmountCents *int64     `json:"amountCents"`
			Notes       *string    `json:"notes"`
			ExpiresAt   *time.Time `json:"expiresAt"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		previousAmount := bid.AmountCents
		if input.AmountCents != nil {
			if *input.AmountCents <= 0 {
				c.JSON(400, gin.H{"error": "amountCents must be positive"})
				return
			}
			bid.AmountCents = *input.AmountCents
		}
		if input.Notes != nil {
			bid.Notes = *input.Notes
		}
		if input.ExpiresAt != nil {
			if input.ExpiresAt.Before(time.Now()) {
				c.JSON(400, gin.H{"error": "expiresAt must be in the future"})
				return
			}
			bid.ExpiresAt = *input.ExpiresAt
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(&bid).Error; err != nil {
				return err
			}
			return audit.Record(tx, audit.Entry{
				LoadID:        bid.LoadID,
				UserID:        user.ID,
				EventType:     models.EventBidUpdated,
				PreviousValue: fmt.Sprintf("%d", previousAmount),
				NewValue:      fmt.Sprintf("%d", bid.AmountCents),
				Metadata:      map[string]interface{}{"bidId": bid.ID},
			})
		})
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(200, bid)
	}
}

// WithdrawBid lets the owning carrier pull a pending bid.
func WithdrawBid(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		bidID, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		user, err := currentUser(c, db)
		if err != nil {
			fail(c, err)
			return
		}
		if err := access.RequireRole(user, models.RoleCarrier); err != nil {
			fail(c, err)
			return
		}

		var bid models.Bid
		if err := db.First(&bid, bidID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, fmt.Errorf("%w: bid", apperr.ErrNotFound))
				return
			}
			fail(c, err)
			return
		}
		if user.CarrierID == nil || bid.CarrierID != *user.CarrierID {
			fail(c, fmt.Errorf("%w: bid belongs to another carrier", apperr.ErrForbidden))
			return
		}
		if bid.Status != models.BidStatusPending {
			fail(c, fmt.Errorf("%w: only pending bids can be withdrawn", apperr.ErrInvalidState))
			return
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Bid{}).
				Where("id = ? AND status = ?", bid.ID, models.BidStatusPending).
				Update("status", models.BidStatusWithdrawn)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return fmt.Errorf("%w: bid is no longer pending", apperr.ErrInvalidState)
			}
			return audit.Record(tx, audit.Entry{
				LoadID:        bid.LoadID,
				UserID:        user.ID,
				EventType:     models.EventBidWithdrawn,
				PreviousValue: models.BidStatusPending,
				NewValue:      models.BidStatusWithdrawn,
				Metadata:      map[string]interface{}{"bidId": bid.ID},
			})
		})
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(200, gin.H{"message": "Bid withdrawn"})
	}
}

// AcceptBid accepts a carrier's bid: the bid becomes accepted, the load
// moves posted→assigned with the bid's carrier, and every sibling pending
// bid on the load is rejected in the same transaction.
func AcceptBid(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		bidID, ok := parseIDParam(c, "id")
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

		var bid models.Bid
		if err := db.First(&bid, bidID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, fmt.Errorf("%w: bid", apperr.ErrNotFound))
				return
			}
			fail(c, err)
			return
		}

		load, err := access.AuthorizeLoad(db, user, bid.LoadID, false)
		if err != nil {
			fail(c, err)
			return
		}
		if !bid.IsActionable() {
			fail(c, fmt.Errorf("%w: bid is not pending or has expired", apperr.ErrInvalidState))
			return
		}

		var notifs []services.NotificationInput
		err = db.Transaction(func(tx *gorm.DB) error {
			applied, err := transitionLoadStatus(tx, load.ID, models.LoadStatusPosted, models.LoadStatusAssigned,
				map[string]interface{}{"carrier_id": bid.CarrierID})
			if err != nil {
				return err
			}
			if !applied {
				return fmt.Errorf("%w: load is not posted", apperr.ErrInvalidState)
			}

			res := tx.Model(&models.Bid{}).
				Where("id = ? AND status = ?", bid.ID, models.BidStatusPending).
				Update("status", models.BidStatusAccepted)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return fmt.Errorf("%w: bid is no longer pending", apperr.ErrInvalidState)
			}

			if err := audit.Record(tx, audit.Entry{
				LoadID:        load.ID,
				UserID:        user.ID,
				EventType:     models.EventBidAccepted,
				PreviousValue: models.BidStatusPending,
				NewValue:      models.BidStatusAccepted,
				Metadata:      map[string]interface{}{"bidId": bid.ID, "amountCents": bid.AmountCents},
				ActionType:    models.ActionBidAccepted,
				Description:   fmt.Sprintf("Bid %d accepted on load %s", bid.ID, load.ReferenceNumber),
			}); err != nil {
				return err
			}
			if err := audit.Record(tx, audit.Entry{
				LoadID:        load.ID,
				UserID:        user.ID,
				EventType:     models.EventStatusChange,
				PreviousValue: models.LoadStatusPosted,
				NewValue:      models.LoadStatusAssigned,
				ActionType:    models.ActionCarrierAssigned,
				Description:   fmt.Sprintf("Carrier assigned to load %s via accepted bid", load.ReferenceNumber),
				Before:        gin.H{"status": models.LoadStatusPosted, "carrierId": nil},
				After:         gin.H{"status": models.LoadStatusAssigned, "carrierId": bid.CarrierID},
			}); err != nil {
				return err
			}

			// Losing pending bids are rejected so their carriers hear the
			// outcome instead of watching their offers rot.
			var siblings []models.Bid
			if err := tx.Where("load_id = ? AND status = ? AND id != ?", load.ID, models.BidStatusPending, bid.ID).
				Find(&siblings).Error; err != nil {
				return err
			}
			for _, sibling := range siblings {
				if err := tx.Model(&models.Bid{}).
					Where("id = ? AND status = ?", sibling.ID, models.BidStatusPending).
					Update("status", models.BidStatusRejected).Error; err != nil {
					return err
				}
				if err := audit.Record(tx, audit.Entry{
					LoadID:        load.ID,
					UserID:        user.ID,
					EventType:     models.EventBidRejected,
					PreviousValue: models.BidStatusPending,
					NewValue:      models.BidStatusRejected,
					Notes:         "Another bid was accepted",
					Metadata:      map[string]interface{}{"bidId": sibling.ID},
				}); err != nil {
					return err
				}
				notifs = append(notifs, services.NotificationInput{
					UserID: sibling.UserID,
					Type:   models.NotificationBidRejected,
					Title:  "Bid not selected",
					Body:   fmt.Sprintf("Your bid on load %s was not selected", load.ReferenceNumber),
					LoadID: &load.ID,
				})
			}

			notifs = append(notifs, services.NotificationInput{
				UserID:           bid.UserID,
				Type:             models.NotificationBidAccepted,
				Title:            "Bid accepted",
				Body:             fmt.Sprintf("Your bid of %d cents on load %s was accepted", bid.AmountCents, load.ReferenceNumber),
				LoadID:           &load.ID,
				IsActionRequired: true,
				ActionURL:        fmt.Sprintf("/loads/%d", load.ID),
			})
			return services.CreateNotifications(tx, notifs)
		})
		if err != nil {
			fail(c, err)
			return
		}

		afterStatusCommit(db, hub, load, models.LoadStatusPosted, models.LoadStatusAssigned, "bid_accepted", user.ID, notifs)

		c.JSON(200, gin.H{"message": "Bid accepted", "carrierId": bid.CarrierID})
	}
}

// RejectBid rejects a single pending bid.
func RejectBid(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		bidID, ok := parseIDParam(c, "id")
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

		var bid models.Bid
		if err := db.First(&bid, bidID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, fmt.Errorf("%w: bid", apperr.ErrNotFound))
				return
			}
			fail(c, err)
			return
		}

		load, err := access.AuthorizeLoad(db, user, bid.LoadID, false)
		if err != nil {
			fail(c, err)
			return
		}
		if bid.Status != models.BidStatusPending {
			fail(c, fmt.Errorf("%w: only pending bids can be rejected", apperr.ErrInvalidState))
			return
		}

		var input struct {
			Notes string `json:"notes"`
		}
		_ = c.ShouldBindJSON(&input)

		var notifs []services.NotificationInput
		err = db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Bid{}).
				Where("id = ? AND status = ?", bid.ID, models.BidStatusPending).
				Update("status", models.BidStatusRejected)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return fmt.Errorf("%w: bid is no longer pending", apperr.ErrInvalidState)
			}
			if err := audit.Record(tx, audit.Entry{
				LoadID:        load.ID,
				UserID:        user.ID,
				EventType:     models.EventBidRejected,
				PreviousValue: models.BidStatusPending,
				NewValue:      models.BidStatusRejected,
				Notes:         input.Notes,
				Metadata:      map[string]interface{}{"bidId": bid.ID},
				ActionType:    models.ActionBidRejected,
				Description:   fmt.Sprintf("Bid %d rejected on load %s", bid.ID, load.ReferenceNumber),
			}); err != nil {
				return err
			}
			notifs = []services.NotificationInput{{
				UserID: bid.UserID,
				Type:   models.NotificationBidRejected,
				Title:  "Bid rejected",
				Body:   fmt.Sprintf("Your bid on load %s was rejected", load.ReferenceNumber),
				LoadID: &load.ID,
			}}
			return services.CreateNotifications(tx, notifs)
		})
		if err != nil {
			fail(c, err)
			return
		}

		go services.Deliver(db, nil, notifs, nil)

		c.JSON(200, gin.H{"message": "Bid rejected"})
	}
}

// GetLoadBids lists the bids on a load for its shipper or an admin. Each
// bid carries its lazily-computed expired flag.
func GetLoadBids(db *gorm.DB) gin.HandlerFunc {
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
		load, err := access.AuthorizeLoad(db, user, loadID, true)
		if err != nil {
			fail(c, err)
			return
		}

		var bids []models.Bid
		if err := db.Preload("Carrier").Preload("User").
			Where("load_id = ?", load.ID).
			Order("created_at DESC").
			Find(&bids).Error; err != nil {
			fail(c, err)
			return
		}

		response := make([]gin.H, 0, len(bids))
		for _, b := range bids {
			response = append(response, gin.H{
				"id":          b.ID,
				"carrierId":   b.CarrierID,
				"carrier":     b.Carrier,
				"amountCents": b.AmountCents,
				"notes":       b.Notes,
				"status":      b.Status,
				"expiresAt":   b.ExpiresAt,
				"isExpired":   b.IsExpired(),
				"createdAt":   b.CreatedAt,
			})
		}

		c.JSON(200, response)
	}
}

// GetCarrierBids lists the calling carrier's bids across loads.
func GetCarrierBids(db *gorm.DB) gin.HandlerFunc {
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

		var bids []models.Bid
		if err := db.Preload("Load").
			Where("carrier_id = ?", *user.CarrierID).
			Order("created_at DESC").
			Find(&bids).Error; err != nil {
			fail(c, err)
			return
		}

		c.JSON(200, bids)
	}
}
