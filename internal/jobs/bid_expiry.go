// Package jobs holds the background schedules that keep stored state
// converging with what the lazy checks already enforce at read time.
package jobs

import (
	"time"

	"github.com/freightflow/freightflow-backend/internal/audit"
	"github.com/freightflow/freightflow-backend/internal/models"
	"github.com/freightflow/freightflow-backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StartScheduler wires the recurring jobs and starts the cron runner.
// The returned cron can be stopped on shutdown.
func StartScheduler(db *gorm.DB) *cron.Cron {
	c := cron.New()

	// Decision points already treat past-deadline pending bids as expired;
	// this sweep just flips the stored status so listings and the partial
	// unique index agree with that view.
	if _, err := c.AddFunc("@every 10m", func() { SweepExpiredBids(db) }); err != nil {
		logger.L.Error("failed to schedule bid expiry sweep", zap.Error(err))
	}

	c.Start()
	return c
}

// SweepExpiredBids marks every pending bid past its deadline as expired
// and records the expiry in the audit trail.
func SweepExpiredBids(db *gorm.DB) {
	var stale []models.Bid
	if err := db.Where("status = ? AND expires_at <= ?", models.BidStatusPending, time.Now()).
		Find(&stale).Error; err != nil {
		logger.L.Error("bid expiry sweep: lookup failed", zap.Error(err))
		return
	}
	if len(stale) == 0 {
		return
	}

	expired := 0
	for _, bid := range stale {
		err := db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Bid{}).
				Where("id = ? AND status = ?", bid.ID, models.BidStatusPending).
				Update("status", models.BidStatusExpired)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// Raced with an accept, reject, or withdrawal. Nothing to do.
				return nil
			}
			expired++
			return audit.Record(tx, audit.Entry{
				LoadID:        bid.LoadID,
				UserID:        bid.UserID,
				EventType:     models.EventBidExpired,
				PreviousValue: models.BidStatusPending,
				NewValue:      models.BidStatusExpired,
				Metadata:      map[string]interface{}{"bidId": bid.ID, "expiresAt": bid.ExpiresAt},
			})
		})
		if err != nil {
			logger.L.Warn("bid expiry sweep: update failed", zap.Uint("bidId", bid.ID), zap.Error(err))
		}
	}

	logger.L.Info("bid expiry sweep finished", zap.Int("candidates", len(stale)), zap.Int("expired", expired))
}
