package jobs

import (
	"fmt"
	"testing"
	"time"

	"github.com/freightflow/freightflow-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Bid{}, &models.Event{}, &models.LoadHistory{}))
	return db
}

func TestSweepExpiredBids(t *testing.T) {
	db := setupTestDB(t)

	newBid := func(status string, expiresAt time.Time) models.Bid {
		bid := models.Bid{
			LoadID:      1,
			CarrierID:   1,
			UserID:      1,
			AmountCents: 100000,
			Status:      status,
			ExpiresAt:   expiresAt,
		}
		require.NoError(t, db.Create(&bid).Error)
		return bid
	}

	stale := newBid(models.BidStatusPending, time.Now().Add(-time.Hour))
	fresh := newBid(models.BidStatusPending, time.Now().Add(time.Hour))
	accepted := newBid(models.BidStatusAccepted, time.Now().Add(-time.Hour))

	SweepExpiredBids(db)

	status := func(id uint) string {
		var bid models.Bid
		require.NoError(t, db.First(&bid, id).Error)
		return bid.Status
	}

	assert.Equal(t, models.BidStatusExpired, status(stale.ID))
	assert.Equal(t, models.BidStatusPending, status(fresh.ID))
	assert.Equal(t, models.BidStatusAccepted, status(accepted.ID))

	// Each flipped bid leaves an audit row.
	var events []models.Event
	require.NoError(t, db.Where("event_type = ?", models.EventBidExpired).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, stale.LoadID, events[0].LoadID)

	// Sweeping again is a no-op.
	SweepExpiredBids(db)
	db.Where("event_type = ?", models.EventBidExpired).Find(&events)
	assert.Len(t, events, 1)
}
