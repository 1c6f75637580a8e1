package handlers

import (
	"fmt"
	"testing"
	"time"

	"github.com/freightflow/freightflow-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBid(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db)

	carrier := createCarrier(t, db, "acme-freight")
	carrierUser := createUser(t, db, models.RoleCarrier, &carrier.ID)
	shipper := createUser(t, db, models.RoleShipper, nil)
	token := authToken(t, carrierUser)

	load := createLoad(t, db, shipper.ID, models.LoadStatusPosted)

	t.Run("carrier bids on posted load", func(t *testing.T) {
		w := perform(t, r, "POST", "/api/bids", token, map[string]interface{}{
			"loadId":      load.ID,
			"amountCents": 175000,
		})
		require.Equal(t, 201, w.Code)

		var bid models.Bid
		require.NoError(t, db.Where("load_id = ?", load.ID).First(&bid).Error)
		assert.Equal(t, models.BidStatusPending, bid.Status)
		assert.Equal(t, int64(175000), bid.AmountCents)
		assert.Equal(t, carrier.ID, bid.CarrierID)

		// Shipper gets an inbox notification inside the same commit.
		var notif models.Notification
		require.NoError(t, db.Where("user_id = ? AND type = ?", shipper.ID, models.NotificationBidReceived).First(&notif).Error)
	})

	t.Run("second pending bid from same carrier conflicts", func(t *testing.T) {
		w := perform(t, r, "POST", "/api/bids", token, map[string]interface{}{
			"loadId":      load.ID,
			"amountCents": 170000,
		})
		assert.Equal(t, 409, w.Code)
	})

	t.Run("expired pending bid does not block a fresh one", func(t *testing.T) {
		other := createLoad(t, db, shipper.ID, models.LoadStatusPosted)
		stale := models.Bid{
			LoadID:      other.ID,
			CarrierID:   carrier.ID,
			UserID:      carrierUser.ID,
			AmountCents: 160000,
			Status:      models.BidStatusPending,
			ExpiresAt:   time.Now().Add(-time.Hour),
		}
		require.NoError(t, db.Create(&stale).Error)

		w := perform(t, r, "POST", "/api/bids", token, map[string]interface{}{
			"loadId":      other.ID,
			"amountCents": 165000,
		})
		require.Equal(t, 201, w.Code)

		var reloaded models.Bid
		require.NoError(t, db.First(&reloaded, stale.ID).Error)
		assert.Equal(t, models.BidStatusExpired, reloaded.Status)
	})

	t.Run("only posted loads take bids", func(t *testing.T) {
		// An unassigned carrier cannot even see a non-posted load, so the
		// gate answers before the status rule does.
		for _, status := range []string{
			models.LoadStatusDraft,
			models.LoadStatusAssigned,
			models.LoadStatusInTransit,
			models.LoadStatusDelivered,
			models.LoadStatusCompleted,
			models.LoadStatusCancelled,
		} {
			target := createLoad(t, db, shipper.ID, status)
			w := perform(t, r, "POST", "/api/bids", token, map[string]interface{}{
				"loadId":      target.ID,
				"amountCents": 100000,
			})
			assert.Equal(t, 403, w.Code, status)
		}
	})

	t.Run("assigned carrier cannot bid on its own non-posted load", func(t *testing.T) {
		// The gate admits the assigned carrier, so the status rule is what
		// rejects the bid here.
		assigned := createLoad(t, db, shipper.ID, models.LoadStatusAssigned)
		require.NoError(t, db.Model(assigned).Update("carrier_id", carrier.ID).Error)

		w := perform(t, r, "POST", "/api/bids", token, map[string]interface{}{
			"loadId":      assigned.ID,
			"amountCents": 100000,
		})
		assert.Equal(t, 422, w.Code)
	})

	t.Run("shipper cannot bid", func(t *testing.T) {
		w := perform(t, r, "POST", "/api/bids", authToken(t, shipper), map[string]interface{}{
			"loadId":      load.ID,
			"amountCents": 100000,
		})
		assert.Equal(t, 403, w.Code)
	})
}

func TestAcceptBid(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db)

	carrierA := createCarrier(t, db, "alpha-haul")
	carrierB := createCarrier(t, db, "beta-haul")
	userA := createUser(t, db, models.RoleCarrier, &carrierA.ID)
	userB := createUser(t, db, models.RoleCarrier, &carrierB.ID)
	shipper := createUser(t, db, models.RoleShipper, nil)

	load := createLoad(t, db, shipper.ID, models.LoadStatusPosted)

	makeBid := func(carrierID, userID uint, amount int64) models.Bid {
		bid := models.Bid{
			LoadID:      load.ID,
			CarrierID:   carrierID,
			UserID:      userID,
			AmountCents: amount,
			Status:      models.BidStatusPending,
			ExpiresAt:   time.Now().Add(models.DefaultBidExpiry),
		}
		require.NoError(t, db.Create(&bid).Error)
		return bid
	}

	winner := makeBid(carrierA.ID, userA.ID, 175000)
	loser := makeBid(carrierB.ID, userB.ID, 190000)

	w := perform(t, r, "POST", fmt.Sprintf("/api/bids/%d/accept", winner.ID), authToken(t, shipper), nil)
	require.Equal(t, 200, w.Code)

	// Load is assigned to the winning carrier.
	var reloaded models.Load
	require.NoError(t, db.First(&reloaded, load.ID).Error)
	assert.Equal(t, models.LoadStatusAssigned, reloaded.Status)
	require.NotNil(t, reloaded.CarrierID)
	assert.Equal(t, carrierA.ID, *reloaded.CarrierID)

	// Winner accepted, sibling rejected, in the same commit.
	var won, lost models.Bid
	require.NoError(t, db.First(&won, winner.ID).Error)
	require.NoError(t, db.First(&lost, loser.ID).Error)
	assert.Equal(t, models.BidStatusAccepted, won.Status)
	assert.Equal(t, models.BidStatusRejected, lost.Status)

	// Losing bidder hears about it.
	var notif models.Notification
	require.NoError(t, db.Where("user_id = ? AND type = ?", userB.ID, models.NotificationBidRejected).First(&notif).Error)

	// Audit trail covers the acceptance and the carrier assignment.
	var events []models.Event
	require.NoError(t, db.Where("load_id = ?", load.ID).Find(&events).Error)
	types := map[string]int{}
	for _, e := range events {
		types[e.EventType]++
	}
	assert.Equal(t, 1, types[models.EventBidAccepted])
	assert.Equal(t, 1, types[models.EventBidRejected])
	assert.Equal(t, 1, types[models.EventStatusChange])

	t.Run("accepting again fails once load left posted", func(t *testing.T) {
		another := makeBid(carrierB.ID, userB.ID, 150000)
		w := perform(t, r, "POST", fmt.Sprintf("/api/bids/%d/accept", another.ID), authToken(t, shipper), nil)
		assert.Equal(t, 422, w.Code)

		require.NoError(t, db.First(&reloaded, load.ID).Error)
		assert.Equal(t, carrierA.ID, *reloaded.CarrierID)
	})
}

func TestAcceptExpiredBid(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db)

	carrier := createCarrier(t, db, "late-freight")
	carrierUser := createUser(t, db, models.RoleCarrier, &carrier.ID)
	shipper := createUser(t, db, models.RoleShipper, nil)
	load := createLoad(t, db, shipper.ID, models.LoadStatusPosted)

	bid := models.Bid{
		LoadID:      load.ID,
		CarrierID:   carrier.ID,
		UserID:      carrierUser.ID,
		AmountCents: 120000,
		Status:      models.BidStatusPending,
		ExpiresAt:   time.Now().Add(-time.Minute),
	}
	require.NoError(t, db.Create(&bid).Error)

	w := perform(t, r, "POST", fmt.Sprintf("/api/bids/%d/accept", bid.ID), authToken(t, shipper), nil)
	assert.Equal(t, 422, w.Code)
	assert.Equal(t, models.LoadStatusPosted, loadStatus(t, db, load.ID))
}

func TestWithdrawBid(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db)

	carrier := createCarrier(t, db, "gamma-haul")
	otherCarrier := createCarrier(t, db, "delta-haul")
	owner := createUser(t, db, models.RoleCarrier, &carrier.ID)
	stranger := createUser(t, db, models.RoleCarrier, &otherCarrier.ID)
	shipper := createUser(t, db, models.RoleShipper, nil)
	load := createLoad(t, db, shipper.ID, models.LoadStatusPosted)

	bid := models.Bid{
		LoadID:      load.ID,
		CarrierID:   carrier.ID,
		UserID:      owner.ID,
		AmountCents: 140000,
		Status:      models.BidStatusPending,
		ExpiresAt:   time.Now().Add(models.DefaultBidExpiry),
	}
	require.NoError(t, db.Create(&bid).Error)

	t.Run("another carrier cannot withdraw it", func(t *testing.T) {
		w := perform(t, r, "POST", fmt.Sprintf("/api/bids/%d/withdraw", bid.ID), authToken(t, stranger), nil)
		assert.Equal(t, 403, w.Code)
	})

	t.Run("owner withdraws", func(t *testing.T) {
		w := perform(t, r, "POST", fmt.Sprintf("/api/bids/%d/withdraw", bid.ID), authToken(t, owner), nil)
		require.Equal(t, 200, w.Code)

		var reloaded models.Bid
		require.NoError(t, db.First(&reloaded, bid.ID).Error)
		assert.Equal(t, models.BidStatusWithdrawn, reloaded.Status)
	})

	t.Run("withdrawing twice fails", func(t *testing.T) {
		w := perform(t, r, "POST", fmt.Sprintf("/api/bids/%d/withdraw", bid.ID), authToken(t, owner), nil)
		assert.Equal(t, 422, w.Code)
	})
}

func TestRejectBid(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db)

	carrier := createCarrier(t, db, "epsilon-haul")
	carrierUser := createUser(t, db, models.RoleCarrier, &carrier.ID)
	shipper := createUser(t, db, models.RoleShipper, nil)
	load := createLoad(t, db, shipper.ID, models.LoadStatusPosted)

	bid := models.Bid{
		LoadID:      load.ID,
		CarrierID:   carrier.ID,
		UserID:      carrierUser.ID,
		AmountCents: 130000,
		Status:      models.BidStatusPending,
		ExpiresAt:   time.Now().Add(models.DefaultBidExpiry),
	}
	require.NoError(t, db.Create(&bid).Error)

	w := perform(t, r, "POST", fmt.Sprintf("/api/bids/%d/reject", bid.ID), authToken(t, shipper), map[string]interface{}{
		"notes": "rate too high",
	})
	require.Equal(t, 200, w.Code)

	var reloaded models.Bid
	require.NoError(t, db.First(&reloaded, bid.ID).Error)
	assert.Equal(t, models.BidStatusRejected, reloaded.Status)

	// The load stays posted; rejection never touches load status.
	assert.Equal(t, models.LoadStatusPosted, loadStatus(t, db, load.ID))

	w = perform(t, r, "POST", fmt.Sprintf("/api/bids/%d/reject", bid.ID), authToken(t, shipper), nil)
	assert.Equal(t, 422, w.Code)
}
