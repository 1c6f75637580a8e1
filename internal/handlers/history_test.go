package handlers

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/freightflow/freightflow-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyActions(t *testing.T, body []byte) []string {
	t.Helper()
	var rows []models.LoadHistory
	require.NoError(t, json.Unmarshal(body, &rows))
	actions := make([]string, 0, len(rows))
	for _, row := range rows {
		actions = append(actions, row.ActionType)
	}
	return actions
}

func TestGetLoadHistoryRoleFiltering(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db)

	shipper := createUser(t, db, models.RoleShipper, nil)
	admin := createUser(t, db, models.RoleAdmin, nil)
	carrier := createCarrier(t, db, "history-haul")
	carrierUser := createUser(t, db, models.RoleCarrier, &carrier.ID)

	load := createLoad(t, db, shipper.ID, models.LoadStatusAssigned)
	require.NoError(t, db.Model(load).Update("carrier_id", carrier.ID).Error)

	seed := func(action, desc string) {
		require.NoError(t, db.Create(&models.LoadHistory{
			LoadID:      load.ID,
			UserID:      shipper.ID,
			ActionType:  action,
			Description: desc,
			Before:      `{"status":"posted"}`,
			After:       `{"status":"assigned"}`,
		}).Error)
	}
	seed(models.ActionLoadCreated, "Load created")
	seed(models.ActionStatusChange, "Status changed")
	seed(models.ActionCarrierAssigned, "Carrier assigned")
	seed(models.ActionDriverAssigned, "Driver assigned")
	seed(models.ActionBidCreated, "Bid submitted")

	get := func(user *models.User) []string {
		w := perform(t, r, "GET", fmt.Sprintf("/api/loads/%d/history", load.ID), authToken(t, user), nil)
		require.Equal(t, 200, w.Code)
		return historyActions(t, w.Body.Bytes())
	}

	t.Run("shipper sees only shipper-visible actions", func(t *testing.T) {
		actions := get(shipper)
		assert.ElementsMatch(t, []string{
			models.ActionLoadCreated,
			models.ActionStatusChange,
			models.ActionCarrierAssigned,
		}, actions)
		assert.NotContains(t, actions, models.ActionBidCreated)
		assert.NotContains(t, actions, models.ActionDriverAssigned)
	})

	t.Run("carrier sees carrier-visible actions", func(t *testing.T) {
		actions := get(carrierUser)
		assert.ElementsMatch(t, []string{
			models.ActionStatusChange,
			models.ActionDriverAssigned,
		}, actions)
		assert.NotContains(t, actions, models.ActionLoadCreated)
		assert.NotContains(t, actions, models.ActionBidCreated)
	})

	t.Run("admin sees everything", func(t *testing.T) {
		actions := get(admin)
		assert.Len(t, actions, 5)
		assert.Contains(t, actions, models.ActionBidCreated)
	})

	t.Run("snapshots are admin-only", func(t *testing.T) {
		w := perform(t, r, "GET", fmt.Sprintf("/api/loads/%d/history", load.ID), authToken(t, shipper), nil)
		require.Equal(t, 200, w.Code)
		var rows []models.LoadHistory
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
		for _, row := range rows {
			assert.Empty(t, row.Before)
			assert.Empty(t, row.After)
		}

		w = perform(t, r, "GET", fmt.Sprintf("/api/loads/%d/history", load.ID), authToken(t, admin), nil)
		require.Equal(t, 200, w.Code)
		rows = nil
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
		found := false
		for _, row := range rows {
			if row.Before != "" {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("actionType filter applies on top", func(t *testing.T) {
		w := perform(t, r, "GET",
			fmt.Sprintf("/api/loads/%d/history?actionType=%s", load.ID, models.ActionStatusChange),
			authToken(t, shipper), nil)
		require.Equal(t, 200, w.Code)
		actions := historyActions(t, w.Body.Bytes())
		assert.Equal(t, []string{models.ActionStatusChange}, actions)
	})
}

func TestGetLoadEventsAdminOnly(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db)

	shipper := createUser(t, db, models.RoleShipper, nil)
	admin := createUser(t, db, models.RoleAdmin, nil)
	load := createLoad(t, db, shipper.ID, models.LoadStatusPosted)

	require.NoError(t, db.Create(&models.Event{
		LoadID: load.ID, UserID: shipper.ID,
		EventType: models.EventLoadCreated, NewValue: models.LoadStatusPosted,
	}).Error)

	t.Run("shipper is denied the raw trail", func(t *testing.T) {
		w := perform(t, r, "GET", fmt.Sprintf("/api/loads/%d/events", load.ID), authToken(t, shipper), nil)
		assert.Equal(t, 403, w.Code)
	})

	t.Run("admin reads it", func(t *testing.T) {
		w := perform(t, r, "GET", fmt.Sprintf("/api/loads/%d/events", load.ID), authToken(t, admin), nil)
		require.Equal(t, 200, w.Code)

		var events []models.Event
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
		require.Len(t, events, 1)
		assert.Equal(t, models.EventLoadCreated, events[0].EventType)
	})

	t.Run("eventType filter", func(t *testing.T) {
		require.NoError(t, db.Create(&models.Event{
			LoadID: load.ID, UserID: shipper.ID,
			EventType: models.EventBidCreated, NewValue: "175000",
		}).Error)

		w := perform(t, r, "GET",
			fmt.Sprintf("/api/loads/%d/events?eventType=%s", load.ID, models.EventBidCreated),
			authToken(t, admin), nil)
		require.Equal(t, 200, w.Code)

		var events []models.Event
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
		require.Len(t, events, 1)
		assert.Equal(t, models.EventBidCreated, events[0].EventType)
	})
}
