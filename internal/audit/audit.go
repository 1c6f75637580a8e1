// Package audit is the single write path for the append-only trail. Every
// mutation records exactly one Entry inside its own transaction; the
// recorder writes the compact Event row always and the detailed
// LoadHistory row when an action type is set, so the two projections can
// never diverge.
package audit

import (
	"encoding/json"

	"github.com/freightflow/freightflow-backend/internal/models"
	"gorm.io/gorm"
)

// Entry describes one domain action against a load.
type Entry struct {
	LoadID        uint
	UserID        uint
	EventType     string
	PreviousValue string
	NewValue      string
	Notes         string
	Metadata      map[string]interface{}

	// ActionType, when set, additionally writes a LoadHistory row with
	// before/after snapshots and the description.
	ActionType  string
	Description string
	Before      interface{}
	After       interface{}
}

// Record appends the audit rows for one entry. Must be called with the
// mutation's transaction so the trail commits or rolls back with the
// entity change.
func Record(tx *gorm.DB, entry Entry) error {
	event := models.Event{
		LoadID:        entry.LoadID,
		UserID:        entry.UserID,
		EventType:     entry.EventType,
		PreviousValue: entry.PreviousValue,
		NewValue:      entry.NewValue,
		Notes:         entry.Notes,
	}
	if entry.Metadata != nil {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			return err
		}
		event.Metadata = string(data)
	}
	if err := tx.Create(&event).Error; err != nil {
		return err
	}

	if entry.ActionType == "" {
		return nil
	}

	history := models.LoadHistory{
		LoadID:      entry.LoadID,
		UserID:      entry.UserID,
		ActionType:  entry.ActionType,
		Description: entry.Description,
	}
	if entry.Before != nil {
		data, err := json.Marshal(entry.Before)
		if err != nil {
			return err
		}
		history.Before = string(data)
	}
	if entry.After != nil {
		data, err := json.Marshal(entry.After)
		if err != nil {
			return err
		}
		history.After = string(data)
	}
	return tx.Create(&history).Error
}

// VisibleActions returns the action types the given role may see, or nil
// when the role sees everything.
func VisibleActions(role models.UserRole) []string {
	if role == models.RoleAdmin {
		return nil
	}
	return models.HistoryVisibleActions[role]
}
