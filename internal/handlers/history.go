package handlers

import (
	"time"

	"github.com/freightflow/freightflow-backend/internal/access"
	"github.com/freightflow/freightflow-backend/internal/audit"
	"github.com/freightflow/freightflow-backend/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetLoadEvents returns the compact event trail for a load, newest first.
// Admins see it raw; everyone else goes through the role-filtered history
// view instead.
func GetLoadEvents(db *gorm.DB) gin.HandlerFunc {
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
		if err := access.RequireRole(user, models.RoleAdmin); err != nil {
			fail(c, err)
			return
		}
		load, err := access.AuthorizeLoad(db, user, loadID, true)
		if err != nil {
			fail(c, err)
			return
		}

		query := db.Preload("User").Where("load_id = ?", load.ID)
		if eventType := c.Query("eventType"); eventType != "" {
			query = query.Where("event_type = ?", eventType)
		}

		var events []models.Event
		if err := query.Order("created_at DESC").Find(&events).Error; err != nil {
			fail(c, err)
			return
		}

		c.JSON(200, events)
	}
}

// GetLoadHistory returns the detailed history rows a role is allowed to
// see. The filter is a whitelist of action types per role; rows outside
// it simply do not appear, they are not redacted.
func GetLoadHistory(db *gorm.DB) gin.HandlerFunc {
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

		query := db.Preload("User").Where("load_id = ?", load.ID)
		if visible := audit.VisibleActions(user.Role); visible != nil {
			query = query.Where("action_type IN ?", visible)
		}
		if actionType := c.Query("actionType"); actionType != "" {
			query = query.Where("action_type = ?", actionType)
		}
		if userID := c.Query("userId"); userID != "" {
			query = query.Where("user_id = ?", userID)
		}
		if from := c.Query("from"); from != "" {
			if t, err := time.Parse(time.RFC3339, from); err == nil {
				query = query.Where("created_at >= ?", t)
			} else {
				c.JSON(400, gin.H{"error": "from must be RFC3339"})
				return
			}
		}
		if to := c.Query("to"); to != "" {
			if t, err := time.Parse(time.RFC3339, to); err == nil {
				query = query.Where("created_at <= ?", t)
			} else {
				c.JSON(400, gin.H{"error": "to must be RFC3339"})
				return
			}
		}

		var history []models.LoadHistory
		if err := query.Order("created_at DESC").Find(&history).Error; err != nil {
			fail(c, err)
			return
		}

		// Before/after snapshots stay admin-only even for visible actions.
		if user.Role != models.RoleAdmin {
			for i := range history {
				history[i].Before = ""
				history[i].After = ""
			}
		}

		c.JSON(200, history)
	}
}
