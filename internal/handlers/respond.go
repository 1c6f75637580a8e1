package handlers

import (
	"github.com/freightflow/freightflow-backend/internal/access"
	"github.com/freightflow/freightflow-backend/internal/apperr"
	"github.com/freightflow/freightflow-backend/internal/models"
	"github.com/freightflow/freightflow-backend/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fail translates a domain error into its HTTP response. Authorization
// denials are logged separately from ordinary validation failures;
// unknown errors are hidden behind a generic message.
func fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	switch status {
	case 401, 403:
		logger.L.Warn("access denied",
			zap.String("path", c.FullPath()),
			zap.Uint("userId", c.GetUint("userId")),
			zap.Error(err))
	case 500:
		logger.L.Error("internal error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(500, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// currentUser resolves the authenticated caller set by the auth middleware.
func currentUser(c *gin.Context, db *gorm.DB) (*models.User, error) {
	userID := c.GetUint("userId")
	if userID == 0 {
		return nil, apperr.ErrUnauthenticated
	}
	return access.ResolveUser(db, userID)
}
