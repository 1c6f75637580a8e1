package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/freightflow/freightflow-backend/internal/middleware"
	"github.com/freightflow/freightflow-backend/internal/models"
	"github.com/freightflow/freightflow-backend/pkg/utils"
	"github.com/gin-gonic/gin"
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

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Carrier{},
		&models.Load{},
		&models.Bid{},
		&models.Document{},
		&models.Geofence{},
		&models.GeofenceEvent{},
		&models.Event{},
		&models.LoadHistory{},
		&models.Notification{},
		&models.NotificationPreference{},
	))
	return db
}

func setupRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	api := r.Group("/api")
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware())
	{
		loads := protected.Group("/loads")
		{
			loads.POST("", CreateLoad(db))
			loads.GET("/available", GetAvailableLoads(db))
			loads.GET("/:id", GetLoadByID(db))
			loads.PUT("/:id", UpdateLoad(db))
			loads.PATCH("/:id/status", UpdateLoadStatus(db, nil))
			loads.POST("/:id/cancel", CancelLoad(db, nil))
			loads.POST("/:id/assign-carrier", AssignCarrier(db, nil))
			loads.GET("/:id/bids", GetLoadBids(db))
			loads.POST("/:id/documents", CreateDocument(db))
			loads.GET("/:id/documents", GetLoadDocuments(db))
			loads.POST("/:id/geofences", CreateGeofence(db))
			loads.GET("/:id/events", GetLoadEvents(db))
			loads.GET("/:id/history", GetLoadHistory(db))
		}
		bids := protected.Group("/bids")
		{
			bids.POST("", CreateBid(db))
			bids.POST("/:id/withdraw", WithdrawBid(db))
			bids.POST("/:id/accept", AcceptBid(db, nil))
			bids.POST("/:id/reject", RejectBid(db))
		}
		documents := protected.Group("/documents")
		{
			documents.POST("/:id/verify", VerifyDocument(db))
			documents.DELETE("/:id", DeleteDocument(db))
		}
		geofences := protected.Group("/geofences")
		{
			geofences.POST("/:id/events", RecordGeofenceEvent(db, nil))
			geofences.GET("/:id/check", CheckGeofenceContainment(db))
		}
	}
	return r
}

func createCarrier(t *testing.T, db *gorm.DB, name string) *models.Carrier {
	t.Helper()
	carrier := models.Carrier{Name: name, MCNumber: "MC-" + name}
	require.NoError(t, db.Create(&carrier).Error)
	return &carrier
}

var userSeq int

func createUser(t *testing.T, db *gorm.DB, role models.UserRole, carrierID *uint) *models.User {
	t.Helper()
	userSeq++
	user := models.User{
		Username:  fmt.Sprintf("%s-%d", role, userSeq),
		Email:     fmt.Sprintf("%s-%d@example.com", role, userSeq),
		Role:      role,
		CarrierID: carrierID,
	}
	require.NoError(t, user.SetPassword("password123"))
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func authToken(t *testing.T, user *models.User) string {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	token, err := utils.GenerateToken(user)
	require.NoError(t, err)
	return token
}

func createLoad(t *testing.T, db *gorm.DB, shipperID uint, status string) *models.Load {
	t.Helper()
	load := models.Load{
		ReferenceNumber:    newReferenceNumber(),
		Status:             status,
		ShipperID:          shipperID,
		PickupAddress:      "100 W Main St, Chicago, IL",
		PickupLat:          41.8781,
		PickupLng:          -87.6298,
		PickupWindowFrom:   time.Now().Add(24 * time.Hour),
		PickupWindowTo:     time.Now().Add(30 * time.Hour),
		DeliveryAddress:    "200 Peachtree St, Atlanta, GA",
		DeliveryLat:        33.7490,
		DeliveryLng:        -84.3880,
		DeliveryWindowFrom: time.Now().Add(72 * time.Hour),
		DeliveryWindowTo:   time.Now().Add(80 * time.Hour),
		WeightLbs:          24000,
		RateCents:          185000,
		RateType:           models.RateTypeFlat,
		TrackingEnabled:    true,
	}
	require.NoError(t, db.Create(&load).Error)
	return &load
}

func perform(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func loadStatus(t *testing.T, db *gorm.DB, loadID uint) string {
	t.Helper()
	var load models.Load
	require.NoError(t, db.First(&load, loadID).Error)
	return load.Status
}
