package main

import (
	"log"
	"os"
	"time"

	"github.com/freightflow/freightflow-backend/internal/database"
	"github.com/freightflow/freightflow-backend/internal/handlers"
	"github.com/freightflow/freightflow-backend/internal/jobs"
	"github.com/freightflow/freightflow-backend/internal/middleware"
	"github.com/freightflow/freightflow-backend/internal/services"
	"github.com/freightflow/freightflow-backend/pkg/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	logger.Init()
	defer logger.L.Sync()

	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := services.InitRedis(); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	// Firebase is optional; push delivery degrades to a no-op without it.
	if err := services.InitFirebase(); err != nil {
		log.Printf("Firebase initialization warning: %v", err)
	}

	if err := services.InitStorage(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	hub := services.NewHub()
	go hub.Run()

	scheduler := jobs.StartScheduler(db)
	defer scheduler.Stop()

	r := gin.Default()

	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	// Local storage fallback serves uploads directly
	r.Static("/uploads", "/app/uploads")

	api := r.Group("/api")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(db))
			auth.POST("/login", handlers.Login(db))
			auth.POST("/carriers", handlers.CreateCarrier(db))
		}

		// WebSocket connection
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocketHandler(hub))

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			users := protected.Group("/users")
			{
				users.GET("/profile", handlers.GetProfile(db))
				users.PUT("/profile", handlers.UpdateProfile(db))
			}

			loads := protected.Group("/loads")
			{
				loads.POST("", handlers.CreateLoad(db))
				loads.GET("/available", handlers.GetAvailableLoads(db))
				loads.GET("/shipper", handlers.GetShipperLoads(db))
				loads.GET("/carrier", handlers.GetCarrierLoads(db))
				loads.GET("/driver", handlers.GetDriverLoads(db))
				loads.GET("/all", handlers.GetAllLoads(db))
				loads.GET("/:id", handlers.GetLoadByID(db))
				loads.PUT("/:id", handlers.UpdateLoad(db))
				loads.GET("/:id/quote", handlers.GetLoadQuote(db))
				loads.PATCH("/:id/status", handlers.UpdateLoadStatus(db, hub))
				loads.POST("/:id/cancel", handlers.CancelLoad(db, hub))
				loads.POST("/:id/assign-carrier", handlers.AssignCarrier(db, hub))
				loads.POST("/:id/assign-driver", handlers.AssignDriver(db))
				loads.GET("/:id/bids", handlers.GetLoadBids(db))
				loads.POST("/:id/documents/upload-url", handlers.RequestDocumentUpload(db))
				loads.POST("/:id/documents", handlers.CreateDocument(db))
				loads.GET("/:id/documents", handlers.GetLoadDocuments(db))
				loads.POST("/:id/geofences", handlers.CreateGeofence(db))
				loads.GET("/:id/geofences", handlers.GetLoadGeofences(db))
				loads.GET("/:id/events", handlers.GetLoadEvents(db))
				loads.GET("/:id/history", handlers.GetLoadHistory(db))
			}

			bids := protected.Group("/bids")
			{
				bids.POST("", handlers.CreateBid(db))
				bids.GET("/carrier", handlers.GetCarrierBids(db))
				bids.PUT("/:id", handlers.UpdateBid(db))
				bids.POST("/:id/withdraw", handlers.WithdrawBid(db))
				bids.POST("/:id/accept", handlers.AcceptBid(db, hub))
				bids.POST("/:id/reject", handlers.RejectBid(db))
			}

			documents := protected.Group("/documents")
			{
				documents.POST("/:id/verify", handlers.VerifyDocument(db))
				documents.DELETE("/:id", handlers.DeleteDocument(db))
			}

			geofences := protected.Group("/geofences")
			{
				geofences.PATCH("/:id", handlers.ToggleGeofence(db))
				geofences.POST("/:id/events", handlers.RecordGeofenceEvent(db, hub))
				geofences.GET("/:id/events", handlers.GetGeofenceEvents(db))
				geofences.GET("/:id/check", handlers.CheckGeofenceContainment(db))
			}

			drivers := protected.Group("/drivers")
			{
				drivers.POST("/position", handlers.UpdateDriverPosition(db, hub))
				drivers.GET("/:id/position", handlers.GetDriverPosition(db))
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", handlers.GetNotifications(db))
				notifications.POST("/:id/read", handlers.MarkNotificationRead(db))
				notifications.POST("/read-all", handlers.MarkAllNotificationsRead(db))
				notifications.POST("/register-token", handlers.RegisterFCMToken(db))
				notifications.DELETE("/remove-token", handlers.RemoveFCMToken(db))
				notifications.GET("/preferences", handlers.GetNotificationPreferences(db))
				notifications.PUT("/preferences", handlers.UpdateNotificationPreferences(db))
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
