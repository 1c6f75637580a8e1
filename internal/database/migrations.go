package database

import (
	"github.com/freightflow/freightflow-backend/internal/models"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	// Create tables if they don't exist
	err := db.AutoMigrate(
		&models.Carrier{},
		&models.User{},
		&models.Load{},
		&models.Bid{},
		&models.Document{},
		&models.Geofence{},
		&models.GeofenceEvent{},
		&models.Event{},
		&models.LoadHistory{},
		&models.Notification{},
		&models.NotificationPreference{},
	)
	if err != nil {
		return err
	}

	// Role values are fixed; reject anything the access gate would not
	// understand.
	db.Exec(`ALTER TABLE users DROP CONSTRAINT IF EXISTS users_role_check`)
	if err := db.Exec(`ALTER TABLE users ADD CONSTRAINT users_role_check CHECK (role IN ('admin', 'shipper', 'carrier', 'driver'))`).Error; err != nil {
		return err
	}

	db.Exec(`ALTER TABLE loads DROP CONSTRAINT IF EXISTS loads_status_check`)
	if err := db.Exec(`ALTER TABLE loads ADD CONSTRAINT loads_status_check CHECK (status IN ('draft', 'posted', 'assigned', 'in_transit', 'delivered', 'completed', 'cancelled'))`).Error; err != nil {
		return err
	}

	// At most one pending bid per (load, carrier). The partial unique
	// index makes concurrent check-then-insert races fail at the storage
	// layer instead of silently violating the invariant.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_bids_one_pending
		ON bids (load_id, carrier_id)
		WHERE status = 'pending' AND deleted_at IS NULL`).Error; err != nil {
		return err
	}

	if err := db.Exec(`ALTER TABLE bids DROP CONSTRAINT IF EXISTS bids_amount_check`).Error; err != nil {
		return err
	}
	if err := db.Exec(`ALTER TABLE bids ADD CONSTRAINT bids_amount_check CHECK (amount_cents > 0)`).Error; err != nil {
		return err
	}

	return nil
}
