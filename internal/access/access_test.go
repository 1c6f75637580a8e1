package access

import (
	"errors"
	"fmt"
	"testing"

	"github.com/freightflow/freightflow-backend/internal/apperr"
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
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Carrier{}, &models.Load{}))
	return db
}

var userSeq int

func seedUser(t *testing.T, db *gorm.DB, role models.UserRole, carrierID *uint) *models.User {
	t.Helper()
	userSeq++
	user := models.User{
		Username:  fmt.Sprintf("%s-%d", role, userSeq),
		Email:     fmt.Sprintf("%s-%d@example.com", role, userSeq),
		Role:      role,
		CarrierID: carrierID,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func seedLoad(t *testing.T, db *gorm.DB, shipperID uint, status string) *models.Load {
	t.Helper()
	userSeq++
	load := models.Load{
		ReferenceNumber: fmt.Sprintf("FF-TEST-%d", userSeq),
		Status:          status,
		ShipperID:       shipperID,
		PickupAddress:   "origin",
		DeliveryAddress: "destination",
		RateCents:       100000,
	}
	require.NoError(t, db.Create(&load).Error)
	return &load
}

func TestAuthorizeLoad(t *testing.T) {
	db := setupTestDB(t)

	carrier := models.Carrier{Name: "gate-test", MCNumber: "MC-1"}
	require.NoError(t, db.Create(&carrier).Error)

	admin := seedUser(t, db, models.RoleAdmin, nil)
	owner := seedUser(t, db, models.RoleShipper, nil)
	otherShipper := seedUser(t, db, models.RoleShipper, nil)
	carrierUser := seedUser(t, db, models.RoleCarrier, &carrier.ID)
	driver := seedUser(t, db, models.RoleDriver, &carrier.ID)

	draft := seedLoad(t, db, owner.ID, models.LoadStatusDraft)
	posted := seedLoad(t, db, owner.ID, models.LoadStatusPosted)

	assigned := seedLoad(t, db, owner.ID, models.LoadStatusInTransit)
	require.NoError(t, db.Model(assigned).Updates(map[string]interface{}{
		"carrier_id": carrier.ID,
		"driver_id":  driver.ID,
	}).Error)

	t.Run("admin reads and writes anything", func(t *testing.T) {
		for _, load := range []*models.Load{draft, posted, assigned} {
			_, err := AuthorizeLoad(db, admin, load.ID, false)
			assert.NoError(t, err)
		}
	})

	t.Run("owner has full access, other shippers none", func(t *testing.T) {
		_, err := AuthorizeLoad(db, owner, draft.ID, false)
		assert.NoError(t, err)

		_, err = AuthorizeLoad(db, otherShipper, draft.ID, true)
		assert.True(t, errors.Is(err, apperr.ErrForbidden))
	})

	t.Run("carrier reads posted loads only when readOnly", func(t *testing.T) {
		_, err := AuthorizeLoad(db, carrierUser, posted.ID, true)
		assert.NoError(t, err)

		_, err = AuthorizeLoad(db, carrierUser, posted.ID, false)
		assert.True(t, errors.Is(err, apperr.ErrForbidden))

		_, err = AuthorizeLoad(db, carrierUser, draft.ID, true)
		assert.True(t, errors.Is(err, apperr.ErrForbidden))
	})

	t.Run("assigned carrier writes its load", func(t *testing.T) {
		_, err := AuthorizeLoad(db, carrierUser, assigned.ID, false)
		assert.NoError(t, err)
	})

	t.Run("driver only touches assigned loads", func(t *testing.T) {
		_, err := AuthorizeLoad(db, driver, assigned.ID, false)
		assert.NoError(t, err)

		_, err = AuthorizeLoad(db, driver, posted.ID, true)
		assert.True(t, errors.Is(err, apperr.ErrForbidden))
	})

	t.Run("missing load is 404 for admin, opaque 403 otherwise", func(t *testing.T) {
		_, err := AuthorizeLoad(db, admin, 999999, true)
		assert.True(t, errors.Is(err, apperr.ErrNotFound))

		_, err = AuthorizeLoad(db, owner, 999999, true)
		assert.True(t, errors.Is(err, apperr.ErrForbidden))

		// The two denial messages must be indistinguishable.
		_, errMissing := AuthorizeLoad(db, otherShipper, 999999, true)
		_, errHidden := AuthorizeLoad(db, otherShipper, draft.ID, true)
		assert.Equal(t, errMissing.Error(), errHidden.Error())
	})
}

func TestRequireRole(t *testing.T) {
	shipper := &models.User{Role: models.RoleShipper}

	assert.NoError(t, RequireRole(shipper, models.RoleShipper))
	assert.NoError(t, RequireRole(shipper, models.RoleShipper, models.RoleAdmin))

	err := RequireRole(shipper, models.RoleCarrier)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}
