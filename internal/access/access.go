// Package access is the gate every mutation and query passes through
// before touching a load. It resolves the authenticated caller to a user
// record and enforces the role/ownership policy:
//
//   - admin: unrestricted read/write on any load
//   - shipper: loads they own
//   - carrier: loads assigned to their carrier, plus read access to any
//     posted load so they can bid
//   - driver: loads they are assigned to drive
//
// Denials return apperr.ErrForbidden with messages that never confirm
// whether the load exists.
package access

import (
	"errors"
	"fmt"

	"github.com/freightflow/freightflow-backend/internal/apperr"
	"github.com/freightflow/freightflow-backend/internal/models"
	"gorm.io/gorm"
)

// ResolveUser loads the caller's user record. Returns
// apperr.ErrUnauthenticated when the id does not resolve.
func ResolveUser(db *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown user", apperr.ErrUnauthenticated)
		}
		return nil, err
	}
	return &user, nil
}

// AuthorizeLoad resolves the target load and checks that the caller may
// act on it. Write access and read access coincide for every role except
// carrier, where readOnly additionally grants visibility of posted loads
// for bidding.
func AuthorizeLoad(db *gorm.DB, user *models.User, loadID uint, readOnly bool) (*models.Load, error) {
	var load models.Load
	if err := db.First(&load, loadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if user.Role == models.RoleAdmin {
				return nil, fmt.Errorf("%w: load", apperr.ErrNotFound)
			}
			// Non-admins get the same answer for a missing load as for a
			// load they cannot see.
			return nil, fmt.Errorf("%w: load not found or access denied", apperr.ErrForbidden)
		}
		return nil, err
	}

	if allowed(user, &load, readOnly) {
		return &load, nil
	}
	return nil, fmt.Errorf("%w: load not found or access denied", apperr.ErrForbidden)
}

func allowed(user *models.User, load *models.Load, readOnly bool) bool {
	switch user.Role {
	case models.RoleAdmin:
		return true
	case models.RoleShipper:
		return load.ShipperID == user.ID
	case models.RoleCarrier:
		if user.CarrierID != nil && load.CarrierID != nil && *user.CarrierID == *load.CarrierID {
			return true
		}
		// Unassigned carriers may read posted loads to bid on them.
		return readOnly && load.Status == models.LoadStatusPosted
	case models.RoleDriver:
		return load.DriverID != nil && *load.DriverID == user.ID
	default:
		return false
	}
}

// RequireRole checks that the user holds one of the given roles.
func RequireRole(user *models.User, roles ...models.UserRole) error {
	for _, r := range roles {
		if user.Role == r {
			return nil
		}
	}
	return fmt.Errorf("%w: role %s not permitted", apperr.ErrForbidden, user.Role)
}
