// Package apperr defines the sentinel error values shared across handlers
// and guards. These allow higher layers to distinguish failure scenarios
// with errors.Is and translate them into HTTP responses, while keeping
// user-facing messages free to avoid leaking resource existence to
// unauthorized callers.
package apperr

import "errors"

// ErrUnauthenticated is returned when the caller identity cannot be
// resolved. Handlers should translate this into an HTTP 401 response.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrNotFound is returned when a referenced load, bid, document or
// geofence does not exist. Handlers should translate this into an HTTP
// 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller is authenticated and the
// target exists, but the role or ownership policy denies the action.
// Handlers should translate this into an HTTP 403 response and must not
// confirm or deny the target's existence in the message.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidState is returned when an action violates a state-machine
// precondition, such as bidding on a non-posted load or updating a
// non-pending bid. Handlers should translate this into an HTTP 422
// response.
var ErrInvalidState = errors.New("invalid state")

// ErrConflict is returned when a uniqueness invariant would be violated,
// such as a duplicate pending bid. Handlers should translate this into an
// HTTP 409 response.
var ErrConflict = errors.New("conflict")

// HTTPStatus maps a domain error to its HTTP status code. Unknown errors
// map to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return 401
	case errors.Is(err, ErrForbidden):
		return 403
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrConflict):
		return 409
	case errors.Is(err, ErrInvalidState):
		return 422
	default:
		return 500
	}
}
