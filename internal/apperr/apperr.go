package apperr

import (
	"errors"
	"net/http"
)

// Sentinel errors for every recoverable failure class. Services wrap these
// with fmt.Errorf("...: %w", ...) and handlers translate them with Status.
var (
	// ErrNotFound covers both "does not exist" and "exists but is not
	// visible to the caller". The two must stay indistinguishable.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a valid lease was required and not presented.
	ErrConflict = errors.New("valid lease required")

	// ErrForbidden is a write attempt through a read-only share.
	ErrForbidden = errors.New("read-only share")

	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAuth is a missing or invalid replication token or principal.
	ErrAuth = errors.New("authentication failed")

	// ErrCorrupt marks an unreadable stored record.
	ErrCorrupt = errors.New("corrupt record")
)

// Status maps an error to the HTTP status code the API surfaces for it.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
