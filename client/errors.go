package client

import (
	"errors"
	"fmt"

	"bazaar/internal/catalog"
)

var (
	// ErrInvalidCredentials is returned by Login when the credential store
	// rejects the username/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionExpired means the refresh path failed and the session was
	// torn down. The caller has to log in again.
	ErrSessionExpired = errors.New("session expired")

	// ErrPermissionDenied is surfaced by the local capability gate before
	// any network call, and by the server's authoritative check.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound covers entities that are missing or owned by another
	// business; the server does not distinguish the two.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamUnavailable means the backend could not be reached or
	// answered with a server-side failure. Mutations must surface this so
	// the caller can retry; it is never swallowed.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrInvalidTransition mirrors the product workflow table.
	ErrInvalidTransition = catalog.ErrInvalidTransition
)

// ValidationError carries per-field messages so forms can render one message
// next to each input.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Fields)
}
