package platform

import (
	"errors"
	"fmt"
)

// Sentinel errors classified from the platform's error codes. Callers use
// errors.Is instead of matching message text; anything the taxonomy does not
// cover passes through verbatim as an *APIError.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already registered")
	ErrSessionExpired     = errors.New("session expired")
	ErrNotFound           = errors.New("not found")
)

// APIError is the raw error the platform returned.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("platform: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("platform: %s (http %d)", e.Message, e.Status)
}

// classify wraps an APIError with the matching sentinel, if any.
func classify(apiErr *APIError) error {
	switch apiErr.Code {
	case "invalid_credentials", "invalid_grant":
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Message)
	case "user_already_exists", "email_exists":
		return fmt.Errorf("%w: %s", ErrUserExists, apiErr.Message)
	case "refresh_token_not_found", "session_expired", "session_not_found":
		return fmt.Errorf("%w: %s", ErrSessionExpired, apiErr.Message)
	}
	switch apiErr.Status {
	case 404:
		return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
	}
	return apiErr
}
