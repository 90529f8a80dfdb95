package models

import "time"

// User is the authenticated identity record as reported by the hosted
// platform. Metadata carries the free-form profile fields supplied at
// sign-up (display name, avatar URL, arbitrary keys).
type User struct {
	ID           string
	Email        string
	Role         string
	Metadata     map[string]any
	CreatedAt    time.Time
	LastSignInAt time.Time
}

// DisplayName returns the display name from metadata, or the empty string.
func (u *User) DisplayName() string {
	if u == nil || u.Metadata == nil {
		return ""
	}
	if name, ok := u.Metadata["display_name"].(string); ok {
		return name
	}
	return ""
}

// Session is the token bundle issued by the hosted platform. The platform
// owns it; the gateway holds a read-only cached copy. At most one session
// is current per browser context.
type Session struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
	UserID       string
}

// ExpiresWithin reports whether the access token expires within d.
func (s *Session) ExpiresWithin(d time.Duration) bool {
	return time.Until(s.ExpiresAt) < d
}
