package models

import "time"

// Profile is the row written to the profiles table during sign-up, separate
// from the identity record the platform owns. Identity creation and profile
// insertion are not transactional: a failed insert leaves an identity with
// no profile row.
type Profile struct {
	UserID      string
	DisplayName string
	Company     string
	AvatarURL   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DemoState is the in-memory state of the demo session controller. IsDemoMode
// is fixed for the lifetime of the process; DaysRemaining counts down once
// per 24 hours while the demo is active.
type DemoState struct {
	IsDemoMode    bool `json:"isDemoMode"`
	DaysRemaining int  `json:"daysRemaining"`
	Expired       bool `json:"expired"`
}
