package domain

import "time"

// Device tracks a client installation identified by an opaque id the
// client persists as a cookie. A device is trusted only once its owner
// completed second-factor verification from it.
type Device struct {
	ID           string
	UserID       string
	IsVerified   bool
	UserAgent    string
	LastLoginIP  string
	LastLoginAt  time.Time
	RegisteredAt time.Time
}

// TrustedBy reports whether the device is a verified device of the given
// user presenting the given user agent.
func (d Device) TrustedBy(userID, userAgent string) bool {
	return d.IsVerified && d.UserID == userID && d.UserAgent == userAgent
}
