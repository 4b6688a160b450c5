package domain

import "time"

// Invitation is an admin-issued registration grant. Only the sha256 hash
// of the raw token is ever stored.
type Invitation struct {
	TokenHash string
	InviteeID string
	CreatedBy string
	CreatedAt time.Time
	ExpiresAt time.Time
	IsValid   bool
}

// Expired reports whether the invitation's window has passed.
func (i Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Usable reports whether the invitation can still be consumed. Both the
// validity flag and the expiry matter independently.
func (i Invitation) Usable(now time.Time) bool {
	return i.IsValid && !i.Expired(now)
}
