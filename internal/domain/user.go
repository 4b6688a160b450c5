package domain

import "time"

// User is a vault owner. Accounts are created inactive by an admin
// invitation and become active exactly once, through registration.
type User struct {
	ID            string
	Name          string
	Email         string
	EmailVerified bool
	IsActive      bool
	IsAdmin       bool
	// MasterPwdHash is the argon2id hash of the client's double-KDF
	// master password hash. Never logged.
	MasterPwdHash string
	CreatedAt     time.Time
}
