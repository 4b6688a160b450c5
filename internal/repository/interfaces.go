package repository

import (
	"context"
	"time"

	"github.com/Vaultexe/server/internal/domain"
)

// UserRepository exposes persistence for vault owners.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
	// Activate sets the master password hash, marks the email verified
	// and flips the account active. Registration is the only caller.
	Activate(ctx context.Context, id, masterPwdHash string) error
}

// DeviceRepository exposes persistence for client devices.
type DeviceRepository interface {
	Get(ctx context.Context, id string) (domain.Device, error)
	IsVerified(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, device domain.Device) (domain.Device, error)
	// Verify flips is_verified, reporting whether a row was affected.
	Verify(ctx context.Context, id string) (bool, error)
	RefreshLogin(ctx context.Context, id, ip string, at time.Time) error
	// DeleteRedundant removes unverified devices of the user sharing
	// (ip, user agent), excluding one id. Returns the number removed.
	DeleteRedundant(ctx context.Context, userID, ip, userAgent, excludeID string) (int64, error)
}

// InvitationRepository exposes persistence for registration invitations.
type InvitationRepository interface {
	GetByTokenHash(ctx context.Context, tokenHash string) (domain.Invitation, error)
	Create(ctx context.Context, inv domain.Invitation) error
	// InvalidateAll flips is_valid off for every invitation of the
	// invitee, returning how many were affected.
	InvalidateAll(ctx context.Context, inviteeID string) (int64, error)
}
