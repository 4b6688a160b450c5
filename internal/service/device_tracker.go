package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Vaultexe/server/internal/domain"
	"github.com/Vaultexe/server/internal/repository"
)

// DeviceTracker maps device-id cookies to persisted trust state.
type DeviceTracker struct {
	devices repository.DeviceRepository
	logger  *zap.Logger
}

func NewDeviceTracker(devices repository.DeviceRepository, logger *zap.Logger) *DeviceTracker {
	return &DeviceTracker{devices: devices, logger: logger}
}

// Lookup resolves a presented device id. An empty id or an unknown id is
// not an error, just an absent device.
func (t *DeviceTracker) Lookup(ctx context.Context, id string) (domain.Device, bool, error) {
	if id == "" {
		return domain.Device{}, false, nil
	}
	device, err := t.devices.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Device{}, false, nil
		}
		return domain.Device{}, false, err
	}
	return device, true, nil
}

// IsTrusted reports whether the id resolves to a verified device.
func (t *DeviceTracker) IsTrusted(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	verified, err := t.devices.IsVerified(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return verified, nil
}

// Register creates a device row for the user and then prunes other
// unverified rows sharing (user, ip, user agent). The prune is
// best-effort: losing a race with a concurrent login only leaves a stale
// row for one extra cycle.
func (t *DeviceTracker) Register(ctx context.Context, userID, ip, userAgent string, verified bool) (domain.Device, error) {
	now := time.Now().UTC()
	device := domain.Device{
		ID:           uuid.NewString(),
		UserID:       userID,
		IsVerified:   verified,
		UserAgent:    userAgent,
		LastLoginIP:  ip,
		LastLoginAt:  now,
		RegisteredAt: now,
	}

	created, err := t.devices.Create(ctx, device)
	if err != nil {
		return domain.Device{}, err
	}

	if n, err := t.devices.DeleteRedundant(ctx, userID, ip, userAgent, created.ID); err != nil {
		t.logger.Warn("redundant device cleanup failed", zap.Error(err))
	} else if n > 0 {
		t.logger.Debug("pruned redundant devices", zap.Int64("count", n), zap.String("user_id", userID))
	}

	return created, nil
}

// MarkVerified flips the device's trust flag, reporting whether a row was
// affected. False means the device vanished and the caller must fail the
// request.
func (t *DeviceTracker) MarkVerified(ctx context.Context, id string) (bool, error) {
	return t.devices.Verify(ctx, id)
}

// RefreshLogin stamps the device with the current login IP and time.
func (t *DeviceTracker) RefreshLogin(ctx context.Context, device *domain.Device, ip string) error {
	now := time.Now().UTC()
	if err := t.devices.RefreshLogin(ctx, device.ID, ip, now); err != nil {
		return err
	}
	device.LastLoginIP = ip
	device.LastLoginAt = now
	return nil
}
