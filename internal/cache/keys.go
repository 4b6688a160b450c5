package cache

import (
	"fmt"
	"time"

	"github.com/Vaultexe/server/internal/token"
)

// RefreshKey addresses the single live refresh claim for a (user, device)
// pair. A new login on the same device overwrites it entirely.
func RefreshKey(userID, deviceID string) string {
	return fmt.Sprintf("rt:user:%s:device:%s", userID, deviceID)
}

// OTPKey addresses the pending OTP salted-hash claim for a user.
func OTPKey(userID string) string {
	return fmt.Sprintf("otp:shash:%s", userID)
}

// SyncChannel names the per-user vault sync broadcast channel.
func SyncChannel(userID string) string {
	return fmt.Sprintf("sync:v:%s", userID)
}

// TTLMap maps claim kinds to cache lifetimes. Access claims are a pure
// client-held artifact and are never cached.
type TTLMap struct {
	Refresh time.Duration
	OTP     time.Duration
}

// For resolves the lifetime for a cacheable claim kind.
func (m TTLMap) For(kind token.Kind) (time.Duration, error) {
	switch kind {
	case token.KindRefresh:
		return m.Refresh, nil
	case token.KindOTP:
		return m.OTP, nil
	default:
		return 0, fmt.Errorf("cache: no ttl for claim kind %q", kind)
	}
}
