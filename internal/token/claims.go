package token

import (
	"time"

	"github.com/google/uuid"
)

// WebClaims is the access/refresh pair minted on a successful login or
// refresh. Both claims share one jti, which is what later proves they
// were issued together.
type WebClaims struct {
	Access  Claim
	Refresh Claim
}

// NewWebClaims mints a fresh jti and builds the paired access and refresh
// claims. The refresh claim is bound to the request IP.
func NewWebClaims(subject, ip string, isAdmin bool, accessTTL, refreshTTL time.Duration) WebClaims {
	jti := uuid.NewString()
	now := time.Now().UTC()

	return WebClaims{
		Access: Claim{
			Kind:     KindAccess,
			JTI:      jti,
			Subject:  subject,
			IssuedAt: now.Unix(),
			Expiry:   now.Add(accessTTL).Unix(),
			IsAdmin:  isAdmin,
		},
		Refresh: Claim{
			Kind:     KindRefresh,
			JTI:      jti,
			Subject:  subject,
			IssuedAt: now.Unix(),
			Expiry:   now.Add(refreshTTL).Unix(),
			IP:       ip,
		},
	}
}

// OTPClaims is the pair backing a second-factor challenge: the challenge
// claim travels to the client inside a signed cookie, the salted-hash
// claim stays server-side in the cache. They share one jti.
type OTPClaims struct {
	Challenge  Claim
	SaltedHash Claim
}

// NewOTPClaims builds the OTP challenge pair bound to the request IP.
// Salt and hash come from the one-time code; the code itself is never
// part of any claim.
func NewOTPClaims(subject, ip, salt, hash string, ttl time.Duration) OTPClaims {
	jti := uuid.NewString()
	now := time.Now().UTC()

	challenge := Claim{
		Kind:     KindOTP,
		JTI:      jti,
		Subject:  subject,
		IssuedAt: now.Unix(),
		Expiry:   now.Add(ttl).Unix(),
		IP:       ip,
	}

	saltedHash := challenge
	saltedHash.Salt = salt
	saltedHash.Hash = hash

	return OTPClaims{Challenge: challenge, SaltedHash: saltedHash}
}
