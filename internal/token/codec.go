package token

import (
	"errors"
	"fmt"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"

	"github.com/Vaultexe/server/internal/domain"
)

// Kind discriminates the claim shapes the codec signs.
type Kind string

const (
	KindAccess  Kind = "ACCESS"
	KindRefresh Kind = "REFRESH"
	KindOTP     Kind = "OTP"
)

// Claim is a signed assertion bound to a subject and a validity window.
// IsAdmin is only set on access claims, IP on refresh and OTP claims, and
// Salt/Hash only on the cached OTP salted-hash shape, which is never
// encoded into a token handed to a client.
type Claim struct {
	Kind     Kind   `json:"typ"`
	JTI      string `json:"jti"`
	Subject  string `json:"sub"`
	IssuedAt int64  `json:"iat"`
	Expiry   int64  `json:"exp"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
	IP       string `json:"ip,omitempty"`
	Salt     string `json:"salt,omitempty"`
	Hash     string `json:"hash,omitempty"`
}

// Expired reports whether the claim's window has passed.
func (c Claim) Expired(now time.Time) bool {
	return now.Unix() >= c.Expiry
}

// Codec signs and verifies compact claims with a single shared HS256
// secret. It is stateless and safe for concurrent use.
type Codec struct {
	secret []byte
}

var errShortSecret = errors.New("token: signing secret must be at least 32 bytes")

func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) < 32 {
		return nil, errShortSecret
	}
	return &Codec{secret: secret}, nil
}

// Encode serializes the claim into a signed compact token.
func (c *Codec) Encode(claim Claim) (string, error) {
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: c.secret},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("new signer: %w", err)
	}
	raw, err := gojwt.Signed(signer).Claims(claim).Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize claim: %w", err)
	}
	return raw, nil
}

// Decode verifies the signature and, unless allowExpired, the expiry.
// Structural or signature failures surface as AuthenticationFailed;
// a valid signature past its window surfaces as TokenExpired so callers
// can distinguish "refresh me" from "log in again".
func (c *Codec) Decode(raw string, allowExpired bool) (Claim, error) {
	parsed, err := gojwt.ParseSigned(raw, []gojose.SignatureAlgorithm{gojose.HS256})
	if err != nil {
		return Claim{}, domain.ErrAuthenticationFailed
	}

	var claim Claim
	if err := parsed.Claims(c.secret, &claim); err != nil {
		return Claim{}, domain.ErrAuthenticationFailed
	}

	if claim.JTI == "" || claim.Subject == "" || claim.Expiry == 0 {
		return Claim{}, domain.ErrAuthenticationFailed
	}

	if !allowExpired && claim.Expired(time.Now().UTC()) {
		return Claim{}, domain.ErrTokenExpired
	}

	return claim, nil
}
