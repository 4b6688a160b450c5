package token_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Vaultexe/server/internal/domain"
	"github.com/Vaultexe/server/internal/token"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newCodec(t *testing.T) *token.Codec {
	t.Helper()
	codec, err := token.NewCodec([]byte(testSecret))
	require.NoError(t, err)
	return codec
}

func TestNewCodecRejectsShortSecret(t *testing.T) {
	_, err := token.NewCodec([]byte("too short"))
	require.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := newCodec(t)
	wc := token.NewWebClaims("user-1", "10.0.0.1", true, time.Minute, time.Hour)

	raw, err := codec.Encode(wc.Access)
	require.NoError(t, err)

	claim, err := codec.Decode(raw, false)
	require.NoError(t, err)
	require.Equal(t, token.KindAccess, claim.Kind)
	require.Equal(t, "user-1", claim.Subject)
	require.Equal(t, wc.Access.JTI, claim.JTI)
	require.True(t, claim.IsAdmin)
	require.Empty(t, claim.IP)
}

func TestDecodeRejectsTamperedToken(t *testing.T) {
	codec := newCodec(t)
	wc := token.NewWebClaims("user-1", "10.0.0.1", false, time.Minute, time.Hour)
	raw, err := codec.Encode(wc.Refresh)
	require.NoError(t, err)

	_, err = codec.Decode(raw+"x", false)
	require.ErrorIs(t, err, domain.ErrAuthenticationFailed)

	_, err = codec.Decode("not a token", false)
	require.ErrorIs(t, err, domain.ErrAuthenticationFailed)
}

func TestDecodeRejectsForeignSignature(t *testing.T) {
	codec := newCodec(t)
	other, err := token.NewCodec([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)

	wc := token.NewWebClaims("user-1", "", false, time.Minute, time.Hour)
	raw, err := other.Encode(wc.Access)
	require.NoError(t, err)

	_, err = codec.Decode(raw, false)
	require.ErrorIs(t, err, domain.ErrAuthenticationFailed)
}

func TestDecodeExpiry(t *testing.T) {
	codec := newCodec(t)
	wc := token.NewWebClaims("user-1", "", false, -time.Minute, time.Hour)
	raw, err := codec.Encode(wc.Access)
	require.NoError(t, err)

	_, err = codec.Decode(raw, false)
	require.ErrorIs(t, err, domain.ErrTokenExpired)

	// The refresh flow presents expired access tokens on purpose.
	claim, err := codec.Decode(raw, true)
	require.NoError(t, err)
	require.Equal(t, wc.Access.JTI, claim.JTI)
}

func TestWebClaimsShareJTI(t *testing.T) {
	wc := token.NewWebClaims("user-1", "10.0.0.1", false, time.Minute, time.Hour)
	require.Equal(t, wc.Access.JTI, wc.Refresh.JTI)
	require.Equal(t, token.KindAccess, wc.Access.Kind)
	require.Equal(t, token.KindRefresh, wc.Refresh.Kind)
	require.Equal(t, "10.0.0.1", wc.Refresh.IP)
	require.Empty(t, wc.Access.IP)
	require.Greater(t, wc.Refresh.Expiry, wc.Access.Expiry)
}

func TestOTPClaimsSplitCodeMaterial(t *testing.T) {
	oc := token.NewOTPClaims("user-1", "10.0.0.1", "salt", "hash", 5*time.Minute)
	require.Equal(t, oc.Challenge.JTI, oc.SaltedHash.JTI)
	require.Empty(t, oc.Challenge.Salt)
	require.Empty(t, oc.Challenge.Hash)
	require.Equal(t, "salt", oc.SaltedHash.Salt)
	require.Equal(t, "hash", oc.SaltedHash.Hash)
}
