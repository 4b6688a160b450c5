package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Vaultexe/server/internal/cache"
	"github.com/Vaultexe/server/internal/config"
	"github.com/Vaultexe/server/internal/domain"
	"github.com/Vaultexe/server/internal/mail"
	"github.com/Vaultexe/server/internal/otp"
	"github.com/Vaultexe/server/internal/password"
	"github.com/Vaultexe/server/internal/repository"
	"github.com/Vaultexe/server/internal/token"
)

// Status is the terminal state of a login attempt.
type Status string

const (
	StatusAuthenticated     Status = "authenticated"
	StatusTwoFactorRequired Status = "two_factor_required"
)

// WebTokens is a signed access/refresh pair ready to be set as cookies.
// RefreshClaim is exposed so the boundary can align cookie expiry with
// the refresh window.
type WebTokens struct {
	Access       string
	Refresh      string
	RefreshClaim token.Claim
}

// LoginInput carries everything a login attempt presents.
type LoginInput struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
	DeviceID  string
}

// LoginResult is terminal: either full tokens on a trusted device, or a
// pending second-factor challenge on a new one.
type LoginResult struct {
	Status   Status
	User     domain.User
	DeviceID string
	Tokens   *WebTokens // set when Status is StatusAuthenticated
	OTPToken string     // set when Status is StatusTwoFactorRequired
}

// VerifyOTPResult is the authenticated outcome of a challenge response.
type VerifyOTPResult struct {
	User   domain.User
	Tokens WebTokens
}

// RefreshInput carries the cookies a rotation attempt presents.
type RefreshInput struct {
	AccessToken  string
	RefreshToken string
	DeviceID     string
	IP           string
}

// RefreshResult carries the rotated pair.
type RefreshResult struct {
	User   domain.User
	Tokens WebTokens
}

// RegisterInput carries an invitation token redemption.
type RegisterInput struct {
	Token     string
	Password  string
	IP        string
	UserAgent string
}

// RegisterResult reports the activated account and its first, pre-verified
// device.
type RegisterResult struct {
	User     domain.User
	DeviceID string
}

// AuthService is the state machine tying users, devices, claims and the
// claim cache together. It exclusively owns claim lifecycle transitions.
type AuthService struct {
	users       repository.UserRepository
	invitations repository.InvitationRepository
	tracker     *DeviceTracker
	claims      cache.ClaimStore
	codec       *token.Codec
	mailer      mail.Queue
	cfg         config.Config
	logger      *zap.Logger
	tracer      trace.Tracer
}

// NewAuthService wires dependencies.
func NewAuthService(
	users repository.UserRepository,
	invitations repository.InvitationRepository,
	tracker *DeviceTracker,
	claims cache.ClaimStore,
	codec *token.Codec,
	mailer mail.Queue,
	cfg config.Config,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		invitations: invitations,
		tracker:     tracker,
		claims:      claims,
		codec:       codec,
		mailer:      mailer,
		cfg:         cfg,
		logger:      logger,
		tracer:      otel.Tracer("github.com/Vaultexe/server/internal/service"),
	}
}

// Login authenticates credentials and either grants web tokens on a
// trusted device or opens an OTP challenge on an unrecognized one.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Login")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(in.Email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, authFailedOn(err)
	}

	valid, err := password.Verify(in.Password, user.MasterPwdHash)
	if err != nil || !valid {
		return nil, domain.ErrAuthenticationFailed
	}
	if !user.IsActive {
		return nil, domain.ErrAuthenticationFailed
	}
	if s.cfg.IsProd() && !user.EmailVerified {
		return nil, domain.ErrUnverifiedEmail
	}

	device, found, err := s.tracker.Lookup(ctx, in.DeviceID)
	if err != nil {
		return nil, err
	}
	if found && device.TrustedBy(user.ID, in.UserAgent) {
		if err := s.tracker.RefreshLogin(ctx, &device, in.IP); err != nil {
			return nil, err
		}
		tokens, err := s.grantWebTokens(ctx, user, device.ID, in.IP, false)
		if err != nil {
			return nil, err
		}
		s.audit("login.success", "user_id", user.ID, "device_id", device.ID)
		return &LoginResult{
			Status:   StatusAuthenticated,
			User:     user,
			DeviceID: device.ID,
			Tokens:   tokens,
		}, nil
	}

	// Unknown or untrusted device: register it unverified and challenge.
	device, err = s.tracker.Register(ctx, user.ID, in.IP, in.UserAgent, false)
	if err != nil {
		return nil, err
	}
	otpToken, err := s.grantOTPChallenge(ctx, user, in.IP)
	if err != nil {
		return nil, err
	}
	s.audit("login.otp_challenge", "user_id", user.ID, "device_id", device.ID)
	return &LoginResult{
		Status:   StatusTwoFactorRequired,
		User:     user,
		DeviceID: device.ID,
		OTPToken: otpToken,
	}, nil
}

// OTPUser resolves the user behind a signed OTP challenge cookie.
func (s *AuthService) OTPUser(ctx context.Context, otpToken string) (domain.User, error) {
	if otpToken == "" {
		return domain.User{}, domain.ErrAuthenticationFailed
	}
	claim, err := s.codec.Decode(otpToken, false)
	if err != nil {
		return domain.User{}, err
	}
	user, err := s.users.GetByID(ctx, claim.Subject)
	if err != nil {
		return domain.User{}, authFailedOn(err)
	}
	return user, nil
}

// VerifyOTP checks a submitted one-time code against the cached challenge.
// A wrong code leaves the challenge in place for retry until its TTL; a
// correct one consumes it, trusts the pending device, and grants tokens.
func (s *AuthService) VerifyOTP(ctx context.Context, user domain.User, code, ip, deviceID string) (*VerifyOTPResult, error) {
	ctx, span := s.startSpan(ctx, "AuthService.VerifyOTP")
	defer span.End()

	if deviceID == "" {
		return nil, domain.ErrAuthenticationFailed
	}

	cached, err := s.claims.Get(ctx, cache.OTPKey(user.ID))
	if err != nil {
		return nil, err
	}
	if cached == nil {
		return nil, domain.ErrTokenExpired
	}

	if !otp.Verify(code, cached.Salt, cached.Hash) {
		return nil, domain.ErrInvalidOTP
	}
	if ip != cached.IP {
		return nil, domain.ErrAuthenticationFailed
	}

	// Only the challenged user's own pending device may be trusted, and
	// the challenge survives until every check has passed.
	device, found, err := s.tracker.Lookup(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.NotFound("Device")
	}
	if device.UserID != user.ID {
		return nil, domain.ErrAuthenticationFailed
	}

	// Single use: the claim goes away before anything else can fail.
	if _, err := s.claims.Delete(ctx, cache.OTPKey(user.ID)); err != nil {
		return nil, err
	}

	verified, err := s.tracker.MarkVerified(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, domain.NotFound("Device")
	}

	tokens, err := s.grantWebTokens(ctx, user, deviceID, ip, false)
	if err != nil {
		return nil, err
	}
	s.audit("otp.verified", "user_id", user.ID, "device_id", deviceID)
	return &VerifyOTPResult{User: user, Tokens: *tokens}, nil
}

// Refresh rotates a token pair. The cached claim's jti imposes a total
// order on refresh usage per device: replaying an old refresh token after
// rotation always fails on the jti comparison.
func (s *AuthService) Refresh(ctx context.Context, in RefreshInput) (*RefreshResult, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Refresh")
	defer span.End()

	if in.AccessToken == "" || in.RefreshToken == "" {
		return nil, domain.ErrAuthenticationFailed
	}

	trusted, err := s.tracker.IsTrusted(ctx, in.DeviceID)
	if err != nil {
		return nil, err
	}
	if !trusted {
		return nil, domain.ErrAuthenticationFailed
	}

	rtClaim, err := s.codec.Decode(in.RefreshToken, false)
	if err != nil {
		return nil, err
	}
	// The access token may be expired; that is the whole point.
	atClaim, err := s.codec.Decode(in.AccessToken, true)
	if err != nil {
		return nil, err
	}

	// Same jti and subject proves the two were issued as a pair.
	if atClaim.JTI != rtClaim.JTI || atClaim.Subject != rtClaim.Subject {
		return nil, domain.ErrAuthenticationFailed
	}

	cached, err := s.claims.Get(ctx, cache.RefreshKey(rtClaim.Subject, in.DeviceID))
	if err != nil {
		return nil, err
	}
	if cached == nil || cached.JTI != rtClaim.JTI || cached.IP != in.IP {
		return nil, domain.ErrAuthenticationFailed
	}

	user, err := s.users.GetByID(ctx, rtClaim.Subject)
	if err != nil {
		return nil, authFailedOn(err)
	}
	if !user.IsActive {
		return nil, domain.ErrAuthenticationFailed
	}

	// keepTTL: rotation preserves the remaining session window instead
	// of extending it indefinitely.
	tokens, err := s.grantWebTokens(ctx, user, in.DeviceID, in.IP, true)
	if err != nil {
		return nil, err
	}
	s.audit("refresh.success", "user_id", user.ID, "device_id", in.DeviceID)
	return &RefreshResult{User: user, Tokens: *tokens}, nil
}

// CurrentUser authorizes a resource request from its access token, device
// cookie and request IP.
func (s *AuthService) CurrentUser(ctx context.Context, accessToken, deviceID, ip string) (domain.User, error) {
	if accessToken == "" {
		return domain.User{}, domain.ErrAuthenticationFailed
	}

	trusted, err := s.tracker.IsTrusted(ctx, deviceID)
	if err != nil {
		return domain.User{}, err
	}
	if !trusted {
		return domain.User{}, domain.ErrAuthenticationFailed
	}

	claim, err := s.codec.Decode(accessToken, false)
	if err != nil {
		return domain.User{}, err
	}

	cached, err := s.claims.Get(ctx, cache.RefreshKey(claim.Subject, deviceID))
	if err != nil {
		return domain.User{}, err
	}
	if cached == nil || cached.JTI != claim.JTI || cached.IP != ip {
		return domain.User{}, domain.ErrAuthenticationFailed
	}

	user, err := s.users.GetByID(ctx, claim.Subject)
	if err != nil {
		return domain.User{}, authFailedOn(err)
	}
	if !user.IsActive {
		return domain.User{}, domain.ErrAuthenticationFailed
	}
	return user, nil
}

// Register redeems an invitation token: sets the master password hash,
// verifies the email, activates the account, burns all of the invitee's
// invitations and registers a pre-verified device (registration itself
// proved email ownership, so the first login skips 2FA).
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Register")
	defer span.End()

	inv, err := s.invitations.GetByTokenHash(ctx, hashInvitationToken(in.Token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAuthorizationFailed
		}
		return nil, err
	}
	if !inv.Usable(time.Now().UTC()) {
		return nil, domain.ErrAuthorizationFailed
	}

	user, err := s.users.GetByID(ctx, inv.InviteeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("User")
		}
		return nil, err
	}
	if user.IsActive {
		return nil, domain.ErrUserAlreadyActive
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	if err := s.users.Activate(ctx, user.ID, hash); err != nil {
		return nil, err
	}
	if _, err := s.invitations.InvalidateAll(ctx, user.ID); err != nil {
		return nil, err
	}

	device, err := s.tracker.Register(ctx, user.ID, in.IP, in.UserAgent, true)
	if err != nil {
		return nil, err
	}

	user.IsActive = true
	user.EmailVerified = true
	user.MasterPwdHash = hash

	s.audit("register.success", "user_id", user.ID, "device_id", device.ID)
	return &RegisterResult{User: user, DeviceID: device.ID}, nil
}

// Invite creates (or reuses) an inactive invitee account, supersedes all
// of its prior invitations and emails a fresh registration token. Only
// the token's sha256 hash is stored.
func (s *AuthService) Invite(ctx context.Context, admin domain.User, email, name string) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Invite")
	defer span.End()

	if !admin.IsAdmin {
		return domain.User{}, domain.ErrAuthorizationFailed
	}

	email = strings.ToLower(strings.TrimSpace(email))
	invitee, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if invitee.IsActive {
			return domain.User{}, domain.Duplicate("User")
		}
	case errors.Is(err, pgx.ErrNoRows):
		invitee, err = s.users.Create(ctx, domain.User{
			ID:    uuid.NewString(),
			Name:  name,
			Email: email,
		})
		if err != nil {
			return domain.User{}, err
		}
	default:
		return domain.User{}, err
	}

	if _, err := s.invitations.InvalidateAll(ctx, invitee.ID); err != nil {
		return domain.User{}, err
	}

	rawToken := uuid.NewString()
	now := time.Now().UTC()
	inv := domain.Invitation{
		TokenHash: hashInvitationToken(rawToken),
		InviteeID: invitee.ID,
		CreatedBy: admin.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.InvitationTTL),
		IsValid:   true,
	}
	if err := s.invitations.Create(ctx, inv); err != nil {
		return domain.User{}, err
	}

	if err := s.mailer.EnqueueRegistrationEmail(ctx, mail.RegistrationEmail{
		To:             invitee.Email,
		Token:          rawToken,
		ExpiresInHours: int(s.cfg.InvitationTTL.Hours()),
	}); err != nil {
		// Fire-and-forget: a lost email is re-sendable, the invite is not rolled back.
		s.logger.Error("enqueue registration email failed", zap.Error(err), zap.String("user_id", invitee.ID))
	}

	s.audit("invite.created", "invitee_id", invitee.ID, "created_by", admin.ID)
	return invitee, nil
}

// Logout drops the cached refresh claim for (user, device), ending that
// device's session window immediately.
func (s *AuthService) Logout(ctx context.Context, user domain.User, deviceID string) error {
	if deviceID == "" {
		return nil
	}
	if _, err := s.claims.Delete(ctx, cache.RefreshKey(user.ID, deviceID)); err != nil {
		return err
	}
	s.audit("logout", "user_id", user.ID, "device_id", deviceID)
	return nil
}

// grantWebTokens mints a fresh pair, signs both and caches the refresh
// claim under (subject, device).
func (s *AuthService) grantWebTokens(ctx context.Context, user domain.User, deviceID, ip string, keepTTL bool) (*WebTokens, error) {
	wc := token.NewWebClaims(user.ID, ip, user.IsAdmin, s.cfg.AccessTokenTTL, s.cfg.RefreshTokenTTL)

	access, err := s.codec.Encode(wc.Access)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.Encode(wc.Refresh)
	if err != nil {
		return nil, err
	}

	if _, err := s.claims.Save(ctx, cache.RefreshKey(user.ID, deviceID), wc.Refresh, keepTTL); err != nil {
		return nil, err
	}

	return &WebTokens{Access: access, Refresh: refresh, RefreshClaim: wc.Refresh}, nil
}

// grantOTPChallenge generates a one-time code, caches its salted hash
// under the user id and emails the plaintext code. The returned signed
// challenge token goes into a short-lived cookie.
func (s *AuthService) grantOTPChallenge(ctx context.Context, user domain.User, ip string) (string, error) {
	code, err := otp.GenerateCode(s.cfg.OTPLength)
	if err != nil {
		return "", err
	}
	salt, hash, err := otp.SaltedHash(code)
	if err != nil {
		return "", err
	}

	oc := token.NewOTPClaims(user.ID, ip, salt, hash, s.cfg.OTPTTL)
	if _, err := s.claims.Save(ctx, cache.OTPKey(user.ID), oc.SaltedHash, false); err != nil {
		return "", err
	}

	signed, err := s.codec.Encode(oc.Challenge)
	if err != nil {
		return "", err
	}

	if err := s.mailer.EnqueueOTPEmail(ctx, mail.OTPEmail{
		To:               user.Email,
		Code:             code,
		ExpiresInMinutes: int(s.cfg.OTPTTL.Minutes()),
	}); err != nil {
		// Fire-and-forget: the challenge stands, the client can re-request.
		s.logger.Error("enqueue otp email failed", zap.Error(err), zap.String("user_id", user.ID))
	}

	return signed, nil
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *AuthService) audit(event string, attrs ...any) {
	logger := s.logger
	if logger == nil {
		logger = zap.L()
	}
	fields := make([]zap.Field, 0, len(attrs)/2+1)
	fields = append(fields, zap.String("event", event))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	logger.Info("audit", fields...)
}

// authFailedOn hides row absence behind a generic authentication failure
// while letting infrastructure errors through.
func authFailedOn(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrAuthenticationFailed
	}
	return err
}

func hashInvitationToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
