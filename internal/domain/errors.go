package domain

import "fmt"

// ErrorKind is the closed set of failure classes the auth core can produce.
// The HTTP boundary maps kinds to status codes; the core itself never
// reasons about transport.
type ErrorKind string

const (
	KindAuthenticationFailed ErrorKind = "authentication_failed"
	KindTokenExpired         ErrorKind = "token_expired"
	KindAuthorizationFailed  ErrorKind = "authorization_failed"
	KindInvalidOTP           ErrorKind = "invalid_otp"
	KindUnverifiedEmail      ErrorKind = "unverified_email"
	KindUserAlreadyActive    ErrorKind = "user_already_active"
	KindEntityNotFound       ErrorKind = "entity_not_found"
	KindDuplicateEntity      ErrorKind = "duplicate_entity"
)

// Error carries a stable machine-readable kind plus a short human message.
// Internal state (hashes, salts, secrets) never goes into Message.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

var (
	ErrAuthenticationFailed = &Error{Kind: KindAuthenticationFailed, Message: "Authentication failed"}
	ErrTokenExpired         = &Error{Kind: KindTokenExpired, Message: "Token has expired"}
	ErrAuthorizationFailed  = &Error{Kind: KindAuthorizationFailed, Message: "Authorization failed"}
	ErrInvalidOTP           = &Error{Kind: KindInvalidOTP, Message: "Invalid OTP"}
	ErrUnverifiedEmail      = &Error{Kind: KindUnverifiedEmail, Message: "Email not verified"}
	ErrUserAlreadyActive    = &Error{Kind: KindUserAlreadyActive, Message: "User already active"}
)

// NotFound reports a missing collaborator entity by name.
func NotFound(entity string) *Error {
	return &Error{Kind: KindEntityNotFound, Message: entity + " not found"}
}

// Duplicate reports a uniqueness conflict on a collaborator entity.
func Duplicate(entity string) *Error {
	return &Error{Kind: KindDuplicateEntity, Message: entity + " already exists"}
}
