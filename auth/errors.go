package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients alongside structured errors.
const (
	TextCodeTokenInvalid    = "TOKEN_INVALID"
	TextCodeTokenExpired    = "TOKEN_EXPIRED"
	TextCodeEmailTaken      = "EMAIL_TAKEN"
	TextCodeInvalidCreds    = "INVALID_CREDENTIALS"
	TextCodeEmptyPassword   = "EMPTY_PASSWORD"
	TextCodeSessionExpired  = "SESSION_EXPIRED"
	TextCodeSessionInvalid  = "SESSION_INVALID"
	TextCodeAccountInactive = "ACCOUNT_INACTIVE"
)

// ErrInvalidToken is returned when an action token is absent, bound to a
// different kind, or already consumed. Terminal: the caller must request a
// new link, we never retry on their behalf.
var ErrInvalidToken = errors.New("invalid or already used token", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenInvalid)

// ErrActionTokenExpired is returned when an action token exists but is past
// its expires_at. Distinct from ErrInvalidToken so the UI can say "request a
// new link" instead of "bad link".
var ErrActionTokenExpired = errors.New("token has expired, request a new link", errors.CategoryValidation).
	WithTextCode(TextCodeTokenExpired)

// ErrEmailTaken is the terminal error for duplicate registration, including
// the loser of a concurrent register race.
var ErrEmailTaken = errors.New("email already registered", errors.CategoryConflict).
	WithCode(errors.CodeConflict).
	WithTextCode(TextCodeEmailTaken)

// ErrIdentityNotFound is the error we return for non found identities.
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// ErrAccountInactive rejects logins and gated requests for users that exist
// but are deactivated or soft deleted.
var ErrAccountInactive = errors.New("account is not active", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeAccountInactive)

// ErrMismatchedHashAndPassword masks bcrypt mismatch details.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCreds)

// ErrNoEmptyString rejects empty passwords before they reach bcrypt.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrSessionExpired is returned by Validate for signed assertions past exp.
var ErrSessionExpired = errors.New("session token is expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeSessionExpired)

// ErrSignatureInvalid is returned when the assertion fails integrity checks.
var ErrSignatureInvalid = errors.New("session token signature is invalid", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeSessionInvalid)

// ErrSessionMalformed covers everything else the JWT parser rejects.
var ErrSessionMalformed = errors.New("session token is malformed", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeSessionInvalid)

// ErrUnableToFindSession is the error when a request carries no credential.
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeSessionInvalid)

// IsTokenExpiredError will check for expired session tokens, including the
// raw jwt library message when the error did not come from us.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSessionExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for malformed session token errors.
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSessionMalformed) || errors.Is(err, ErrSignatureInvalid) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
