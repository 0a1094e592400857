package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims represents a validated session assertion. Validity is derived
// from the signature and embedded expiry alone; holders must still re-resolve
// the subject against the identity store before acting on it.
type AuthClaims interface {
	Subject() string
	UserID() string
	Email() string
	Expires() time.Time
	IssuedAt() time.Time
}

// SessionClaims is the concrete JWT implementation of AuthClaims. The
// subject claim carries the subject identity (email); uid carries the user
// record id for cheap scoping of owned resources.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID          string `json:"uid,omitempty"`
	SubjectEmail string `json:"email,omitempty"`
}

var _ AuthClaims = (*SessionClaims)(nil)

func (c *SessionClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

func (c *SessionClaims) UserID() string {
	return c.UID
}

// Email returns the subject identity the session was issued for.
func (c *SessionClaims) Email() string {
	if c.SubjectEmail != "" {
		return c.SubjectEmail
	}
	return c.Subject()
}

func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
