package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenKind discriminates the single sensitive action a token authorizes.
type TokenKind = string

const (
	// KindVerification authorizes completing a registration.
	KindVerification TokenKind = "verification"
	// KindPasswordReset authorizes setting a new password.
	KindPasswordReset TokenKind = "password_reset"
	// KindAccountDeletion authorizes removing the account.
	KindAccountDeletion TokenKind = "account_deletion"
)

// DefaultTokenTTL is the fixed lifetime of every action token.
const DefaultTokenTTL = time.Hour

// User is the identity record. Email is logically unique but the store does
// not enforce it; registration re-checks immediately before the terminal
// write and accepts the remaining narrow race window.
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email          string     `bun:"email,notnull" json:"email,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	EmailValidated bool       `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	Active         bool       `bun:"is_active" json:"is_active,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Usable reports whether the identity may authenticate and act.
func (u *User) Usable() bool {
	return u != nil && u.Active && u.DeletedAt == nil
}

// Identity interface implementation, consumed by the session issuer.

func (u *User) GetID() string    { return u.ID.String() }
func (u *User) GetEmail() string { return u.Email }

// ActionToken is a single-use, time-bounded credential for one account
// action. The ID doubles as the secret handed to the subject, so it is an
// opaque URL-safe random string rather than a uuid. Consumption deletes the
// row; a token that cannot be found is treated as spent.
type ActionToken struct {
	bun.BaseModel `bun:"table:action_tokens,alias:tok"`
	ID            string     `bun:"id,pk" json:"id"`
	Email         string     `bun:"email,notnull" json:"email"`
	Kind          TokenKind  `bun:"kind,notnull" json:"kind"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at"`
}

// ExpiredAt reports whether the token is past its lifetime at the given
// instant.
func (t *ActionToken) ExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
