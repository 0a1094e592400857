package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// Auther authenticates credentials and resolves sessions back to identity
// records.
type Auther struct {
	users        Users
	tokenService TokenService
	logger       Logger
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator backed by the users
// repository and a session token service.
func NewAuthenticator(users Users, tokenService TokenService) *Auther {
	return &Auther{
		users:        users,
		tokenService: tokenService,
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Login verifies the credentials and mints a session assertion. Only active,
// email-verified users may log in.
func (s *Auther) Login(ctx context.Context, identifier, password string) (string, error) {
	user, err := s.users.GetActiveByEmail(ctx, identifier)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			// same error as a bad password, no account enumeration
			return "", ErrMismatchedHashAndPassword
		}
		s.logger.Error("Login identity lookup error", "error", err)
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify identity")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		s.logger.Info("Login rejected for %s", user.Email)
		return "", err
	}

	if !user.EmailValidated {
		return "", ErrAccountInactive
	}

	return s.tokenService.Generate(user)
}

// SessionFromToken validates a raw assertion and returns its claims. The
// subject may have been deleted since issuance, so callers go through
// IdentityFromClaims before trusting it.
func (s *Auther) SessionFromToken(raw string) (AuthClaims, error) {
	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		s.logger.Debug("SessionFromToken validation failed", "error", err)
		return nil, err
	}

	return claims, nil
}

// IdentityFromClaims re-resolves the session subject against the identity
// store. A signed-valid session whose subject no longer exists, or is no
// longer active, yields ErrIdentityNotFound rather than a crash.
func (s *Auther) IdentityFromClaims(ctx context.Context, claims AuthClaims) (*User, error) {
	user, err := s.users.GetActiveByEmail(ctx, claims.Email())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		s.logger.Error("IdentityFromClaims lookup error", "error", err)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve session subject")
	}

	if !user.Usable() {
		return nil, ErrAccountInactive
	}

	return user, nil
}
