package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// tokenEntropyBytes is the raw entropy behind each token id. 24 bytes
// encodes to a 32 character URL-safe string.
const tokenEntropyBytes = 24

// TokenManager issues, validates, and consumes single-use action tokens.
// A token lives through exactly one of two transitions: issued → redeemed,
// or issued → expired-and-swept. Peek moves nothing.
type TokenManager struct {
	tokens ActionTokens
	ttl    time.Duration
	logger Logger
	now    func() time.Time
}

type TokenManagerOption func(*TokenManager)

// WithClock overrides the time source, used by expiry tests.
func WithClock(now func() time.Time) TokenManagerOption {
	return func(m *TokenManager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithTokenTTL(ttl time.Duration) TokenManagerOption {
	return func(m *TokenManager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithTokenLogger(logger Logger) TokenManagerOption {
	return func(m *TokenManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func NewTokenManager(tokens ActionTokens, opts ...TokenManagerOption) *TokenManager {
	m := &TokenManager{
		tokens: tokens,
		ttl:    DefaultTokenTTL,
		logger: defLogger{},
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// Issue mints a new token bound to (email, kind) and persists it. The caller
// owns out-of-band delivery; a failed notification does not invalidate the
// token. Outstanding live tokens for the same pair are left alone: lookup
// is by id, so duplicates are harmless and the sweeper reclaims strays.
func (m *TokenManager) Issue(ctx context.Context, email string, kind TokenKind) (string, error) {
	id, err := newTokenID()
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate token id")
	}

	now := m.now()
	record := &ActionToken{
		ID:        id,
		Email:     NormalizeEmail(email),
		Kind:      kind,
		CreatedAt: &now,
		ExpiresAt: now.Add(m.ttl),
	}

	if _, err := m.tokens.Create(ctx, record); err != nil {
		return "", err
	}

	m.logger.Debug("issued %s token for %s, expires %s", kind, record.Email, record.ExpiresAt)

	return id, nil
}

// Redeem validates and consumes the token, returning the subject identity it
// was bound to. Single use is enforced by the delete: when two redemptions
// race, both may read the token as present, but only the one whose delete
// removes the row wins, the other gets ErrInvalidToken. The mutation the
// token authorizes must still re-check its own preconditions (see the
// register finalize command).
func (m *TokenManager) Redeem(ctx context.Context, id string, kind TokenKind) (string, error) {
	record, err := m.lookup(ctx, id, kind)
	if err != nil {
		return "", err
	}

	consumed, err := m.tokens.Consume(ctx, id)
	if err != nil {
		return "", err
	}

	if !consumed {
		// lost the race against a concurrent redemption or the sweeper
		return "", ErrInvalidToken
	}

	return record.Email, nil
}

// Peek runs the same checks as Redeem without consuming the token, so a
// confirmation page can be rendered before the final form post. A
// subsequent Redeem still succeeds.
func (m *TokenManager) Peek(ctx context.Context, id string, kind TokenKind) (*ActionToken, error) {
	return m.lookup(ctx, id, kind)
}

func (m *TokenManager) lookup(ctx context.Context, id string, kind TokenKind) (*ActionToken, error) {
	if id == "" {
		return nil, ErrInvalidToken
	}

	record, err := m.tokens.GetByID(ctx, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "token lookup failed")
	}

	if record.Kind != kind {
		return nil, ErrInvalidToken
	}

	if record.ExpiredAt(m.now()) {
		return nil, ErrActionTokenExpired
	}

	return record, nil
}

func newTokenID() (string, error) {
	buf := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
