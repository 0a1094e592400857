package auth

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated identity.
type Identity interface {
	GetID() string
	GetEmail() string
}

// Authenticator holds methods to deal with authentication.
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (string, error)
	SessionFromToken(token string) (AuthClaims, error)
	IdentityFromClaims(ctx context.Context, claims AuthClaims) (*User, error)
}

// Config holds auth options, satisfied by the config package.
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	GetAllowList() []string
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
}

// Notifier delivers an action token to its subject out-of-band. Delivery is
// fire-and-forget: the token stays redeemable even when Send fails, and the
// issuing side never rolls back on a notification error.
type Notifier interface {
	Send(ctx context.Context, email, tokenID string, kind TokenKind) error
}

// LogNotifier writes the confirmation link to the log instead of an SMTP
// relay. The default until a real mail transport is wired in deployment.
type LogNotifier struct {
	BaseURL string
	Logger  Logger
}

func NewLogNotifier(logger Logger) LogNotifier {
	return LogNotifier{Logger: logger}
}

var notifierPaths = map[TokenKind]string{
	KindVerification:    "/verify",
	KindPasswordReset:   "/reset-password",
	KindAccountDeletion: "/delete-account",
}

func (n LogNotifier) Send(_ context.Context, email, tokenID string, kind TokenKind) error {
	logger := n.Logger
	if logger == nil {
		logger = defLogger{}
	}
	logger.Info(
		"====== EMAIL NOTIFICATION ====== to=%s link=%s%s?token=%s",
		email,
		n.BaseURL,
		notifierPaths[kind],
		tokenID,
	)
	return nil
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
