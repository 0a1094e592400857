package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// RegisterRequestMessage starts a registration: no user record is created
// yet, only a verification token the subject must redeem.
type RegisterRequestMessage struct {
	Email      string `json:"email" doc:"Email address to register."`
	OnResponse func(resp *RegisterRequestResponse)
}

func (e RegisterRequestMessage) Type() string { return "user.register_request" }

type RegisterRequestResponse struct {
	Email   string
	TokenID string
	Success bool
}

type RegisterRequestHandler struct {
	repo     RepositoryManager
	tokens   *TokenManager
	notifier Notifier
	logger   Logger
}

func NewRegisterRequestHandler(repo RepositoryManager, tokens *TokenManager, notifier Notifier) *RegisterRequestHandler {
	return &RegisterRequestHandler{
		repo:     repo,
		tokens:   tokens,
		notifier: notifier,
		logger:   defLogger{},
	}
}

func (h *RegisterRequestHandler) WithLogger(logger Logger) *RegisterRequestHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterRequestHandler) Execute(ctx context.Context, event RegisterRequestMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during registration request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterRequestHandler) execute(ctx context.Context, event RegisterRequestMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := NormalizeEmail(event.Email)

	// best-effort duplicate check; the finalize step re-checks before the
	// terminal write
	if _, err := h.repo.Users().GetActiveByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !repository.IsRecordNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing registration")
	}

	tokenID, err := h.tokens.Issue(ctx, email, KindVerification)
	if err != nil {
		return err
	}

	// fire-and-forget: the token stays redeemable even if delivery failed
	if err := h.notifier.Send(ctx, email, tokenID, KindVerification); err != nil {
		h.logger.Warn("verification notification failed for %s: %v", email, err)
	}

	if event.OnResponse != nil {
		event.OnResponse(&RegisterRequestResponse{
			Email:   email,
			TokenID: tokenID,
			Success: true,
		})
	}

	return nil
}
