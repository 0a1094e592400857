package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// InitializePasswordResetMessage requests a reset link for the given email.
type InitializePasswordResetMessage struct {
	Email      string `json:"email" doc:"Account email."`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

// InitializePasswordResetResponse reports Sent regardless of whether the
// account exists, so the endpoint cannot be used to enumerate emails.
type InitializePasswordResetResponse struct {
	Email   string
	TokenID string
	Sent    bool
}

type InitializePasswordResetHandler struct {
	repo     RepositoryManager
	tokens   *TokenManager
	notifier Notifier
	logger   Logger
}

func NewInitializePasswordResetHandler(repo RepositoryManager, tokens *TokenManager, notifier Notifier) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:     repo,
		tokens:   tokens,
		notifier: notifier,
		logger:   defLogger{},
	}
}

func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := NormalizeEmail(event.Email)
	resp := &InitializePasswordResetResponse{Email: email, Sent: true}

	_, err := h.repo.Users().GetActiveByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			// unknown account, report success without issuing anything
			if event.OnResponse != nil {
				event.OnResponse(resp)
			}
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	tokenID, err := h.tokens.Issue(ctx, email, KindPasswordReset)
	if err != nil {
		return err
	}

	resp.TokenID = tokenID

	if err := h.notifier.Send(ctx, email, tokenID, KindPasswordReset); err != nil {
		h.logger.Warn("password reset notification failed for %s: %v", email, err)
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
