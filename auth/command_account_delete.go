package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// InitializeAccountDeleteMessage requests a deletion confirmation link. The
// caller is already authenticated; the token adds a second factor so a
// hijacked session alone cannot destroy the account.
type InitializeAccountDeleteMessage struct {
	Email      string `json:"email" doc:"Account email."`
	OnResponse func(resp *InitializeAccountDeleteResponse)
}

func (m InitializeAccountDeleteMessage) Type() string { return "user.account_delete" }

type InitializeAccountDeleteResponse struct {
	Email   string
	TokenID string
	Sent    bool
}

type InitializeAccountDeleteHandler struct {
	repo     RepositoryManager
	tokens   *TokenManager
	notifier Notifier
	logger   Logger
}

func NewInitializeAccountDeleteHandler(repo RepositoryManager, tokens *TokenManager, notifier Notifier) *InitializeAccountDeleteHandler {
	return &InitializeAccountDeleteHandler{
		repo:     repo,
		tokens:   tokens,
		notifier: notifier,
		logger:   defLogger{},
	}
}

func (h *InitializeAccountDeleteHandler) Execute(ctx context.Context, event InitializeAccountDeleteMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account deletion request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializeAccountDeleteHandler) execute(ctx context.Context, event InitializeAccountDeleteMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := NormalizeEmail(event.Email)

	if _, err := h.repo.Users().GetActiveByEmail(ctx, email); err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for account deletion")
	}

	tokenID, err := h.tokens.Issue(ctx, email, KindAccountDeletion)
	if err != nil {
		return err
	}

	if err := h.notifier.Send(ctx, email, tokenID, KindAccountDeletion); err != nil {
		h.logger.Warn("account deletion notification failed for %s: %v", email, err)
	}

	if event.OnResponse != nil {
		event.OnResponse(&InitializeAccountDeleteResponse{
			Email:   email,
			TokenID: tokenID,
			Sent:    true,
		})
	}

	return nil
}

// FinalizeAccountDeleteMessage spends a deletion token and removes the
// account record. Sessions already issued for the subject keep validating
// signature-wise, but the gate re-resolves the subject and rejects them.
// The row is deleted for real rather than tombstoned, so the same email can
// register again from scratch.
type FinalizeAccountDeleteMessage struct {
	Token string `json:"token" doc:"Deletion token from the confirmation link."`
}

func (m FinalizeAccountDeleteMessage) Type() string { return "user.account_delete_finalize" }

type FinalizeAccountDeleteHandler struct {
	repo   RepositoryManager
	tokens *TokenManager
	logger Logger
}

func NewFinalizeAccountDeleteHandler(repo RepositoryManager, tokens *TokenManager) *FinalizeAccountDeleteHandler {
	return &FinalizeAccountDeleteHandler{
		repo:   repo,
		tokens: tokens,
		logger: defLogger{},
	}
}

func (h *FinalizeAccountDeleteHandler) Execute(ctx context.Context, event FinalizeAccountDeleteMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account deletion finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizeAccountDeleteHandler) execute(ctx context.Context, event FinalizeAccountDeleteMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email, err := h.tokens.Redeem(ctx, event.Token, KindAccountDeletion)
	if err != nil {
		return err
	}

	user, err := h.repo.Users().GetActiveByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			// already gone, the operation this token authorizes is idempotent
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve user for account deletion")
	}

	if err := h.repo.Users().HardDelete(ctx, user.ID); err != nil {
		if repository.IsRecordNotFound(err) {
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete account")
	}

	h.logger.Info("account deleted for %s", user.Email)

	return nil
}
