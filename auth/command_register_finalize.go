package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
)

// RegisterFinalizeMessage completes a registration by spending a
// verification token and creating the identity record.
type RegisterFinalizeMessage struct {
	Token      string `json:"token" doc:"Verification token from the confirmation link."`
	Password   string `json:"password" doc:"Initial account password."`
	OnResponse func(user *User)
}

func (e RegisterFinalizeMessage) Type() string { return "user.register_finalize" }

type RegisterFinalizeHandler struct {
	repo   RepositoryManager
	tokens *TokenManager
}

func NewRegisterFinalizeHandler(repo RepositoryManager, tokens *TokenManager) *RegisterFinalizeHandler {
	return &RegisterFinalizeHandler{repo: repo, tokens: tokens}
}

func (h *RegisterFinalizeHandler) Execute(ctx context.Context, event RegisterFinalizeMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during registration finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterFinalizeHandler) execute(ctx context.Context, event RegisterFinalizeMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	hash, err := HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	email, err := h.tokens.Redeem(ctx, event.Token, KindVerification)
	if err != nil {
		return err
	}

	// The token is spent, but a concurrent registration for the same email
	// may have landed since issuance: re-check right before the terminal
	// write so the loser fails cleanly instead of duplicating the identity.
	if _, err := h.repo.Users().GetActiveByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !repository.IsRecordNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to re-check registration")
	}

	user := &User{
		Email:          email,
		PasswordHash:   hash,
		EmailValidated: true,
		Active:         true,
	}

	// Deterministic id from the email: two racing creates collide on the
	// primary key, so at most one insert wins the remaining window.
	if id, err := hashid.NewUUID(email); err == nil {
		user.ID = id
	}

	user, err = h.repo.Users().Create(ctx, user)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryConflict, ErrEmailTaken.Message).
			WithTextCode(ErrEmailTaken.TextCode)
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}
