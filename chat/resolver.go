package chat

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// SaveRequest carries everything a client sends when persisting a
// transcript. ConversationID is the storage handle of the record the client
// was working from; nil means the client never saved this transcript.
type SaveRequest struct {
	OwnerID        uuid.UUID
	ConversationID *uuid.UUID
	Name           string
	Folder         string
	Messages       []Message
}

// Resolver decides, on every save, whether the incoming transcript is still
// the same logical conversation as the record it references. The rule is
// strict: a change to name or folder forks a brand-new record and leaves
// the original untouched; message-only edits update in place, preserving
// the record id and creation time.
type Resolver struct {
	repo   Conversations
	logger Logger
	now    func() time.Time
}

type ResolverOption func(*Resolver)

func WithResolverLogger(logger Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithResolverClock overrides the time source.
func WithResolverClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

func NewResolver(repo Conversations, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		repo:   repo,
		logger: defLogger{},
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Save persists the request and returns the record it landed on, which may
// or may not be the record the request referenced.
func (r *Resolver) Save(ctx context.Context, req SaveRequest) (*Conversation, error) {
	if req.OwnerID == uuid.Nil {
		return nil, goerrors.New("save requires an owner", goerrors.CategoryBadInput)
	}

	if req.ConversationID == nil {
		return r.create(ctx, req)
	}

	current, err := r.repo.GetOwned(ctx, req.OwnerID, *req.ConversationID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load conversation")
	}

	if !current.SameIdentity(req.Name, req.Folder) {
		r.logger.Debug(
			"conversation identity changed, forking: %s/%s -> %s/%s",
			current.Folder, current.Name, req.Folder, req.Name,
		)
		return r.create(ctx, req)
	}

	now := r.now()
	current.Messages = req.Messages
	current.UpdatedAt = &now

	updated, err := r.repo.Update(ctx, current)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update conversation")
	}

	return updated, nil
}

// Exists reports whether the owner already has a record under the given
// logical identity, so clients can warn before an overwriting save.
func (r *Resolver) Exists(ctx context.Context, owner uuid.UUID, name, folder string) (uuid.UUID, bool, error) {
	record, err := r.repo.FindByIdentity(ctx, owner, name, folder)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check conversation")
	}
	return record.ID, true, nil
}

func (r *Resolver) create(ctx context.Context, req SaveRequest) (*Conversation, error) {
	now := r.now()

	record := &Conversation{
		ID:        uuid.New(),
		OwnerID:   req.OwnerID,
		Name:      req.Name,
		Folder:    req.Folder,
		Messages:  req.Messages,
		CreatedAt: &now,
		UpdatedAt: &now,
	}

	created, err := r.repo.Create(ctx, record)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create conversation")
	}

	return created, nil
}
