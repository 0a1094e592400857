package chat

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Conversations is the transcript repository. All lookups are scoped to an
// owner: there is no API that returns another tenant's record.
type Conversations interface {
	repository.Repository[*Conversation]

	GetOwned(ctx context.Context, owner, id uuid.UUID) (*Conversation, error)
	FindByIdentity(ctx context.Context, owner uuid.UUID, name, folder string) (*Conversation, error)
	ListOwned(ctx context.Context, owner uuid.UUID) ([]*Conversation, error)
}

type conversations struct {
	repository.Repository[*Conversation]
	db *bun.DB
}

var (
	_ Conversations                        = (*conversations)(nil)
	_ repository.Repository[*Conversation] = (*conversations)(nil)
)

func NewConversationsRepository(db *bun.DB) Conversations {
	repo := repository.NewRepository[*Conversation](db, repository.ModelHandlers[*Conversation]{
		NewRecord: func() *Conversation { return &Conversation{} },
		GetID: func(c *Conversation) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *Conversation, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &conversations{
		Repository: repo,
		db:         db,
	}
}

func (r *conversations) GetOwned(ctx context.Context, owner, id uuid.UUID) (*Conversation, error) {
	record := &Conversation{}
	err := r.db.NewSelect().Model(record).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.owner_id = ?", owner).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (r *conversations) FindByIdentity(ctx context.Context, owner uuid.UUID, name, folder string) (*Conversation, error) {
	record := &Conversation{}
	err := r.db.NewSelect().Model(record).
		Where("?TableAlias.owner_id = ?", owner).
		Where("?TableAlias.name = ?", name).
		Where("?TableAlias.folder = ?", folder).
		Order("updated_at DESC").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"name": name, "folder": folder})
		}
		return nil, err
	}

	return record, nil
}

func (r *conversations) ListOwned(ctx context.Context, owner uuid.UUID) ([]*Conversation, error) {
	var records []*Conversation
	err := r.db.NewSelect().Model(&records).
		Where("?TableAlias.owner_id = ?", owner).
		Order("updated_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}
