package chat

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ModelInfo describes one selectable completion model. The id is the
// vendor's model identifier, so this table is string-keyed and queried
// directly.
type ModelInfo struct {
	bun.BaseModel   `bun:"table:llm_models,alias:mdl"`
	ID              string     `bun:"id,pk" json:"id"`
	Label           string     `bun:"label,notnull" json:"label"`
	Vendor          string     `bun:"vendor" json:"vendor"`
	ShortDesc       string     `bun:"short_description" json:"short_description"`
	ContextWindow   int        `bun:"context_window" json:"context_window"`
	MaxOutputTokens int        `bun:"max_output_tokens" json:"max_output_tokens"`
	SystemPromptOK  bool       `bun:"system_prompt_supported" json:"system_prompt_supported"`
	Visible         bool       `bun:"show_in_prod" json:"show_in_prod"`
	CreatedAt       *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// SystemMessage is a reusable prompt preset offered in the UI.
type SystemMessage struct {
	bun.BaseModel `bun:"table:system_messages,alias:sm"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Name          string     `bun:"name,notnull" json:"name"`
	Description   string     `bun:"description" json:"description"`
	Message       string     `bun:"message,notnull" json:"message"`
	Category      string     `bun:"category" json:"category"`
	DisplayOrder  int        `bun:"display_order" json:"display_order"`
	Active        bool       `bun:"is_active" json:"is_active"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Catalog serves the read-only lists that feed the chat UI pickers.
type Catalog interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
	ListSystemMessages(ctx context.Context) ([]SystemMessage, error)
}

// SystemMessages is the uuid-keyed repository behind the preset catalog.
type SystemMessages interface {
	repository.Repository[*SystemMessage]
}

func NewSystemMessagesRepository(db *bun.DB) SystemMessages {
	return repository.NewRepository[*SystemMessage](db, repository.ModelHandlers[*SystemMessage]{
		NewRecord: func() *SystemMessage { return &SystemMessage{} },
		GetID: func(m *SystemMessage) uuid.UUID {
			if m == nil {
				return uuid.Nil
			}
			return m.ID
		},
		SetID: func(m *SystemMessage, id uuid.UUID) {
			if m != nil {
				m.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})
}

type catalog struct {
	db *bun.DB
}

var _ Catalog = (*catalog)(nil)

func NewCatalog(db *bun.DB) Catalog {
	return &catalog{db: db}
}

func (c *catalog) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var records []ModelInfo
	err := c.db.NewSelect().Model(&records).
		Where("?TableAlias.show_in_prod = ?", true).
		Order("label ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (c *catalog) ListSystemMessages(ctx context.Context) ([]SystemMessage, error) {
	var records []SystemMessage
	err := c.db.NewSelect().Model(&records).
		Where("?TableAlias.is_active = ?", true).
		Order("category ASC").
		Order("display_order ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}
