package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Message is a single chat turn. Role follows the vendor convention of
// system, user, and assistant.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is a stored chat transcript. The row id is a storage handle:
// the logical identity the resolver works with is (OwnerID, Name, Folder),
// and renaming or refoldering deliberately mints a new record instead of
// mutating this one.
type Conversation struct {
	bun.BaseModel `bun:"table:conversations,alias:conv"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	OwnerID       uuid.UUID  `bun:"owner_id,notnull,type:uuid" json:"owner_id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name"`
	Folder        string     `bun:"folder,notnull" json:"folder"`
	Messages      []Message  `bun:"messages,type:text" json:"messages"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// SameIdentity reports whether the record still answers to the given
// logical identity.
func (c *Conversation) SameIdentity(name, folder string) bool {
	return c != nil && c.Name == name && c.Folder == folder
}
