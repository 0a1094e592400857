package chat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatvault/chatvault/chat"
)

func TestCatalogListModels(t *testing.T) {
	db := newTestDB(t)
	catalog := chat.NewCatalog(db)
	ctx := context.Background()

	models := []chat.ModelInfo{
		{ID: "gpt-3.5-turbo", Label: "GPT-3.5 Turbo", Vendor: "OpenAI", Visible: true},
		{ID: "claude-3-7-sonnet-20250219", Label: "Claude 3.7 Sonnet", Vendor: "Anthropic", Visible: true},
		{ID: "internal-experiment", Label: "Internal", Vendor: "Lab", Visible: false},
	}
	for i := range models {
		_, err := db.NewInsert().Model(&models[i]).Exec(ctx)
		require.NoError(t, err)
	}

	listed, err := catalog.ListModels(ctx)
	require.NoError(t, err)

	require.Len(t, listed, 2, "hidden models stay out of the list")
	assert.Equal(t, "Claude 3.7 Sonnet", listed[0].Label)
	assert.Equal(t, "GPT-3.5 Turbo", listed[1].Label)
}

func TestCatalogListSystemMessages(t *testing.T) {
	db := newTestDB(t)
	catalog := chat.NewCatalog(db)
	ctx := context.Background()

	repo := chat.NewSystemMessagesRepository(db)

	seed := []*chat.SystemMessage{
		{Name: "Shakespeare", Category: "Fun", DisplayOrder: 2, Message: "Thou shalt respond as the Bard.", Active: true},
		{Name: "Pirate Captain", Category: "Fun", DisplayOrder: 1, Message: "Arr!", Active: true},
		{Name: "Retired", Category: "Fun", DisplayOrder: 3, Message: "gone", Active: false},
		{Name: "Code Reviewer", Category: "Work", DisplayOrder: 1, Message: "Review carefully.", Active: true},
	}
	for _, record := range seed {
		_, err := repo.Create(ctx, record)
		require.NoError(t, err)
	}

	listed, err := catalog.ListSystemMessages(ctx)
	require.NoError(t, err)

	require.Len(t, listed, 3, "inactive presets stay out of the list")
	assert.Equal(t, "Pirate Captain", listed[0].Name)
	assert.Equal(t, "Shakespeare", listed[1].Name)
	assert.Equal(t, "Code Reviewer", listed[2].Name)
}
