package chat

import goerrors "github.com/goliatone/go-errors"

const (
	// TextCodeConversationNotFound indicates the referenced conversation does
	// not exist for the calling owner.
	TextCodeConversationNotFound = "CONVERSATION_NOT_FOUND"
)

// ErrNotFound is returned when a conversation id does not resolve within the
// caller's ownership scope. A foreign owner's record is indistinguishable
// from an absent one.
var ErrNotFound = goerrors.New(
	"conversation not found",
	goerrors.CategoryNotFound,
).WithCode(goerrors.CodeNotFound).WithTextCode(TextCodeConversationNotFound)
