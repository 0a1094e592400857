package chat

import (
	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"

	"github.com/chatvault/chatvault/auth"
)

// RegisterChatRoutes mounts the conversation and completion endpoints. All
// of them sit behind the session gate; the owner comes from the resolved
// identity, never from the payload.
func RegisterChatRoutes[T any](app router.Router[T], opts ...ChatControllerOption) {
	controller := NewChatController(opts...)

	app.Post("/chat", controller.Complete).
		SetName("chat.post")

	app.Post("/conversations", controller.SaveConversation).
		SetName("conversations.post")
	app.Put("/conversations/:id", controller.UpdateConversation).
		SetName("conversations.put")
	app.Post("/conversations/check", controller.CheckConversation).
		SetName("conversations.check")
	app.Get("/conversations", controller.ListConversations).
		SetName("conversations.get")

	app.Get("/models", controller.ListModels).
		SetName("models.get")
	app.Get("/system-messages", controller.ListSystemMessages).
		SetName("system-messages.get")
}

type ChatController struct {
	Logger    Logger
	Resolver  *Resolver
	Catalog   Catalog
	Completer Completer
	Defaults  Settings
}

type ChatControllerOption func(*ChatController) *ChatController

func WithChatLogger(logger Logger) ChatControllerOption {
	return func(c *ChatController) *ChatController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithChatResolver(resolver *Resolver) ChatControllerOption {
	return func(c *ChatController) *ChatController {
		c.Resolver = resolver
		return c
	}
}

func WithChatCatalog(catalog Catalog) ChatControllerOption {
	return func(c *ChatController) *ChatController {
		c.Catalog = catalog
		return c
	}
}

func WithChatCompleter(completer Completer) ChatControllerOption {
	return func(c *ChatController) *ChatController {
		c.Completer = completer
		return c
	}
}

func NewChatController(opts ...ChatControllerOption) *ChatController {
	c := &ChatController{
		Logger:   defLogger{},
		Defaults: Defaults(),
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Resolver == nil {
		panic("Missing Resolver in chat controller...")
	}

	if c.Catalog == nil {
		panic("Missing Catalog in chat controller...")
	}

	return c
}

// owner pulls the authenticated identity off the request context. The gate
// runs before every chat route, so a missing identity is a wiring bug, not
// a client error.
func (a *ChatController) owner(ctx router.Context) (uuid.UUID, error) {
	user, ok := auth.FromContext(ctx.Context())
	if !ok {
		return uuid.Nil, auth.ErrUnableToFindSession
	}
	return user.ID, nil
}

// SaveConversationPayload is the client's transcript snapshot.
type SaveConversationPayload struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Folder   string    `json:"folder"`
	Messages []Message `json:"messages"`
}

// Validate will validate the payload
func (r SaveConversationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Folder, validation.Length(0, 200)),
	)
}

func (a *ChatController) SaveConversation(ctx router.Context) error {
	owner, err := a.owner(ctx)
	if err != nil {
		return ctx.JSON(router.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	payload := new(SaveConversationPayload)
	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{"error": "failed to parse body"})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{"validation": err.Error()})
	}

	req := SaveRequest{
		OwnerID:  owner,
		Name:     payload.Name,
		Folder:   payload.Folder,
		Messages: payload.Messages,
	}

	if payload.ID != "" {
		id, err := uuid.Parse(payload.ID)
		if err != nil {
			return ctx.JSON(router.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
		}
		req.ConversationID = &id
	}

	record, err := a.Resolver.Save(ctx.Context(), req)
	if err != nil {
		return a.saveError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, record)
}

func (a *ChatController) UpdateConversation(ctx router.Context) error {
	owner, err := a.owner(ctx)
	if err != nil {
		return ctx.JSON(router.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
	}

	payload := new(SaveConversationPayload)
	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{"error": "failed to parse body"})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{"validation": err.Error()})
	}

	record, err := a.Resolver.Save(ctx.Context(), SaveRequest{
		OwnerID:        owner,
		ConversationID: &id,
		Name:           payload.Name,
		Folder:         payload.Folder,
		Messages:       payload.Messages,
	})
	if err != nil {
		return a.saveError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, record)
}

// CheckConversationPayload asks whether a logical identity already exists.
type CheckConversationPayload struct {
	Name   string `json:"name"`
	Folder string `json:"folder"`
}

// Validate will validate the payload
func (r CheckConversationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
	)
}

func (a *ChatController) CheckConversation(ctx router.Context) error {
	owner, err := a.owner(ctx)
	if err != nil {
		return ctx.JSON(router.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	payload := new(CheckConversationPayload)
	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{"error": "failed to parse body"})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{"validation": err.Error()})
	}

	id, exists, err := a.Resolver.Exists(ctx.Context(), owner, payload.Name, payload.Folder)
	if err != nil {
		a.Logger.Error("conversation check error: ", "error", err)
		return ctx.JSON(router.StatusInternalServerError, map[string]string{"error": "check failed"})
	}

	out := map[string]any{"exists": exists}
	if exists {
		out["id"] = id.String()
	}

	return ctx.JSON(router.StatusOK, out)
}

func (a *ChatController) ListConversations(ctx router.Context) error {
	owner, err := a.owner(ctx)
	if err != nil {
		return ctx.JSON(router.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	records, err := a.Resolver.repo.ListOwned(ctx.Context(), owner)
	if err != nil {
		a.Logger.Error("conversation list error: ", "error", err)
		return ctx.JSON(router.StatusInternalServerError, map[string]string{"error": "list failed"})
	}

	return ctx.JSON(router.StatusOK, records)
}

// ChatPayload carries one user turn plus the transcript so far.
type ChatPayload struct {
	Message      string        `json:"message"`
	Conversation []Message     `json:"conversation"`
	Settings     SettingsPatch `json:"settings"`
}

// Validate will validate the payload
func (r ChatPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Message, validation.Required),
	)
}

func (a *ChatController) Complete(ctx router.Context) error {
	if a.Completer == nil {
		return ctx.JSON(router.StatusServiceUnavailable, map[string]string{
			"error": "no completion backend configured",
		})
	}

	if _, err := a.owner(ctx); err != nil {
		return ctx.JSON(router.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	payload := new(ChatPayload)
	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{"error": "failed to parse body"})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{"validation": err.Error()})
	}

	settings := payload.Settings.Apply(a.Defaults)

	messages := make([]Message, 0, len(payload.Conversation)+1)
	messages = append(messages, payload.Conversation...)
	messages = append(messages, Message{Role: "user", Content: payload.Message})

	reply, err := a.Completer.Complete(ctx.Context(), settings, messages)
	if err != nil {
		a.Logger.Error("completion error: ", "error", err)
		return ctx.JSON(router.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(router.StatusOK, map[string]string{"response": reply})
}

func (a *ChatController) ListModels(ctx router.Context) error {
	records, err := a.Catalog.ListModels(ctx.Context())
	if err != nil {
		a.Logger.Error("model list error: ", "error", err)
		return ctx.JSON(router.StatusInternalServerError, map[string]string{"error": "list failed"})
	}
	return ctx.JSON(router.StatusOK, records)
}

func (a *ChatController) ListSystemMessages(ctx router.Context) error {
	records, err := a.Catalog.ListSystemMessages(ctx.Context())
	if err != nil {
		a.Logger.Error("system message list error: ", "error", err)
		return ctx.JSON(router.StatusInternalServerError, map[string]string{"error": "list failed"})
	}
	return ctx.JSON(router.StatusOK, records)
}

func (a *ChatController) saveError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeConversationNotFound {
		return ctx.JSON(router.StatusNotFound, map[string]string{"error": richErr.Message})
	}

	a.Logger.Error("conversation save error: ", "error", err)
	return ctx.JSON(router.StatusInternalServerError, map[string]string{"error": "save failed"})
}
