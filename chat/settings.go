package chat

import "context"

// Settings are the per-request completion knobs. They travel with each
// request: there is no process-wide mutable default that one tenant's
// update could leak into another tenant's completions.
type Settings struct {
	SystemPrompt string  `json:"system_prompt"`
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

// Defaults returns the baseline settings applied when a request omits a
// field.
func Defaults() Settings {
	return Settings{
		SystemPrompt: "You are a helpful assistant.",
		Model:        "gpt-3.5-turbo",
		Temperature:  0.7,
		MaxTokens:    1000,
	}
}

// SettingsPatch is a partial override sent by the client. Pointer fields
// distinguish "not sent" from an explicit zero: a nil field takes the
// default, a present value is honored as-is, temperature 0 included.
type SettingsPatch struct {
	SystemPrompt *string  `json:"system_prompt"`
	Model        *string  `json:"model"`
	Temperature  *float64 `json:"temperature"`
	MaxTokens    *int     `json:"max_tokens"`
}

// Apply resolves the patch against the defaults and returns the effective
// settings.
func (p SettingsPatch) Apply(def Settings) Settings {
	if p.SystemPrompt != nil {
		def.SystemPrompt = *p.SystemPrompt
	}
	if p.Model != nil {
		def.Model = *p.Model
	}
	if p.Temperature != nil {
		def.Temperature = *p.Temperature
	}
	if p.MaxTokens != nil {
		def.MaxTokens = *p.MaxTokens
	}
	return def
}

// Completer produces an assistant reply for a transcript. Vendor adapters
// implement this; the HTTP layer never talks to a vendor SDK directly.
type Completer interface {
	Complete(ctx context.Context, settings Settings, messages []Message) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, settings Settings, messages []Message) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, settings Settings, messages []Message) (string, error) {
	return f(ctx, settings, messages)
}
