package model

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"toolcall/ollama"
)

// Provider abstracts the model server (Ollama, OpenAI-compatible, Anthropic)
// using provider-agnostic types from this package.
//
// This interface is defined in the model package (not provider package) to avoid
// import cycles: provider implementations import model, and the driver uses the
// Provider interface without importing the provider package.
type Provider interface {
	// Chat sends messages and streams responses back via callback.
	Chat(ctx context.Context, messages []Message, callback StreamCallback) error

	// ChatWithTools sends messages with available tools and streams responses.
	ChatWithTools(ctx context.Context, messages []Message, tools []mcptypes.Tool, callback StreamCallback) error

	// ListModels returns available models for this provider.
	ListModels(ctx context.Context) ([]ollama.ModelInfo, error)

	// GetModel returns the currently selected model name.
	GetModel() string

	// GetDisplayName returns the model name formatted for display.
	GetDisplayName() string

	// SetModel changes the active model.
	SetModel(model string)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}

// StreamCallback is called for each chunk of streamed response. toolCalls is
// non-nil only for chunks that carry tool call requests.
type StreamCallback func(chunk string, toolCalls []ToolCall) error

// AnswerOnlyProvider is implemented by providers whose API rejects a history
// holding tool calls unless tools are defined on the request (Anthropic).
// Once the round limit is reached the driver calls ChatAnswerOnly with the
// tools instead of dropping them; the provider must forbid further calls.
type AnswerOnlyProvider interface {
	ChatAnswerOnly(ctx context.Context, messages []Message, tools []mcptypes.Tool, callback StreamCallback) error
}
