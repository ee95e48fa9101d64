// Package provider implements model.Provider for the supported model servers.
//
// The driver in package model only sees provider-agnostic types
// (model.Message, model.ToolCall, mcp.Tool). Each provider converts them to its
// wire format on the way out and converts replies back on the way in:
//
//   - OllamaProvider: native Ollama chat API (default, http://127.0.0.1:11434)
//   - OpenAIProvider: any OpenAI-compatible chat completions endpoint,
//     including Ollama's own /v1 endpoint
//   - AnthropicProvider: Anthropic Messages API
//
// # Usage
//
//	p, err := provider.NewProvider(provider.Config{
//	    Type:    provider.ProviderTypeOllama,
//	    BaseURL: "http://127.0.0.1:11434",
//	    Model:   "llama3.1:8b",
//	})
//	if err != nil {
//	    // handle error
//	}
//	err = p.ChatWithTools(ctx, messages, tools, callback)
package provider

// Note: The Provider interface and StreamCallback are defined in the model package
// (model/provider.go) to avoid import cycles. This package implements model.Provider.

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeOllama    ProviderType = "ollama"
	ProviderTypeOpenAI    ProviderType = "openai"
	ProviderTypeAnthropic ProviderType = "anthropic"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string // unused for Ollama
}
