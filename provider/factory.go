package provider

import (
	"fmt"

	"toolcall/config"
	"toolcall/model"
)

// NewProvider creates a provider based on configuration.
//
// Supported provider types:
//   - ProviderTypeOllama: native Ollama chat API
//   - ProviderTypeOpenAI: OpenAI-compatible chat completions
//   - ProviderTypeAnthropic: Anthropic Messages API
//
// Returns an error if the type is unknown or the provider-specific constructor
// fails (invalid URL, missing API key).
//
// Example:
//
//	cfg := provider.Config{
//	    Type:    provider.ProviderTypeOllama,
//	    BaseURL: "http://127.0.0.1:11434",
//	    Model:   "llama3.1:8b",
//	}
//	p, err := provider.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewProvider(cfg Config) (model.Provider, error) {
	switch cfg.Type {
	case ProviderTypeOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model)
	case ProviderTypeOpenAI:
		return NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeAnthropic:
		return NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// MapProviderIDToType converts a config provider ID to a ProviderType.
//
// Mappings:
//   - "" and "ollama" → ProviderTypeOllama
//   - "openai" → ProviderTypeOpenAI
//   - "anthropic" → ProviderTypeAnthropic
//
// For unknown IDs, returns the ID cast as ProviderType (NewProvider will error).
func MapProviderIDToType(id string) ProviderType {
	switch id {
	case "", "ollama":
		return ProviderTypeOllama
	case "openai":
		return ProviderTypeOpenAI
	case "anthropic":
		return ProviderTypeAnthropic
	default:
		return ProviderType(id)
	}
}

// FromConfig builds the provider selected by the application config.
func FromConfig(cfg *config.Config) (model.Provider, error) {
	pc := Config{
		Type:   MapProviderIDToType(cfg.Provider),
		Model:  cfg.Model(),
		APIKey: cfg.APIKey,
	}
	pc.BaseURL = cfg.ProviderURL()

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Provider] Creating %s provider at %s with model %s", pc.Type, pc.BaseURL, pc.Model)
	}

	p, err := NewProvider(pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", pc.Type, err)
	}
	return p, nil
}
