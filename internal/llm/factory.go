package llm

import (
	"fmt"
)

const defaultOllamaHost = "http://localhost:11434"

// ProviderConfig selects and authenticates a provider. The caller resolves
// the API key; the factory never reads the environment.
type ProviderConfig struct {
	Type    string
	Model   string
	APIKey  string
	BaseURL string
}

// NewProvider creates a new LLM provider.
// Supported provider types: "google", "openai", "ollama".
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Type {
	case "google":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("an API key is required for the google provider (set GOOGLE_API_KEY or API_KEY)")
		}
		return NewGoogleProvider(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("an API key is required for the openai provider (set OPENAI_API_KEY or API_KEY)")
		}
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "ollama":
		host := cfg.BaseURL
		if host == "" {
			host = defaultOllamaHost
		}
		return NewOllamaProvider(host, cfg.Model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Type)
	}
}
