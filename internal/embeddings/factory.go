package embeddings

import (
	"fmt"

	"reclaim/internal/config"
)

// NewProvider creates a new text embedding provider based on configuration
func NewProvider(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case "ollama":
		baseURL := "http://localhost:11434"
		if cfg.BaseURL != nil {
			baseURL = *cfg.BaseURL
		}
		return NewOllamaProvider(cfg.Model, baseURL, cfg.Dim), nil

	case "openai":
		if cfg.APIKey == nil || *cfg.APIKey == "" {
			return nil, fmt.Errorf("API key required for OpenAI provider")
		}
		baseURL := ""
		if cfg.BaseURL != nil {
			baseURL = *cfg.BaseURL
		}
		return NewOpenAIProvider(cfg.Model, *cfg.APIKey, baseURL, cfg.Dim), nil

	case "openrouter":
		// OpenRouter uses OpenAI-compatible API
		if cfg.APIKey == nil || *cfg.APIKey == "" {
			return nil, fmt.Errorf("API key required for OpenRouter provider")
		}
		baseURL := "https://openrouter.ai/api/v1"
		if cfg.BaseURL != nil {
			baseURL = *cfg.BaseURL
		}
		return NewOpenAIProvider(cfg.Model, *cfg.APIKey, baseURL, cfg.Dim), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

// NewImageProvider creates the optional image encoder client. Returns
// (nil, nil) when image matching is disabled.
func NewImageProvider(cfg config.ImageConfig) (ImageProvider, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("image encoder base_url is required")
	}
	return NewClipServerProvider(cfg.Model, cfg.BaseURL, cfg.Dim), nil
}
