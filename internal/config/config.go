package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EmbeddingConfig holds text embedding provider configuration
type EmbeddingConfig struct {
	Provider string  `yaml:"provider"`
	Model    string  `yaml:"model"`
	Dim      int     `yaml:"dim"`
	BaseURL  *string `yaml:"base_url"`
	APIKey   *string `yaml:"api_key"`
}

// ImageConfig holds the optional image encoder configuration
type ImageConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Dim     int    `yaml:"dim"`
}

// MatchingConfig holds fusion and retrieval tuning knobs
type MatchingConfig struct {
	TextWeight     float64 `yaml:"text_weight"`
	ImageWeight    float64 `yaml:"image_weight"`
	MinScore       float64 `yaml:"min_score"`
	DefaultLimit   int     `yaml:"default_limit"`
	MaxLimit       int     `yaml:"max_limit"`
	CandidatePool  int     `yaml:"candidate_pool"`
	StageCap       int     `yaml:"stage_cap"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// ServerConfig holds the HTTP API configuration
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// CacheConfig holds the on-disk embedding cache configuration
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config holds the complete configuration
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Image     ImageConfig     `yaml:"image"`
	Matching  MatchingConfig  `yaml:"matching"`
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
}

// GetReclaimHome returns the reclaim home directory
func GetReclaimHome() string {
	if home := os.Getenv("RECLAIM_HOME"); home != "" {
		return home
	}
	userHome, _ := os.UserHomeDir()
	return filepath.Join(userHome, ".reclaim")
}

func defaults() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider: "ollama",
			Model:    "paraphrase-multilingual",
			Dim:      384,
			BaseURL:  stringPtr("http://localhost:11434"),
		},
		Image: ImageConfig{
			Enabled: false,
			BaseURL: "http://localhost:51000",
			Model:   "clip-vit-base-patch32",
			Dim:     512,
		},
		Matching: MatchingConfig{
			TextWeight:     0.6,
			ImageWeight:    0.4,
			MinScore:       0.45,
			DefaultLimit:   12,
			MaxLimit:       50,
			CandidatePool:  300,
			StageCap:       60,
			TimeoutSeconds: 10,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Cache: CacheConfig{
			Enabled: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	config := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if file doesn't exist
			return applyEnv(config), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure defaults are set
	if config.Embedding.Provider == "" {
		config.Embedding.Provider = "ollama"
	}
	if config.Embedding.Model == "" {
		config.Embedding.Model = "paraphrase-multilingual"
	}
	if config.Embedding.Dim == 0 {
		config.Embedding.Dim = 384
	}
	if config.Embedding.BaseURL == nil {
		config.Embedding.BaseURL = stringPtr("http://localhost:11434")
	}
	if config.Image.Dim == 0 {
		config.Image.Dim = 512
	}
	if config.Matching.TextWeight == 0 {
		config.Matching.TextWeight = 0.6
	}
	if config.Matching.ImageWeight == 0 {
		config.Matching.ImageWeight = 0.4
	}
	if config.Matching.MinScore == 0 {
		config.Matching.MinScore = 0.45
	}
	if config.Matching.DefaultLimit == 0 {
		config.Matching.DefaultLimit = 12
	}
	if config.Matching.MaxLimit == 0 {
		config.Matching.MaxLimit = 50
	}
	if config.Matching.CandidatePool == 0 {
		config.Matching.CandidatePool = 300
	}
	if config.Matching.StageCap == 0 {
		config.Matching.StageCap = 60
	}
	if config.Matching.TimeoutSeconds == 0 {
		config.Matching.TimeoutSeconds = 10
	}
	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}

	return applyEnv(config), nil
}

// applyEnv applies environment variable overrides (take precedence over
// file values). Useful for deployments that inject secrets via the
// environment rather than writing them to disk.
func applyEnv(config *Config) *Config {
	if v := os.Getenv("RECLAIM_EMBEDDING_PROVIDER"); v != "" {
		config.Embedding.Provider = v
	}
	if v := os.Getenv("RECLAIM_EMBEDDING_MODEL"); v != "" {
		config.Embedding.Model = v
	}
	if v := os.Getenv("RECLAIM_EMBEDDING_DIM"); v != "" {
		if dim, err := strconv.Atoi(v); err == nil {
			config.Embedding.Dim = dim
		}
	}
	if v := os.Getenv("RECLAIM_EMBEDDING_API_KEY"); v != "" {
		config.Embedding.APIKey = &v
	}
	if v := os.Getenv("RECLAIM_EMBEDDING_BASE_URL"); v != "" {
		config.Embedding.BaseURL = &v
	}
	if v := os.Getenv("RECLAIM_IMAGE_BASE_URL"); v != "" {
		config.Image.Enabled = true
		config.Image.BaseURL = v
	}
	if v := os.Getenv("RECLAIM_SERVER_ADDR"); v != "" {
		config.Server.Addr = v
	}
	return config
}

// Validate returns an error if the configuration contains invalid values.
// Call this after LoadConfig to surface misconfiguration at startup.
func (c *Config) Validate() error {
	validProviders := map[string]bool{"ollama": true, "openai": true, "openrouter": true}
	if !validProviders[c.Embedding.Provider] {
		return fmt.Errorf("invalid embedding.provider %q: must be one of ollama, openai, openrouter", c.Embedding.Provider)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model must not be empty")
	}
	if c.Embedding.Dim <= 0 {
		return fmt.Errorf("embedding.dim must be positive, got %d", c.Embedding.Dim)
	}
	if c.Embedding.Provider == "openai" || c.Embedding.Provider == "openrouter" {
		if c.Embedding.APIKey == nil || *c.Embedding.APIKey == "" {
			return fmt.Errorf("embedding.api_key is required for provider %q", c.Embedding.Provider)
		}
	}
	if c.Image.Enabled && c.Image.BaseURL == "" {
		return fmt.Errorf("image.base_url is required when image.enabled is true")
	}
	m := c.Matching
	if m.TextWeight < 0 || m.ImageWeight < 0 {
		return fmt.Errorf("matching weights must be non-negative")
	}
	if m.MinScore < 0 || m.MinScore > 1 {
		return fmt.Errorf("matching.min_score must be in [0,1], got %g", m.MinScore)
	}
	if m.DefaultLimit <= 0 || m.MaxLimit <= 0 || m.DefaultLimit > m.MaxLimit {
		return fmt.Errorf("matching limits invalid: default_limit=%d max_limit=%d", m.DefaultLimit, m.MaxLimit)
	}
	if m.CandidatePool < m.StageCap {
		return fmt.Errorf("matching.candidate_pool (%d) must be >= stage_cap (%d)", m.CandidatePool, m.StageCap)
	}
	return nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigTemplate returns a default config template as a string
func GetDefaultConfigTemplate() string {
	return `# Reclaim configuration

# Multilingual text encoder used for item matching.
embedding:
  provider: ollama              # ollama | openai | openrouter
  model: paraphrase-multilingual
  dim: 384
  base_url: http://localhost:11434
  # api_key: sk-...            # required for openai/openrouter

# Optional CLIP-style image encoder for photo matching.
image:
  enabled: false
  base_url: http://localhost:51000
  model: clip-vit-base-patch32
  dim: 512

# Fusion and retrieval tuning. Weights apply to the fused score;
# the image term only counts when both items carry an image vector.
matching:
  text_weight: 0.6
  image_weight: 0.4
  min_score: 0.45
  default_limit: 12
  max_limit: 50
  candidate_pool: 300
  stage_cap: 60
  timeout_seconds: 10

server:
  addr: ":8080"

# On-disk cache of computed embeddings, keyed by model and text.
cache:
  enabled: true
`
}

func stringPtr(s string) *string {
	return &s
}
