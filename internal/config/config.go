package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const envPrefix = "DOCQA_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (DOCQA_*). A .env file next to the
// config file is loaded first; it never overrides variables already set.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	k := koanf.New(".")
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// DOCQA_PROVIDER -> provider, DOCQA_CHUNKING__PROFILE -> chunking.profile.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderGoogle: true,
	ProviderOpenAI: true,
	ProviderOllama: true,
}

var validProfiles = map[ProfileName]bool{
	ProfileAuto:     true,
	ProfileStandard: true,
	ProfileLarge:    true,
	ProfileTabular:  true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of google, openai, ollama", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.EmbeddingProvider != "" && !validProviders[c.EmbeddingProvider] {
		return fmt.Errorf("invalid embedding_provider %q", c.EmbeddingProvider)
	}
	if c.EmbeddingDims <= 0 {
		return fmt.Errorf("embedding_dimensions must be positive")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Chunking.Profile != "" && !validProfiles[c.Chunking.Profile] {
		return fmt.Errorf("invalid chunking.profile %q: must be one of auto, standard, large, tabular", c.Chunking.Profile)
	}
	for name, p := range map[string]ChunkProfile{
		"standard": c.Chunking.Standard,
		"large":    c.Chunking.Large,
		"tabular":  c.Chunking.Tabular,
	} {
		if err := p.validate(); err != nil {
			return fmt.Errorf("chunking.%s: %w", name, err)
		}
	}

	if c.Embedding.PaceEvery < 0 || c.Embedding.PaceDelay < 0 {
		return fmt.Errorf("embedding pacing must be non-negative")
	}
	if c.Cache.Prefix == "" {
		return fmt.Errorf("cache.prefix is required")
	}
	if strings.ContainsAny(c.Cache.Prefix, `/\`) {
		return fmt.Errorf("cache.prefix %q must not contain path separators", c.Cache.Prefix)
	}
	if c.Limits.MaxUploadBytes <= 0 {
		return fmt.Errorf("limits.max_upload_bytes must be positive")
	}
	if c.Answer.HistoryTurns < 0 {
		return fmt.Errorf("answer.history_turns must be non-negative")
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must be non-negative")
	}
	return nil
}

func (p ChunkProfile) validate() error {
	if p.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}
	if p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size)")
	}
	if p.TopK <= 0 {
		return fmt.Errorf("top_k must be positive")
	}
	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGoogle:
		return "GOOGLE_API_KEY"
	default:
		return ""
	}
}

// APIKeyFor resolves the API key for a provider: the configured api_key,
// then the provider's conventional variable, then API_KEY.
func (c *Config) APIKeyFor(provider ProviderType) string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if name := APIKeyEnvVar(provider); name != "" {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return os.Getenv("API_KEY")
}

// EffectiveEmbeddingProvider returns the embedding provider, defaulting to
// the generation provider.
func (c *Config) EffectiveEmbeddingProvider() ProviderType {
	if c.EmbeddingProvider != "" {
		return c.EmbeddingProvider
	}
	return c.Provider
}

// Profile returns the named chunk profile. Unknown names yield the
// standard profile.
func (c *Config) Profile(name ProfileName) ChunkProfile {
	switch name {
	case ProfileLarge:
		return c.Chunking.Large
	case ProfileTabular:
		return c.Chunking.Tabular
	default:
		return c.Chunking.Standard
	}
}

// CacheDir returns the directory holding persisted indices.
func (c *Config) CacheDir() string { return filepath.Join(c.DataDir, "indices") }

// UploadsDir returns the directory holding uploaded document bytes.
func (c *Config) UploadsDir() string { return filepath.Join(c.DataDir, "uploads") }

// DatabasePath returns the SQLite database path.
func (c *Config) DatabasePath() string { return filepath.Join(c.DataDir, "docqa.db") }
