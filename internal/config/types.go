package config

import "time"

// ProviderType identifies an embedding or generation provider.
type ProviderType string

const (
	ProviderGoogle ProviderType = "google"
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// ProfileName selects the chunking and retrieval parameters for a document.
type ProfileName string

const (
	ProfileAuto     ProfileName = "auto"
	ProfileStandard ProfileName = "standard"
	ProfileLarge    ProfileName = "large"
	ProfileTabular  ProfileName = "tabular"
)

// Config is the top-level docqa configuration, corresponding to .docqa.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	FallbackModels    []string     `yaml:"fallback_models" koanf:"fallback_models"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`
	EmbeddingDims     int          `yaml:"embedding_dimensions" koanf:"embedding_dimensions"`
	APIKey            string       `yaml:"api_key,omitempty" koanf:"api_key"`
	OllamaHost        string       `yaml:"ollama_host,omitempty" koanf:"ollama_host"`
	RequestsPerMinute int          `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	DataDir           string       `yaml:"data_dir" koanf:"data_dir"`
	LogFile           string       `yaml:"log_file,omitempty" koanf:"log_file"`

	Chunking  ChunkingConfig  `yaml:"chunking" koanf:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding" koanf:"embedding"`
	Cache     CacheConfig     `yaml:"cache" koanf:"cache"`
	Limits    LimitsConfig    `yaml:"limits" koanf:"limits"`
	Answer    AnswerConfig    `yaml:"answer" koanf:"answer"`
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	Include   []string        `yaml:"include" koanf:"include"`
	Exclude   []string        `yaml:"exclude" koanf:"exclude"`
}

// ChunkProfile is one set of chunking and retrieval parameters.
type ChunkProfile struct {
	ChunkSize    int `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	TopK         int `yaml:"top_k" koanf:"top_k"`
}

// ChunkingConfig holds the built-in profiles and the selection override.
type ChunkingConfig struct {
	Profile  ProfileName  `yaml:"profile" koanf:"profile"`
	Standard ChunkProfile `yaml:"standard" koanf:"standard"`
	Large    ChunkProfile `yaml:"large" koanf:"large"`
	Tabular  ChunkProfile `yaml:"tabular" koanf:"tabular"`
}

// EmbeddingConfig controls pacing of per-chunk embedding calls.
type EmbeddingConfig struct {
	PaceEvery int           `yaml:"pace_every" koanf:"pace_every"`
	PaceDelay time.Duration `yaml:"pace_delay" koanf:"pace_delay"`
}

// CacheConfig controls the on-disk index cache.
type CacheConfig struct {
	Prefix    string        `yaml:"prefix" koanf:"prefix"`
	MemoryTTL time.Duration `yaml:"memory_ttl" koanf:"memory_ttl"`
	MaxAge    time.Duration `yaml:"max_age" koanf:"max_age"`
}

// LimitsConfig bounds the input accepted for ingestion.
type LimitsConfig struct {
	MaxUploadBytes     int64 `yaml:"max_upload_bytes" koanf:"max_upload_bytes"`
	LargeDocumentBytes int64 `yaml:"large_document_bytes" koanf:"large_document_bytes"`
	MaxPDFPages        int   `yaml:"max_pdf_pages" koanf:"max_pdf_pages"`
}

// AnswerConfig controls prompt assembly and generation.
type AnswerConfig struct {
	HistoryTurns int     `yaml:"history_turns" koanf:"history_turns"`
	Temperature  float64 `yaml:"temperature" koanf:"temperature"`
	MaxTokens    int     `yaml:"max_tokens" koanf:"max_tokens"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int  `yaml:"port" koanf:"port"`
	AllowAll bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}
