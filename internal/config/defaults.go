package config

import "time"

// ModelPreset describes the default models for a provider.
type ModelPreset struct {
	Model          string
	EmbeddingModel string
	EmbeddingDims  int
}

var modelPresets = map[ProviderType]ModelPreset{
	ProviderGoogle: {Model: "gemini-2.5-flash", EmbeddingModel: "text-embedding-004", EmbeddingDims: 768},
	ProviderOpenAI: {Model: "gpt-4o-mini", EmbeddingModel: "text-embedding-3-small", EmbeddingDims: 1536},
	ProviderOllama: {Model: "llama3", EmbeddingModel: "nomic-embed-text", EmbeddingDims: 768},
}

// DefaultExcludes are glob patterns skipped by batch ingestion.
var DefaultExcludes = []string{
	".git/**",
	".docqa/**",
	"node_modules/**",
	"~$*",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderGoogle,
		Model:             "gemini-2.5-flash",
		FallbackModels:    []string{"gemini-1.5-flash"},
		EmbeddingProvider: ProviderGoogle,
		EmbeddingModel:    "text-embedding-004",
		EmbeddingDims:     768,
		RequestsPerMinute: 0,
		DataDir:           ".docqa",
		Chunking: ChunkingConfig{
			Profile:  ProfileAuto,
			Standard: ChunkProfile{ChunkSize: 10000, ChunkOverlap: 1000, TopK: 4},
			Large:    ChunkProfile{ChunkSize: 15000, ChunkOverlap: 2000, TopK: 6},
			Tabular:  ChunkProfile{ChunkSize: 2000, ChunkOverlap: 200, TopK: 4},
		},
		Embedding: EmbeddingConfig{
			PaceEvery: 10,
			PaceDelay: 500 * time.Millisecond,
		},
		Cache: CacheConfig{
			Prefix:    "index",
			MemoryTTL: time.Hour,
		},
		Limits: LimitsConfig{
			MaxUploadBytes:     200 << 20,
			LargeDocumentBytes: 5 << 20,
		},
		Answer: AnswerConfig{
			HistoryTurns: 5,
			Temperature:  0.3,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Include: []string{"**/*.{pdf,docx,pptx,txt,csv,xlsx}"},
		Exclude: DefaultExcludes,
	}
}

// GetPreset returns the model preset for the given provider.
// Returns the Google preset if the provider is unknown.
func GetPreset(provider ProviderType) ModelPreset {
	if p, ok := modelPresets[provider]; ok {
		return p
	}
	return modelPresets[ProviderGoogle]
}
