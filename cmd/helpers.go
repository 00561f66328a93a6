package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docqa/internal/answer"
	"github.com/ziadkadry99/docqa/internal/config"
	"github.com/ziadkadry99/docqa/internal/db"
	"github.com/ziadkadry99/docqa/internal/documents"
	"github.com/ziadkadry99/docqa/internal/embeddings"
	"github.com/ziadkadry99/docqa/internal/history"
	"github.com/ziadkadry99/docqa/internal/llm"
	"github.com/ziadkadry99/docqa/internal/logging"
	"github.com/ziadkadry99/docqa/internal/qa"
	"github.com/ziadkadry99/docqa/internal/studyaids"
	"github.com/ziadkadry99/docqa/internal/vectordb"
)

// createEmbedderFromConfig creates the embedding model client.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EffectiveEmbeddingProvider()
	model := cfg.EmbeddingModel
	if model == "" {
		model = config.GetPreset(provider).EmbeddingModel
	}

	switch provider {
	case config.ProviderGoogle:
		apiKey := cfg.APIKeyFor(config.ProviderGoogle)
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY (or API_KEY) is required for Google embeddings")
		}
		return embeddings.NewGoogleEmbedder(apiKey, embeddings.GoogleModel(model), ""), nil
	case config.ProviderOpenAI:
		apiKey := cfg.APIKeyFor(config.ProviderOpenAI)
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY (or API_KEY) is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(model)), nil
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(model, cfg.EmbeddingDims, cfg.OllamaHost), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", provider)
	}
}

// createLLMProviderFromConfig creates the generation client: quota errors
// fall through the configured fallback models and calls are paced to
// requests_per_minute.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	pc := llm.ProviderConfig{
		Type:   string(cfg.Provider),
		Model:  cfg.Model,
		APIKey: cfg.APIKeyFor(cfg.Provider),
	}
	if cfg.Provider == config.ProviderOllama {
		pc.BaseURL = cfg.OllamaHost
	}
	provider, err := llm.NewProvider(pc)
	if err != nil {
		return nil, err
	}
	if len(cfg.FallbackModels) > 0 {
		provider = llm.NewFallbackProvider(provider, cfg.FallbackModels...)
	}
	return llm.NewRateLimitedProvider(provider, cfg.RequestsPerMinute), nil
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `docqa init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// app holds the wired components a command works with.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *db.DB
	cache  *vectordb.Cache
	svc    *qa.Service
}

// appOptions adjusts openApp for commands that need less than the full
// pipeline.
type appOptions struct {
	// embedProgress receives per-chunk embedding progress.
	embedProgress func(done, total int)
	// offline skips model clients, for commands that only read local state.
	offline bool
}

// openApp wires the Q&A service for cfg. A nil cfg is loaded from the
// config file.
func openApp(cfg *config.Config, opts appOptions) (*app, error) {
	if cfg == nil {
		var err error
		if cfg, err = loadConfig(); err != nil {
			return nil, err
		}
	}
	logger := logging.New(logging.Options{Verbose: verbose, File: cfg.LogFile})

	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, db: database}
	if err := a.wire(opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(opts appOptions) error {
	cfg := a.cfg
	deps := qa.Deps{
		Documents: documents.NewStore(a.db),
		History:   history.NewStore(a.db),
		Logger:    a.logger,
	}

	blobs, err := documents.NewBlobs(cfg.UploadsDir())
	if err != nil {
		return err
	}
	deps.Blobs = blobs

	var embedder embeddings.Embedder = offlineEmbedder{name: cfg.EmbeddingModel, dims: cfg.EmbeddingDims}
	var provider llm.Provider = offlineProvider{}
	if !opts.offline {
		if embedder, err = createEmbedderFromConfig(cfg); err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}
		if provider, err = createLLMProviderFromConfig(cfg); err != nil {
			return fmt.Errorf("creating LLM provider: %w", err)
		}
	}

	batchOpts := []embeddings.BatchOption{
		embeddings.WithPacing(cfg.Embedding.PaceEvery, cfg.Embedding.PaceDelay),
		embeddings.WithLogger(a.logger),
	}
	if opts.embedProgress != nil {
		batchOpts = append(batchOpts, embeddings.WithProgress(opts.embedProgress))
	}
	deps.Embedder = embeddings.NewBatch(embedder, batchOpts...)

	a.cache, err = vectordb.NewCache(deps.Embedder, vectordb.Options{
		Dir:       cfg.CacheDir(),
		Prefix:    cfg.Cache.Prefix,
		MemoryTTL: cfg.Cache.MemoryTTL,
		Logger:    a.logger,
	})
	if err != nil {
		return err
	}
	deps.Cache = a.cache

	deps.Answerer = answer.New(provider, answer.Options{
		Model:       cfg.Model,
		Temperature: cfg.Answer.Temperature,
		MaxTokens:   cfg.Answer.MaxTokens,
		Logger:      a.logger,
	})
	deps.StudyAids = studyaids.New(provider, cfg.Model, a.logger)

	a.svc = qa.New(cfg, deps)
	return nil
}

// Close releases the database and flushes the logger.
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	_ = a.logger.Sync()
}
