// Package qatest wires a qa.Service to in-memory fakes for tests.
package qatest

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/docqa/internal/answer"
	"github.com/ziadkadry99/docqa/internal/config"
	"github.com/ziadkadry99/docqa/internal/db"
	"github.com/ziadkadry99/docqa/internal/documents"
	"github.com/ziadkadry99/docqa/internal/embeddings"
	"github.com/ziadkadry99/docqa/internal/history"
	"github.com/ziadkadry99/docqa/internal/llm"
	"github.com/ziadkadry99/docqa/internal/qa"
	"github.com/ziadkadry99/docqa/internal/studyaids"
	"github.com/ziadkadry99/docqa/internal/vectordb"
)

// DefaultAnswer is what Provider replies until Content is changed.
const DefaultAnswer = "Mitochondria make ATP."

// Embedder maps each ASCII letter to a dimension so texts sharing words
// land close together. It counts calls.
type Embedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *Embedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	err := e.err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, 26)
		for _, r := range strings.ToLower(text) {
			if r >= 'a' && r <= 'z' {
				v[r-'a']++
			}
		}
		out[i] = v
	}
	return out, nil
}

func (e *Embedder) Dimensions() int { return 26 }
func (e *Embedder) Name() string    { return "letters" }

// Fail makes later Embed calls return err.
func (e *Embedder) Fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Calls returns how many Embed calls were made.
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Provider replies with Content, or fails with Err, and records prompts.
type Provider struct {
	mu      sync.Mutex
	prompts []string
	content string
	err     error
}

func (p *Provider) Name() string { return "scripted" }

func (p *Provider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, req.Messages[len(req.Messages)-1].Content)
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Content: p.content, Model: "gemini-2.5-flash"}, nil
}

// Reply sets the content of later completions.
func (p *Provider) Reply(content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.content, p.err = content, nil
}

// Fail makes later completions return err.
func (p *Provider) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// LastPrompt returns the most recent user prompt.
func (p *Provider) LastPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.prompts) == 0 {
		return ""
	}
	return p.prompts[len(p.prompts)-1]
}

// Calls returns how many completions were requested.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.prompts)
}

// Env is a Service and the fakes behind it.
type Env struct {
	Service  *qa.Service
	Config   *config.Config
	Embedder *Embedder
	Provider *Provider
	Cache    *vectordb.Cache
	DB       *db.DB
}

// New returns a Service over a temporary data directory, an in-memory
// database and fresh fakes. mutate may adjust the default configuration.
func New(t testing.TB, mutate func(*config.Config)) *Env {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}
	return build(t, cfg, &Embedder{}, &Provider{content: DefaultAnswer})
}

// Restart returns a new Service over the same data directory and fakes, as
// a new process would see it. The database starts empty.
func (e *Env) Restart(t testing.TB) *Env {
	t.Helper()
	return build(t, e.Config, e.Embedder, e.Provider)
}

func build(t testing.TB, cfg *config.Config, emb *Embedder, provider *Provider) *Env {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	batch := embeddings.NewBatch(emb, embeddings.WithPacing(0, 0))
	cache, err := vectordb.NewCache(batch, vectordb.Options{Dir: cfg.CacheDir(), Prefix: cfg.Cache.Prefix})
	require.NoError(t, err)
	blobs, err := documents.NewBlobs(cfg.UploadsDir())
	require.NoError(t, err)

	svc := qa.New(cfg, qa.Deps{
		Embedder:  batch,
		Cache:     cache,
		Answerer:  answer.New(provider, answer.Options{Model: cfg.Model}),
		StudyAids: studyaids.New(provider, cfg.Model, nil),
		Documents: documents.NewStore(database),
		Blobs:     blobs,
		History:   history.NewStore(database),
	})
	return &Env{Service: svc, Config: cfg, Embedder: emb, Provider: provider, Cache: cache, DB: database}
}
