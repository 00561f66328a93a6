package embeddings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ziadkadry99/docqa/internal/apiclient"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaEmbedder embeds texts with a local Ollama /api/embed endpoint.
type OllamaEmbedder struct {
	baseURL    string
	model      string
	dimensions int
	api        *apiclient.Client
}

// NewOllamaEmbedder creates an Ollama embedder for model, such as
// "nomic-embed-text", producing vectors of dimensions values. An empty
// baseURL means the local default.
func NewOllamaEmbedder(model string, dimensions int, baseURL string) *OllamaEmbedder {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &OllamaEmbedder{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		dimensions: dimensions,
		api:        apiclient.New("ollama", 60*time.Second),
	}
}

func (e *OllamaEmbedder) Name() string { return "ollama/" + e.model }

func (e *OllamaEmbedder) Dimensions() int { return e.dimensions }

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, func(ctx context.Context, text string) ([]float32, error) {
		var resp ollamaEmbedResponse
		if err := e.api.PostJSON(ctx, e.baseURL+"/api/embed", ollamaEmbedRequest{Model: e.model, Input: text}, &resp); err != nil {
			return nil, err
		}
		if len(resp.Embeddings) == 0 {
			return nil, errors.New("ollama returned no embeddings")
		}
		return resp.Embeddings[0], nil
	})
}
