package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/docqa/internal/apiclient"
)

const googleEmbedBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GoogleModel is a Google embedding model.
type GoogleModel string

const (
	ModelTextEmbedding004   GoogleModel = "text-embedding-004"
	ModelGeminiEmbedding001 GoogleModel = "gemini-embedding-001"
)

func (m GoogleModel) dimensions() int {
	if m == ModelGeminiEmbedding001 {
		return 3072
	}
	return 768
}

// GoogleEmbedder embeds texts one request at a time with embedContent.
type GoogleEmbedder struct {
	apiKey  string
	model   GoogleModel
	baseURL string
	api     *apiclient.Client
}

// NewGoogleEmbedder creates a Google embedder. An empty baseURL uses the
// public Generative Language endpoint.
func NewGoogleEmbedder(apiKey string, model GoogleModel, baseURL string) *GoogleEmbedder {
	if baseURL == "" {
		baseURL = googleEmbedBaseURL
	}
	return &GoogleEmbedder{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		api:     apiclient.New("google embed", 60*time.Second),
	}
}

func (e *GoogleEmbedder) Name() string { return string(e.model) }

func (e *GoogleEmbedder) Dimensions() int { return e.model.dimensions() }

type googleEmbedRequest struct {
	Model   string        `json:"model"`
	Content googleContent `json:"content"`
}

type googleContent struct {
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

func (e *GoogleEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.embedSingle)
}

func (e *GoogleEmbedder) embedSingle(ctx context.Context, text string) ([]float32, error) {
	req := googleEmbedRequest{
		Model:   "models/" + string(e.model),
		Content: googleContent{Parts: []googlePart{{Text: text}}},
	}

	url := fmt.Sprintf("%s/%s:embedContent?key=%s", e.baseURL, e.model, e.apiKey)
	var resp googleEmbedResponse
	if err := e.api.PostJSON(ctx, url, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, errors.New("google returned empty embedding")
	}
	return resp.Embedding.Values, nil
}

// embedEach embeds texts with one call per text, stopping at the first
// failure.
func embedEach(ctx context.Context, texts []string, one func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := one(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}
