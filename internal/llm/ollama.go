package llm

import (
	"context"
	"strings"
	"time"

	"github.com/ziadkadry99/docqa/internal/apiclient"
)

// OllamaProvider implements Provider on a local Ollama /api/chat endpoint.
type OllamaProvider struct {
	baseURL string
	model   string
	api     *apiclient.Client
}

// NewOllamaProvider creates an Ollama provider for the server at baseURL.
func NewOllamaProvider(baseURL string, model string) *OllamaProvider {
	return &OllamaProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		// Local models can be slow to load on first use.
		api: apiclient.New("ollama", 300*time.Second),
	}
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options,omitempty"`
	Format   string          `json:"format,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Message         ollamaMessage `json:"message"`
	Model           string        `json:"model"`
	DoneReason      string        `json:"done_reason"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	chat := ollamaChatRequest{
		Model:    req.Model,
		Messages: make([]ollamaMessage, 0, len(req.Messages)),
		Options:  ollamaOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens},
	}
	if chat.Model == "" {
		chat.Model = p.model
	}
	for _, msg := range req.Messages {
		chat.Messages = append(chat.Messages, ollamaMessage{Role: string(msg.Role), Content: msg.Content})
	}
	if req.JSONMode {
		chat.Format = "json"
	}

	var resp ollamaChatResponse
	if err := p.api.PostJSON(ctx, p.baseURL+"/api/chat", chat, &resp); err != nil {
		return nil, err
	}
	return &CompletionResponse{
		Content:      resp.Message.Content,
		InputTokens:  resp.PromptEvalCount,
		OutputTokens: resp.EvalCount,
		Model:        resp.Model,
		FinishReason: resp.DoneReason,
	}, nil
}
