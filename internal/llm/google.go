package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/docqa/internal/apiclient"
)

const googleAPIBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GoogleProvider implements Provider on the Gemini generateContent endpoint.
type GoogleProvider struct {
	apiKey  string
	model   string
	baseURL string
	api     *apiclient.Client
}

// NewGoogleProvider creates a Gemini provider. An empty baseURL uses the
// public endpoint.
func NewGoogleProvider(apiKey, model, baseURL string) *GoogleProvider {
	if baseURL == "" {
		baseURL = googleAPIBaseURL
	}
	return &GoogleProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		api:     apiclient.New("gemini", 120*time.Second),
	}
}

func (p *GoogleProvider) Name() string {
	return "google"
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	Temperature      float64 `json:"temperature"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      *geminiContent `json:"content"`
		FinishReason string         `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// newGeminiRequest maps chat messages onto Gemini contents. System
// messages become the system instruction and assistant turns use the
// "model" role.
func newGeminiRequest(req CompletionRequest) geminiRequest {
	out := geminiRequest{GenerationConfig: &geminiGenerationConfig{
		Temperature:     req.Temperature,
		MaxOutputTokens: max(req.MaxTokens, 0),
	}}
	if req.JSONMode {
		out.GenerationConfig.ResponseMIMEType = "application/json"
	}

	var system []geminiPart
	for _, msg := range req.Messages {
		part := geminiPart{Text: msg.Content}
		switch msg.Role {
		case RoleSystem:
			system = append(system, part)
		case RoleAssistant:
			out.Contents = append(out.Contents, geminiContent{Role: "model", Parts: []geminiPart{part}})
		default:
			out.Contents = append(out.Contents, geminiContent{Role: "user", Parts: []geminiPart{part}})
		}
	}
	if len(system) > 0 {
		out.SystemInstruction = &geminiContent{Parts: system}
	}
	// The API rejects a request without contents.
	if len(out.Contents) == 0 {
		out.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{}}}}
	}
	return out
}

func (r *geminiResponse) completion(model string) *CompletionResponse {
	resp := &CompletionResponse{Model: model}
	if len(r.Candidates) > 0 {
		c := r.Candidates[0]
		resp.FinishReason = c.FinishReason
		if c.Content != nil {
			var sb strings.Builder
			for _, part := range c.Content.Parts {
				sb.WriteString(part.Text)
			}
			resp.Content = sb.String()
		}
	}
	if u := r.UsageMetadata; u != nil {
		resp.InputTokens, resp.OutputTokens = u.PromptTokenCount, u.CandidatesTokenCount
	}
	return resp
}

func (p *GoogleProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", p.baseURL, model, p.apiKey)
	var apiResp geminiResponse
	if err := p.api.PostJSON(ctx, url, newGeminiRequest(req), &apiResp); err != nil {
		return nil, err
	}
	return apiResp.completion(model), nil
}
