package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ziadkadry99/docqa/internal/apiclient"
)

// IsQuotaError reports whether err is a provider quota or rate limit
// rejection. Errors without a status are matched on their message.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if apiclient.IsQuota(err) {
		return true
	}
	var oaErr *openai.APIError
	if errors.As(err, &oaErr) && oaErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"quota", "rate limit", "rate_limit", "resource_exhausted", "429"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// FallbackProvider retries a request on the next model in its list when
// the current model is rejected for quota reasons. Other errors are
// returned immediately.
type FallbackProvider struct {
	provider Provider
	models   []string
}

// NewFallbackProvider tries req.Model (or the provider default) first,
// then each of models in order. Duplicates and empty names are skipped.
func NewFallbackProvider(provider Provider, models ...string) *FallbackProvider {
	return &FallbackProvider{provider: provider, models: models}
}

func (f *FallbackProvider) Name() string {
	return f.provider.Name()
}

func (f *FallbackProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	candidates := append([]string{req.Model}, f.models...)
	tried := make(map[string]bool, len(candidates))

	var lastErr error
	for i, model := range candidates {
		if i > 0 && (model == "" || tried[model]) {
			continue
		}
		tried[model] = true

		attempt := req
		attempt.Model = model
		resp, err := f.provider.Complete(ctx, attempt)
		if err == nil {
			return resp, nil
		}
		if !IsQuotaError(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all models exhausted their quota: %w", lastErr)
}
