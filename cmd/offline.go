package cmd

import (
	"context"
	"errors"

	"github.com/ziadkadry99/docqa/internal/llm"
)

var errOffline = errors.New("model access is not configured for this command")

// offlineEmbedder stands in for the embedding client in commands that only
// read local state.
type offlineEmbedder struct {
	name string
	dims int
}

func (e offlineEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errOffline
}
func (e offlineEmbedder) Dimensions() int { return e.dims }
func (e offlineEmbedder) Name() string    { return e.name }

type offlineProvider struct{}

func (offlineProvider) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return nil, errOffline
}
func (offlineProvider) Name() string { return "offline" }
