// Package studyaids generates summaries, flashcards and multiple-choice
// quizzes from extracted document text.
package studyaids

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docqa/internal/llm"
	"github.com/ziadkadry99/docqa/internal/logging"
)

var (
	// ErrTooShort is returned when the source text is too short to work from.
	ErrTooShort = errors.New("not enough text in the document")
	// ErrNoItems is returned when the model produced nothing usable.
	ErrNoItems = errors.New("the model returned no valid items")
)

// Generator holds the model settings shared by every study aid.
type Generator struct {
	provider llm.Provider
	model    string
	logger   *zap.Logger
}

// New creates a Generator. An empty model uses the provider default.
func New(provider llm.Provider, model string, logger *zap.Logger) *Generator {
	return &Generator{provider: provider, model: model, logger: logging.OrNop(logger)}
}

func (g *Generator) complete(ctx context.Context, prompt string, temperature float64, jsonMode bool) (string, error) {
	req := llm.Prompt(g.model, prompt, temperature)
	req.JSONMode = jsonMode
	resp, err := g.provider.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	g.logger.Debug("study aid generated",
		zap.String("model", resp.Model),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
	)
	return resp.Content, nil
}

// prepare trims text, enforces the minimum length and cuts it to max runes.
func prepare(text string, minChars, maxChars int) (string, error) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minChars {
		return "", fmt.Errorf("%w: need at least %d characters", ErrTooShort, minChars)
	}
	return truncateRunes(text, maxChars), nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// jsonArray returns the JSON array in a model response, which may be
// wrapped in markdown code fences or surrounded by prose.
func jsonArray(content string) ([]json.RawMessage, error) {
	text := strings.TrimSpace(content)
	if strings.Contains(text, "```") {
		var kept []string
		inFence := false
		for _, line := range strings.Split(text, "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "```") {
				inFence = !inFence
				continue
			}
			if inFence || strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
				kept = append(kept, line)
			}
		}
		text = strings.TrimSpace(strings.Join(kept, "\n"))
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(text), &items); err == nil {
		return items, nil
	}

	start, end := strings.Index(text, "["), strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON array in model response", ErrNoItems)
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("%w: parsing model response: %v", ErrNoItems, err)
	}
	return items, nil
}
