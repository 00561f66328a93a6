package studyaids

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	flashcardsMinChars = 100
	flashcardsMaxChars = 15000
	minCards           = 3
	maxCards           = 30
)

// Flashcard is one study card.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

const flashcardsPrompt = `Create %d high-quality study flashcards from the provided content.

Return ONLY valid JSON array with this exact shape (no extra text):
[
  {"front": "Concise question or term", "back": "Clear answer in 1-3 sentences"}
]

Guidelines:
- Front: short question/term. Back: concise answer, 1-3 sentences max.
- Cover diverse, important concepts from the text.
- Keep language simple and precise.
- No markdown, no numbering, no code fences, JSON only.

CONTENT:
%s
`

// ClampCards bounds a requested card count to the supported range.
func ClampCards(n int) int {
	return max(minCards, min(n, maxCards))
}

// Flashcards asks for n cards (clamped to 3..30). Cards missing a front or
// back are dropped.
func (g *Generator) Flashcards(ctx context.Context, text string, n int) ([]Flashcard, error) {
	text, err := prepare(text, flashcardsMinChars, flashcardsMaxChars)
	if err != nil {
		return nil, err
	}
	n = ClampCards(n)

	out, err := g.complete(ctx, fmt.Sprintf(flashcardsPrompt, n, text), 0.7, false)
	if err != nil {
		return nil, fmt.Errorf("generating flashcards: %w", err)
	}

	items, err := jsonArray(out)
	if err != nil {
		return nil, err
	}

	var cards []Flashcard
	for i, raw := range items {
		var c Flashcard
		if err := json.Unmarshal(raw, &c); err != nil {
			g.logger.Debug("dropping flashcard", zap.Int("item", i), zap.Error(err))
			continue
		}
		c.Front, c.Back = strings.TrimSpace(c.Front), strings.TrimSpace(c.Back)
		if c.Front == "" || c.Back == "" {
			continue
		}
		cards = append(cards, c)
	}
	if len(cards) == 0 {
		return nil, ErrNoItems
	}
	return cards, nil
}
