package llm

import "unicode/utf8"

// Price is the USD cost of one million tokens.
type Price struct {
	Input  float64
	Output float64
}

var generationPrices = map[string]Price{
	"gemini-2.5-flash":      {Input: 0.30, Output: 2.50},
	"gemini-2.5-flash-lite": {Input: 0.10, Output: 0.40},
	"gemini-2.0-flash":      {Input: 0.10, Output: 0.40},
	"gemini-1.5-flash":      {Input: 0.075, Output: 0.30},
	"gpt-4o":                {Input: 2.50, Output: 10.00},
	"gpt-4o-mini":           {Input: 0.15, Output: 0.60},
}

// Embedding models only bill input tokens.
var embeddingPrices = map[string]Price{
	"text-embedding-004":     {Input: 0},
	"gemini-embedding-001":   {Input: 0.15},
	"text-embedding-3-small": {Input: 0.02},
	"text-embedding-3-large": {Input: 0.13},
}

// ModelPrice returns the price of a generation model.
func ModelPrice(model string) (Price, bool) {
	p, ok := generationPrices[model]
	return p, ok
}

// EmbeddingPrice returns the price of an embedding model.
func EmbeddingPrice(model string) (Price, bool) {
	p, ok := embeddingPrices[model]
	return p, ok
}

// EstimateCost returns the USD cost of one completion, or 0 for a model
// without a known price.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	p, _ := ModelPrice(model)
	return perMillion(inputTokens, p.Input) + perMillion(outputTokens, p.Output)
}

// EstimateEmbeddingCost returns the USD cost of embedding tokens with
// model, or 0 for a model without a known price.
func EstimateEmbeddingCost(model string, tokens int) float64 {
	p, _ := EmbeddingPrice(model)
	return perMillion(tokens, p.Input)
}

func perMillion(tokens int, price float64) float64 {
	return float64(tokens) / 1_000_000 * price
}

// EstimateTokens approximates the token count of text as one token per
// four characters, and at least one for non-empty text.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return max(n/4, 1)
}
