package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docqa/internal/llm"
	"github.com/ziadkadry99/docqa/internal/logging"
	"github.com/ziadkadry99/docqa/internal/vectordb"
)

// NotInContext is the reply the model is instructed to give when the
// retrieved chunks do not contain the answer.
const NotInContext = "answer is not available in the context."

// NoRelevantInfo is returned without calling the model when retrieval
// produced nothing.
const NoRelevantInfo = "No relevant information found in the document."

const instruction = "Answer the question in a detailed manner from the provided context. Make sure to provide all the details. \n" +
	"If the answer is not in the provided context, then just say, \"" + NotInContext + "\" \n" +
	"Don't provide the wrong answer.\n"

// GenerationError wraps a failed call to the generation API.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "generating answer: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Reply always carries displayable text. Err is set when Text is an error
// message rather than a model answer.
type Reply struct {
	Text   string
	Prompt string
	Err    error
}

// OK reports whether the reply is a model answer.
func (r Reply) OK() bool { return r.Err == nil }

// Options tunes the generation request.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Logger      *zap.Logger
}

// Answerer turns retrieved chunks and a conversation transcript into an
// answer with one generation call.
type Answerer struct {
	provider llm.Provider
	opts     Options
	logger   *zap.Logger
}

// New creates an Answerer. A zero Temperature means 0.3.
func New(provider llm.Provider, opts Options) *Answerer {
	if opts.Temperature == 0 {
		opts.Temperature = 0.3
	}
	return &Answerer{provider: provider, opts: opts, logger: logging.OrNop(opts.Logger)}
}

// Answer never returns an error: failures are reported through Reply.Err
// with a readable Reply.Text.
func (a *Answerer) Answer(ctx context.Context, question string, hits []vectordb.Hit, transcript string) Reply {
	if len(hits) == 0 {
		return Reply{Text: NoRelevantInfo}
	}

	prompt := BuildPrompt(question, vectordb.Texts(hits), transcript)
	req := llm.Prompt(a.opts.Model, prompt, a.opts.Temperature)
	req.MaxTokens = a.opts.MaxTokens
	resp, err := a.provider.Complete(ctx, req)
	if err != nil {
		a.logger.Warn("answer generation failed", zap.Error(err))
		return Reply{
			Text:   fmt.Sprintf("Error processing your question: %v", err),
			Prompt: prompt,
			Err:    &GenerationError{Err: err},
		}
	}

	a.logger.Debug("answer generated",
		zap.String("model", resp.Model),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
		zap.Float64("est_cost_usd", llm.EstimateCost(resp.Model, resp.InputTokens, resp.OutputTokens)),
	)
	return Reply{Text: resp.Content, Prompt: prompt}
}

// BuildPrompt assembles the answer prompt. contexts keep their retrieval
// order; transcript is rendered history, oldest exchange first.
func BuildPrompt(question string, contexts []string, transcript string) string {
	var b strings.Builder
	b.WriteString(instruction)
	if transcript != "" {
		fmt.Fprintf(&b, "\nPrevious conversation:\n%s\n", transcript)
	}
	b.WriteString("\nContext:\n")
	b.WriteString(strings.Join(contexts, "\n\n"))
	b.WriteString("\n\nQuestion:\n")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:\n")
	return b.String()
}
