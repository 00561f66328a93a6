// Package embeddings turns chunk and query text into vectors.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docqa/internal/logging"
)

// Embedder is an embedding model client. Dimensions and Name describe the
// vectors it produces and are recorded with every index built from them.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}

// ItemError records why one input could not be embedded.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("embedding item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// Stats summarises one EmbedMany call.
type Stats struct {
	Embedded int
	Failed   int
	Errors   []*ItemError
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Batch drives an Embedder one item at a time with a fixed pause after
// every PaceEvery items. Failed items become zero vectors so a single bad
// chunk never aborts indexing.
type Batch struct {
	embedder  Embedder
	paceEvery int
	paceDelay time.Duration
	sleep     SleepFunc
	progress  func(done, total int)
	logger    *zap.Logger
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithPacing pauses for delay after every n items. n <= 0 disables pacing.
func WithPacing(n int, delay time.Duration) BatchOption {
	return func(b *Batch) {
		b.paceEvery = n
		b.paceDelay = delay
	}
}

// WithSleep replaces the pause implementation.
func WithSleep(fn SleepFunc) BatchOption {
	return func(b *Batch) { b.sleep = fn }
}

// WithProgress registers a callback invoked after each item.
func WithProgress(fn func(done, total int)) BatchOption {
	return func(b *Batch) { b.progress = fn }
}

// WithLogger sets the logger used for item failures.
func WithLogger(l *zap.Logger) BatchOption {
	return func(b *Batch) { b.logger = l }
}

// NewBatch wraps e. Defaults pace 10 items per 500ms.
func NewBatch(e Embedder, opts ...BatchOption) *Batch {
	b := &Batch{
		embedder:  e,
		paceEvery: 10,
		paceDelay: 500 * time.Millisecond,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.OrNop(b.logger)
	return b
}

// Name returns the wrapped model name.
func (b *Batch) Name() string { return b.embedder.Name() }

// Dimensions returns the wrapped model's vector length.
func (b *Batch) Dimensions() int { return b.embedder.Dimensions() }

// EmbedMany returns exactly len(texts) vectors of Dimensions() length.
// Items that fail are replaced with zero vectors and reported in Stats.
// Only context cancellation aborts the call.
func (b *Batch) EmbedMany(ctx context.Context, texts []string) ([][]float32, Stats, error) {
	dims := b.embedder.Dimensions()
	vectors := make([][]float32, len(texts))
	var stats Stats

	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		vec, err := b.one(ctx, text, dims)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return nil, stats, ctxErr
			}
			itemErr := &ItemError{Index: i, Err: err}
			stats.Failed++
			stats.Errors = append(stats.Errors, itemErr)
			b.logger.Warn("substituting zero vector", zap.Int("item", i), zap.Error(err))
			vec = make([]float32, dims)
		} else {
			stats.Embedded++
		}
		vectors[i] = vec

		if b.progress != nil {
			b.progress(i+1, len(texts))
		}
		if b.paceEvery > 0 && b.paceDelay > 0 && (i+1)%b.paceEvery == 0 && i+1 < len(texts) {
			if err := b.sleep(ctx, b.paceDelay); err != nil {
				return nil, stats, err
			}
		}
	}
	return vectors, stats, nil
}

// EmbedOne embeds a single query. Unlike EmbedMany, failures are returned.
func (b *Batch) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vec, err := b.one(ctx, text, b.embedder.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return vec, nil
}

func (b *Batch) one(ctx context.Context, text string, dims int) ([]float32, error) {
	out, err := b.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("provider returned %d vectors for 1 input", len(out))
	}
	if len(out[0]) != dims {
		return nil, fmt.Errorf("provider returned %d dimensions, expected %d", len(out[0]), dims)
	}
	return out[0], nil
}

// IsZero reports whether every component of v is zero.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
