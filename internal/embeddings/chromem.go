package embeddings

import (
	"context"
	"errors"

	chromem "github.com/philippgille/chromem-go"
)

// ErrNotPrecomputed is returned by PrecomputedFunc.
var ErrNotPrecomputed = errors.New("embeddings: vector must be computed before insertion")

// PrecomputedFunc is a chromem.EmbeddingFunc for collections whose
// documents and queries always carry their vectors. Chromem only calls it
// when a vector is missing, which indicates a bug upstream.
func PrecomputedFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return nil, ErrNotPrecomputed
	}
}
