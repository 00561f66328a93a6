package qa

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docqa/internal/llm"
	"github.com/ziadkadry99/docqa/internal/vectordb"
)

// ErrQuotaExhausted marks files skipped after the embedding API ran out of
// quota during a batch.
var ErrQuotaExhausted = errors.New("skipped (API quota exhausted)")

// BatchOptions controls IngestBatch.
type BatchOptions struct {
	// Concurrency is the number of files ingested at once; at least 1.
	Concurrency int
	OwnerID     string
	Subject     string
	// OnProgress is called after each file with the number finished. It
	// runs on worker goroutines, but calls are serialised and done only
	// increases.
	OnProgress func(done, total int, path string)
}

// FileError is the failure of one file in a batch.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("ingest %s: %v", e.Path, e.Err) }

func (e *FileError) Unwrap() error { return e.Err }

// BatchResult holds the outcome of IngestBatch in input order.
type BatchResult struct {
	Results []*IngestResult
	Errors  []*FileError
}

// IngestBatch ingests files concurrently. Once a file's embeddings all fail
// or a quota error surfaces, the files not yet started are skipped with
// ErrQuotaExhausted instead of being indexed as zero vectors.
func (s *Service) IngestBatch(ctx context.Context, paths []string, opts BatchOptions) *BatchResult {
	total := len(paths)
	if total == 0 {
		return &BatchResult{}
	}
	concurrency := max(opts.Concurrency, 1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var exhausted atomic.Bool

	results := make([]*IngestResult, total)
	errs := make([]error, total)
	var (
		progressMu sync.Mutex
		processed  int
	)
	done := func(path string) {
		progressMu.Lock()
		defer progressMu.Unlock()
		processed++
		if opts.OnProgress != nil {
			opts.OnProgress(processed, total, path)
		}
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, path := range paths {
		if exhausted.Load() {
			errs[i] = ErrQuotaExhausted
			done(path)
			continue
		}

		select {
		case <-ctx.Done():
			errs[i] = ctx.Err()
			done(path)
			continue
		case sem <- struct{}{}:
		}
		if exhausted.Load() {
			<-sem
			errs[i] = ErrQuotaExhausted
			done(path)
			continue
		}

		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := s.IngestFile(ctx, path, opts.OwnerID, opts.Subject)
			switch {
			case err != nil:
				errs[i] = err
				if llm.IsQuotaError(err) {
					s.trip(&exhausted, cancel, path, err)
				}
			case res.Source == vectordb.SourceBuilt && res.Failed > 0 && res.Failed == res.Document.Chunks:
				results[i] = res
				s.trip(&exhausted, cancel, path, nil)
			default:
				results[i] = res
			}
			done(path)
		}(i, path)
	}
	wg.Wait()

	out := &BatchResult{}
	for i, path := range paths {
		if exhausted.Load() && errors.Is(errs[i], context.Canceled) {
			errs[i] = ErrQuotaExhausted
		}
		if errs[i] != nil {
			out.Errors = append(out.Errors, &FileError{Path: path, Err: errs[i]})
			continue
		}
		out.Results = append(out.Results, results[i])
	}
	return out
}

// trip stops the batch from starting further files.
func (s *Service) trip(exhausted *atomic.Bool, cancel context.CancelFunc, path string, err error) {
	if exhausted.Swap(true) {
		return
	}
	s.logger.Warn("embedding API unavailable, skipping remaining files",
		zap.String("path", path), zap.Error(err))
	cancel()
}
