package qa_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/docqa/internal/qa"
	"github.com/ziadkadry99/docqa/internal/qa/qatest"
)

func writeNotes(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, n)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("notes%d.txt", i))
		body := fmt.Sprintf("Lecture %d covers photosynthesis and respiration.", i)
		require.NoError(t, os.WriteFile(paths[i], []byte(body), 0o644))
	}
	return paths
}

func TestIngestBatch(t *testing.T) {
	env := qatest.New(t, nil)
	paths := append(writeNotes(t, 3), filepath.Join(t.TempDir(), "missing.txt"))

	var (
		mu       sync.Mutex
		progress []int
	)
	res := env.Service.IngestBatch(context.Background(), paths, qa.BatchOptions{
		Concurrency: 2,
		OwnerID:     "alice",
		OnProgress: func(done, total int, _ string) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 4, total)
			progress = append(progress, done)
		},
	})

	require.Len(t, res.Results, 3)
	for i, r := range res.Results {
		assert.Equal(t, filepath.Base(paths[i]), r.Document.Name, "results keep input order")
		assert.Equal(t, "alice", r.Document.OwnerID)
	}
	require.Len(t, res.Errors, 1)
	assert.Equal(t, paths[3], res.Errors[0].Path)
	assert.Equal(t, []int{1, 2, 3, 4}, progress)

	docs, err := env.Service.Documents(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestIngestBatchProgressIsSerialised(t *testing.T) {
	env := qatest.New(t, nil)
	paths := writeNotes(t, 8)

	var (
		inside   atomic.Int32
		overlaps atomic.Int32
		progress []int
	)
	res := env.Service.IngestBatch(context.Background(), paths, qa.BatchOptions{
		Concurrency: 4,
		OnProgress: func(done, _ int, _ string) {
			if inside.Add(1) > 1 {
				overlaps.Add(1)
			}
			defer inside.Add(-1)
			time.Sleep(time.Millisecond)
			progress = append(progress, done)
		},
	})

	require.Empty(t, res.Errors)
	assert.Zero(t, overlaps.Load())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, progress)
}

func TestIngestBatchStopsWhenEmbeddingsFail(t *testing.T) {
	env := qatest.New(t, nil)
	env.Embedder.Fail(errors.New("RESOURCE_EXHAUSTED: quota exceeded"))
	paths := writeNotes(t, 3)

	res := env.Service.IngestBatch(context.Background(), paths, qa.BatchOptions{Concurrency: 1})

	require.Len(t, res.Results, 1)
	assert.Equal(t, res.Results[0].Document.Chunks, res.Results[0].Failed)
	require.Len(t, res.Errors, 2)
	for _, e := range res.Errors {
		assert.ErrorIs(t, e, qa.ErrQuotaExhausted)
	}
	assert.Equal(t, 1, env.Embedder.Calls(), "later files are not embedded")
}

func TestIngestBatchEmpty(t *testing.T) {
	env := qatest.New(t, nil)
	res := env.Service.IngestBatch(context.Background(), nil, qa.BatchOptions{})
	assert.Empty(t, res.Results)
	assert.Empty(t, res.Errors)
}
