package vectordb

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/docqa/internal/chunker"
	"github.com/ziadkadry99/docqa/internal/embeddings"
)

const collectionName = "chunks"

// Index is the vector index of one document: a chromem collection of the
// embedded chunks plus the chunks that could only be stored as zero vectors.
// An Index is immutable once built and safe for concurrent searches.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	manifest   Manifest
}

// NewIndex builds an in-memory index from chunks and their vectors, which
// must be parallel slices. m supplies the metadata; its chunk count and
// zero-chunk list are filled in here.
func NewIndex(ctx context.Context, m Manifest, chunks []chunker.Chunk, vectors [][]float32) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	db := chromem.NewDB()
	col, err := db.CreateCollection(collectionName, nil, embeddings.PrecomputedFunc())
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	m.ChunkCount = len(chunks)
	m.ZeroChunks = nil

	docs := make([]chromem.Document, 0, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) != m.Dimensions {
			return nil, fmt.Errorf("chunk %d: vector has %d dimensions, expected %d", c.Seq, len(vectors[i]), m.Dimensions)
		}
		if embeddings.IsZero(vectors[i]) {
			m.ZeroChunks = append(m.ZeroChunks, StoredChunk{Seq: c.Seq, Text: c.Text})
			continue
		}
		docs = append(docs, chromem.Document{
			ID:        strconv.Itoa(c.Seq),
			Content:   c.Text,
			Embedding: vectors[i],
			Metadata:  map[string]string{"seq": strconv.Itoa(c.Seq)},
		})
	}
	if len(docs) > 0 {
		if err := col.AddDocuments(ctx, docs, 1); err != nil {
			return nil, fmt.Errorf("add chunks: %w", err)
		}
	}

	return &Index{db: db, collection: col, manifest: m}, nil
}

// Manifest returns a copy of the index metadata.
func (ix *Index) Manifest() Manifest {
	return ix.manifest
}

// Len returns the number of chunks in the index, zero vectors included.
func (ix *Index) Len() int {
	return ix.collection.Count() + len(ix.manifest.ZeroChunks)
}

// Search returns the min(k, Len) chunks most similar to q, ordered by
// descending similarity with ties broken by ascending chunk sequence.
// Zero-vector chunks score 0.
func (ix *Index) Search(ctx context.Context, q []float32, k int) ([]Hit, error) {
	if k <= 0 || ix.Len() == 0 {
		return nil, nil
	}
	if len(q) != ix.manifest.Dimensions {
		return nil, fmt.Errorf("query has %d dimensions, index has %d", len(q), ix.manifest.Dimensions)
	}

	hits := make([]Hit, 0, ix.Len())
	for _, z := range ix.manifest.ZeroChunks {
		hits = append(hits, Hit{Seq: z.Seq, Text: z.Text})
	}

	if n := ix.collection.Count(); n > 0 {
		zeroQuery := embeddings.IsZero(q)
		if zeroQuery {
			// A zero query has no direction. Any unit query returns every chunk;
			// the scores are discarded.
			q = make([]float32, len(q))
			q[0] = 1
		}
		results, err := ix.collection.QueryEmbedding(ctx, q, n, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("chromem query: %w", err)
		}
		for _, r := range results {
			seq, err := strconv.Atoi(r.Metadata["seq"])
			if err != nil {
				return nil, fmt.Errorf("chunk %q has no sequence: %w", r.ID, err)
			}
			sim := r.Similarity
			if zeroQuery {
				sim = 0
			}
			hits = append(hits, Hit{Seq: seq, Text: r.Content, Similarity: sim})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].Seq < hits[j].Seq
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}
