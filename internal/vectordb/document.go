package vectordb

import (
	"fmt"
	"time"
)

// Manifest describes a persisted index. It is written next to the chromem
// export as manifest.json and decides whether a cached index is reusable.
type Manifest struct {
	Hash         string    `json:"hash"`
	Model        string    `json:"embedding_model"`
	Dimensions   int       `json:"dimensions"`
	ChunkCount   int       `json:"chunk_count"`
	ChunkSize    int       `json:"chunk_size"`
	ChunkOverlap int       `json:"chunk_overlap"`
	TextLength   int       `json:"text_length"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccess   time.Time `json:"last_access"`

	// ZeroChunks holds chunks whose embedding failed. They cannot be
	// normalised so they live here instead of in the collection.
	ZeroChunks []StoredChunk `json:"zero_chunks,omitempty"`
}

// StoredChunk is a chunk kept outside the vector collection.
type StoredChunk struct {
	Seq  int    `json:"seq"`
	Text string `json:"text"`
}

// Hit is one retrieved chunk with its cosine similarity to the query.
type Hit struct {
	Seq        int     `json:"seq"`
	Text       string  `json:"text"`
	Similarity float32 `json:"similarity"`
}

// Source reports where GetOrBuild found an index.
type Source string

const (
	SourceMemory Source = "memory"
	SourceDisk   Source = "disk"
	SourceBuilt  Source = "built"
)

// BuildInfo describes the outcome of GetOrBuild.
type BuildInfo struct {
	Source Source
	// Failed counts chunks stored with a zero vector during a build.
	Failed int
}

// LoadError reports a persisted index that could not be reused. Callers
// treat it as a cache miss.
type LoadError struct {
	Dir string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading index %s: %v", e.Dir, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
