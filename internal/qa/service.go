// Package qa ties extraction, chunking, indexing and answering into the
// document question answering pipeline.
package qa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docqa/internal/answer"
	"github.com/ziadkadry99/docqa/internal/chunker"
	"github.com/ziadkadry99/docqa/internal/config"
	"github.com/ziadkadry99/docqa/internal/documents"
	"github.com/ziadkadry99/docqa/internal/embeddings"
	"github.com/ziadkadry99/docqa/internal/extract"
	"github.com/ziadkadry99/docqa/internal/history"
	"github.com/ziadkadry99/docqa/internal/logging"
	"github.com/ziadkadry99/docqa/internal/studyaids"
	"github.com/ziadkadry99/docqa/internal/vectordb"
)

var (
	// ErrTooLarge is returned for uploads above the configured limit.
	ErrTooLarge = errors.New("file exceeds the upload size limit")
	// ErrNotFound is returned for unknown document ids.
	ErrNotFound = documents.ErrNotFound
	// ErrEmptyQuestion is returned when the question is blank.
	ErrEmptyQuestion = errors.New("question is empty")
)

const anonymousUser = "anonymous"

// Profile is the chunking and retrieval setup used for a document.
type Profile struct {
	Name         config.ProfileName `json:"name"`
	ChunkSize    int                `json:"chunk_size"`
	ChunkOverlap int                `json:"chunk_overlap"`
	TopK         int                `json:"top_k"`
}

// Deps are the components a Service drives.
type Deps struct {
	Extractor *extract.Extractor
	Embedder  *embeddings.Batch
	Cache     *vectordb.Cache
	Answerer  *answer.Answerer
	StudyAids *studyaids.Generator
	Documents *documents.Store
	Blobs     *documents.Blobs
	History   *history.Store
	Logger    *zap.Logger
}

// Service is the document Q&A pipeline. It is safe for concurrent use.
type Service struct {
	cfg       *config.Config
	extractor *extract.Extractor
	embedder  *embeddings.Batch
	cache     *vectordb.Cache
	answerer  *answer.Answerer
	aids      *studyaids.Generator
	docs      *documents.Store
	blobs     *documents.Blobs
	history   *history.Store
	logger    *zap.Logger
}

// New creates a Service. cfg is read but never modified.
func New(cfg *config.Config, deps Deps) *Service {
	extractor := deps.Extractor
	if extractor == nil {
		extractor = extract.New(cfg.Limits.MaxPDFPages, deps.Logger)
	}
	return &Service{
		cfg:       cfg,
		extractor: extractor,
		embedder:  deps.Embedder,
		cache:     deps.Cache,
		answerer:  deps.Answerer,
		aids:      deps.StudyAids,
		docs:      deps.Documents,
		blobs:     deps.Blobs,
		history:   deps.History,
		logger:    logging.OrNop(deps.Logger),
	}
}

// ProfileFor picks the profile for a document of type t and size bytes.
// A profile forced in the configuration wins over automatic selection.
func (s *Service) ProfileFor(t extract.Type, size int64) Profile {
	name := s.cfg.Chunking.Profile
	if name == "" || name == config.ProfileAuto {
		switch {
		case t.Tabular():
			name = config.ProfileTabular
		case s.cfg.Limits.LargeDocumentBytes > 0 && size > s.cfg.Limits.LargeDocumentBytes:
			name = config.ProfileLarge
		default:
			name = config.ProfileStandard
		}
	}
	return s.profile(name)
}

func (s *Service) profile(name config.ProfileName) Profile {
	switch name {
	case config.ProfileLarge, config.ProfileTabular:
	default:
		name = config.ProfileStandard
	}
	p := s.cfg.Profile(name)
	return Profile{Name: name, ChunkSize: p.ChunkSize, ChunkOverlap: p.ChunkOverlap, TopK: p.TopK}
}

// chunkSource extracts and chunks the document in r. The cache only calls
// it on a miss, and it fails before any embedding when nothing usable
// comes out of the document.
func (s *Service) chunkSource(r io.ReaderAt, size int64, t extract.Type, p Profile) vectordb.ChunkSource {
	return func(ctx context.Context) (*vectordb.BuildInput, error) {
		res, err := s.extractor.Extract(ctx, r, size, t)
		if err != nil {
			return nil, err
		}
		splitter, err := chunker.NewSplitter(p.ChunkSize, p.ChunkOverlap)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.Name, err)
		}
		chunks, err := splitter.Chunks(res.Text)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("document chunked",
			zap.String("type", string(t)),
			zap.String("profile", string(p.Name)),
			zap.Int("units", res.Units),
			zap.Int("chunks", len(chunks)),
		)
		return &vectordb.BuildInput{
			Chunks:       chunks,
			ChunkSize:    p.ChunkSize,
			ChunkOverlap: p.ChunkOverlap,
			TextLength:   utf8.RuneCountInString(res.Text),
		}, nil
	}
}

// Documents lists stored documents; an empty owner lists all.
func (s *Service) Documents(ctx context.Context, owner string) ([]documents.Document, error) {
	return s.docs.List(ctx, owner)
}

// Document returns one stored document.
func (s *Service) Document(ctx context.Context, id string) (*documents.Document, error) {
	return s.docs.Get(ctx, id)
}

// History returns the full conversation of a user about a document.
func (s *Service) History(ctx context.Context, userID, documentID string) ([]history.Turn, error) {
	if _, err := s.docs.Get(ctx, documentID); err != nil {
		return nil, err
	}
	return s.history.List(ctx, userOrAnonymous(userID), documentID)
}

// ClearHistory forgets a user's conversation about a document.
func (s *Service) ClearHistory(ctx context.Context, userID, documentID string) (int64, error) {
	return s.history.Clear(ctx, userOrAnonymous(userID), documentID)
}

// Delete removes a document record, its conversation turns, its stored
// bytes and its cached index.
func (s *Service) Delete(ctx context.Context, id string) error {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Remove(doc.ID, doc.Type); err != nil {
		s.logger.Warn("removing document bytes", zap.String("document", id), zap.Error(err))
	}
	if err := s.cache.Remove(doc.ID); err != nil {
		s.logger.Warn("removing cached index", zap.String("document", id), zap.Error(err))
	}
	s.logger.Info("document deleted", zap.String("document", id), zap.String("name", doc.Name))
	return nil
}

func userOrAnonymous(id string) string {
	if id == "" {
		return anonymousUser
	}
	return id
}
