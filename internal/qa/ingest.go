package qa

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docqa/internal/documents"
	"github.com/ziadkadry99/docqa/internal/extract"
	"github.com/ziadkadry99/docqa/internal/vectordb"
)

// Upload is a document handed to Ingest.
type Upload struct {
	Name    string
	Content io.ReaderAt
	Size    int64
	// Type is resolved from Name and the content when empty.
	Type    extract.Type
	OwnerID string
	Subject string
}

// IngestResult describes an ingested document.
type IngestResult struct {
	Document documents.Document `json:"document"`
	Profile  Profile            `json:"profile"`
	Source   vectordb.Source    `json:"index_source"`
	// Failed counts chunks that could only be indexed as zero vectors.
	Failed int `json:"failed_chunks"`
}

// Ingest stores an upload and makes sure its index exists. A document
// seen before, by content, reuses its cached index without extraction or
// embedding.
func (s *Service) Ingest(ctx context.Context, up Upload) (*IngestResult, error) {
	hash, t, err := s.identify(up)
	if err != nil {
		return nil, err
	}
	profile := s.ProfileFor(t, up.Size)
	log := s.logger.With(zap.String("document", hash), zap.String("name", up.Name))

	ix, info, err := s.cache.GetOrBuild(ctx, hash, s.chunkSource(up.Content, up.Size, t, profile))
	if err != nil {
		return nil, err
	}

	if err := s.blobs.Put(hash, t, io.NewSectionReader(up.Content, 0, up.Size)); err != nil {
		return nil, err
	}

	// Chunk counts come from the index, which may predate a profile change.
	m := ix.Manifest()
	if m.ChunkSize != profile.ChunkSize || m.ChunkOverlap != profile.ChunkOverlap {
		log.Info("reusing index built with different chunking",
			zap.Int("chunk_size", m.ChunkSize), zap.Int("chunk_overlap", m.ChunkOverlap))
	}

	doc := documents.Document{
		ID:         hash,
		Name:       filepath.Base(up.Name),
		Type:       t,
		Size:       up.Size,
		TextLength: m.TextLength,
		Chunks:     m.ChunkCount,
		Profile:    string(profile.Name),
		OwnerID:    up.OwnerID,
		Subject:    up.Subject,
	}
	if err := s.docs.Save(ctx, doc); err != nil {
		return nil, err
	}
	saved, err := s.docs.Get(ctx, hash)
	if err != nil {
		return nil, err
	}

	log.Info("document ingested",
		zap.String("source", string(info.Source)),
		zap.Int("chunks", m.ChunkCount),
		zap.Int("failed", info.Failed),
	)
	return &IngestResult{Document: *saved, Profile: profile, Source: info.Source, Failed: info.Failed}, nil
}

// IngestFile ingests a file from disk.
func (s *Service) IngestFile(ctx context.Context, path, owner, subject string) (*IngestResult, error) {
	f, info, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.Ingest(ctx, Upload{Name: path, Content: f, Size: info.Size(), OwnerID: owner, Subject: subject})
}

// Extract returns the text of an upload without indexing it.
func (s *Service) Extract(ctx context.Context, up Upload) (string, error) {
	_, t, err := s.identify(up)
	if err != nil {
		return "", err
	}
	res, err := s.extractor.Extract(ctx, up.Content, up.Size, t)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// identify enforces the size limit, hashes the content and resolves its type.
func (s *Service) identify(up Upload) (string, extract.Type, error) {
	if limit := s.cfg.Limits.MaxUploadBytes; limit > 0 && up.Size > limit {
		return "", "", fmt.Errorf("%w: %d bytes, limit is %d", ErrTooLarge, up.Size, limit)
	}

	hash, _, err := vectordb.HashReader(io.NewSectionReader(up.Content, 0, up.Size))
	if err != nil {
		return "", "", err
	}

	t := up.Type
	if t == "" {
		head := make([]byte, 3072)
		n, _ := up.Content.ReadAt(head, 0)
		if t, err = extract.DetectType(up.Name, head[:n]); err != nil {
			return "", "", err
		}
	}
	return hash, t, nil
}

func openFile(path string) (*os.File, os.FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("%s is a directory", path)
	}
	return f, info, nil
}
