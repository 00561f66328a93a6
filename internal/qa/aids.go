package qa

import (
	"context"

	"github.com/ziadkadry99/docqa/internal/config"
	"github.com/ziadkadry99/docqa/internal/studyaids"
)

// Summarize summarizes a stored document.
func (s *Service) Summarize(ctx context.Context, documentID string, kind studyaids.SummaryKind) (*studyaids.Summary, error) {
	text, err := s.documentText(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return s.aids.Summarize(ctx, text, kind)
}

// SummarizeText summarizes raw text.
func (s *Service) SummarizeText(ctx context.Context, text string, kind studyaids.SummaryKind) (*studyaids.Summary, error) {
	return s.aids.Summarize(ctx, text, kind)
}

// Flashcards generates n study cards from a stored document.
func (s *Service) Flashcards(ctx context.Context, documentID string, n int) ([]studyaids.Flashcard, error) {
	text, err := s.documentText(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return s.aids.Flashcards(ctx, text, n)
}

// Quiz generates multiple-choice questions from a stored document.
func (s *Service) Quiz(ctx context.Context, documentID string, opts studyaids.QuizOptions) ([]studyaids.Question, error) {
	text, err := s.documentText(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return s.aids.Quiz(ctx, text, opts)
}

// documentText re-extracts the stored bytes of a document. Study aids work
// on the whole text rather than on retrieved chunks.
func (s *Service) documentText(ctx context.Context, documentID string) (string, error) {
	doc, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return "", err
	}
	f, err := s.blobs.Open(doc.ID, doc.Type)
	if err != nil {
		return "", err
	}
	defer f.Close()

	res, err := s.extractor.Extract(ctx, f, doc.Size, doc.Type)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func configProfile(name string) config.ProfileName {
	return config.ProfileName(name)
}
