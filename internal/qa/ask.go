package qa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docqa/internal/documents"
	"github.com/ziadkadry99/docqa/internal/history"
	"github.com/ziadkadry99/docqa/internal/vectordb"
)

// AskRequest is a question about a stored document.
type AskRequest struct {
	DocumentID string `json:"document_id"`
	UserID     string `json:"user_id"`
	Question   string `json:"question"`
	// TopK overrides the document profile when positive.
	TopK int `json:"top_k,omitempty"`
}

// AskResponse always carries displayable text in Answer. Failed marks an
// error message rather than a model answer.
type AskResponse struct {
	Answer    string         `json:"answer"`
	Question  string         `json:"question"`
	Timestamp time.Time      `json:"timestamp"`
	Failed    bool           `json:"failed"`
	Hits      []vectordb.Hit `json:"-"`
}

// Ask answers a question about a stored document using the user's recent
// conversation about it. Only an unknown document or a blank question are
// returned as errors; pipeline failures become the answer text. The turn
// is recorded only when the model answered.
func (s *Service) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	doc, err := s.docs.Get(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}
	user := userOrAnonymous(req.UserID)
	log := s.logger.With(zap.String("document", doc.ID), zap.String("user", user))

	var transcript string
	if n := s.cfg.Answer.HistoryTurns; n > 0 {
		turns, err := s.history.Recent(ctx, user, doc.ID, n)
		if err != nil {
			log.Warn("answering without history", zap.Error(err))
		}
		transcript = history.FormatTranscript(turns)
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.profile(configProfile(doc.Profile)).TopK
	}

	resp := s.answer(ctx, question, topK, transcript, func(ctx context.Context) (*vectordb.Index, error) {
		return s.documentIndex(ctx, doc)
	})
	if !resp.Failed {
		if _, err := s.history.Append(ctx, history.Turn{
			UserID:     user,
			DocumentID: doc.ID,
			Question:   question,
			Answer:     resp.Answer,
			CreatedAt:  resp.Timestamp,
		}); err != nil {
			log.Warn("recording turn", zap.Error(err))
		}
	}
	return resp, nil
}

// AskFile answers a question about a file on disk without storing a
// document record. transcript is prior conversation in the
// history.FormatTranscript layout.
func (s *Service) AskFile(ctx context.Context, path, question, transcript string) (*AskResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	f, info, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	up := Upload{Name: path, Content: f, Size: info.Size()}
	hash, t, err := s.identify(up)
	if err != nil {
		return nil, err
	}
	profile := s.ProfileFor(t, up.Size)

	// Extraction and index errors surface here so the CLI can report them.
	ix, _, err := s.cache.GetOrBuild(ctx, hash, s.chunkSource(f, up.Size, t, profile))
	if err != nil {
		return nil, err
	}
	return s.answer(ctx, question, profile.TopK, transcript, func(context.Context) (*vectordb.Index, error) {
		return ix, nil
	}), nil
}

// Search returns the k chunks of a stored document closest to query.
func (s *Service) Search(ctx context.Context, documentID, query string, k int) ([]vectordb.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuestion
	}
	doc, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = s.profile(configProfile(doc.Profile)).TopK
	}
	ix, err := s.documentIndex(ctx, doc)
	if err != nil {
		return nil, err
	}
	vec, err := s.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, err
	}
	return ix.Search(ctx, vec, k)
}

func (s *Service) answer(ctx context.Context, question string, topK int, transcript string,
	index func(context.Context) (*vectordb.Index, error)) *AskResponse {
	resp := &AskResponse{Question: question, Timestamp: time.Now().UTC()}
	fail := func(stage string, err error) *AskResponse {
		s.logger.Warn("question failed", zap.String("stage", stage), zap.Error(err))
		resp.Answer = fmt.Sprintf("Error processing your question: %v", err)
		resp.Failed = true
		return resp
	}

	ix, err := index(ctx)
	if err != nil {
		return fail("index", err)
	}
	vec, err := s.embedder.EmbedOne(ctx, question)
	if err != nil {
		return fail("embed", err)
	}
	hits, err := ix.Search(ctx, vec, topK)
	if err != nil {
		return fail("search", err)
	}

	reply := s.answerer.Answer(ctx, question, hits, transcript)
	resp.Answer = reply.Text
	resp.Failed = !reply.OK()
	resp.Hits = hits
	return resp
}

// documentIndex returns the index of a stored document, rebuilding it from
// the stored bytes when the cache no longer has it. The bytes are only
// read on a rebuild.
func (s *Service) documentIndex(ctx context.Context, doc *documents.Document) (*vectordb.Index, error) {
	profile := s.profile(configProfile(doc.Profile))
	rebuild := func(ctx context.Context) (*vectordb.BuildInput, error) {
		f, err := s.blobs.Open(doc.ID, doc.Type)
		if err != nil {
			return nil, fmt.Errorf("document bytes: %w", err)
		}
		defer f.Close()
		return s.chunkSource(f, doc.Size, doc.Type, profile)(ctx)
	}

	ix, info, err := s.cache.GetOrBuild(ctx, doc.ID, rebuild)
	if err != nil {
		return nil, err
	}
	if info.Source == vectordb.SourceBuilt {
		s.logger.Info("rebuilt missing index", zap.String("document", doc.ID))
	}
	return ix, nil
}
