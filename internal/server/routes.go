package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ziadkadry99/docqa/internal/chunker"
	"github.com/ziadkadry99/docqa/internal/extract"
	"github.com/ziadkadry99/docqa/internal/qa"
	"github.com/ziadkadry99/docqa/internal/studyaids"
)

// multipartMemory is how much of a multipart form is held in memory
// before spilling to temporary files.
const multipartMemory = 32 << 20

type askBody struct {
	UserID   string `json:"user_id"`
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

type flashcardsBody struct {
	Count int `json:"count"`
}

type summaryBody struct {
	SummaryType string `json:"summary_type"`
	Format      string `json:"format"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, ok := s.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	res, err := s.svc.Ingest(r.Context(), qa.Upload{
		Name:    header.Filename,
		Content: file,
		Size:    header.Size,
		OwnerID: r.FormValue("owner_id"),
		Subject: r.FormValue("subject"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.svc.Documents(r.Context(), r.URL.Query().Get("owner_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.Document(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var body askBody
	if !decodeBody(w, r, &body) {
		return
	}
	resp, err := s.svc.Ask(r.Context(), qa.AskRequest{
		DocumentID: chi.URLParam(r, "id"),
		UserID:     body.UserID,
		Question:   body.Question,
		TopK:       body.TopK,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	hits, err := s.svc.Search(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("q"), queryInt(r, "k", 0))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	turns, err := s.svc.History(r.Context(), r.URL.Query().Get("user_id"), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turns)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.ClearHistory(r.Context(), r.URL.Query().Get("user_id"), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (s *Server) handleFlashcards(w http.ResponseWriter, r *http.Request) {
	var body flashcardsBody
	if !decodeBody(w, r, &body) {
		return
	}
	cards, err := s.svc.Flashcards(r.Context(), chi.URLParam(r, "id"), body.Count)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"flashcards": cards})
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var body studyaids.QuizOptions
	if !decodeBody(w, r, &body) {
		return
	}
	questions, err := s.svc.Quiz(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func (s *Server) handleDocumentSummary(w http.ResponseWriter, r *http.Request) {
	var body summaryBody
	if !decodeBody(w, r, &body) {
		return
	}
	sum, err := s.svc.Summarize(r.Context(), chi.URLParam(r, "id"), studyaids.ParseSummaryKind(body.SummaryType))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSummary(w, sum, body.Format)
}

// handleSummarize summarizes an uploaded file or a text form field
// without storing anything.
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.bodyLimit())
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.writeError(w, err)
		return
	}

	text := r.FormValue("text")
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		text, err = s.svc.Extract(r.Context(), qa.Upload{Name: header.Filename, Content: file, Size: header.Size})
		if err != nil {
			s.writeError(w, err)
			return
		}
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		s.writeError(w, err)
		return
	}
	if strings.TrimSpace(text) == "" {
		writeMessage(w, http.StatusBadRequest, "a file or text field is required")
		return
	}

	sum, err := s.svc.SummarizeText(r.Context(), text, studyaids.ParseSummaryKind(r.FormValue("summary_type")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSummary(w, sum, r.FormValue("format"))
}

type summaryResponse struct {
	*studyaids.Summary
	Format string `json:"format"`
}

func (s *Server) writeSummary(w http.ResponseWriter, sum *studyaids.Summary, format string) {
	resp := summaryResponse{Summary: sum, Format: "markdown"}
	if format == "html" && !sum.Failed {
		html, err := renderMarkdown(sum.Text)
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp.Summary = &studyaids.Summary{Kind: sum.Kind, Text: html}
		resp.Format = "html"
	}
	writeJSON(w, http.StatusOK, resp)
}

// formFile parses a multipart upload and returns its "file" part.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.bodyLimit())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.writeError(w, err)
		return nil, nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return nil, nil, false
	}
	return file, header, true
}

// bodyLimit leaves room above the file limit for the multipart envelope
// so oversized files reach the service and get its error.
func (s *Server) bodyLimit() int64 {
	if s.cfg.MaxUploadBytes <= 0 {
		return 1 << 30
	}
	return s.cfg.MaxUploadBytes + 1<<20
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeMessage(w, status, err.Error())
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	var extractErr *extract.Error
	switch {
	case errors.Is(err, qa.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, qa.ErrTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, qa.ErrEmptyQuestion), errors.Is(err, studyaids.ErrTooShort):
		return http.StatusBadRequest
	case errors.As(err, &extractErr):
		if extractErr.Kind == extract.KindUnsupported {
			return http.StatusUnsupportedMediaType
		}
		return http.StatusUnprocessableEntity
	case errors.Is(err, chunker.ErrNoChunks):
		return http.StatusUnprocessableEntity
	case errors.Is(err, studyaids.ErrNoItems):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	// A chunked request has no length up front; an empty one decodes to EOF.
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
