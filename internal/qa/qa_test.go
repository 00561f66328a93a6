package qa_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/docqa/internal/answer"
	"github.com/ziadkadry99/docqa/internal/config"
	"github.com/ziadkadry99/docqa/internal/extract"
	"github.com/ziadkadry99/docqa/internal/extract/extracttest"
	"github.com/ziadkadry99/docqa/internal/qa"
	"github.com/ziadkadry99/docqa/internal/qa/qatest"
	"github.com/ziadkadry99/docqa/internal/studyaids"
	"github.com/ziadkadry99/docqa/internal/vectordb"
)

func pdfUpload(data []byte) qa.Upload {
	return qa.Upload{Name: "lecture.pdf", Content: bytes.NewReader(data), Size: int64(len(data)), OwnerID: "alice"}
}

var threePages = extracttest.PDF(
	"Cell biology introduces the cell.",
	"Mitochondria produce ATP for the cell.",
	"Review questions follow.",
)

func TestIngestAndAskPDF(t *testing.T) {
	env := qatest.New(t, nil)
	ctx := context.Background()

	res, err := env.Service.Ingest(ctx, pdfUpload(threePages))
	require.NoError(t, err)
	assert.Equal(t, vectordb.SourceBuilt, res.Source)
	assert.Equal(t, vectordb.HashBytes(threePages), res.Document.ID)
	assert.Equal(t, extract.TypePDF, res.Document.Type)
	assert.Equal(t, "lecture.pdf", res.Document.Name)
	assert.Equal(t, 1, res.Document.Chunks)
	assert.Equal(t, config.ProfileStandard, res.Profile.Name)

	resp, err := env.Service.Ask(ctx, qa.AskRequest{DocumentID: res.Document.ID, UserID: "alice", Question: "What produces ATP?"})
	require.NoError(t, err)
	assert.False(t, resp.Failed)
	assert.Equal(t, qatest.DefaultAnswer, resp.Answer)
	assert.Equal(t, "What produces ATP?", resp.Question)
	assert.Contains(t, env.Provider.LastPrompt(), "Mitochondria produce ATP for the cell.")
	assert.Contains(t, env.Provider.LastPrompt(), "Question:\nWhat produces ATP?")

	turns, err := env.Service.History(ctx, "alice", res.Document.ID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, qatest.DefaultAnswer, turns[0].Answer)
}

func TestIngestReusesCachedIndex(t *testing.T) {
	env := qatest.New(t, nil)
	ctx := context.Background()

	_, err := env.Service.Ingest(ctx, pdfUpload(threePages))
	require.NoError(t, err)
	calls := env.Embedder.Calls()

	res, err := env.Service.Ingest(ctx, pdfUpload(threePages))
	require.NoError(t, err)
	assert.Equal(t, vectordb.SourceMemory, res.Source)
	assert.Equal(t, calls, env.Embedder.Calls())

	// A new process over the same data directory loads from disk.
	fresh := env.Restart(t)
	res, err = fresh.Service.Ingest(ctx, pdfUpload(threePages))
	require.NoError(t, err)
	assert.Equal(t, vectordb.SourceDisk, res.Source)
	assert.Equal(t, calls, env.Embedder.Calls())
}

func TestAskNotInContext(t *testing.T) {
	env := qatest.New(t, nil)
	env.Provider.Reply(answer.NotInContext)
	ctx := context.Background()

	res, err := env.Service.Ingest(ctx, pdfUpload(threePages))
	require.NoError(t, err)

	resp, err := env.Service.Ask(ctx, qa.AskRequest{DocumentID: res.Document.ID, Question: "Who won the 1998 World Cup?"})
	require.NoError(t, err)
	assert.Equal(t, "answer is not available in the context.", resp.Answer)
}

func TestIngestEmptyPDFFailsBeforeEmbedding(t *testing.T) {
	env := qatest.New(t, nil)
	ctx := context.Background()

	_, err := env.Service.Ingest(ctx, pdfUpload(extracttest.PDF("", "")))
	require.Error(t, err)
	assert.True(t, extract.IsKind(err, extract.KindEmpty), "got %v", err)
	assert.Zero(t, env.Embedder.Calls())

	docs, err := env.Service.Documents(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, docs)

	entries, err := env.Cache.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIngestTooLarge(t *testing.T) {
	env := qatest.New(t, func(c *config.Config) { c.Limits.MaxUploadBytes = 10 })
	_, err := env.Service.Ingest(context.Background(), pdfUpload(threePages))
	assert.ErrorIs(t, err, qa.ErrTooLarge)
	assert.Zero(t, env.Embedder.Calls())
}

func TestIngestUnsupportedType(t *testing.T) {
	env := qatest.New(t, nil)
	data := []byte{0x00, 0x01, 0x02, 0x03}
	_, err := env.Service.Ingest(context.Background(), qa.Upload{Name: "blob.bin", Content: bytes.NewReader(data), Size: 4})
	assert.True(t, extract.IsKind(err, extract.KindUnsupported), "got %v", err)
}

func TestAskUsesBoundedHistory(t *testing.T) {
	env := qatest.New(t, func(c *config.Config) { c.Answer.HistoryTurns = 2 })
	ctx := context.Background()

	res, err := env.Service.Ingest(ctx, pdfUpload(threePages))
	require.NoError(t, err)

	for _, q := range []string{"first?", "second?", "third?"} {
		_, err := env.Service.Ask(ctx, qa.AskRequest{DocumentID: res.Document.ID, UserID: "bob", Question: q})
		require.NoError(t, err)
	}

	prompt := env.Provider.LastPrompt()
	assert.Contains(t, prompt, "Previous conversation:\nQ: first?\nA: Mitochondria make ATP.\n\nQ: second?")
	assert.NotContains(t, strings.SplitN(prompt, "Context:", 2)[0], "third?")

	_, err = env.Service.Ask(ctx, qa.AskRequest{DocumentID: res.Document.ID, UserID: "bob", Question: "fourth?"})
	require.NoError(t, err)
	assert.NotContains(t, env.Provider.LastPrompt(), "Q: first?")

	// Other users do not share the conversation.
	_, err = env.Service.Ask(ctx, qa.AskRequest{DocumentID: res.Document.ID, UserID: "carol", Question: "hello?"})
	require.NoError(t, err)
	assert.NotContains(t, env.Provider.LastPrompt(), "Previous conversation:")
}

func TestAskGenerationFailureIsNotRecorded(t *testing.T) {
	env := qatest.New(t, nil)
	ctx := context.Background()

	res, err := env.Service.Ingest(ctx, pdfUpload(threePages))
	require.NoError(t, err)

	env.Provider.Fail(errors.New("upstream unavailable"))
	resp, err := env.Service.Ask(ctx, qa.AskRequest{DocumentID: res.Document.ID, UserID: "alice", Question: "What produces ATP?"})
	require.NoError(t, err)
	assert.True(t, resp.Failed)
	assert.Equal(t, "Error processing your question: upstream unavailable", resp.Answer)

	turns, err := env.Service.History(ctx, "alice", res.Document.ID)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestAskValidation(t *testing.T) {
	env := qatest.New(t, nil)
	ctx := context.Background()

	_, err := env.Service.Ask(ctx, qa.AskRequest{DocumentID: "x", Question: "   "})
	assert.ErrorIs(t, err, qa.ErrEmptyQuestion)

	_, err = env.Service.Ask(ctx, qa.AskRequest{DocumentID: "missing", Question: "q"})
	assert.ErrorIs(t, err, qa.ErrNotFound)
}

func TestAskRebuildsRemovedIndex(t *testing.T) {
	env := qatest.New(t, nil)
	ctx := context.Background()

	res, err := env.Service.Ingest(ctx, pdfUpload(threePages))
	require.NoError(t, err)
	require.NoError(t, env.Cache.Remove(res.Document.ID))
	before := env.Embedder.Calls()

	resp, err := env.Service.Ask(ctx, qa.AskRequest{DocumentID: res.Document.ID, Question: "What produces ATP?"})
	require.NoError(t, err)
	assert.False(t, resp.Failed)
	// One chunk rebuilt plus the query.
	assert.Equal(t, before+2, env.Embedder.Calls())
}

func TestAskWithoutStoredBytesUsesCachedIndex(t *testing.T) {
	env := qatest.New(t, nil)
	ctx := context.Background()

	res, err := env.Service.Ingest(ctx, pdfUpload(threePages))
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(env.Config.UploadsDir(), res.Document.ID+".pdf")))

	resp, err := env.Service.Ask(ctx, qa.AskRequest{DocumentID: res.Document.ID, Question: "What produces ATP?"})
	require.NoError(t, err)
	assert.False(t, resp.Failed, resp.Answer)

	// Without the index the bytes are needed again.
	require.NoError(t, env.Cache.Remove(res.Document.ID))
	_, err = env.Service.Search(ctx, res.Document.ID, "ATP", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document bytes")
}

func TestSearchReturnsClosestChunks(t *testing.T) {
	env := qatest.New(t, func(c *config.Config) {
		c.Chunking.Standard = config.ChunkProfile{ChunkSize: 40, ChunkOverlap: 0, TopK: 2}
	})
	ctx := context.Background()

	text := "zzzz zzzz zzzz zzzz\n\nmitochondria produce energy\n\nqqqq qqqq qqqq qqqq"
	res, err := env.Service.Ingest(ctx, qa.Upload{Name: "notes.txt", Content: strings.NewReader(text), Size: int64(len(text))})
	require.NoError(t, err)
	require.Equal(t, 3, res.Document.Chunks)

	hits, err := env.Service.Search(ctx, res.Document.ID, "mitochondria energy", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "mitochondria produce energy", hits[0].Text)

	hits, err = env.Service.Search(ctx, res.Document.ID, "mitochondria", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestDeleteRemovesEverything(t *testing.T) {
	env := qatest.New(t, nil)
	ctx := context.Background()

	res, err := env.Service.Ingest(ctx, pdfUpload(threePages))
	require.NoError(t, err)
	_, err = env.Service.Ask(ctx, qa.AskRequest{DocumentID: res.Document.ID, UserID: "alice", Question: "q?"})
	require.NoError(t, err)

	require.NoError(t, env.Service.Delete(ctx, res.Document.ID))

	_, err = env.Service.Document(ctx, res.Document.ID)
	assert.ErrorIs(t, err, qa.ErrNotFound)
	entries, err := env.Cache.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
	_, err = os.Stat(filepath.Join(env.Config.UploadsDir(), res.Document.ID+".pdf"))
	assert.True(t, os.IsNotExist(err))

	var n int
	require.NoError(t, env.DB.QueryRow("SELECT COUNT(*) FROM conversation_turns").Scan(&n))
	assert.Zero(t, n)

	assert.ErrorIs(t, env.Service.Delete(ctx, res.Document.ID), qa.ErrNotFound)
}

func TestProfileFor(t *testing.T) {
	env := qatest.New(t, nil)

	assert.Equal(t, config.ProfileTabular, env.Service.ProfileFor(extract.TypeCSV, 10).Name)
	assert.Equal(t, config.ProfileTabular, env.Service.ProfileFor(extract.TypeXLSX, 10<<20).Name)
	assert.Equal(t, config.ProfileStandard, env.Service.ProfileFor(extract.TypePDF, 1<<20).Name)

	large := env.Service.ProfileFor(extract.TypePDF, env.Config.Limits.LargeDocumentBytes+1)
	assert.Equal(t, qa.Profile{Name: config.ProfileLarge, ChunkSize: 15000, ChunkOverlap: 2000, TopK: 6}, large)

	forced := qatest.New(t, func(c *config.Config) { c.Chunking.Profile = config.ProfileLarge })
	assert.Equal(t, config.ProfileLarge, forced.Service.ProfileFor(extract.TypeCSV, 10).Name)
}

func TestAskFile(t *testing.T) {
	env := qatest.New(t, nil)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("The Krebs cycle happens in the mitochondrial matrix."), 0o644))

	resp, err := env.Service.AskFile(context.Background(), path, "Where is the Krebs cycle?", "Q: earlier?\nA: yes\n\n")
	require.NoError(t, err)
	assert.Equal(t, qatest.DefaultAnswer, resp.Answer)
	assert.Contains(t, env.Provider.LastPrompt(), "mitochondrial matrix")
	assert.Contains(t, env.Provider.LastPrompt(), "Previous conversation:\nQ: earlier?")

	docs, err := env.Service.Documents(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestStudyAidsFromStoredDocument(t *testing.T) {
	env := qatest.New(t, nil)
	ctx := context.Background()

	text := strings.Repeat("Glycolysis splits glucose into pyruvate in the cytoplasm. ", 4)
	res, err := env.Service.Ingest(ctx, qa.Upload{Name: "notes.txt", Content: strings.NewReader(text), Size: int64(len(text))})
	require.NoError(t, err)

	env.Provider.Reply(`[{"front": "Glycolysis", "back": "Glucose to pyruvate."}]`)
	cards, err := env.Service.Flashcards(ctx, res.Document.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, []studyaids.Flashcard{{Front: "Glycolysis", Back: "Glucose to pyruvate."}}, cards)
	assert.Contains(t, env.Provider.LastPrompt(), "Glycolysis splits glucose")

	env.Provider.Reply("Glucose becomes pyruvate.")
	sum, err := env.Service.Summarize(ctx, res.Document.ID, studyaids.SummaryConcise)
	require.NoError(t, err)
	assert.Equal(t, "Glucose becomes pyruvate.", sum.Text)

	env.Provider.Reply(`[{"question": "Where?", "options": ["Cytoplasm", "Nucleus", "Membrane", "Wall"], "correct_answer": 0}]`)
	qs, err := env.Service.Quiz(ctx, res.Document.ID, studyaids.QuizOptions{Count: 1})
	require.NoError(t, err)
	assert.Len(t, qs, 1)

	_, err = env.Service.Flashcards(ctx, "missing", 5)
	assert.ErrorIs(t, err, qa.ErrNotFound)
}
