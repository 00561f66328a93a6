package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/docqa/internal/llm"
	"github.com/ziadkadry99/docqa/internal/vectordb"
)

type fakeProvider struct {
	reqs    []llm.CompletionRequest
	content string
	err     error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.content, Model: "gemini-2.5-flash"}, nil
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("What is ATP?", []string{"first chunk", "second chunk"}, "")
	want := "Answer the question in a detailed manner from the provided context. Make sure to provide all the details. \n" +
		"If the answer is not in the provided context, then just say, \"answer is not available in the context.\" \n" +
		"Don't provide the wrong answer.\n" +
		"\nContext:\nfirst chunk\n\nsecond chunk\n\n" +
		"Question:\nWhat is ATP?\n\n" +
		"Answer:\n"
	assert.Equal(t, want, got)
}

func TestBuildPromptWithHistory(t *testing.T) {
	got := BuildPrompt("And then?", []string{"ctx"}, "Q: first?\nA: one\n\n")
	assert.Contains(t, got, "\nPrevious conversation:\nQ: first?\nA: one\n\n\n\nContext:\nctx")
	assert.Less(t, strings.Index(got, "Previous conversation:"), strings.Index(got, "Context:"))
}

func TestAnswerReturnsModelTextVerbatim(t *testing.T) {
	p := &fakeProvider{content: "  ATP stores energy.\n"}
	a := New(p, Options{Model: "gemini-2.5-flash"})

	reply := a.Answer(context.Background(), "What is ATP?", []vectordb.Hit{{Text: "ATP is the energy currency."}}, "")
	require.True(t, reply.OK())
	assert.Equal(t, "  ATP stores energy.\n", reply.Text)
	assert.Contains(t, reply.Prompt, "ATP is the energy currency.")

	require.Len(t, p.reqs, 1)
	assert.Equal(t, 0.3, p.reqs[0].Temperature)
	assert.Equal(t, "gemini-2.5-flash", p.reqs[0].Model)
	assert.Equal(t, reply.Prompt, p.reqs[0].Messages[0].Content)
}

func TestAnswerWithoutHitsSkipsModel(t *testing.T) {
	p := &fakeProvider{content: "unused"}
	reply := New(p, Options{}).Answer(context.Background(), "q", nil, "")

	assert.Equal(t, NoRelevantInfo, reply.Text)
	assert.True(t, reply.OK())
	assert.Empty(t, p.reqs)
}

func TestAnswerFailureBecomesText(t *testing.T) {
	p := &fakeProvider{err: errors.New("deadline exceeded")}
	reply := New(p, Options{}).Answer(context.Background(), "q", []vectordb.Hit{{Text: "c"}}, "")

	assert.False(t, reply.OK())
	assert.Equal(t, "Error processing your question: deadline exceeded", reply.Text)

	var genErr *GenerationError
	require.ErrorAs(t, reply.Err, &genErr)
	assert.EqualError(t, genErr.Err, "deadline exceeded")
}
