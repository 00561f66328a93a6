package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/docqa/internal/qa"
	"github.com/ziadkadry99/docqa/internal/qa/qatest"
	"github.com/ziadkadry99/docqa/internal/vectordb"
)

func TestResolveDocument(t *testing.T) {
	env := qatest.New(t, nil)
	ctx := context.Background()
	text := "Notes on enzymes and how they lower activation energy."
	res, err := env.Service.Ingest(ctx, qa.Upload{Name: "notes.txt", Content: strings.NewReader(text), Size: int64(len(text))})
	require.NoError(t, err)
	id := res.Document.ID

	got, err := resolveDocument(ctx, env.Service, strings.ToUpper(id[:12]))
	require.NoError(t, err)
	assert.Equal(t, id, got)

	got, err = resolveDocument(ctx, env.Service, id)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = resolveDocument(ctx, env.Service, "abc")
	assert.ErrorContains(t, err, "too short")

	missing := "0000"
	if strings.HasPrefix(id, missing) {
		missing = "ffff"
	}
	_, err = resolveDocument(ctx, env.Service, missing)
	assert.ErrorIs(t, err, qa.ErrNotFound)
}

func TestResolveEntry(t *testing.T) {
	entries := []vectordb.Entry{{Hash: "aa11"}, {Hash: "aa22"}, {Hash: "bb33"}}

	got, err := resolveEntry(entries, "BB")
	require.NoError(t, err)
	assert.Equal(t, "bb33", got)

	_, err = resolveEntry(entries, "aa")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = resolveEntry(entries, "cc")
	assert.ErrorContains(t, err, "no cached index")
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{200 * 1024 * 1024, "200.0 MB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, humanBytes(tt.n))
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short.pdf", truncate("short.pdf", 20))
	assert.Equal(t, ".../lecture.pdf", truncate("notes/2024/lecture.pdf", 15))
}
