package documents

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/docqa/internal/db"
	"github.com/ziadkadry99/docqa/internal/extract"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestSaveAndGet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	doc := Document{
		ID: "abc", Name: "biology.pdf", Type: extract.TypePDF, Size: 1024,
		TextLength: 900, Chunks: 1, Profile: "standard", OwnerID: "alice", Subject: "bio",
		CreatedAt: created,
	}
	require.NoError(t, store.Save(ctx, doc))

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, doc, *got)
}

func TestSaveUpsertKeepsCreatedAt(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, Document{ID: "abc", Name: "a.txt", Type: extract.TypeTXT, CreatedAt: first}))
	require.NoError(t, store.Save(ctx, Document{ID: "abc", Name: "renamed.txt", Type: extract.TypeTXT, Subject: "history"}))

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "renamed.txt", got.Name)
	assert.Equal(t, "history", got.Subject)
	assert.True(t, got.CreatedAt.Equal(first))
}

func TestGetNotFound(t *testing.T) {
	_, err := setupStore(t).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListByOwner(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, Document{ID: "1", Name: "a", Type: extract.TypeTXT, OwnerID: "alice", CreatedAt: base}))
	require.NoError(t, store.Save(ctx, Document{ID: "2", Name: "b", Type: extract.TypeTXT, OwnerID: "bob", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, store.Save(ctx, Document{ID: "3", Name: "c", Type: extract.TypeTXT, OwnerID: "alice", CreatedAt: base.Add(2 * time.Hour)}))

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "3", all[0].ID)

	alice, err := store.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice, 2)
	assert.Equal(t, []string{"3", "1"}, []string{alice[0].ID, alice[1].ID})
}

func TestDeleteCascadesTurns(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Document{ID: "abc", Name: "a", Type: extract.TypeTXT}))
	_, err := store.db.ExecContext(ctx, `INSERT INTO conversation_turns (id, user_id, document_id, question, answer, seq)
		VALUES ('t1', 'u', 'abc', 'q', 'a', 1)`)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "abc"))

	var n int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM conversation_turns").Scan(&n))
	assert.Zero(t, n)
	assert.ErrorIs(t, store.Delete(ctx, "abc"), ErrNotFound)
}

func TestBlobs(t *testing.T) {
	blobs, err := NewBlobs(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, blobs.Put("abc", extract.TypeTXT, strings.NewReader("hello")))
	// Same hash, same content: the second write is skipped.
	require.NoError(t, blobs.Put("abc", extract.TypeTXT, strings.NewReader("ignored")))

	f, err := blobs.Open("abc", extract.TypeTXT)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	f.Close()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, blobs.Remove("abc", extract.TypeTXT))
	require.NoError(t, blobs.Remove("abc", extract.TypeTXT))
	_, err = os.Stat(blobs.Path("abc", extract.TypeTXT))
	assert.True(t, os.IsNotExist(err))

	_, err = blobs.Open("abc", extract.TypeTXT)
	assert.ErrorIs(t, err, ErrNotFound)
}
