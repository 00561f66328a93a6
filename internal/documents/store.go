package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ziadkadry99/docqa/internal/db"
	"github.com/ziadkadry99/docqa/internal/extract"
)

// ErrNotFound is returned when no document has the requested id.
var ErrNotFound = errors.New("document not found")

// Document is an uploaded file, identified by the SHA-256 of its bytes.
type Document struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Type       extract.Type `json:"type"`
	Size       int64        `json:"size"`
	TextLength int          `json:"text_length"`
	Chunks     int          `json:"chunks"`
	Profile    string       `json:"profile"`
	OwnerID    string       `json:"owner_id,omitempty"`
	Subject    string       `json:"subject,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Store provides CRUD operations for document records.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Save inserts doc or, when its hash is already known, refreshes the
// descriptive fields. CreatedAt of an existing record is kept.
func (s *Store) Save(ctx context.Context, doc Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, name, type, size, text_length, chunks, profile, owner_id, subject, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			text_length = excluded.text_length,
			chunks = excluded.chunks,
			profile = excluded.profile,
			owner_id = excluded.owner_id,
			subject = excluded.subject`,
		doc.ID, doc.Name, string(doc.Type), doc.Size, doc.TextLength, doc.Chunks, doc.Profile,
		doc.OwnerID, doc.Subject, doc.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// Get retrieves a document by id.
func (s *Store) Get(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, size, text_length, chunks, profile, owner_id, subject, created_at
		FROM documents WHERE id = ?`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return doc, nil
}

// List returns documents newest first. An empty owner lists everything.
func (s *Store) List(ctx context.Context, owner string) ([]Document, error) {
	query := "SELECT id, name, type, size, text_length, chunks, profile, owner_id, subject, created_at FROM documents"
	var args []any
	if owner != "" {
		query += " WHERE owner_id = ?"
		args = append(args, owner)
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// Delete removes a document and its conversation turns.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM conversation_turns WHERE document_id = ?", id); err != nil {
		return fmt.Errorf("deleting conversation turns: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc scanner) (*Document, error) {
	var (
		doc     Document
		docType string
		created string
	)
	err := sc.Scan(&doc.ID, &doc.Name, &docType, &doc.Size, &doc.TextLength, &doc.Chunks,
		&doc.Profile, &doc.OwnerID, &doc.Subject, &created)
	if err != nil {
		return nil, err
	}
	doc.Type = extract.Type(docType)
	doc.CreatedAt = parseTime(created)
	return &doc, nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.DateTime} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
