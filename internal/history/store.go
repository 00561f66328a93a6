// Package history keeps the question and answer log of each user and
// document pair.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/docqa/internal/db"
)

// Turn is one answered question.
type Turn struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	DocumentID string    `json:"document_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store provides the conversation turn log.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Append records a turn. If turn.ID is empty a UUID is generated.
func (s *Store) Append(ctx context.Context, turn Turn) (*Turn, error) {
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_turns (id, user_id, document_id, question, answer, created_at, seq)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM conversation_turns))`,
		turn.ID, turn.UserID, turn.DocumentID, turn.Question, turn.Answer,
		turn.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("appending turn: %w", err)
	}
	return &turn, nil
}

// Recent returns at most n of the latest turns, oldest first. n <= 0
// returns nothing.
func (s *Store) Recent(ctx context.Context, userID, documentID string, n int) ([]Turn, error) {
	if n <= 0 {
		return nil, nil
	}
	turns, err := s.query(ctx, `
		SELECT id, user_id, document_id, question, answer, created_at FROM (
			SELECT * FROM conversation_turns
			WHERE user_id = ? AND document_id = ?
			ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`, userID, documentID, n)
	if err != nil {
		return nil, fmt.Errorf("loading recent turns: %w", err)
	}
	return turns, nil
}

// List returns every turn of the pair, oldest first.
func (s *Store) List(ctx context.Context, userID, documentID string) ([]Turn, error) {
	turns, err := s.query(ctx, `
		SELECT id, user_id, document_id, question, answer, created_at
		FROM conversation_turns
		WHERE user_id = ? AND document_id = ?
		ORDER BY seq ASC`, userID, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}
	return turns, nil
}

// Clear deletes the turns of the pair and returns how many were removed.
func (s *Store) Clear(ctx context.Context, userID, documentID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM conversation_turns WHERE user_id = ? AND document_id = ?", userID, documentID)
	if err != nil {
		return 0, fmt.Errorf("clearing turns: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			t       Turn
			created string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.DocumentID, &t.Question, &t.Answer, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			t.CreatedAt = ts
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// FormatTranscript renders turns as "Q: ...\nA: ...\n\n" blocks in the
// order given.
func FormatTranscript(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", t.Question, t.Answer)
	}
	return b.String()
}
