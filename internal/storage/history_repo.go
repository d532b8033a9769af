package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_history_store.go -package=mocks docchat/internal/storage HistoryStore

import (
	"context"
	"database/sql"
	"fmt"
)

// HistoryStore defines the interface for conversation history operations.
// History is kept per document; each question/answer exchange appends two
// turns.
type HistoryStore interface {
	// Append adds a turn to a document's conversation history.
	Append(ctx context.Context, documentID, role, content string) error
	// List returns a document's turns in chronological order. A limit of 0
	// returns all turns; a positive limit returns the most recent ones.
	List(ctx context.Context, documentID string, limit int) ([]Turn, error)
	// Clear removes all turns for a document.
	Clear(ctx context.Context, documentID string) error
}

// HistoryRepo provides methods for conversation history operations.
// It implements the HistoryStore interface.
type HistoryRepo struct {
	db *sql.DB
}

// NewHistoryRepo creates a new HistoryRepo.
func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// Append adds a turn to a document's conversation history.
func (r *HistoryRepo) Append(ctx context.Context, documentID, role, content string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO turns (document_id, role, content) VALUES (?, ?, ?)",
		documentID, role, content,
	)
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}

	return nil
}

// List returns a document's turns in chronological order.
func (r *HistoryRepo) List(ctx context.Context, documentID string, limit int) ([]Turn, error) {
	query := `SELECT id, document_id, role, content, created_at FROM turns
		WHERE document_id = ? ORDER BY id`
	args := []any{documentID}

	if limit > 0 {
		// Take the most recent N turns, then flip back to chronological order.
		query = `SELECT id, document_id, role, content, created_at FROM (
			SELECT id, document_id, role, content, created_at FROM turns
			WHERE document_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var turn Turn
		var createdAtStr string
		if err := rows.Scan(&turn.ID, &turn.DocumentID, &turn.Role, &turn.Content, &createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turn.CreatedAt, err = parseTimestamp(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turns: %w", err)
	}

	return turns, nil
}

// Clear removes all turns for a document. Clearing a document with no
// history is not an error.
func (r *HistoryRepo) Clear(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM turns WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	return nil
}
