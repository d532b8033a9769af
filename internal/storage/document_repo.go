package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks docchat/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// DocumentStore defines the interface for document registry operations.
type DocumentStore interface {
	// Get fetches a document record by id. Returns nil and ErrNotFound if
	// the document has not been indexed.
	Get(ctx context.Context, id string) (*DocumentRecord, error)
	// List returns all document records, most recently indexed first.
	List(ctx context.Context) ([]DocumentRecord, error)
	// Upsert inserts a new document record or updates an existing one.
	Upsert(ctx context.Context, doc *DocumentRecord) error
	// Delete removes a document record. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
}

// DocumentRepo provides methods for document registry operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Get fetches a document record by id.
func (r *DocumentRepo) Get(ctx context.Context, id string) (*DocumentRecord, error) {
	var doc DocumentRecord
	var indexedAtStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, chunk_count, embedding_model, indexed_at FROM documents WHERE id = ?",
		id,
	).Scan(&doc.ID, &doc.Name, &doc.ChunkCount, &doc.EmbeddingModel, &indexedAtStr)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	doc.IndexedAt, err = parseTimestamp(indexedAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse indexed_at timestamp: %w", err)
	}

	return &doc, nil
}

// List returns all document records, most recently indexed first.
func (r *DocumentRepo) List(ctx context.Context) ([]DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, chunk_count, embedding_model, indexed_at FROM documents ORDER BY indexed_at DESC, id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []DocumentRecord
	for rows.Next() {
		var doc DocumentRecord
		var indexedAtStr string
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.ChunkCount, &doc.EmbeddingModel, &indexedAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.IndexedAt, err = parseTimestamp(indexedAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse indexed_at timestamp: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

// Upsert inserts a new document record or updates an existing one.
// Re-indexing the same id refreshes name, chunk count, model and timestamp.
func (r *DocumentRepo) Upsert(ctx context.Context, doc *DocumentRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (id, name, chunk_count, embedding_model, indexed_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (id) DO UPDATE SET
		 name = excluded.name, chunk_count = excluded.chunk_count,
		 embedding_model = excluded.embedding_model, indexed_at = CURRENT_TIMESTAMP`,
		doc.ID, doc.Name, doc.ChunkCount, doc.EmbeddingModel,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	return nil
}

// Delete removes a document record and, via the foreign key cascade, its
// conversation turns.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
