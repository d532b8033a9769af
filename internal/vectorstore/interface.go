package vectorstore

import "context"

// Point represents a vector point with its payload.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a single match from a similarity search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// VectorIndex defines the vector storage operations the indexing and retrieval
// pipeline depends on. All operations that take a documentID are scoped to
// points whose payload document_id matches it.
type VectorIndex interface {
	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search performs a similarity search scoped to one document,
	// returning up to k results ranked by descending score.
	Search(ctx context.Context, collection string, query []float32, k int, documentID string) ([]SearchResult, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []string) error

	// ListIDs returns the IDs of all points belonging to a document.
	ListIDs(ctx context.Context, collection string, documentID string) ([]string, error)

	// Count returns the number of points belonging to a document.
	Count(ctx context.Context, collection string, documentID string) (int, error)
}
