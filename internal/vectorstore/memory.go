package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is a brute-force cosine-similarity implementation of VectorIndex.
// It backs tests and local development where no Qdrant server is available.
type MemoryStore struct {
	mu     sync.RWMutex
	points map[string]Point // keyed by point ID
}

// NewMemoryStore creates an empty in-memory vector index.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{points: make(map[string]Point)}
}

// Upsert inserts or updates points. The collection name is ignored; the store
// holds a single collection.
func (s *MemoryStore) Upsert(_ context.Context, _ string, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		if p.ID == "" {
			return fmt.Errorf("point with empty ID")
		}
		s.points[p.ID] = p
	}
	return nil
}

// Search returns up to k points of the given document ranked by cosine similarity.
func (s *MemoryStore) Search(_ context.Context, _ string, query []float32, k int, documentID string) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]SearchResult, 0, len(s.points))
	for _, p := range s.points {
		if docID, _ := p.Meta[metaDocumentID].(string); docID != documentID {
			continue
		}
		results = append(results, SearchResult{
			PointID: p.ID,
			Score:   cosine(query, p.Vec),
			Meta:    p.Meta,
		})
	}

	// Ties must resolve before the cut to k, or the boundary selection would
	// fall back to map iteration order. Equal scores prefer the earlier chunk.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		ci, cj := metaChunkIndex(results[i].Meta), metaChunkIndex(results[j].Meta)
		if ci != cj {
			return ci < cj
		}
		return results[i].PointID < results[j].PointID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// metaChunkIndex reads the chunk_index payload value, tolerating the numeric
// types different writers produce.
func metaChunkIndex(meta map[string]any) int {
	switch v := meta["chunk_index"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Delete removes points by their IDs.
func (s *MemoryStore) Delete(_ context.Context, _ string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.points, id)
	}
	return nil
}

// ListIDs returns the IDs of all points belonging to a document.
func (s *MemoryStore) ListIDs(_ context.Context, _ string, documentID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, p := range s.points {
		if docID, _ := p.Meta[metaDocumentID].(string); docID == documentID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Count returns the number of points belonging to a document.
func (s *MemoryStore) Count(_ context.Context, _ string, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.points {
		if docID, _ := p.Meta[metaDocumentID].(string); docID == documentID {
			count++
		}
	}
	return count, nil
}

// cosine computes the cosine similarity between two vectors.
func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
