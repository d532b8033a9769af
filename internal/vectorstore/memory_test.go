package vectorstore

import (
	"context"
	"testing"
)

func docPoint(id, docID string, idx int, vec []float32) Point {
	return Point{
		ID:  id,
		Vec: vec,
		Meta: map[string]any{
			"document_id": docID,
			"chunk_index": idx,
		},
	}
}

func TestMemoryStore_SearchScopedToDocument(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	points := []Point{
		docPoint("a-0", "doc-a", 0, []float32{1, 0, 0}),
		docPoint("a-1", "doc-a", 1, []float32{0.9, 0.1, 0}),
		docPoint("b-0", "doc-b", 0, []float32{1, 0, 0}),
	}
	if err := store.Upsert(ctx, "c", points); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	results, err := store.Search(ctx, "c", []float32{1, 0, 0}, 10, "doc-a")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	for _, r := range results {
		if docID, _ := r.Meta["document_id"].(string); docID != "doc-a" {
			t.Errorf("Search() returned point %s from document %s", r.PointID, docID)
		}
	}
	if results[0].PointID != "a-0" {
		t.Errorf("Search() top result = %s, want a-0", results[0].PointID)
	}
}

func TestMemoryStore_SearchBoundsK(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var points []Point
	for i := 0; i < 8; i++ {
		points = append(points, docPoint(string(rune('a'+i)), "doc", i, []float32{float32(i + 1), 1}))
	}
	if err := store.Upsert(ctx, "c", points); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	results, err := store.Search(ctx, "c", []float32{1, 0}, 3, "doc")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 3 {
		t.Errorf("Search() returned %d results, want 3", len(results))
	}

	if _, err := store.Search(ctx, "c", []float32{1, 0}, 0, "doc"); err == nil {
		t.Error("Search() with k=0 expected error, got nil")
	}
}

func TestMemoryStore_SearchTieBreaksOnChunkIndex(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// Identical vectors, point ids deliberately ordered against chunk order;
	// the cut to k must still keep the earliest chunks.
	var points []Point
	for i := 0; i < 5; i++ {
		id := string(rune('e' - i))
		points = append(points, docPoint(id, "doc", i, []float32{1, 0, 0}))
	}
	if err := store.Upsert(ctx, "c", points); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	results, err := store.Search(ctx, "c", []float32{1, 0, 0}, 2, "doc")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	for want, r := range results {
		if got := metaChunkIndex(r.Meta); got != want {
			t.Errorf("result %d chunk index = %d, want %d", want, got, want)
		}
	}
}

func TestMemoryStore_DeleteAndListIDs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	points := []Point{
		docPoint("a-0", "doc-a", 0, []float32{1, 0}),
		docPoint("a-1", "doc-a", 1, []float32{0, 1}),
		docPoint("b-0", "doc-b", 0, []float32{1, 1}),
	}
	if err := store.Upsert(ctx, "c", points); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	ids, err := store.ListIDs(ctx, "c", "doc-a")
	if err != nil {
		t.Fatalf("ListIDs() error = %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ListIDs() returned %d ids, want 2", len(ids))
	}

	if err := store.Delete(ctx, "c", ids); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	count, err := store.Count(ctx, "c", "doc-a")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() after delete = %d, want 0", count)
	}

	count, err = store.Count(ctx, "c", "doc-b")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() for doc-b = %d, want 1", count)
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosine(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("cosine(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
