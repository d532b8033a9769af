package indexer

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"docchat/internal/storage"
	"docchat/internal/vectorstore"
)

type fakeEmbedder struct {
	calls      int
	batchSizes []int
	err        error
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls++
	f.batchSizes = append(f.batchSizes, len(texts))

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1, 0}
	}
	return out, nil
}

func newTestPipeline(t *testing.T, embedder Embedder, batchSize int) (*Pipeline, *vectorstore.MemoryStore, *storage.DocumentRepo) {
	t.Helper()

	db, err := storage.New(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("storage.Migrate() error = %v", err)
	}
	docRepo := storage.NewDocumentRepo(db)

	splitter, err := NewSplitter(10, 0)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}

	store := vectorstore.NewMemoryStore()
	pipeline := NewPipeline(splitter, embedder, store, "uploads", docRepo, "embed-model", batchSize)
	return pipeline, store, docRepo
}

func TestPipeline_IndexDocument(t *testing.T) {
	embedder := &fakeEmbedder{}
	pipeline, store, docRepo := newTestPipeline(t, embedder, 2)

	// 50 separator-free runes with chunk size 10 make exactly 5 chunks, so
	// batch size 2 means batches of 2, 2 and 1.
	doc := Document{
		ID:   "doc-1",
		Name: "digits.txt",
		Text: strings.Repeat("0123456789", 5),
	}

	var progress [][2]int
	count, err := pipeline.IndexDocument(context.Background(), doc, IndexOptions{
		Progress: ProgressFunc(func(completed, total int) {
			progress = append(progress, [2]int{completed, total})
		}),
	})
	if err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}

	if count != 5 {
		t.Errorf("IndexDocument() count = %d, want 5", count)
	}
	if !reflect.DeepEqual(embedder.batchSizes, []int{2, 2, 1}) {
		t.Errorf("embedder batch sizes = %v, want [2 2 1]", embedder.batchSizes)
	}
	if want := [][2]int{{1, 3}, {2, 3}, {3, 3}}; !reflect.DeepEqual(progress, want) {
		t.Errorf("progress events = %v, want %v", progress, want)
	}

	stored, err := store.Count(context.Background(), "uploads", "doc-1")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if stored != 5 {
		t.Errorf("stored chunk count = %d, want 5", stored)
	}

	record, err := docRepo.Get(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if record.Name != "digits.txt" || record.ChunkCount != 5 || record.EmbeddingModel != "embed-model" {
		t.Errorf("registry record = %+v, want name/chunks/model recorded", record)
	}
}

func TestPipeline_IndexDocument_PayloadCarriesChunkIdentity(t *testing.T) {
	pipeline, store, _ := newTestPipeline(t, &fakeEmbedder{}, 64)

	doc := Document{ID: "doc-1", Name: "a.txt", Text: "brief"}
	if _, err := pipeline.IndexDocument(context.Background(), doc, IndexOptions{}); err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}

	results, err := store.Search(context.Background(), "uploads", []float32{5, 1, 0}, 1, "doc-1")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search() returned %d results, want 1", len(results))
	}

	meta := results[0].Meta
	if meta["document_id"] != "doc-1" {
		t.Errorf("payload document_id = %v, want doc-1", meta["document_id"])
	}
	if meta["chunk_id"] != "doc-1_0" {
		t.Errorf("payload chunk_id = %v, want doc-1_0", meta["chunk_id"])
	}
	if meta["text"] != "brief" {
		t.Errorf("payload text = %v, want original chunk text", meta["text"])
	}
	if results[0].PointID != PointID("doc-1_0") {
		t.Errorf("point id = %v, want deterministic id for chunk", results[0].PointID)
	}
}

func TestPipeline_IndexDocument_SkipsAlreadyIndexed(t *testing.T) {
	embedder := &fakeEmbedder{}
	pipeline, _, _ := newTestPipeline(t, embedder, 64)

	doc := Document{ID: "doc-1", Name: "a.txt", Text: "some text"}
	if _, err := pipeline.IndexDocument(context.Background(), doc, IndexOptions{}); err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}
	callsAfterFirst := embedder.calls

	count, err := pipeline.IndexDocument(context.Background(), doc, IndexOptions{})
	if err != nil {
		t.Fatalf("IndexDocument() second call error = %v", err)
	}

	if count != 1 {
		t.Errorf("IndexDocument() skip count = %d, want existing count 1", count)
	}
	if embedder.calls != callsAfterFirst {
		t.Error("IndexDocument() re-embedded an already indexed document")
	}
}

func TestPipeline_IndexDocument_ForceReplacesOldChunks(t *testing.T) {
	pipeline, store, docRepo := newTestPipeline(t, &fakeEmbedder{}, 64)

	long := Document{ID: "doc-1", Name: "a.txt", Text: strings.Repeat("0123456789", 3)}
	if _, err := pipeline.IndexDocument(context.Background(), long, IndexOptions{}); err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}

	short := Document{ID: "doc-1", Name: "a.txt", Text: "tiny"}
	count, err := pipeline.IndexDocument(context.Background(), short, IndexOptions{Force: true})
	if err != nil {
		t.Fatalf("IndexDocument() force error = %v", err)
	}

	if count != 1 {
		t.Errorf("IndexDocument() force count = %d, want 1", count)
	}

	ids, err := store.ListIDs(context.Background(), "uploads", "doc-1")
	if err != nil {
		t.Fatalf("ListIDs() error = %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("store holds %d chunks after force re-index, want 1", len(ids))
	}

	record, err := docRepo.Get(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if record.ChunkCount != 1 {
		t.Errorf("registry chunk count = %d, want 1", record.ChunkCount)
	}
}

func TestPipeline_IndexDocument_EmptyDocument(t *testing.T) {
	pipeline, store, docRepo := newTestPipeline(t, &fakeEmbedder{}, 64)

	_, err := pipeline.IndexDocument(context.Background(), Document{ID: "doc-1", Text: "   \n  "}, IndexOptions{})

	var indexErr *IndexingError
	if !errors.As(err, &indexErr) {
		t.Fatalf("IndexDocument() error = %v, want *IndexingError", err)
	}
	if indexErr.Stage != "chunk" {
		t.Errorf("IndexingError stage = %q, want chunk", indexErr.Stage)
	}

	if count, _ := store.Count(context.Background(), "uploads", "doc-1"); count != 0 {
		t.Errorf("store count = %d, want untouched store", count)
	}
	if _, err := docRepo.Get(context.Background(), "doc-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("registry should have no record for a failed document")
	}
}

func TestPipeline_IndexDocument_EmbedFailureLeavesStoreUntouched(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("embedding service down")}
	pipeline, store, _ := newTestPipeline(t, embedder, 64)

	_, err := pipeline.IndexDocument(context.Background(), Document{ID: "doc-1", Text: "some text"}, IndexOptions{})

	var indexErr *IndexingError
	if !errors.As(err, &indexErr) {
		t.Fatalf("IndexDocument() error = %v, want *IndexingError", err)
	}
	if indexErr.Stage != "embed" {
		t.Errorf("IndexingError stage = %q, want embed", indexErr.Stage)
	}

	if count, _ := store.Count(context.Background(), "uploads", "doc-1"); count != 0 {
		t.Errorf("store count = %d, want 0 after embed failure", count)
	}
}

func TestPipeline_IndexDocument_DerivesIDFromContent(t *testing.T) {
	pipeline, _, docRepo := newTestPipeline(t, &fakeEmbedder{}, 64)

	text := "content without an id"
	if _, err := pipeline.IndexDocument(context.Background(), Document{Name: "a.txt", Text: text}, IndexOptions{}); err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}

	if _, err := docRepo.Get(context.Background(), DocumentID([]byte(text))); err != nil {
		t.Errorf("Get() by derived id error = %v", err)
	}
}

func TestPipeline_ClearDocument(t *testing.T) {
	pipeline, store, docRepo := newTestPipeline(t, &fakeEmbedder{}, 64)

	doc := Document{ID: "doc-1", Name: "a.txt", Text: "some text"}
	if _, err := pipeline.IndexDocument(context.Background(), doc, IndexOptions{}); err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}

	if err := pipeline.ClearDocument(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ClearDocument() error = %v", err)
	}

	if count, _ := store.Count(context.Background(), "uploads", "doc-1"); count != 0 {
		t.Errorf("store count = %d after clear, want 0", count)
	}
	if _, err := docRepo.Get(context.Background(), "doc-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("registry record should be gone after clear")
	}

	// Clearing an unknown document is a no-op.
	if err := pipeline.ClearDocument(context.Background(), "doc-unknown"); err != nil {
		t.Errorf("ClearDocument() on unknown document error = %v", err)
	}
}

func TestPointID(t *testing.T) {
	first := PointID("doc-1_0")
	second := PointID("doc-1_0")
	other := PointID("doc-1_1")

	if first != second {
		t.Error("PointID() not deterministic for identical chunk ids")
	}
	if first == other {
		t.Error("PointID() collides for distinct chunk ids")
	}
	if len(first) != 36 {
		t.Errorf("PointID() length = %d, want canonical UUID form", len(first))
	}
}
