package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"docchat/internal/contextutil"
	"docchat/internal/storage"
	"docchat/internal/vectorstore"
)

// Embedder generates embedding vectors for texts. This interface is defined
// from the pipeline's perspective (consumer-first).
type Embedder interface {
	// EmbedTexts returns one vector per input text, in input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// IndexOptions controls a single IndexDocument call.
type IndexOptions struct {
	// Force re-indexes even when the document already has indexed chunks.
	Force bool
	// Progress, if non-nil, is notified after each embedding batch.
	Progress ProgressObserver
}

// Pipeline orchestrates chunking, batched embedding and vector storage for
// one document at a time. Callers must serialize IndexDocument calls for the
// same document id; the delete-then-insert replace step is not locked.
type Pipeline struct {
	splitter       *Splitter
	embedder       Embedder
	index          vectorstore.VectorIndex
	collection     string
	docRepo        storage.DocumentStore
	embeddingModel string
	batchSize      int
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(
	splitter *Splitter,
	embedder Embedder,
	index vectorstore.VectorIndex,
	collection string,
	docRepo storage.DocumentStore,
	embeddingModel string,
	batchSize int,
) *Pipeline {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &Pipeline{
		splitter:       splitter,
		embedder:       embedder,
		index:          index,
		collection:     collection,
		docRepo:        docRepo,
		embeddingModel: embeddingModel,
		batchSize:      batchSize,
	}
}

// PointID derives the vector store point id for a chunk. Qdrant point ids
// must be UUIDs, so the logical chunk id maps to a deterministic name-based
// UUID; re-indexing identical content yields identical point ids.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

// IndexDocument chunks, embeds and stores a document, replacing any
// previously indexed chunks for the same document id. Returns the number of
// chunks indexed.
//
// When the store already reports chunks for this document and Force is not
// set, the call is a no-op returning the existing count. Embedding happens in
// sequential batches; a failure at any stage leaves the store either
// untouched or still holding the previous chunk set.
func (p *Pipeline) IndexDocument(ctx context.Context, doc Document, opts IndexOptions) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if doc.ID == "" {
		doc.ID = DocumentID([]byte(doc.Text))
	}

	if !opts.Force {
		count, err := p.index.Count(ctx, p.collection, doc.ID)
		if err != nil {
			logger.WarnContext(ctx, "failed to check existing chunk count", "document_id", doc.ID, "error", err)
		} else if count > 0 {
			logger.InfoContext(ctx, "document already indexed, skipping", "document_id", doc.ID, "chunks", count)
			return count, nil
		}
	}

	chunks := p.splitter.Split(doc.Text)
	if len(chunks) == 0 {
		return 0, &IndexingError{DocumentID: doc.ID, Stage: "chunk", Err: errors.New("document produced no chunks")}
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	// Embed in fixed-size batches, sequentially, so memory stays bounded and
	// progress reporting is deterministic. Nothing is written to the store
	// until every batch has embedded successfully.
	totalBatches := (len(texts) + p.batchSize - 1) / p.batchSize
	vectors := make([][]float32, 0, len(texts))
	for batch := 0; batch < totalBatches; batch++ {
		lo := batch * p.batchSize
		hi := lo + p.batchSize
		if hi > len(texts) {
			hi = len(texts)
		}

		batchVectors, err := p.embedder.EmbedTexts(ctx, texts[lo:hi])
		if err != nil {
			return 0, &IndexingError{DocumentID: doc.ID, Stage: "embed", Err: err}
		}
		vectors = append(vectors, batchVectors...)

		logger.DebugContext(ctx, "embedded batch", "document_id", doc.ID, "batch", batch+1, "batches", totalBatches, "size", hi-lo)
		if opts.Progress != nil {
			opts.Progress.OnBatchComplete(batch+1, totalBatches)
		}
	}

	if len(vectors) != len(chunks) {
		return 0, &IndexingError{
			DocumentID: doc.ID,
			Stage:      "embed",
			Err:        fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(vectors)),
		}
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, chunk := range chunks {
		chunkID := ChunkID(doc.ID, chunk.Index)
		points[i] = vectorstore.Point{
			ID:  PointID(chunkID),
			Vec: vectors[i],
			Meta: map[string]any{
				"document_id":   doc.ID,
				"document_name": doc.Name,
				"chunk_id":      chunkID,
				"chunk_index":   chunk.Index,
				"start_offset":  chunk.StartOffset,
				"text":          chunk.Text,
			},
		}
	}

	// Replace policy: delete the document's old chunk set, then insert the new
	// one in a single upsert. A crash between the two steps leaves the document
	// temporarily unindexed, never duplicated.
	oldIDs, err := p.index.ListIDs(ctx, p.collection, doc.ID)
	if err != nil {
		return 0, &IndexingError{DocumentID: doc.ID, Stage: "replace", Err: err}
	}
	if len(oldIDs) > 0 {
		if err := p.index.Delete(ctx, p.collection, oldIDs); err != nil {
			return 0, &IndexingError{DocumentID: doc.ID, Stage: "replace", Err: err}
		}
		logger.InfoContext(ctx, "removed old chunks", "document_id", doc.ID, "count", len(oldIDs))
	}

	if err := p.index.Upsert(ctx, p.collection, points); err != nil {
		return 0, &IndexingError{DocumentID: doc.ID, Stage: "upsert", Err: err}
	}

	record := &storage.DocumentRecord{
		ID:             doc.ID,
		Name:           doc.Name,
		ChunkCount:     len(chunks),
		EmbeddingModel: p.embeddingModel,
	}
	if err := p.docRepo.Upsert(ctx, record); err != nil {
		return 0, fmt.Errorf("failed to record document: %w", err)
	}

	logger.InfoContext(ctx, "indexed document", "document_id", doc.ID, "name", doc.Name, "chunks", len(chunks), "batches", totalBatches)
	return len(chunks), nil
}

// IndexedCount returns the number of chunks currently indexed for a document.
func (p *Pipeline) IndexedCount(ctx context.Context, documentID string) (int, error) {
	return p.index.Count(ctx, p.collection, documentID)
}

// ClearDocument removes a document's chunks from the vector store and its
// registry record.
func (p *Pipeline) ClearDocument(ctx context.Context, documentID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	ids, err := p.index.ListIDs(ctx, p.collection, documentID)
	if err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}
	if len(ids) > 0 {
		if err := p.index.Delete(ctx, p.collection, ids); err != nil {
			return fmt.Errorf("failed to delete chunks: %w", err)
		}
	}

	if err := p.docRepo.Delete(ctx, documentID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to delete document record: %w", err)
	}

	logger.InfoContext(ctx, "cleared document index", "document_id", documentID, "chunks_removed", len(ids))
	return nil
}
