package indexer

import (
	"crypto/sha256"
	"fmt"
)

// Chunk represents a contiguous slice of a document's text, the unit of
// embedding and retrieval.
type Chunk struct {
	Index       int    // 0-based position within the document
	StartOffset int    // Rune offset of the chunk in the source text
	Text        string // Chunk text content, at most chunk_size runes
}

// Document is an identified unit of text content to index.
type Document struct {
	ID   string // Content hash, see DocumentID
	Name string // Display name (original filename)
	Text string // Full plain text
}

// DocumentID derives the stable document identifier from raw content.
// Identical bytes always yield the same id, which is what makes re-upload
// detection and idempotent re-indexing possible.
func DocumentID(content []byte) string {
	hash := sha256.Sum256(content)
	return fmt.Sprintf("%x", hash)
}

// ChunkID derives the stable chunk identifier from the owning document id and
// the chunk's position.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_%d", documentID, index)
}

// ProgressObserver receives batch-completion notifications during indexing.
// OnBatchComplete is called synchronously from the indexing goroutine after
// each embedding batch, in order, with completed <= total.
type ProgressObserver interface {
	OnBatchComplete(completed, total int)
}

// ProgressFunc adapts a plain function to the ProgressObserver interface.
type ProgressFunc func(completed, total int)

// OnBatchComplete implements ProgressObserver.
func (f ProgressFunc) OnBatchComplete(completed, total int) { f(completed, total) }

// IndexingError reports a failure during the indexing pipeline. The store is
// either untouched or still holds the document's previous chunk set, never a
// partial mix.
type IndexingError struct {
	DocumentID string
	Stage      string // "chunk", "embed", "replace", "upsert"
	Err        error
}

func (e *IndexingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("indexing document %s failed at %s", e.DocumentID, e.Stage)
	}
	return fmt.Sprintf("indexing document %s failed at %s: %v", e.DocumentID, e.Stage, e.Err)
}

func (e *IndexingError) Unwrap() error { return e.Err }
