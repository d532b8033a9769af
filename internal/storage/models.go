package storage

import "time"

// DocumentRecord is the registry entry for an indexed document. The vector
// store holds the chunks themselves; this row records what was indexed and
// with which embedding model.
type DocumentRecord struct {
	ID             string    // SHA256 hex of the original content
	Name           string    // Display name (original filename)
	ChunkCount     int       // Number of chunks in the vector store
	EmbeddingModel string    // Model the chunks were embedded with
	IndexedAt      time.Time
}

// Turn is a single message in a document's conversation history.
type Turn struct {
	ID         int64
	DocumentID string
	Role       string // "user" or "assistant"
	Content    string
	CreatedAt  time.Time
}
