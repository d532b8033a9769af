package indexer

import (
	"fmt"
	"strings"
)

// separators are tried in priority order when looking for a split boundary:
// paragraph break, line break, sentence boundary, word boundary. When none is
// found inside the window the chunk is hard-split at chunk_size.
var separators = []string{"\n\n", "\n", ". ", " "}

// Splitter splits plain text into overlapping, bounded-size chunks.
// Splitting is purely a function of (text, chunkSize, chunkOverlap); the same
// inputs always produce the same chunk sequence.
type Splitter struct {
	chunkSize    int // max runes per chunk
	chunkOverlap int // runes of trailing text carried into the next chunk
}

// NewSplitter creates a splitter. chunkSize must be positive and chunkOverlap
// must be non-negative and strictly less than chunkSize.
func NewSplitter(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be greater than 0, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be non-negative and less than chunk size, got overlap=%d size=%d", chunkOverlap, chunkSize)
	}
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Split cuts text into chunks of at most chunkSize runes with consecutive
// chunks sharing chunkOverlap runes where the source permits it. Empty or
// whitespace-only input yields no chunks. Sizes are measured in runes so
// multi-byte text never splits inside a character.
func (s *Splitter) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	var chunks []Chunk
	start := 0

	for start < len(runes) {
		end := start + s.chunkSize

		if end >= len(runes) {
			appendChunk(&chunks, start, string(runes[start:]))
			break
		}

		splitPoint := s.findSplitPoint(runes, start, end)
		appendChunk(&chunks, start, string(runes[start:splitPoint]))

		next := splitPoint - s.chunkOverlap
		if next <= start {
			// Overlap would stall the scan; give up the overlap for this
			// boundary to guarantee forward progress.
			next = splitPoint
		}
		start = next
	}

	return chunks
}

// findSplitPoint returns the index to cut at, preferring the latest separator
// occurrence inside the window. A separator match at the very beginning of the
// window is ignored since it would produce an empty chunk.
func (s *Splitter) findSplitPoint(runes []rune, start, end int) int {
	window := string(runes[start:end])
	for _, sep := range separators {
		if i := strings.LastIndex(window, sep); i > 0 {
			// LastIndex returns a byte offset; windows may contain multi-byte
			// runes, so convert back to a rune count.
			return start + len([]rune(window[:i])) + len([]rune(sep))
		}
	}
	return end
}

// appendChunk adds a chunk unless its text is all whitespace, keeping chunk
// indices contiguous from 0.
func appendChunk(chunks *[]Chunk, startOffset int, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	*chunks = append(*chunks, Chunk{
		Index:       len(*chunks),
		StartOffset: startOffset,
		Text:        text,
	})
}
