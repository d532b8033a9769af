package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks docchat/internal/rag Engine

import (
	"context"
	"sort"
	"strings"

	"docchat/internal/contextutil"
	"docchat/internal/llm"
	"docchat/internal/vectorstore"
)

// Engine provides retrieval-augmented answering over an indexed document.
type Engine interface {
	// Answer runs one question→response cycle against a document.
	Answer(ctx context.Context, req AnswerRequest) (AnswerResponse, error)
	// Retrieve returns the top passages for a query, best first. Failures
	// degrade to an empty result; grounding is best-effort.
	Retrieve(ctx context.Context, query, documentID string) []Passage
}

// Embedder generates an embedding vector for query text.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer generates a chat completion from a message sequence.
type Completer interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	embedder   Embedder
	index      vectorstore.VectorIndex
	collection string
	completer  Completer
	prompt     *PromptBuilder
	topK       int
}

// NewEngine creates a new RAG engine. topK bounds how many passages a query
// retrieves; non-positive values fall back to 3.
func NewEngine(
	embedder Embedder,
	index vectorstore.VectorIndex,
	collection string,
	completer Completer,
	prompt *PromptBuilder,
	topK int,
) Engine {
	if topK <= 0 {
		topK = 3
	}
	if prompt == nil {
		prompt = NewPromptBuilder("")
	}
	return &ragEngine{
		embedder:   embedder,
		index:      index,
		collection: collection,
		completer:  completer,
		prompt:     prompt,
		topK:       topK,
	}
}

// Answer answers a question grounded in the document's indexed chunks.
//
// Retrieval failures degrade to an ungrounded answer. A generation failure
// returns FallbackResponse instead of an error; the cause is logged. Only a
// missing document id is surfaced to the caller, as ErrNoDocument.
func (e *ragEngine) Answer(ctx context.Context, req AnswerRequest) (AnswerResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(req.DocumentID) == "" {
		return AnswerResponse{}, ErrNoDocument
	}

	passages := e.Retrieve(ctx, req.Question, req.DocumentID)
	logger.InfoContext(ctx, "retrieval completed",
		"document_id", req.DocumentID,
		"passages", len(passages),
		"history_turns", len(req.History),
	)

	messages := e.prompt.BuildMessages(passages, req.History, req.Question)

	answer, err := e.completer.ChatWithMessages(ctx, messages, llm.ChatParams{Temperature: 0.7})
	if err != nil {
		logger.ErrorContext(ctx, "chat completion failed", "document_id", req.DocumentID, "error", err)
		return AnswerResponse{Answer: FallbackResponse, Passages: passages}, nil
	}

	logger.InfoContext(ctx, "answer generated", "document_id", req.DocumentID, "answer_length", len(answer))
	return AnswerResponse{Answer: answer, Passages: passages}, nil
}

// Retrieve embeds the query and searches the document's chunks. A blank
// query short-circuits to empty. Embedding and search failures are logged
// and degrade to empty rather than aborting the turn.
func (e *ragEngine) Retrieve(ctx context.Context, query, documentID string) []Passage {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(query) == "" {
		return nil
	}

	embeddings, err := e.embedder.EmbedTexts(ctx, []string{query})
	if err != nil || len(embeddings) == 0 {
		logger.WarnContext(ctx, "query embedding failed, answering without context",
			"document_id", documentID, "error", err)
		return nil
	}

	// Over-fetch so score ties straddling the k boundary can be re-broken by
	// chunk order here; the store ranks equal scores by its own point order.
	results, err := e.index.Search(ctx, e.collection, embeddings[0], e.topK*2, documentID)
	if err != nil {
		logger.WarnContext(ctx, "vector search failed, answering without context",
			"document_id", documentID, "error", err)
		return nil
	}

	passages := make([]Passage, 0, len(results))
	for _, result := range results {
		text, _ := result.Meta["text"].(string)
		if text == "" {
			continue
		}
		passages = append(passages, Passage{
			Text:       text,
			ChunkIndex: metaInt(result.Meta["chunk_index"]),
			Score:      result.Score,
		})
	}

	// Highest similarity first; equal scores resolve to the earlier chunk.
	sort.SliceStable(passages, func(i, j int) bool {
		if passages[i].Score != passages[j].Score {
			return passages[i].Score > passages[j].Score
		}
		return passages[i].ChunkIndex < passages[j].ChunkIndex
	})

	if len(passages) > e.topK {
		passages = passages[:e.topK]
	}
	return passages
}

// metaInt converts a payload number to int. Stores round-trip integers as
// int, int64 or float64 depending on the backend.
func metaInt(value any) int {
	switch v := value.(type) {
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
