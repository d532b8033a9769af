package rag

import (
	"errors"

	"docchat/internal/llm"
)

// ErrNoDocument is returned when a question is asked without an indexed
// document to ground it. User-correctable, not a system fault.
var ErrNoDocument = errors.New("no document indexed")

// FallbackResponse is returned as the answer when generation fails. The
// underlying cause goes to the log, never to the user.
const FallbackResponse = "Sorry, I encountered an error and couldn't generate a response."

// Passage is a retrieved chunk of document text, ranked for relevance.
type Passage struct {
	// Text is the chunk text content.
	Text string `json:"text"`
	// ChunkIndex is the chunk's position within the source document.
	ChunkIndex int `json:"chunk_index"`
	// Score is the cosine similarity against the query.
	Score float32 `json:"score"`
}

// AnswerRequest represents one question against an indexed document.
type AnswerRequest struct {
	// Question is the user's message.
	Question string `json:"question"`
	// DocumentID identifies the document to ground the answer in.
	DocumentID string `json:"document_id"`
	// History is the prior conversation, oldest first. Never truncated here;
	// callers bound its length upstream.
	History []llm.Message `json:"history,omitempty"`
}

// AnswerResponse represents the generated answer and its grounding.
type AnswerResponse struct {
	// Answer is the generated response text.
	Answer string `json:"answer"`
	// Passages are the retrieved chunks the answer was grounded in. Empty
	// when retrieval found nothing or degraded on failure.
	Passages []Passage `json:"passages"`
}
