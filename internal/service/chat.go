package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks -mock_names=ChatService=MockChatService docchat/internal/service ChatService

import (
	"context"
	"errors"
	"strings"

	"docchat/internal/contextutil"
	"docchat/internal/llm"
	"docchat/internal/rag"
	"docchat/internal/storage"
)

// ChatRequest represents a chat request in the domain layer.
type ChatRequest struct {
	DocumentID string `validate:"required"`
	Message    string `validate:"required"`
}

// ChatResponse represents a chat response in the domain layer.
type ChatResponse struct {
	Reply    string
	Passages []rag.Passage
}

// ChatService provides document-grounded chat functionality.
type ChatService interface {
	// ProcessChat answers one question against a document and records the
	// exchange in the document's conversation history.
	ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// History returns a document's conversation turns in order.
	History(ctx context.Context, documentID string) ([]storage.Turn, error)
	// ClearHistory removes a document's conversation history.
	ClearHistory(ctx context.Context, documentID string) error
}

// chatService implements ChatService.
type chatService struct {
	engine       rag.Engine
	docs         storage.DocumentStore
	history      storage.HistoryStore
	historyLimit int
}

// NewChatService creates a new ChatService. historyLimit bounds how many
// recent turns are replayed into the prompt; 0 replays everything.
func NewChatService(engine rag.Engine, docs storage.DocumentStore, history storage.HistoryStore, historyLimit int) ChatService {
	return &chatService{
		engine:       engine,
		docs:         docs,
		history:      history,
		historyLimit: historyLimit,
	}
}

// ProcessChat runs one retrieve→assemble→complete cycle for a document.
//
// The exchange is appended to history only after an answer is produced, so a
// failed turn never leaves a dangling user message. A history persistence
// failure is logged but does not fail the turn; the user already has the
// answer at that point.
func (s *chatService) ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(req.Message) == "" {
		logger.WarnContext(ctx, "empty message in chat request")
		return ChatResponse{}, &ValidationError{
			Field:   "message",
			Message: "cannot be empty",
		}
	}
	if req.DocumentID == "" {
		logger.WarnContext(ctx, "missing document id in chat request")
		return ChatResponse{}, &ValidationError{
			Field:   "document_id",
			Message: "cannot be empty",
		}
	}

	if _, err := s.docs.Get(ctx, req.DocumentID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			logger.InfoContext(ctx, "chat against unknown document", "document_id", req.DocumentID)
			return ChatResponse{}, rag.ErrNoDocument
		}
		return ChatResponse{}, WrapError(err, "failed to look up document")
	}

	turns, err := s.history.List(ctx, req.DocumentID, s.historyLimit)
	if err != nil {
		// Degrade to an empty history; losing continuity beats failing the turn.
		logger.WarnContext(ctx, "failed to load history", "document_id", req.DocumentID, "error", err)
		turns = nil
	}

	resp, err := s.engine.Answer(ctx, rag.AnswerRequest{
		Question:   req.Message,
		DocumentID: req.DocumentID,
		History:    turnsToMessages(turns),
	})
	if err != nil {
		if errors.Is(err, rag.ErrNoDocument) {
			return ChatResponse{}, err
		}
		logger.ErrorContext(ctx, "failed to generate answer", "document_id", req.DocumentID, "error", err)
		return ChatResponse{}, WrapError(err, "failed to generate answer")
	}

	if err := s.history.Append(ctx, req.DocumentID, llm.RoleUser, req.Message); err != nil {
		logger.WarnContext(ctx, "failed to record user turn", "document_id", req.DocumentID, "error", err)
	} else if err := s.history.Append(ctx, req.DocumentID, llm.RoleAssistant, resp.Answer); err != nil {
		logger.WarnContext(ctx, "failed to record assistant turn", "document_id", req.DocumentID, "error", err)
	}

	logger.InfoContext(ctx, "chat request processed successfully",
		"document_id", req.DocumentID,
		"message_length", len(req.Message),
		"reply_length", len(resp.Answer),
		"passages", len(resp.Passages),
	)
	return ChatResponse{
		Reply:    resp.Answer,
		Passages: resp.Passages,
	}, nil
}

// History returns a document's conversation turns in chronological order.
func (s *chatService) History(ctx context.Context, documentID string) ([]storage.Turn, error) {
	if documentID == "" {
		return nil, &ValidationError{Field: "document_id", Message: "cannot be empty"}
	}

	turns, err := s.history.List(ctx, documentID, 0)
	if err != nil {
		return nil, WrapError(err, "failed to load history")
	}
	return turns, nil
}

// ClearHistory removes a document's conversation history.
func (s *chatService) ClearHistory(ctx context.Context, documentID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if documentID == "" {
		return &ValidationError{Field: "document_id", Message: "cannot be empty"}
	}

	if err := s.history.Clear(ctx, documentID); err != nil {
		return WrapError(err, "failed to clear history")
	}

	logger.InfoContext(ctx, "conversation history cleared", "document_id", documentID)
	return nil
}

// turnsToMessages converts stored turns to the prompt message format.
func turnsToMessages(turns []storage.Turn) []llm.Message {
	if len(turns) == 0 {
		return nil
	}
	messages := make([]llm.Message, len(turns))
	for i, turn := range turns {
		messages[i] = llm.Message{Role: turn.Role, Content: turn.Content}
	}
	return messages
}
