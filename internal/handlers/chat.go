package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"docchat/internal/contextutil"
	"docchat/internal/rag"
	"docchat/internal/service"
)

// ChatHandler handles HTTP requests for document-grounded chat.
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// ChatRequest represents the HTTP request payload for chat.
type ChatRequest struct {
	DocumentID string `json:"document_id"`
	Message    string `json:"message"`
}

// PassageResponse is one retrieved passage included in the chat response.
type PassageResponse struct {
	Text       string  `json:"text"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
}

// ChatResponse represents the HTTP response payload for chat.
type ChatResponse struct {
	Reply    string            `json:"reply"`
	Passages []PassageResponse `json:"passages,omitempty"`
}

// ServeHTTP handles POST /api/chat.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	svcResp, err := h.chatService.ProcessChat(ctx, service.ChatRequest{
		DocumentID: req.DocumentID,
		Message:    req.Message,
	})
	if err != nil {
		h.handleServiceError(w, ctx, err, "Failed to process chat request")
		return
	}

	passages := make([]PassageResponse, len(svcResp.Passages))
	for i, passage := range svcResp.Passages {
		passages[i] = PassageResponse{
			Text:       passage.Text,
			ChunkIndex: passage.ChunkIndex,
			Score:      passage.Score,
		}
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Reply:    svcResp.Reply,
		Passages: passages,
	})
}

// handleServiceError maps service errors to appropriate HTTP status codes.
func (h *ChatHandler) handleServiceError(w http.ResponseWriter, ctx context.Context, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "service error", "error", err)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", validationErr.Error()))
		return
	}

	if errors.Is(err, rag.ErrNoDocument) {
		writeError(w, http.StatusNotFound, "No indexed document with that id")
		return
	}

	if errors.Is(err, service.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	if errors.Is(err, service.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Resource not found")
		return
	}

	if errors.Is(err, service.ErrExternalService) {
		writeError(w, http.StatusBadGateway, "External service error")
		return
	}

	writeError(w, http.StatusInternalServerError, defaultMsg)
}
