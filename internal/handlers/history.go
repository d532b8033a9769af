package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"docchat/internal/contextutil"
	"docchat/internal/service"
)

// HistoryHandler handles conversation history requests.
type HistoryHandler struct {
	chatService service.ChatService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(chatService service.ChatService) *HistoryHandler {
	return &HistoryHandler{chatService: chatService}
}

// TurnResponse is one conversation turn.
type TurnResponse struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// Get handles GET /api/documents/{documentID}/history.
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	documentID := chi.URLParam(r, "documentID")

	turns, err := h.chatService.History(ctx, documentID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load history", "document_id", documentID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	resp := make([]TurnResponse, len(turns))
	for i, turn := range turns {
		resp[i] = TurnResponse{
			Role:      turn.Role,
			Content:   turn.Content,
			CreatedAt: turn.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Clear handles DELETE /api/documents/{documentID}/history.
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	documentID := chi.URLParam(r, "documentID")

	if err := h.chatService.ClearHistory(ctx, documentID); err != nil {
		logger.ErrorContext(ctx, "failed to clear history", "document_id", documentID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to clear history")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
