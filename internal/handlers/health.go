package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"docchat/internal/contextutil"
)

// CollectionChecker reports whether the vector store collection is reachable.
// Implemented by vectorstore.QdrantStore.
type CollectionChecker interface {
	CollectionExists(ctx context.Context, collection string) (bool, error)
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	store              CollectionChecker
	collectionName     string
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(store CollectionChecker, collectionName string) *HealthHandler {
	return &HealthHandler{
		store:              store,
		collectionName:     collectionName,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// Overall health status: "healthy" or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// List of issues (only present if unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles GET /api/health. The LLM provider is deliberately not
// probed; the vector store is the critical dependency and probing the
// provider on every check adds latency.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string

	exists, err := h.store.CollectionExists(checkCtx, h.collectionName)
	switch {
	case err != nil:
		logger.WarnContext(ctx, "vector store health check failed", "error", err)
		checks["vector_store"] = "error"
		issues = append(issues, "vector_store_unavailable")
	case !exists:
		logger.WarnContext(ctx, "vector store collection does not exist", "collection", h.collectionName)
		checks["vector_store"] = "error"
		issues = append(issues, "collection_missing")
	default:
		checks["vector_store"] = "ok"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if len(issues) > 0 {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Issues:    issues,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.ErrorContext(ctx, "failed to encode health response", "error", err)
	}
}
