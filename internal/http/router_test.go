package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"docchat/internal/indexer"
	servicemocks "docchat/internal/service/mocks"
	storagemocks "docchat/internal/storage/mocks"
)

type stubIndexer struct{}

func (stubIndexer) IndexDocument(context.Context, indexer.Document, indexer.IndexOptions) (int, error) {
	return 0, nil
}
func (stubIndexer) ClearDocument(context.Context, string) error      { return nil }
func (stubIndexer) IndexedCount(context.Context, string) (int, error) { return 0, nil }

type stubChecker struct{}

func (stubChecker) CollectionExists(context.Context, string) (bool, error) { return true, nil }

func newTestDeps(t *testing.T) *Deps {
	t.Helper()
	ctrl := gomock.NewController(t)
	return &Deps{
		ChatService: servicemocks.NewMockChatService(ctrl),
		Pipeline:    stubIndexer{},
		Documents:   storagemocks.NewMockDocumentStore(ctrl),
		History:     storagemocks.NewMockHistoryStore(ctrl),
		Health:      stubChecker{},
		Collection:  "uploads",
	}
}

func TestNewRouter(t *testing.T) {
	router := NewRouter(newTestDeps(t))
	if router == nil {
		t.Fatal("NewRouter() returned nil")
	}
}

func TestRouter_Routes(t *testing.T) {
	router := NewRouter(newTestDeps(t))

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{
			name:       "GET /api/health exists",
			method:     http.MethodGet,
			path:       "/api/health",
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST /api/chat exists",
			method:     http.MethodPost,
			path:       "/api/chat",
			wantStatus: http.StatusBadRequest, // invalid body, but route exists
		},
		{
			name:       "GET /api/chat method not allowed",
			method:     http.MethodGet,
			path:       "/api/chat",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "POST /api/documents exists",
			method:     http.MethodPost,
			path:       "/api/documents",
			wantStatus: http.StatusBadRequest, // invalid body, but route exists
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			path:       "/api/unknown",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Router %s %s status = %v, want %v", tt.method, tt.path, w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRouter_MiddlewareApplied(t *testing.T) {
	router := NewRouter(newTestDeps(t))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Router should apply CORS middleware")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Router should apply request logging middleware")
	}
}
