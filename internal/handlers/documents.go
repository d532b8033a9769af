package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"docchat/internal/contextutil"
	"docchat/internal/indexer"
	"docchat/internal/storage"
)

// maxUploadBytes bounds document uploads. Documents are chat-sized texts,
// not bulk corpora.
const maxUploadBytes = 32 << 20

// DocumentIndexer is the indexing capability the documents handler consumes.
// It is implemented by indexer.Pipeline.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, doc indexer.Document, opts indexer.IndexOptions) (int, error)
	ClearDocument(ctx context.Context, documentID string) error
	IndexedCount(ctx context.Context, documentID string) (int, error)
}

// DocumentsHandler handles document upload, listing, status and deletion.
type DocumentsHandler struct {
	pipeline   DocumentIndexer
	docs       storage.DocumentStore
	history    storage.HistoryStore
	normalizer *indexer.MarkdownNormalizer
	uploadDir  string

	// Indexing uses delete-then-insert; concurrent re-indexing of the same
	// document must be serialized or the index can end up duplicated.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewDocumentsHandler creates a new DocumentsHandler. uploadDir may be empty
// to skip keeping raw uploads on disk.
func NewDocumentsHandler(pipeline DocumentIndexer, docs storage.DocumentStore, history storage.HistoryStore, uploadDir string) *DocumentsHandler {
	return &DocumentsHandler{
		pipeline:   pipeline,
		docs:       docs,
		history:    history,
		normalizer: indexer.NewMarkdownNormalizer(),
		uploadDir:  uploadDir,
		locks:      make(map[string]*sync.Mutex),
	}
}

// docLock returns the mutex serializing index operations for one document.
func (h *DocumentsHandler) docLock(documentID string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	lock, ok := h.locks[documentID]
	if !ok {
		lock = &sync.Mutex{}
		h.locks[documentID] = lock
	}
	return lock
}

// UploadRequest is the JSON upload payload, the alternative to multipart.
type UploadRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// UploadResponse reports the outcome of an upload.
type UploadResponse struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	ChunkCount int    `json:"chunk_count"`
}

// DocumentResponse is one registry entry in list/status responses.
type DocumentResponse struct {
	DocumentID     string `json:"document_id"`
	Name           string `json:"name"`
	ChunkCount     int    `json:"chunk_count"`
	EmbeddingModel string `json:"embedding_model"`
	IndexedAt      string `json:"indexed_at"`
}

// Upload handles POST /api/documents. Accepts a multipart "file" field or a
// JSON body with name and content. The document id is derived from the raw
// content, so re-uploading identical bytes hits the already-indexed fast
// path unless ?force=true.
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	name, raw, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	if len(strings.TrimSpace(string(raw))) == 0 {
		writeError(w, http.StatusBadRequest, "Document is empty")
		return
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".txt" && ext != ".md" {
		writeError(w, http.StatusBadRequest, "Unsupported file type, expected .txt or .md")
		return
	}

	text := string(raw)
	if ext == ".md" {
		text = h.normalizer.Normalize(raw)
	}

	doc := indexer.Document{
		ID:   indexer.DocumentID(raw),
		Name: name,
		Text: text,
	}

	h.saveRawUpload(ctx, doc.ID, ext, raw)

	force := r.URL.Query().Get("force") == "true"

	lock := h.docLock(doc.ID)
	lock.Lock()
	defer lock.Unlock()

	count, err := h.pipeline.IndexDocument(ctx, doc, indexer.IndexOptions{
		Force: force,
		Progress: indexer.ProgressFunc(func(completed, total int) {
			logger.InfoContext(ctx, "indexing progress", "document_id", doc.ID, "batch", completed, "batches", total)
		}),
	})
	if err != nil {
		h.handleIndexError(w, ctx, err)
		return
	}

	// A forced re-index re-grounds the document, so the old conversation no
	// longer matches what retrieval will return. Changed content gets a new
	// document id and starts with empty history anyway.
	if force {
		if err := h.history.Clear(ctx, doc.ID); err != nil {
			logger.WarnContext(ctx, "failed to reset history after re-index", "document_id", doc.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		DocumentID: doc.ID,
		Name:       doc.Name,
		ChunkCount: count,
	})
}

// readUpload extracts the document name and raw bytes from either a
// multipart form or a JSON body.
func (h *DocumentsHandler) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			logger.WarnContext(ctx, "invalid multipart form", "error", err)
			writeError(w, http.StatusBadRequest, "Invalid multipart form")
			return "", nil, false
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "Missing file field")
			return "", nil, false
		}
		defer func() {
			_ = file.Close()
		}()

		raw, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			logger.ErrorContext(ctx, "failed to read upload", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to read upload")
			return "", nil, false
		}
		return header.Filename, raw, true
	}

	var req UploadRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return "", nil, false
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return "", nil, false
	}
	return req.Name, []byte(req.Content), true
}

// saveRawUpload keeps the original bytes on disk for operator inspection.
// Failure is logged, not surfaced; the index is the source of truth.
func (h *DocumentsHandler) saveRawUpload(ctx context.Context, documentID, ext string, raw []byte) {
	if h.uploadDir == "" {
		return
	}
	logger := contextutil.LoggerFromContext(ctx)
	path := filepath.Join(h.uploadDir, documentID+ext)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		logger.WarnContext(ctx, "failed to save raw upload", "path", path, "error", err)
	}
}

// List handles GET /api/documents.
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	records, err := h.docs.List(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list documents", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	resp := make([]DocumentResponse, len(records))
	for i, record := range records {
		resp[i] = toDocumentResponse(record)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Status handles GET /api/documents/{documentID}. The chunk count comes from
// the vector store, not the registry, so a half-cleared document is visible.
func (h *DocumentsHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	documentID := chi.URLParam(r, "documentID")

	record, err := h.docs.Get(ctx, documentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Document not found")
			return
		}
		logger.ErrorContext(ctx, "failed to load document", "document_id", documentID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load document")
		return
	}

	resp := toDocumentResponse(*record)
	if indexed, err := h.pipeline.IndexedCount(ctx, documentID); err != nil {
		logger.WarnContext(ctx, "failed to count indexed chunks", "document_id", documentID, "error", err)
	} else {
		resp.ChunkCount = indexed
	}

	writeJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /api/documents/{documentID}.
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	documentID := chi.URLParam(r, "documentID")

	if _, err := h.docs.Get(ctx, documentID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Document not found")
			return
		}
		logger.ErrorContext(ctx, "failed to load document", "document_id", documentID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load document")
		return
	}

	lock := h.docLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	if err := h.pipeline.ClearDocument(ctx, documentID); err != nil {
		logger.ErrorContext(ctx, "failed to clear document index", "document_id", documentID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete document")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleIndexError maps indexing failures to HTTP status codes.
func (h *DocumentsHandler) handleIndexError(w http.ResponseWriter, ctx context.Context, err error) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "indexing failed", "error", err)

	var indexErr *indexer.IndexingError
	if errors.As(err, &indexErr) {
		switch indexErr.Stage {
		case "chunk":
			writeError(w, http.StatusBadRequest, "Document has no indexable content")
		case "embed":
			writeError(w, http.StatusBadGateway, "Embedding service error")
		default:
			writeError(w, http.StatusServiceUnavailable, "Vector store unavailable")
		}
		return
	}

	writeError(w, http.StatusInternalServerError, "Failed to index document")
}

func toDocumentResponse(record storage.DocumentRecord) DocumentResponse {
	return DocumentResponse{
		DocumentID:     record.ID,
		Name:           record.Name,
		ChunkCount:     record.ChunkCount,
		EmbeddingModel: record.EmbeddingModel,
		IndexedAt:      record.IndexedAt.UTC().Format(time.RFC3339),
	}
}
