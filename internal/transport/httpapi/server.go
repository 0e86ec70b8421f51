// Package httpapi exposes the document and search API over chi.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dravis-labs/corpusd/internal/domain"
	healthuc "github.com/dravis-labs/corpusd/internal/usecase/health"
)

// Registry is the document lifecycle surface the handlers consume.
type Registry interface {
	Ingest(ctx context.Context, filename, text string, sizeBytes int64) (domain.DocInfo, error)
	List(ctx context.Context) ([]domain.DocInfo, error)
	Get(ctx context.Context, docID string) (domain.DocInfo, error)
	Delete(ctx context.Context, docID string) error
}

// Retrieval is the search surface the handlers consume.
type Retrieval interface {
	Search(ctx context.Context, query string, topK int) ([]domain.Hit, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

// Health aggregates component health checks.
type Health interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	registry      Registry
	retrieval     Retrieval
	health        Health
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(registry Registry, retrieval Retrieval, health Health, logger *zap.Logger) *Server {
	s := &Server{
		registry:  registry,
		retrieval: retrieval,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeInvalidInput),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrDuplicateID, http.StatusConflict, codeDuplicateDocument),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeVectorDimMismatch),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusServiceUnavailable, codeBackendUnavailable),
	}
	return s
}

// Routes registers all handlers on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/documents", s.uploadDocument)
	r.Get("/documents", s.listDocuments)
	r.Get("/documents/{doc_id}", s.getDocument)
	r.Delete("/documents/{doc_id}", s.deleteDocument)
	r.Post("/search", s.search)
	r.Get("/stats", s.stats)
	r.Get("/health", s.healthCheck)
	r.Get("/metrics", s.metrics)
}

const (
	codeBadRequest             = "bad_request"
	codeInvalidInput           = "invalid_input"
	codeDocumentNotFound       = "document_not_found"
	codeDuplicateDocument      = "duplicate_document"
	codeVectorDimMismatch      = "vector_dim_mismatch"
	codeEmbeddingProviderError = "embedding_provider_error"
	codeBackendUnavailable     = "backend_unavailable"
	codeInternalError          = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type uploadRequest struct {
	Filename  string `json:"filename"`
	Text      string `json:"text"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

type documentListResponse struct {
	Documents []domain.DocInfo `json:"documents"`
	Total     int              `json:"total"`
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type searchResultItem struct {
	Content  string           `json:"content"`
	Metadata domain.ChunkMeta `json:"metadata"`
	Score    float64          `json:"score"`
	Distance float64          `json:"distance"`
}

type searchResponse struct {
	Results  []searchResultItem `json:"results"`
	Total    int                `json:"total"`
	Degraded bool               `json:"degraded"`
}

// uploadDocument handles POST /documents. The body carries already
// extracted text; format parsing happens upstream.
func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	info, err := s.registry.Ingest(r.Context(), req.Filename, req.Text, req.SizeBytes)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/documents/"+info.DocID)
	writeJSON(w, http.StatusCreated, info)
}

// listDocuments handles GET /documents.
func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	infos, err := s.registry.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if infos == nil {
		infos = []domain.DocInfo{}
	}

	writeJSON(w, http.StatusOK, documentListResponse{
		Documents: infos,
		Total:     len(infos),
	})
}

// getDocument handles GET /documents/{doc_id}.
func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	info, err := s.registry.Get(r.Context(), chi.URLParam(r, "doc_id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// deleteDocument handles DELETE /documents/{doc_id}.
func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Delete(r.Context(), chi.URLParam(r, "doc_id")); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// search handles POST /search. Malformed input is a client error, but a
// backend or provider failure degrades to an empty result set so callers
// can tell "no matches" from "search failed".
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	hits, err := s.retrieval.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			s.handleDomainError(w, err)
			return
		}
		s.logger.Warn("Search degraded", zap.Error(err))
		writeJSON(w, http.StatusOK, searchResponse{
			Results:  []searchResultItem{},
			Degraded: true,
		})
		return
	}

	items := make([]searchResultItem, len(hits))
	for i, h := range hits {
		items[i] = searchResultItem{
			Content:  h.Content,
			Metadata: h.Meta,
			Score:    h.Score,
			Distance: h.Distance,
		}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Results: items,
		Total:   len(items),
	})
}

// stats handles GET /stats.
func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.retrieval.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// healthCheck handles GET /health.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// metrics handles GET /metrics.
func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrDocumentNotFound,
		domain.ErrDuplicateID,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingProviderError,
		domain.ErrBackendUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
