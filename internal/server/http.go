package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/text-extractor/internal/common"
	"github.com/joseph-ayodele/text-extractor/internal/pipeline"
)

// Exporter produces the cache inventory workbook; export.Service implements it.
type Exporter interface {
	ExportCacheXLSX(ctx context.Context) ([]byte, error)
}

// HTTPHandler serves the JSON API.
type HTTPHandler struct {
	extractor Extractor
	exporter  Exporter
	ready     func(ctx context.Context) error
	logger    *slog.Logger
}

type HTTPOption func(*HTTPHandler)

// WithExporter enables GET /v1/export.xlsx.
func WithExporter(e Exporter) HTTPOption {
	return func(h *HTTPHandler) { h.exporter = e }
}

// WithReadiness makes /healthz report 503 while check fails.
func WithReadiness(check func(ctx context.Context) error) HTTPOption {
	return func(h *HTTPHandler) { h.ready = check }
}

func NewHTTPHandler(ext Extractor, logger *slog.Logger, opts ...HTTPOption) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &HTTPHandler{extractor: ext, logger: logger}
	for _, o := range opts {
		o(h)
	}
	return h
}

type extractRequest struct {
	Path      string   `json:"path"`
	Languages []string `json:"languages,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// Router wires the routes. timeout bounds each request; zero disables it.
func (h *HTTPHandler) Router(timeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(chimiddleware.Recoverer)
	if timeout > 0 {
		r.Use(chimiddleware.Timeout(timeout))
	}

	r.Get("/healthz", h.Health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/extract", h.Extract)
		r.Get("/can-extract", h.CanExtract)
		r.Get("/languages", h.Languages)
		if h.exporter != nil {
			r.Get("/export.xlsx", h.Export)
		}
	})
	return r
}

// Extract handles POST /v1/extract.
func (h *HTTPHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	path := strings.TrimSpace(req.Path)
	if path == "" {
		h.writeError(w, r, http.StatusBadRequest, "path is required")
		return
	}

	out, err := h.extractor.Extract(r.Context(), path, pipeline.Options{Languages: req.Languages})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, common.ErrUnsupportedFileType) {
			status = http.StatusUnprocessableEntity
		}
		h.writeError(w, r, status, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, resultOf(path, out))
}

// CanExtract handles GET /v1/can-extract?path=.
func (h *HTTPHandler) CanExtract(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		h.writeError(w, r, http.StatusBadRequest, "path query parameter is required")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"path":        path,
		"can_extract": h.extractor.CanExtract(path),
	})
}

// Languages handles GET /v1/languages.
func (h *HTTPHandler) Languages(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"languages": h.extractor.SupportedLanguages(),
		"default":   h.extractor.DefaultLanguages(),
	})
}

// Export handles GET /v1/export.xlsx.
func (h *HTTPHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.exporter.ExportCacheXLSX(r.Context())
	if err != nil {
		h.logger.Error("export failed", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="text-cache.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Health handles GET /healthz.
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		id := chimiddleware.GetReqID(r.Context())
		next.ServeHTTP(ww, r.WithContext(common.WithRequestID(r.Context(), id)))
		h.logger.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", id,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to write response", "error", err)
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg, RequestID: chimiddleware.GetReqID(r.Context())})
}
