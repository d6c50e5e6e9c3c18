// Package chi wires the HTTP API surface onto the pipeline services.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/koso-dev/absquery/internal/domain"
	healthuc "github.com/koso-dev/absquery/internal/usecase/health"
	tableuc "github.com/koso-dev/absquery/internal/usecase/table"
	"github.com/koso-dev/absquery/internal/version"
)

// Asker answers one natural-language question about ABS publications.
type Asker interface {
	Ask(ctx context.Context, question, apiKey string) (domain.AskResult, error)
}

// TableFetcher downloads and reads a spreadsheet by URL.
type TableFetcher interface {
	Fetch(ctx context.Context, url string, opts tableuc.Options) (tableuc.Result, error)
}

// HealthService reports component readiness.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server exposes the query pipeline over HTTP.
type Server struct {
	ask           Asker
	tables        TableFetcher
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(ask Asker, tables TableFetcher, health HealthService, logger *zap.Logger) *Server {
	s := &Server{
		ask:    ask,
		tables: tables,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, ErrorCodeInvalidInput),
		sentinelHandler(domain.ErrAuthMissing, http.StatusUnauthorized, ErrorCodeAuthMissing),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusBadGateway, ErrorCodeUpstreamUnavailable),
		sentinelHandler(domain.ErrMalformedResponse, http.StatusBadGateway, ErrorCodeMalformedResponse),
	}
	return s
}

// Register mounts the API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/api", s.handleRoot)
	r.Post("/api/ask", s.handleAsk)
	r.Post("/api/download", s.handleDownload)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// handleRoot handles GET /api.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{
		Message: "absquery API is running",
		Version: version.Version,
	})
}

// handleAsk handles POST /api/ask.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := s.ask.Ask(r.Context(), req.Question, req.APIKey)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{Answer: result.Answer, Datasets: result.Datasets})
}

// handleDownload handles POST /api/download.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	keep := true
	if req.KeepFile != nil {
		keep = *req.KeepFile
	}

	result, err := s.tables.Fetch(r.Context(), req.URL, tableuc.Options{
		SheetName: req.SheetName,
		HeaderRow: req.HeaderRow,
		MaxRows:   req.MaxRows,
		SavePath:  req.SavePath,
		KeepFile:  keep,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, downloadResponse{
		Success: true,
		Message: "spreadsheet downloaded and read",
		Data:    &result,
	})
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for name, res := range report.Checks {
		checks[name] = string(res)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: string(report.Status), Checks: checks})
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

// sentinelHandler maps one domain sentinel to a status and code. The full
// error text is surfaced: upstream failures embed the status and body for
// diagnostics.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
