package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TFMV/inquire/pkg/services"
)

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
}

// AnalysisHandler runs a query and returns an AI-assisted analysis of it.
type AnalysisHandler struct {
	executor services.QueryExecutor
	analyzer services.Analyzer
	logger   Logger
	metrics  MetricsCollector
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(executor services.QueryExecutor, analyzer services.Analyzer, logger Logger, metrics MetricsCollector) *AnalysisHandler {
	return &AnalysisHandler{
		executor: executor,
		analyzer: analyzer,
		logger:   logger,
		metrics:  metrics,
	}
}

// RegisterRoutes registers the analysis route.
func (h *AnalysisHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/analyze", h.Analyze)
}

// Analyze executes the given SQL and explains the result.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	timer := h.metrics.StartTimer("analyze_request")
	defer timer.Stop()

	var req AnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.executor.Execute(r.Context(), req.SQL, true)
	if err != nil {
		h.logger.Warn("Analysis query failed", "sql", req.SQL, "error", err)
		WriteError(w, err)
		return
	}

	JSON(w, http.StatusOK, h.analyzer.Analyze(r.Context(), result, req.Question, req.SQL))
}
