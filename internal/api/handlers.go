package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Divas-Gupta30/kg-studio/internal/graph"
)

const (
	maxBodyBytes     = 1 << 20
	defaultRunsLimit = 50
	pingTimeout      = 2 * time.Second
)

// AskRequest is the body of POST /api/ask-question.
type AskRequest struct {
	Query string `json:"query"`
}

// AskResponse carries the rendered answer.
type AskResponse struct {
	HTMLResponse string `json:"htmlResponse"`
}

// GenerateResponse reports a finished build.
type GenerateResponse struct {
	Message string `json:"message"`
}

// RunsResponse lists recent runs.
type RunsResponse struct {
	Runs []graph.Run `json:"runs"`
}

// HealthResponse reports the service and its backing stores.
type HealthResponse struct {
	Status   string `json:"status"`
	Redis    string `json:"redis"`
	Database string `json:"database"`
}

func (s *Server) handleGenerateGraph(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/generate-graph"
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues("POST", endpoint).Observe(time.Since(start).Seconds())
	}()

	if err := s.generator.Generate(r.Context()); err != nil {
		requestsTotal.WithLabelValues("POST", endpoint, "error").Inc()
		processFailures.WithLabelValues(endpoint, failureReason(err)).Inc()
		s.logger.Error("graph generation failed",
			zap.String("request_id", RequestID(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to generate knowledge graph")
		return
	}

	requestsTotal.WithLabelValues("POST", endpoint, "success").Inc()
	writeJSONResponse(w, http.StatusOK, GenerateResponse{Message: "Knowledge graph generated successfully"})
}

func (s *Server) handleAskQuestion(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/ask-question"
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues("POST", endpoint).Observe(time.Since(start).Seconds())
	}()

	var req AskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		requestsTotal.WithLabelValues("POST", endpoint, "bad_request").Inc()
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	html, err := s.asker.Ask(r.Context(), req.Query)
	if err != nil {
		requestsTotal.WithLabelValues("POST", endpoint, "error").Inc()
		processFailures.WithLabelValues(endpoint, failureReason(err)).Inc()
		s.logger.Error("question answering failed",
			zap.String("request_id", RequestID(r.Context())), zap.Error(err))

		if errors.Is(err, graph.ErrArtifactRead) {
			writeError(w, http.StatusInternalServerError, "Failed to read the response file")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to answer the question")
		return
	}

	requestsTotal.WithLabelValues("POST", endpoint, "success").Inc()
	writeJSONResponse(w, http.StatusOK, AskResponse{HTMLResponse: html})
}

func (s *Server) handleGetRuns(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/runs"
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues("GET", endpoint).Observe(time.Since(start).Seconds())
	}()

	if s.runs == nil {
		requestsTotal.WithLabelValues("GET", endpoint, "unavailable").Inc()
		writeError(w, http.StatusServiceUnavailable, "Run history is not configured")
		return
	}

	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			requestsTotal.WithLabelValues("GET", endpoint, "bad_request").Inc()
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.runs.Recent(r.Context(), limit)
	if err != nil {
		requestsTotal.WithLabelValues("GET", endpoint, "error").Inc()
		s.logger.Error("failed to list runs",
			zap.String("request_id", RequestID(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	requestsTotal.WithLabelValues("GET", endpoint, "success").Inc()
	writeJSONResponse(w, http.StatusOK, RunsResponse{Runs: runs})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "healthy",
		Redis:    connectionState(r.Context(), s.redis),
		Database: connectionState(r.Context(), s.database),
	}
	if s.database == nil {
		resp.Database = "disabled"
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func connectionState(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disconnected"
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, graph.ErrArtifactRead):
		return "artifact"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "process"
	}
}
