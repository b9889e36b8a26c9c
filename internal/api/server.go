// Package api exposes the graph builder and the QA tool over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Divas-Gupta30/kg-studio/internal/graph"
)

// Generator builds the knowledge graph.
type Generator interface {
	Generate(ctx context.Context) error
}

// Asker answers a question against the built graph.
type Asker interface {
	Ask(ctx context.Context, query string) (string, error)
}

// RunLister reads the run history.
type RunLister interface {
	Recent(ctx context.Context, limit int) ([]graph.Run, error)
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the server. Runs and Database are nil when no database is
// configured; Static is nil when the form is not served.
type Options struct {
	Generator Generator
	Asker     Asker
	Runs      RunLister
	Redis     Pinger
	Database  Pinger
	Static    http.Handler
	Logger    *zap.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	generator Generator
	asker     Asker
	runs      RunLister
	redis     Pinger
	database  Pinger
	static    http.Handler
	logger    *zap.Logger
}

// NewServer creates a Server from opts.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		generator: opts.Generator,
		asker:     opts.Asker,
		runs:      opts.Runs,
		redis:     opts.Redis,
		database:  opts.Database,
		static:    opts.Static,
		logger:    logger.Named("api"),
	}
}

// Router returns the routes.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(requestLogger(s.logger))

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/generate-graph", s.handleGenerateGraph).Methods("POST")
	api.HandleFunc("/ask-question", s.handleAskQuestion).Methods("POST")
	api.HandleFunc("/runs", s.handleGetRuns).Methods("GET")

	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	if s.static != nil {
		router.PathPrefix("/").Handler(s.static).Methods("GET", "HEAD")
	}
	return router
}
