// Package server exposes the analysis pipeline over HTTP for the web
// dashboard: upload, analyze, discovery, charts and insights.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/procsight/procsight/pkg/config"
	perrors "github.com/procsight/procsight/pkg/errors"
	"github.com/procsight/procsight/pkg/ingest"
	"github.com/procsight/procsight/pkg/insight"
	"github.com/procsight/procsight/pkg/session"
)

// Server handles HTTP requests for the dashboard API.
type Server struct {
	cfg      *config.Config
	sessions *session.Store
	insights *insight.Insights
	router   *mux.Router
}

// NewServer creates an HTTP server. The insights facade may wrap a nil
// generator; insight endpoints then return descriptive messages.
func NewServer(cfg *config.Config, insights *insight.Insights) *Server {
	s := &Server{
		cfg:      cfg,
		sessions: session.NewStore(),
		insights: insights,
		router:   mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures HTTP handlers.
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/sessions", s.handleListSessions).Methods(http.MethodGet)
	api.HandleFunc("/session/{id}", s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/session/{id}", s.handleDeleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/analyze/{id}", s.handleAnalyze).Methods(http.MethodPost)
	api.HandleFunc("/discovery/{id}/dfg", s.handleDFG).Methods(http.MethodGet)
	api.HandleFunc("/discovery/{id}/variants", s.handleVariants).Methods(http.MethodGet)
	api.HandleFunc("/charts/{id}/{kind}", s.handleChart).Methods(http.MethodGet)
	api.HandleFunc("/insight/{id}", s.handleInsight).Methods(http.MethodPost)

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// CORS headers for development
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	s.router.ServeHTTP(w, r)
}

// normalizer builds a Normalizer from the server config and an optional
// per-request mapping override.
func (s *Server) normalizer(override *ingestMapping) *ingest.Normalizer {
	cfg := ingest.Config{
		Mapping:         s.cfg.Analysis.Mapping,
		TimestampLayout: s.cfg.Analysis.TimestampLayout,
		RetentionDays:   s.cfg.Analysis.RetentionDays,
	}
	if override != nil {
		override.apply(&cfg.Mapping)
	}
	return ingest.NewNormalizer(cfg)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, map[string]any{"status": "ok", "sessions": s.sessions.Len()})
}

// Helper functions

func jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// jsonCodedError maps error codes onto HTTP statuses.
func jsonCodedError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case perrors.IsSchema(err), perrors.IsParse(err):
		status = http.StatusUnprocessableEntity
	case perrors.CodeOf(err) == perrors.CodeInvalidFormat:
		status = http.StatusBadRequest
	case perrors.IsAggregation(err):
		status = http.StatusConflict
	case perrors.IsExternal(err):
		status = http.StatusBadGateway
	}
	jsonError(w, err.Error(), status)
}
