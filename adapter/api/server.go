// Package api provides the HTTP API for the HireSpark scoring service.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Server is the HTTP API server.
type Server struct {
	mux       *http.ServeMux
	server    *http.Server
	logger    *slog.Logger
	scoring   *ScoringHandler
	assistant *AssistantHandler
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns the default server configuration. The write
// timeout leaves room for a synchronous model call.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "0.0.0.0:8080",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, scoring *ScoringHandler, assistant *AssistantHandler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	s := &Server{
		mux:       mux,
		logger:    logger,
		scoring:   scoring,
		assistant: assistant,
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// registerRoutes sets up the API routes.
func (s *Server) registerRoutes() {
	// Health check
	s.mux.HandleFunc("GET /health", s.handleHealth)

	// Scoring API v1
	s.mux.HandleFunc("POST /api/v1/score", s.scoring.ScoreResume)
	s.mux.HandleFunc("POST /api/v1/score/tasks", s.scoring.SubmitTask)
	s.mux.HandleFunc("GET /api/v1/score/tasks", s.scoring.ListTasks)
	s.mux.HandleFunc("GET /api/v1/score/tasks/{taskID}", s.scoring.GetTask)
	s.mux.HandleFunc("GET /api/v1/score/history", s.scoring.ListHistory)
	s.mux.HandleFunc("GET /api/v1/score/history/export", s.scoring.ExportHistory)

	// Assistant
	s.mux.HandleFunc("POST /api/v1/assistant/chat", s.assistant.Chat)
	s.mux.HandleFunc("POST /api/v1/assistant/bias-check", s.assistant.BiasCheck)
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info("starting API server",
		"addr", s.server.Addr,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}
