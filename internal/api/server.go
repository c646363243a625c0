package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/parley/internal/ingest"
	"github.com/MikeSquared-Agency/parley/internal/query"
)

type Server struct {
	router *chi.Mux
	port   int
	ingest *ingest.Service
	query  *query.Service
	logger *slog.Logger
}

func NewServer(port int, ing *ingest.Service, q *query.Service, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		ingest: ing,
		query:  q,
		logger: logger,
	}

	router.Get("/health", s.health)
	router.Post("/api/transcript", s.handleIngest)
	router.Get("/api/transcripts", s.handleTranscripts)
	router.Post("/api/transcripts", s.handleTranscripts)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
