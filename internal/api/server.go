package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/assess"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/leaderboard"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/progress"
)

// Storage is the read surface the API needs. Satisfied by *store.Store.
type Storage interface {
	GetPerformanceRecord(ctx context.Context, negotiationID uuid.UUID) (*assess.PerformanceRecord, error)
	GetUserProgress(ctx context.Context, userID string) (*progress.UserProgress, error)
	TopPerformers(ctx context.Context, limit int) ([]progress.UserProgress, error)
}

// Ranker serves leaderboard reads from the cache. Satisfied by
// *leaderboard.Cache; may be nil, in which case reads fall back to Storage.
type Ranker interface {
	Top(ctx context.Context, limit int) ([]leaderboard.Entry, error)
}

type Server struct {
	router   *chi.Mux
	port     int
	assessor *assess.Assessor
	storage  Storage
	board    Ranker
	logger   *slog.Logger
}

func NewServer(port int, apiToken string, assessor *assess.Assessor, storage Storage, board Ranker, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		assessor: assessor,
		storage:  storage,
		board:    board,
		logger:   logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/assessor/status", s.status)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/assessments", s.createAssessment)
		r.Get("/assessments/{negotiationID}", s.getAssessment)
		r.Get("/users/{userID}/progress", s.getProgress)
		r.Post("/users/{userID}/progress/rebuild", s.rebuildProgress)
		r.Get("/users/{userID}/trends", s.getTrends)
		r.Get("/leaderboard", s.getLeaderboard)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// BearerAuthMiddleware rejects requests whose Authorization header does not
// carry the configured token. An empty token disables auth for local runs.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			want := "Bearer " + token
			got := r.Header.Get("Authorization")
			if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
				writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.assessor.Status())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
