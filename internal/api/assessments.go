package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/assess"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/leaderboard"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/progress"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// createAssessment handles POST /api/v1/assessments.
func (s *Server) createAssessment(w http.ResponseWriter, r *http.Request) {
	var req assess.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	rec, err := s.assessor.Assess(r.Context(), req)
	if err != nil {
		var pe *assess.PhaseError
		if errors.As(err, &pe) && pe.Phase == assess.PhaseAnalysis {
			writeError(w, http.StatusBadRequest, pe.Error())
			return
		}
		s.logger.Error("assessment request failed", "negotiation_id", req.NegotiationID, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

// getAssessment handles GET /api/v1/assessments/{negotiationID}.
func (s *Server) getAssessment(w http.ResponseWriter, r *http.Request) {
	negotiationID, err := uuid.Parse(chi.URLParam(r, "negotiationID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid negotiation id")
		return
	}

	rec, err := s.storage.GetPerformanceRecord(r.Context(), negotiationID)
	if errors.Is(err, assess.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "negotiation not assessed")
		return
	}
	if err != nil {
		s.logger.Error("failed to fetch assessment", "negotiation_id", negotiationID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch assessment")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// getProgress handles GET /api/v1/users/{userID}/progress.
func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	p, err := s.storage.GetUserProgress(r.Context(), userID)
	if errors.Is(err, progress.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no assessed negotiations for user")
		return
	}
	if err != nil {
		s.logger.Error("failed to fetch progress", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch progress")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// rebuildProgress handles POST /api/v1/users/{userID}/progress/rebuild.
// Recomputes the aggregate from the full score history, for when stored
// records were corrected or imported out of band.
func (s *Server) rebuildProgress(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	p, err := s.assessor.Tracker().Rebuild(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to rebuild progress", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to rebuild progress")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// getTrends handles GET /api/v1/users/{userID}/trends.
func (s *Server) getTrends(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	trends, err := s.assessor.Tracker().Trends(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to compute trends", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute trends")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"trends":  trends,
	})
}

// getLeaderboard handles GET /api/v1/leaderboard. Reads come from the Redis
// cache when one is wired and fall back to the database otherwise.
func (s *Server) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}

	entries, err := s.rankedEntries(r, limit)
	if err != nil {
		s.logger.Error("failed to read leaderboard", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read leaderboard")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

func (s *Server) rankedEntries(r *http.Request, limit int) ([]leaderboard.Entry, error) {
	if s.board != nil {
		entries, err := s.board.Top(r.Context(), limit)
		if err == nil {
			return entries, nil
		}
		s.logger.Warn("leaderboard cache read failed, falling back to database", "error", err)
	}

	top, err := s.storage.TopPerformers(r.Context(), limit)
	if err != nil {
		return nil, err
	}

	entries := make([]leaderboard.Entry, 0, len(top))
	for i, p := range top {
		entries = append(entries, leaderboard.Entry{
			Rank:               i + 1,
			UserID:             p.UserID,
			AveragePerformance: p.AveragePerformance,
			TotalNegotiations:  p.TotalNegotiations,
		})
	}
	return entries, nil
}
