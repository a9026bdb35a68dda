package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/progress"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/scoring"
)

// GetUserProgress fetches the running aggregate for a user. Returns
// progress.ErrNotFound for a user with no assessed negotiations.
func (s *Store) GetUserProgress(ctx context.Context, userID string) (*progress.UserProgress, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, total_negotiations, average_performance, last_session_at
		FROM user_progress
		WHERE user_id = $1`,
		userID,
	)

	var p progress.UserProgress
	err := row.Scan(&p.UserID, &p.TotalNegotiations, &p.AveragePerformance, &p.LastSessionAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, progress.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user progress: %w", err)
	}
	return &p, nil
}

// UpsertUserProgress writes the running aggregate for a user.
func (s *Store) UpsertUserProgress(ctx context.Context, p progress.UserProgress) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_progress (id, user_id, total_negotiations, average_performance, last_session_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (user_id)
		DO UPDATE SET
			total_negotiations = $3,
			average_performance = $4,
			last_session_at = $5,
			updated_at = now()`,
		uuid.New(), p.UserID, p.TotalNegotiations, p.AveragePerformance, p.LastSessionAt,
	)
	if err != nil {
		return fmt.Errorf("upsert user progress: %w", err)
	}
	return nil
}

// ScoreHistory returns a user's overall scores in assessment order.
func (s *Store) ScoreHistory(ctx context.Context, userID string) ([]float64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT overall_score
		FROM performance_records
		WHERE user_id = $1
		ORDER BY assessed_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("score history: %w", err)
	}
	defer rows.Close()

	var scores []float64
	for rows.Next() {
		var score float64
		if err := rows.Scan(&score); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		scores = append(scores, score)
	}
	return scores, rows.Err()
}

// DimensionHistory returns a user's per-dimension score series in assessment
// order, keyed by dimension name.
func (s *Store) DimensionHistory(ctx context.Context, userID string) (map[string][]float64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT claiming_score, creating_score, relationship_score
		FROM performance_records
		WHERE user_id = $1
		ORDER BY assessed_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("dimension history: %w", err)
	}
	defer rows.Close()

	history := map[string][]float64{}
	for rows.Next() {
		var claiming, creating, relationship int
		if err := rows.Scan(&claiming, &creating, &relationship); err != nil {
			return nil, fmt.Errorf("scan dimension scores: %w", err)
		}
		history[scoring.DimensionClaiming] = append(history[scoring.DimensionClaiming], float64(claiming))
		history[scoring.DimensionCreating] = append(history[scoring.DimensionCreating], float64(creating))
		history[scoring.DimensionRelationship] = append(history[scoring.DimensionRelationship], float64(relationship))
	}
	return history, rows.Err()
}

// TopPerformers lists the highest-averaging users. Serves leaderboard reads
// when the cache is unavailable.
func (s *Store) TopPerformers(ctx context.Context, limit int) ([]progress.UserProgress, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, total_negotiations, average_performance, last_session_at
		FROM user_progress
		ORDER BY average_performance DESC, user_id
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top performers: %w", err)
	}
	defer rows.Close()

	var top []progress.UserProgress
	for rows.Next() {
		var p progress.UserProgress
		if err := rows.Scan(&p.UserID, &p.TotalNegotiations, &p.AveragePerformance, &p.LastSessionAt); err != nil {
			return nil, fmt.Errorf("scan top performer: %w", err)
		}
		top = append(top, p)
	}
	return top, rows.Err()
}
