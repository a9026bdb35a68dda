package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/assess"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/milestone"
)

// InsertPerformanceRecord writes a completed assessment. The negotiation id is
// unique, so a retried insert for an already-assessed negotiation fails on the
// constraint instead of producing a duplicate row.
func (s *Store) InsertPerformanceRecord(ctx context.Context, rec *assess.PerformanceRecord) error {
	metricsJSON, err := json.Marshal(rec.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	analysisJSON, err := json.Marshal(rec.Analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	suggestionsJSON, err := json.Marshal(rec.Suggestions)
	if err != nil {
		return fmt.Errorf("marshal suggestions: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO performance_records (
			id, negotiation_id, user_id, scenario_id, framing_label,
			claiming_score, claiming_rating, claiming_analysis,
			creating_score, creating_rating, creating_analysis,
			relationship_score, relationship_rating, relationship_analysis,
			overall_score, overall_rating, feedback,
			metrics, analysis, suggestions, assessed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		rec.ID, rec.NegotiationID, rec.UserID, rec.ScenarioID, rec.FramingLabel,
		rec.Claiming.Score, rec.Claiming.Rating, rec.Claiming.Analysis,
		rec.Creating.Score, rec.Creating.Rating, rec.Creating.Analysis,
		rec.Relationship.Score, rec.Relationship.Rating, rec.Relationship.Analysis,
		rec.OverallScore, rec.OverallRating, rec.Feedback,
		metricsJSON, analysisJSON, suggestionsJSON, rec.AssessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert performance record: %w", err)
	}
	return nil
}

// GetPerformanceRecord fetches the assessment stored for a negotiation.
// Returns assess.ErrRecordNotFound when the negotiation has not been assessed.
func (s *Store) GetPerformanceRecord(ctx context.Context, negotiationID uuid.UUID) (*assess.PerformanceRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, negotiation_id, user_id, scenario_id, framing_label,
			claiming_score, claiming_rating, claiming_analysis,
			creating_score, creating_rating, creating_analysis,
			relationship_score, relationship_rating, relationship_analysis,
			overall_score, overall_rating, feedback,
			metrics, analysis, suggestions, assessed_at
		FROM performance_records
		WHERE negotiation_id = $1`,
		negotiationID,
	)

	var rec assess.PerformanceRecord
	var metricsJSON, analysisJSON, suggestionsJSON []byte
	err := row.Scan(
		&rec.ID, &rec.NegotiationID, &rec.UserID, &rec.ScenarioID, &rec.FramingLabel,
		&rec.Claiming.Score, &rec.Claiming.Rating, &rec.Claiming.Analysis,
		&rec.Creating.Score, &rec.Creating.Rating, &rec.Creating.Analysis,
		&rec.Relationship.Score, &rec.Relationship.Rating, &rec.Relationship.Analysis,
		&rec.OverallScore, &rec.OverallRating, &rec.Feedback,
		&metricsJSON, &analysisJSON, &suggestionsJSON, &rec.AssessedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, assess.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get performance record: %w", err)
	}

	if err := json.Unmarshal(metricsJSON, &rec.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	if err := json.Unmarshal(analysisJSON, &rec.Analysis); err != nil {
		return nil, fmt.Errorf("unmarshal analysis: %w", err)
	}
	if err := json.Unmarshal(suggestionsJSON, &rec.Suggestions); err != nil {
		return nil, fmt.Errorf("unmarshal suggestions: %w", err)
	}

	ms, err := s.getMilestones(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	rec.Milestones = ms
	return &rec, nil
}

// InsertMilestones writes a negotiation's milestones in timeline order.
func (s *Store) InsertMilestones(ctx context.Context, negotiationID uuid.UUID, milestones []milestone.Milestone) error {
	for _, m := range milestones {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO negotiation_milestones (id, negotiation_id, type, description, timestamp_seconds, impact_score)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), negotiationID, m.Type, m.Description, m.TimestampSeconds, m.ImpactScore,
		)
		if err != nil {
			return fmt.Errorf("insert milestone: %w", err)
		}
	}
	return nil
}

func (s *Store) getMilestones(ctx context.Context, negotiationID uuid.UUID) ([]milestone.Milestone, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT type, description, timestamp_seconds, impact_score
		FROM negotiation_milestones
		WHERE negotiation_id = $1
		ORDER BY timestamp_seconds`,
		negotiationID,
	)
	if err != nil {
		return nil, fmt.Errorf("get milestones: %w", err)
	}
	defer rows.Close()

	var milestones []milestone.Milestone
	for rows.Next() {
		var m milestone.Milestone
		if err := rows.Scan(&m.Type, &m.Description, &m.TimestampSeconds, &m.ImpactScore); err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}
