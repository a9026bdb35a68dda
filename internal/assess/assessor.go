package assess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/advice"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/analysis"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/events"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/milestone"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/progress"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/rules"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/scoring"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/session"
)

// RecordStore is the persistence surface for performance records.
// GetPerformanceRecord returns ErrRecordNotFound for unknown negotiations.
type RecordStore interface {
	GetPerformanceRecord(ctx context.Context, negotiationID uuid.UUID) (*PerformanceRecord, error)
	InsertPerformanceRecord(ctx context.Context, rec *PerformanceRecord) error
	InsertMilestones(ctx context.Context, negotiationID uuid.UUID, milestones []milestone.Milestone) error
}

// Publisher announces completed assessments. Satisfied by *events.Client.
type Publisher interface {
	Publish(subject string, data any) error
}

// Leaderboard caches the per-user standing for leaderboard consumers.
type Leaderboard interface {
	Record(ctx context.Context, userID string, averagePerformance float64, totalNegotiations int) error
}

// Status is a snapshot of the assessor's runtime counters.
type Status struct {
	Processed    int64  `json:"processed"`
	Failed       int64  `json:"failed"`
	RulesVersion string `json:"rules_version"`
}

// Assessor orchestrates the assessment pipeline: analyze, score, rate,
// extract milestones, advise, persist, fold into progress, announce.
// Scoring itself is pure; the assessor adds the I/O edges around it.
type Assessor struct {
	rules      *rules.Ruleset
	records    RecordStore
	tracker    *progress.Tracker
	publisher  Publisher
	board      Leaderboard
	logger     *slog.Logger

	processed atomic.Int64
	failed    atomic.Int64
}

// New wires an assessor. publisher and board may be nil; the assessor then
// runs without event announcements or leaderboard caching.
func New(rs *rules.Ruleset, records RecordStore, tracker *progress.Tracker, publisher Publisher, board Leaderboard, logger *slog.Logger) *Assessor {
	return &Assessor{
		rules:     rs,
		records:   records,
		tracker:   tracker,
		publisher: publisher,
		board:     board,
		logger:    logger,
	}
}

// Evaluate runs the pure assessment computation: transcript in, complete
// performance record out. No I/O, deterministic for a given ruleset. An empty
// transcript degrades to the baseline record rather than erroring.
func Evaluate(rs *rules.Ruleset, req Request) *PerformanceRecord {
	analyzer := analysis.New(rs)
	scorer := scoring.New(rs)

	ca := analyzer.Analyze(req.Transcript)

	claiming := scorer.ClaimingValue(ca)
	creating := scorer.CreatingValue(ca)
	relationship := scorer.ManagingRelationships(ca)
	overall := scorer.Overall(claiming, creating, relationship)

	rec := &PerformanceRecord{
		ID:            uuid.New(),
		NegotiationID: req.NegotiationID,
		UserID:        req.UserID,
		ScenarioID:    req.ScenarioID,
		FramingLabel:  framingLabel(req.ScenarioID),
		Claiming:      DimensionResult{DimensionScore: claiming, Rating: scorer.Rating(float64(claiming.Score))},
		Creating:      DimensionResult{DimensionScore: creating, Rating: scorer.Rating(float64(creating.Score))},
		Relationship:  DimensionResult{DimensionScore: relationship, Rating: scorer.Rating(float64(relationship.Score))},
		OverallScore:  overall,
		OverallRating: scorer.Rating(overall),
		Metrics:       session.Calculate(req.Transcript, rs.SecondsPerTurn),
		Analysis:      ca,
		Milestones:    milestone.New(rs).Extract(ca.Moves),
		Suggestions:   advice.New(rs).Suggest(claiming, creating, relationship),
		AssessedAt:    time.Now().UTC(),
	}
	rec.Feedback = feedback(rec)
	return rec
}

// Assess runs the full pipeline for one negotiation. The negotiation id is
// the idempotency key: a negotiation that already has a stored record returns
// that record without re-applying progress, so retries by the caller can
// never double-count a session. If the earlier attempt stored the record but
// failed the progress write, the retry reconciles the aggregate from the
// stored history instead of dropping the score.
func (a *Assessor) Assess(ctx context.Context, req Request) (*PerformanceRecord, error) {
	if req.NegotiationID == uuid.Nil {
		a.failed.Inc()
		return nil, phaseErr(PhaseAnalysis, errors.New("missing negotiation id"))
	}
	if req.UserID == "" {
		a.failed.Inc()
		return nil, phaseErr(PhaseAnalysis, errors.New("missing user id"))
	}

	existing, err := a.records.GetPerformanceRecord(ctx, req.NegotiationID)
	if err == nil {
		// A stored record whose score never made it into the aggregate means
		// a previous attempt died between persistence and the progress write.
		// This retry is the recovery path, so fold the missing score in now.
		updated, repaired, rerr := a.tracker.ReconcileIfStale(ctx, existing.UserID, existing.AssessedAt)
		if rerr != nil {
			a.failed.Inc()
			return nil, phaseErr(PhaseProgress, rerr)
		}
		if repaired {
			a.announce(ctx, existing, updated)
			a.logger.Info("reconciled progress for stored assessment",
				"negotiation_id", req.NegotiationID,
				"user_id", existing.UserID,
				"total_negotiations", updated.TotalNegotiations)
		}
		a.logger.Info("assessment already recorded, returning stored record",
			"negotiation_id", req.NegotiationID)
		return existing, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		a.failed.Inc()
		return nil, phaseErr(PhasePersistence, fmt.Errorf("check existing record: %w", err))
	}

	rec := Evaluate(a.rules, req)

	if err := a.records.InsertPerformanceRecord(ctx, rec); err != nil {
		a.failed.Inc()
		return nil, phaseErr(PhasePersistence, fmt.Errorf("store performance record: %w", err))
	}

	// Milestone persistence failure is non-fatal: the stored record stands,
	// the caller just sees the warning.
	if len(rec.Milestones) > 0 {
		if err := a.records.InsertMilestones(ctx, rec.NegotiationID, rec.Milestones); err != nil {
			rec.MilestoneWarning = fmt.Sprintf("milestones not stored: %v", err)
			a.logger.Error("milestone persistence failed",
				"negotiation_id", rec.NegotiationID, "error", err)
		}
	}

	updated, err := a.tracker.Apply(ctx, req.UserID, rec.OverallScore, rec.AssessedAt)
	if err != nil {
		a.failed.Inc()
		return nil, phaseErr(PhaseProgress, err)
	}

	a.announce(ctx, rec, updated)
	a.processed.Inc()

	a.logger.Info("assessment complete",
		"negotiation_id", rec.NegotiationID,
		"user_id", rec.UserID,
		"overall", rec.OverallScore,
		"rating", rec.OverallRating,
		"milestones", len(rec.Milestones),
	)
	return rec, nil
}

// announce pushes the result to the leaderboard cache and the event bus.
// Both are best-effort: the assessment already succeeded.
func (a *Assessor) announce(ctx context.Context, rec *PerformanceRecord, updated progress.UserProgress) {
	if a.board != nil {
		if err := a.board.Record(ctx, rec.UserID, updated.AveragePerformance, updated.TotalNegotiations); err != nil {
			a.logger.Warn("leaderboard update failed", "user_id", rec.UserID, "error", err)
		}
	}

	if a.publisher != nil {
		evt := events.AssessmentCompleted{
			NegotiationID:      rec.NegotiationID.String(),
			UserID:             rec.UserID,
			OverallScore:       rec.OverallScore,
			OverallRating:      rec.OverallRating,
			AveragePerformance: updated.AveragePerformance,
			TotalNegotiations:  updated.TotalNegotiations,
			Milestones:         len(rec.Milestones),
			AssessedAt:         rec.AssessedAt,
		}
		if err := a.publisher.Publish(events.SubjectAssessmentCompleted, evt); err != nil {
			a.logger.Warn("failed to publish assessment completed", "error", err)
		}
	}
}

// HandleTranscriptCompleted is the NATS handler for
// negotiation.transcript.completed.
func (a *Assessor) HandleTranscriptCompleted(subject string, data []byte) {
	ctx := context.Background()

	var evt events.TranscriptCompleted
	if err := json.Unmarshal(data, &evt); err != nil {
		a.logger.Error("failed to parse transcript event", "error", err)
		return
	}

	negotiationID, err := uuid.Parse(evt.NegotiationID)
	if err != nil {
		a.logger.Error("invalid negotiation id", "negotiation_id", evt.NegotiationID, "error", err)
		return
	}

	a.logger.Info("processing transcript",
		"negotiation_id", evt.NegotiationID,
		"user_id", evt.UserID,
		"scenario_id", evt.ScenarioID,
		"messages", len(evt.Transcript),
	)

	if _, err := a.Assess(ctx, Request{
		NegotiationID: negotiationID,
		UserID:        evt.UserID,
		ScenarioID:    evt.ScenarioID,
		Transcript:    evt.Transcript,
	}); err != nil {
		a.logger.Error("assessment failed", "negotiation_id", evt.NegotiationID, "error", err)
	}
}

// Tracker exposes the progress tracker for trend and rebuild consumers.
func (a *Assessor) Tracker() *progress.Tracker {
	return a.tracker
}

// Status reports runtime counters for the status endpoint.
func (a *Assessor) Status() Status {
	return Status{
		Processed:    a.processed.Load(),
		Failed:       a.failed.Load(),
		RulesVersion: a.rules.Version,
	}
}

// feedback assembles the deterministic summary text for a record.
func feedback(rec *PerformanceRecord) string {
	strongest := strongestDimension(rec)
	msg := fmt.Sprintf("Overall %s performance (%.1f). Strongest dimension: %s.",
		rec.OverallRating, rec.OverallScore, dimensionLabel(strongest))

	if len(rec.Suggestions) > 0 {
		msg += fmt.Sprintf(" Focus next on %s.", dimensionLabel(rec.Suggestions[0].Dimension))
	}
	return msg
}

// strongestDimension breaks ties in claiming, creating, relationship order.
func strongestDimension(rec *PerformanceRecord) string {
	best, bestScore := scoring.DimensionClaiming, rec.Claiming.Score
	if rec.Creating.Score > bestScore {
		best, bestScore = scoring.DimensionCreating, rec.Creating.Score
	}
	if rec.Relationship.Score > bestScore {
		best = scoring.DimensionRelationship
	}
	return best
}

func dimensionLabel(dimension string) string {
	switch dimension {
	case scoring.DimensionClaiming:
		return "claiming value"
	case scoring.DimensionCreating:
		return "creating value"
	case scoring.DimensionRelationship:
		return "managing relationships"
	default:
		return dimension
	}
}
