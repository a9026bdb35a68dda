package assess

import (
	"time"

	"github.com/google/uuid"

	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/advice"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/analysis"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/milestone"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/scoring"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/session"
)

// Request identifies one negotiation to assess. The scenario id only selects
// the descriptive framing label; it never alters scoring.
type Request struct {
	NegotiationID uuid.UUID            `json:"negotiation_id"`
	UserID        string               `json:"user_id"`
	ScenarioID    string               `json:"scenario_id"`
	Transcript    []analysis.Utterance `json:"transcript"`
}

// DimensionResult is a dimension score with its ordinal rating.
type DimensionResult struct {
	scoring.DimensionScore
	Rating string `json:"rating"`
}

// PerformanceRecord is the complete assessment output for one negotiation.
// It is immutable once produced; the engine hands it to persistence and
// downstream consumers as-is.
type PerformanceRecord struct {
	ID            uuid.UUID `json:"id"`
	NegotiationID uuid.UUID `json:"negotiation_id"`
	UserID        string    `json:"user_id"`
	ScenarioID    string    `json:"scenario_id"`
	FramingLabel  string    `json:"framing_label"`

	Claiming     DimensionResult `json:"claiming_value"`
	Creating     DimensionResult `json:"creating_value"`
	Relationship DimensionResult `json:"managing_relationships"`

	OverallScore  float64 `json:"overall_score"`
	OverallRating string  `json:"overall_rating"`
	Feedback      string  `json:"feedback"`

	Metrics     session.Metrics               `json:"session_metrics"`
	Analysis    analysis.ConversationAnalysis `json:"conversation_analysis"`
	Milestones  []milestone.Milestone         `json:"milestones"`
	Suggestions []advice.Suggestion           `json:"improvement_suggestions"`

	AssessedAt time.Time `json:"assessed_at"`

	// MilestoneWarning is set when the main record persisted but milestone
	// persistence failed; the record itself stays valid.
	MilestoneWarning string `json:"milestone_warning,omitempty"`
}

// framingLabels maps scenario identifiers to their evaluation framing.
var framingLabels = map[string]string{
	"salary-negotiation":  "Distributive salary negotiation",
	"car-purchase":        "Single-issue price negotiation",
	"vendor-contract":     "Multi-issue vendor contract negotiation",
	"business-partnership": "Integrative partnership negotiation",
}

func framingLabel(scenarioID string) string {
	if label, ok := framingLabels[scenarioID]; ok {
		return label
	}
	return "General negotiation assessment"
}
