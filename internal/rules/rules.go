package rules

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Ruleset holds every tunable knob of the assessment engine: indicator phrase
// tables, per-dimension scoring thresholds and deltas, composite weights, and
// rating cutoffs. A Ruleset is loaded once at startup and treated as immutable;
// the engine itself stays stateless so parallel instances can run with
// different calibrations.
type Ruleset struct {
	Version string `json:"version"`

	BaseScore  int        `json:"base_score"`
	Indicators Indicators `json:"indicators"`

	Claiming     ClaimingRules     `json:"claiming_value"`
	Creating     CreatingRules     `json:"creating_value"`
	Relationship RelationshipRules `json:"managing_relationships"`

	Weights    Weights          `json:"weights"`
	Ratings    RatingThresholds `json:"ratings"`
	Milestones MilestoneRules   `json:"milestones"`

	// SecondsPerTurn approximates elapsed time from message position when the
	// capture layer supplies no per-turn timestamps.
	SecondsPerTurn int `json:"seconds_per_turn"`

	// SuggestionThreshold is the dimension score below which an improvement
	// suggestion is emitted.
	SuggestionThreshold int `json:"suggestion_threshold"`
}

// Indicators are the fixed phrase tables scanned against user utterances.
// Matching is substring containment over the lower-cased utterance text.
type Indicators struct {
	Competitive   []string `json:"competitive"`
	Collaborative []string `json:"collaborative"`
	Relationship  []string `json:"relationship"`

	// InformationCues mark an utterance as disclosing information.
	InformationCues []string `json:"information_cues"`
	// ValueCreationCues mark an utterance as a mutual-benefit attempt.
	ValueCreationCues []string `json:"value_creation_cues"`
}

// ClaimingRules tune the claiming-value scorer.
type ClaimingRules struct {
	HighCompetitiveRatio     float64 `json:"high_competitive_ratio"`
	HighCompetitiveDelta     int     `json:"high_competitive_delta"`
	ModerateCompetitiveRatio float64 `json:"moderate_competitive_ratio"`
	ModerateCompetitiveDelta int     `json:"moderate_competitive_delta"`
	PassiveDelta             int     `json:"passive_delta"`

	GuardedShareRatio float64 `json:"guarded_share_ratio"`
	GuardedShareDelta int     `json:"guarded_share_delta"`

	QuestionRatio float64 `json:"question_ratio"`
	QuestionDelta int     `json:"question_delta"`

	MoveThreshold int `json:"move_threshold"`
	MoveDelta     int `json:"move_delta"`
}

// CreatingRules tune the creating-value scorer.
type CreatingRules struct {
	StrongValueAttempts int `json:"strong_value_attempts"`
	StrongValueDelta    int `json:"strong_value_delta"`
	SomeValueDelta      int `json:"some_value_delta"`
	NoValueDelta        int `json:"no_value_delta"`

	HighCollaborativeRatio     float64 `json:"high_collaborative_ratio"`
	HighCollaborativeDelta     int     `json:"high_collaborative_delta"`
	ModerateCollaborativeRatio float64 `json:"moderate_collaborative_ratio"`
	ModerateCollaborativeDelta int     `json:"moderate_collaborative_delta"`

	OpenShareRatio float64 `json:"open_share_ratio"`
	OpenShareDelta int     `json:"open_share_delta"`

	QuestionThreshold int `json:"question_threshold"`
	QuestionDelta     int `json:"question_delta"`
}

// RelationshipRules tune the managing-relationships scorer.
type RelationshipRules struct {
	HighRelationshipRatio     float64 `json:"high_relationship_ratio"`
	HighRelationshipDelta     int     `json:"high_relationship_delta"`
	ModerateRelationshipRatio float64 `json:"moderate_relationship_ratio"`
	ModerateRelationshipDelta int     `json:"moderate_relationship_delta"`
	NeglectDelta              int     `json:"neglect_delta"`

	MoveThreshold int `json:"move_threshold"`
	MoveDelta     int `json:"move_delta"`

	BalanceGap   int `json:"balance_gap"`
	BalanceDelta int `json:"balance_delta"`
}

// Weights blend the three dimension scores into the overall score.
// They must sum to 1.0.
type Weights struct {
	Claiming     float64 `json:"claiming"`
	Creating     float64 `json:"creating"`
	Relationship float64 `json:"relationship"`
}

// RatingThresholds map a numeric score to an ordinal rating. Scores at or
// above Excellent rate "excellent", then Good, then Average; anything below
// Average rates "poor". Thresholds must be strictly descending.
type RatingThresholds struct {
	Excellent float64 `json:"excellent"`
	Good      float64 `json:"good"`
	Average   float64 `json:"average"`
}

// MilestoneRules tune milestone detection over the recorded move list.
type MilestoneRules struct {
	BreakthroughMarker string `json:"breakthrough_marker"`
	BreakthroughImpact int    `json:"breakthrough_impact"`
	KeyMomentMarker    string `json:"key_moment_marker"`
	KeyMomentImpact    int    `json:"key_moment_impact"`
}

// Default returns the calibrated production ruleset.
func Default() *Ruleset {
	return &Ruleset{
		Version:   "2026.1",
		BaseScore: 50,
		Indicators: Indicators{
			Competitive: []string{
				"final offer", "take it or leave it", "best and final",
				"bottom line", "non-negotiable", "won't go", "can't go",
				"my final", "deal breaker", "walk away", "anchor",
			},
			Collaborative: []string{
				"what if", "how about", "work together", "both of us",
				"creative", "explore options", "alternative", "brainstorm",
				"flexible", "let's find",
			},
			Relationship: []string{
				"appreciate", "understand your", "i hear you", "respect",
				"thank you", "your perspective", "trust", "partnership",
				"good point", "i see why",
			},
			InformationCues: []string{
				"because", "my situation", "we have", "to be honest",
				"the reason", "our budget", "i need", "i can share",
			},
			ValueCreationCues: []string{
				"mutual", "win-win", "both", "benefit",
				"expand the pie", "value for everyone",
			},
		},
		Claiming: ClaimingRules{
			HighCompetitiveRatio:     0.3,
			HighCompetitiveDelta:     20,
			ModerateCompetitiveRatio: 0.1,
			ModerateCompetitiveDelta: 10,
			PassiveDelta:             -10,
			GuardedShareRatio:        0.3,
			GuardedShareDelta:        15,
			QuestionRatio:            0.2,
			QuestionDelta:            10,
			MoveThreshold:            3,
			MoveDelta:                15,
		},
		Creating: CreatingRules{
			StrongValueAttempts:        2,
			StrongValueDelta:           25,
			SomeValueDelta:             15,
			NoValueDelta:               -15,
			HighCollaborativeRatio:     0.3,
			HighCollaborativeDelta:     20,
			ModerateCollaborativeRatio: 0.1,
			ModerateCollaborativeDelta: 10,
			OpenShareRatio:             0.4,
			OpenShareDelta:             15,
			QuestionThreshold:          2,
			QuestionDelta:              10,
		},
		Relationship: RelationshipRules{
			HighRelationshipRatio:     0.3,
			HighRelationshipDelta:     25,
			ModerateRelationshipRatio: 0.1,
			ModerateRelationshipDelta: 15,
			NeglectDelta:              -10,
			MoveThreshold:             2,
			MoveDelta:                 15,
			BalanceGap:                3,
			BalanceDelta:              10,
		},
		Weights: Weights{
			Claiming:     0.35,
			Creating:     0.35,
			Relationship: 0.30,
		},
		Ratings: RatingThresholds{
			Excellent: 85,
			Good:      70,
			Average:   55,
		},
		Milestones: MilestoneRules{
			BreakthroughMarker: "creative",
			BreakthroughImpact: 75,
			KeyMomentMarker:    "anchor",
			KeyMomentImpact:    60,
		},
		SecondsPerTurn:      30,
		SuggestionThreshold: 70,
	}
}

// LoadFile reads a JSON ruleset from path. Fields absent from the file keep
// their default values, so a tuning file only needs to carry the knobs it
// changes. The result is validated before being returned.
func LoadFile(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset: %w", err)
	}

	rs := Default()
	if err := json.Unmarshal(data, rs); err != nil {
		return nil, fmt.Errorf("parse ruleset %s: %w", path, err)
	}
	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("validate ruleset %s: %w", path, err)
	}
	return rs, nil
}

// Validate checks the structural invariants a ruleset must hold.
func (r *Ruleset) Validate() error {
	sum := r.Weights.Claiming + r.Weights.Creating + r.Weights.Relationship
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("dimension weights must sum to 1.0, got %g", sum)
	}
	if !(r.Ratings.Excellent > r.Ratings.Good && r.Ratings.Good > r.Ratings.Average) {
		return fmt.Errorf("rating thresholds must be strictly descending: excellent=%g good=%g average=%g",
			r.Ratings.Excellent, r.Ratings.Good, r.Ratings.Average)
	}
	if r.SecondsPerTurn <= 0 {
		return fmt.Errorf("seconds_per_turn must be positive, got %d", r.SecondsPerTurn)
	}
	if r.SuggestionThreshold <= 0 || r.SuggestionThreshold > 100 {
		return fmt.Errorf("suggestion_threshold must be in (0,100], got %d", r.SuggestionThreshold)
	}
	if len(r.Indicators.Competitive) == 0 ||
		len(r.Indicators.Collaborative) == 0 ||
		len(r.Indicators.Relationship) == 0 {
		return fmt.Errorf("indicator phrase tables must not be empty")
	}
	if r.Milestones.BreakthroughMarker == "" || r.Milestones.KeyMomentMarker == "" {
		return fmt.Errorf("milestone markers must not be empty")
	}
	return nil
}
