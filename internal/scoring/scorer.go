package scoring

import (
	"strings"

	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/analysis"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/rules"
)

// Canonical dimension identifiers, shared with persistence and coaching.
const (
	DimensionClaiming     = "claiming_value"
	DimensionCreating     = "creating_value"
	DimensionRelationship = "managing_relationships"
)

// Ordinal ratings, best to worst.
const (
	RatingExcellent = "excellent"
	RatingGood      = "good"
	RatingAverage   = "average"
	RatingPoor      = "poor"
)

// DimensionScore is the bounded numeric result for one skill dimension plus
// the rationale assembled from every rule that fired.
type DimensionScore struct {
	Score    int    `json:"score"`
	Analysis string `json:"analysis"`
}

// Scorer applies the configured rule deltas to a conversation analysis.
// Each dimension starts at the base score; triggered rules add or subtract
// their delta and append a rationale clause; the result is clamped to [0,100].
type Scorer struct {
	rules *rules.Ruleset
}

// New creates a scorer bound to a ruleset.
func New(rs *rules.Ruleset) *Scorer {
	return &Scorer{rules: rs}
}

// baseline is returned for any dimension when the user never spoke: with no
// user messages there is no behaviour to assess, so every dimension sits at
// the base score rather than being penalised for silence.
func (s *Scorer) baseline() DimensionScore {
	return DimensionScore{
		Score:    clamp(s.rules.BaseScore),
		Analysis: "Not enough user participation to assess this dimension",
	}
}

// ClaimingValue scores competitive/distributive effectiveness.
func (s *Scorer) ClaimingValue(ca analysis.ConversationAnalysis) DimensionScore {
	if ca.UserMessages == 0 {
		return s.baseline()
	}

	r := s.rules.Claiming
	score := s.rules.BaseScore
	var notes []string

	userMsgs := float64(maxInt(1, ca.UserMessages))
	competitiveRatio := float64(ca.CompetitiveIndicators) / userMsgs

	switch {
	case competitiveRatio > r.HighCompetitiveRatio:
		score += r.HighCompetitiveDelta
		notes = append(notes, "Strong competitive positioning throughout the negotiation")
	case competitiveRatio > r.ModerateCompetitiveRatio:
		score += r.ModerateCompetitiveDelta
		notes = append(notes, "Showed some competitive assertiveness")
	default:
		score += r.PassiveDelta
		notes = append(notes, "Rarely pressed for advantage; positions were conceded easily")
	}

	if float64(ca.InformationShared) < float64(ca.UserMessages)*r.GuardedShareRatio {
		score += r.GuardedShareDelta
		notes = append(notes, "Kept good control over information disclosure")
	}

	if float64(ca.QuestionsAsked)/userMsgs > r.QuestionRatio {
		score += r.QuestionDelta
		notes = append(notes, "Probed the counterpart with targeted questions")
	}

	if ca.MoveCount(analysis.MoveCompetitive) > r.MoveThreshold {
		score += r.MoveDelta
		notes = append(notes, "Sustained a competitive stance across multiple exchanges")
	}

	return DimensionScore{Score: clamp(score), Analysis: joinNotes(notes)}
}

// CreatingValue scores collaborative, mutual-benefit problem solving.
func (s *Scorer) CreatingValue(ca analysis.ConversationAnalysis) DimensionScore {
	if ca.UserMessages == 0 {
		return s.baseline()
	}

	r := s.rules.Creating
	score := s.rules.BaseScore
	var notes []string

	userMsgs := float64(maxInt(1, ca.UserMessages))

	switch {
	case ca.ValueCreationAttempts > r.StrongValueAttempts:
		score += r.StrongValueDelta
		notes = append(notes, "Repeatedly explored mutual-benefit options")
	case ca.ValueCreationAttempts > 0:
		score += r.SomeValueDelta
		notes = append(notes, "Made some attempts at mutual-benefit framing")
	default:
		score += r.NoValueDelta
		notes = append(notes, "Never explored opportunities for joint gain")
	}

	collaborativeRatio := float64(ca.CollaborativeIndicators) / userMsgs
	switch {
	case collaborativeRatio > r.HighCollaborativeRatio:
		score += r.HighCollaborativeDelta
		notes = append(notes, "Consistently collaborative in tone and proposals")
	case collaborativeRatio > r.ModerateCollaborativeRatio:
		score += r.ModerateCollaborativeDelta
		notes = append(notes, "Used collaborative language at key moments")
	}

	if float64(ca.InformationShared) > float64(ca.UserMessages)*r.OpenShareRatio {
		score += r.OpenShareDelta
		notes = append(notes, "Shared underlying interests openly, enabling trades")
	}

	if ca.QuestionsAsked > r.QuestionThreshold {
		score += r.QuestionDelta
		notes = append(notes, "Asked enough questions to surface the counterpart's interests")
	}

	return DimensionScore{Score: clamp(score), Analysis: joinNotes(notes)}
}

// ManagingRelationships scores interpersonal and rapport effectiveness.
func (s *Scorer) ManagingRelationships(ca analysis.ConversationAnalysis) DimensionScore {
	if ca.UserMessages == 0 {
		return s.baseline()
	}

	r := s.rules.Relationship
	score := s.rules.BaseScore
	var notes []string

	userMsgs := float64(maxInt(1, ca.UserMessages))
	relationshipRatio := float64(ca.RelationshipIndicators) / userMsgs

	switch {
	case relationshipRatio > r.HighRelationshipRatio:
		score += r.HighRelationshipDelta
		notes = append(notes, "Invested heavily in rapport and acknowledgement")
	case relationshipRatio > r.ModerateRelationshipRatio:
		score += r.ModerateRelationshipDelta
		notes = append(notes, "Maintained a respectful, personable tone")
	default:
		score += r.NeglectDelta
		notes = append(notes, "Paid little attention to the relationship side of the table")
	}

	if ca.MoveCount(analysis.MoveRelationship) > r.MoveThreshold {
		score += r.MoveDelta
		notes = append(notes, "Relationship-building moves recurred through the session")
	}

	// The balance bonus rewards mixing competitive and collaborative play; it
	// requires actual engagement in at least one style, otherwise total
	// passivity would read as balance.
	styleGap := absInt(ca.CompetitiveIndicators - ca.CollaborativeIndicators)
	if ca.CompetitiveIndicators+ca.CollaborativeIndicators > 0 && styleGap < r.BalanceGap {
		score += r.BalanceDelta
		notes = append(notes, "Balanced competitive and collaborative approaches")
	}

	return DimensionScore{Score: clamp(score), Analysis: joinNotes(notes)}
}

// Overall blends the three dimension scores with the configured weights.
// Inputs are already bounded, so the result needs no further clamping.
func (s *Scorer) Overall(claiming, creating, relationship DimensionScore) float64 {
	w := s.rules.Weights
	return float64(claiming.Score)*w.Claiming +
		float64(creating.Score)*w.Creating +
		float64(relationship.Score)*w.Relationship
}

// Rating maps a score to its ordinal rating via the configured thresholds.
func (s *Scorer) Rating(score float64) string {
	t := s.rules.Ratings
	switch {
	case score >= t.Excellent:
		return RatingExcellent
	case score >= t.Good:
		return RatingGood
	case score >= t.Average:
		return RatingAverage
	default:
		return RatingPoor
	}
}

func joinNotes(notes []string) string {
	return strings.Join(notes, ". ")
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
