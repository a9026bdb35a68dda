package milestone

import (
	"fmt"
	"strings"

	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/analysis"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/rules"
)

// Milestone types.
const (
	TypeBreakthrough = "breakthrough"
	TypeKeyMoment    = "key_moment"
)

// Milestone is a notable event detected in a negotiation, placed on the
// session timeline by TimestampSeconds.
type Milestone struct {
	Type             string `json:"type"`
	Description      string `json:"description"`
	TimestampSeconds int    `json:"timestamp_seconds"`
	ImpactScore      int    `json:"impact_score"`
}

// Extractor scans recorded negotiation moves for breakthrough and key-moment
// signals. Stateless apart from its ruleset.
type Extractor struct {
	rules *rules.Ruleset
}

// New creates an extractor bound to a ruleset.
func New(rs *rules.Ruleset) *Extractor {
	return &Extractor{rules: rs}
}

// Extract walks the move list in order. A collaborative move whose indicator
// contains the breakthrough marker becomes a breakthrough; a competitive move
// whose indicator contains the key-moment marker becomes a key moment.
// Timestamps use the move's real capture offset when present and fall back to
// message_index x seconds-per-turn otherwise. A real offset can sit below an
// earlier move's estimate, so each timestamp is floored at its predecessor to
// keep the timeline non-decreasing.
func (e *Extractor) Extract(moves []analysis.NegotiationMove) []Milestone {
	m := e.rules.Milestones
	var milestones []Milestone
	floor := 0

	for _, move := range moves {
		switch {
		case move.Type == analysis.MoveCollaborative && strings.Contains(move.Indicator, m.BreakthroughMarker):
			milestones = append(milestones, Milestone{
				Type:             TypeBreakthrough,
				Description:      fmt.Sprintf("Creative problem-solving opened up the negotiation: %q", move.Context),
				TimestampSeconds: e.timestamp(move, floor),
				ImpactScore:      m.BreakthroughImpact,
			})
		case move.Type == analysis.MoveCompetitive && strings.Contains(move.Indicator, m.KeyMomentMarker):
			milestones = append(milestones, Milestone{
				Type:             TypeKeyMoment,
				Description:      fmt.Sprintf("Anchoring move framed the bargaining range: %q", move.Context),
				TimestampSeconds: e.timestamp(move, floor),
				ImpactScore:      m.KeyMomentImpact,
			})
		default:
			continue
		}
		floor = milestones[len(milestones)-1].TimestampSeconds
	}

	return milestones
}

func (e *Extractor) timestamp(move analysis.NegotiationMove, floor int) int {
	ts := move.MessageIndex * e.rules.SecondsPerTurn
	if move.OffsetSeconds != nil && *move.OffsetSeconds >= 0 {
		ts = *move.OffsetSeconds
	}
	if ts < floor {
		return floor
	}
	return ts
}
