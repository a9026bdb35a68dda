package advice

import (
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/rules"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/scoring"
)

// Suggestion priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
)

// Suggestion is one improvement recommendation for a skill dimension,
// drawn from the static catalog.
type Suggestion struct {
	Dimension       string   `json:"dimension"`
	Priority        string   `json:"priority"`
	Suggestion      string   `json:"suggestion"`
	SpecificActions []string `json:"specific_actions"`
}

// catalogEntry pairs a dimension with its canned coaching content. The
// catalog is fixed so the advisor's output stays reproducible; suggestions
// are never synthesised.
type catalogEntry struct {
	dimension string
	priority  string
	text      string
	actions   []string
}

// catalog order determines emission order: claiming, creating, relationship.
var catalog = []catalogEntry{
	{
		dimension: scoring.DimensionClaiming,
		priority:  PriorityHigh,
		text:      "Work on your distributive game: claim more of the value on the table instead of conceding it.",
		actions: []string{
			"Open with a stronger anchor to frame the bargaining range",
			"Delay disclosing your position until you have learned theirs",
			"Back your asks with objective market data",
		},
	},
	{
		dimension: scoring.DimensionCreating,
		priority:  PriorityHigh,
		text:      "Look harder for joint gains: the best deals expand the pie before dividing it.",
		actions: []string{
			"Ask \"what-if\" questions to surface trade possibilities",
			"Propose trade-offs that benefit both sides",
			"Disclose underlying interests rather than fixed positions",
		},
	},
	{
		dimension: scoring.DimensionRelationship,
		priority:  PriorityMedium,
		text:      "Invest more in the relationship: deals close faster with counterparts who feel heard.",
		actions: []string{
			"Show empathy for the counterpart's constraints",
			"Use inclusive language when framing proposals",
			"Acknowledge the counterpart's points before countering them",
		},
	},
}

// Advisor emits per-dimension improvement suggestions for any dimension
// scoring below the configured threshold.
type Advisor struct {
	threshold int
}

// New creates an advisor using the ruleset's suggestion threshold.
func New(rs *rules.Ruleset) *Advisor {
	return &Advisor{threshold: rs.SuggestionThreshold}
}

// Suggest returns the catalog entries for every underperforming dimension,
// in catalog order. Deterministic given the scores.
func (a *Advisor) Suggest(claiming, creating, relationship scoring.DimensionScore) []Suggestion {
	scores := map[string]int{
		scoring.DimensionClaiming:     claiming.Score,
		scoring.DimensionCreating:     creating.Score,
		scoring.DimensionRelationship: relationship.Score,
	}

	var out []Suggestion
	for _, entry := range catalog {
		if scores[entry.dimension] >= a.threshold {
			continue
		}
		out = append(out, Suggestion{
			Dimension:       entry.dimension,
			Priority:        entry.priority,
			Suggestion:      entry.text,
			SpecificActions: entry.actions,
		})
	}
	return out
}
