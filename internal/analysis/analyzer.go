package analysis

import (
	"strings"

	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/rules"
)

// contextChars is how much of an utterance is kept as move context.
const contextChars = 100

// Analyzer scans transcripts against the configured indicator tables.
// It holds only its ruleset and is safe for concurrent use.
type Analyzer struct {
	rules *rules.Ruleset
}

// New creates an analyzer bound to a ruleset.
func New(rs *rules.Ruleset) *Analyzer {
	return &Analyzer{rules: rs}
}

// Analyze walks the transcript in order and produces the conversation
// aggregate. The scan is pure and deterministic: the same transcript and
// ruleset always yield the same result. An empty transcript yields all-zero
// counts.
func (a *Analyzer) Analyze(transcript []Utterance) ConversationAnalysis {
	ca := ConversationAnalysis{TotalMessages: len(transcript)}

	for _, u := range transcript {
		if u.Speaker != SpeakerUser {
			ca.CounterpartMessages++
			continue
		}
		ca.UserMessages++

		lower := strings.ToLower(u.Text)

		ca.CompetitiveIndicators += a.scanIndicators(&ca, u, lower, a.rules.Indicators.Competitive, MoveCompetitive)
		ca.CollaborativeIndicators += a.scanIndicators(&ca, u, lower, a.rules.Indicators.Collaborative, MoveCollaborative)
		ca.RelationshipIndicators += a.scanIndicators(&ca, u, lower, a.rules.Indicators.Relationship, MoveRelationship)

		if strings.Contains(u.Text, "?") {
			ca.QuestionsAsked++
		}
		if containsAny(lower, a.rules.Indicators.InformationCues) {
			ca.InformationShared++
		}
		if containsAny(lower, a.rules.Indicators.ValueCreationCues) {
			ca.ValueCreationAttempts++
		}
	}

	return ca
}

// scanIndicators tests the lower-cased utterance against one phrase table and
// records a move per matching phrase. Returns the number of matches.
func (a *Analyzer) scanIndicators(ca *ConversationAnalysis, u Utterance, lower string, phrases []string, moveType string) int {
	matches := 0
	for _, phrase := range phrases {
		if !strings.Contains(lower, phrase) {
			continue
		}
		matches++
		ca.Moves = append(ca.Moves, NegotiationMove{
			Type:          moveType,
			Indicator:     phrase,
			MessageIndex:  u.Index,
			Context:       truncate(u.Text, contextChars),
			OffsetSeconds: u.OffsetSeconds,
		})
	}
	return matches
}

func containsAny(s string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(s, phrase) {
			return true
		}
	}
	return false
}

// truncate returns the first n characters of s, counted in runes so a
// multi-byte utterance never splits mid-character.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
