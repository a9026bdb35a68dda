package analysis

// Speaker labels in a captured transcript.
const (
	SpeakerUser        = "user"
	SpeakerCounterpart = "counterpart"
)

// Negotiation move categories.
const (
	MoveCompetitive   = "competitive"
	MoveCollaborative = "collaborative"
	MoveRelationship  = "relationship"
)

// Utterance is one turn of a captured conversation. OffsetSeconds carries the
// real elapsed time from the capture layer when available; nil means the
// engine falls back to its uniform-turn-duration approximation.
type Utterance struct {
	Speaker       string `json:"speaker"`
	Text          string `json:"text"`
	Index         int    `json:"index"`
	OffsetSeconds *int   `json:"offset_seconds,omitempty"`
}

// NegotiationMove is a detected indicator match in a user utterance.
type NegotiationMove struct {
	Type          string `json:"type"`
	Indicator     string `json:"indicator"`
	MessageIndex  int    `json:"message_index"`
	Context       string `json:"context"`
	OffsetSeconds *int   `json:"offset_seconds,omitempty"`
}

// ConversationAnalysis aggregates everything the analyzer observed in a
// transcript. It is the sole input to the dimensional scorers.
type ConversationAnalysis struct {
	TotalMessages           int `json:"total_messages"`
	UserMessages            int `json:"user_messages"`
	CounterpartMessages     int `json:"counterpart_messages"`
	CompetitiveIndicators   int `json:"competitive_indicators"`
	CollaborativeIndicators int `json:"collaborative_indicators"`
	RelationshipIndicators  int `json:"relationship_indicators"`
	QuestionsAsked          int `json:"questions_asked"`
	InformationShared       int `json:"information_shared"`
	ValueCreationAttempts   int `json:"value_creation_attempts"`

	Moves []NegotiationMove `json:"negotiation_moves"`
}

// MoveCount returns how many recorded moves have the given type.
func (a *ConversationAnalysis) MoveCount(moveType string) int {
	n := 0
	for _, m := range a.Moves {
		if m.Type == moveType {
			n++
		}
	}
	return n
}
