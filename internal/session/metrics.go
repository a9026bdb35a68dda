package session

import (
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/analysis"
)

// Metrics describes the shape of a negotiation session. DurationSeconds is an
// approximation (messages x uniform turn duration) unless the capture layer
// supplied real per-turn offsets, in which case the trailing offset wins.
type Metrics struct {
	DurationSeconds       int     `json:"duration_seconds"`
	TurnCount             int     `json:"turn_count"`
	SpeakingTimePct       float64 `json:"speaking_time_percentage"`
	DurationIsApproximate bool    `json:"duration_is_approximate"`
}

// Calculate derives session metrics from transcript shape.
func Calculate(transcript []analysis.Utterance, secondsPerTurn int) Metrics {
	total := len(transcript)
	user := 0
	for _, u := range transcript {
		if u.Speaker == analysis.SpeakerUser {
			user++
		}
	}

	m := Metrics{
		DurationSeconds:       total * secondsPerTurn,
		TurnCount:             total / 2,
		SpeakingTimePct:       float64(user) / float64(maxInt(1, total)) * 100,
		DurationIsApproximate: true,
	}

	if total > 0 {
		if last := transcript[total-1].OffsetSeconds; last != nil && *last >= 0 {
			m.DurationSeconds = *last
			m.DurationIsApproximate = false
		}
	}

	return m
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
