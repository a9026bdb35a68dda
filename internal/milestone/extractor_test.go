package milestone

import (
	"testing"

	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/analysis"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/rules"
)

func TestExtract_Breakthrough(t *testing.T) {
	e := New(rules.Default())
	moves := []analysis.NegotiationMove{
		{Type: analysis.MoveCollaborative, Indicator: "creative", MessageIndex: 6, Context: "Let's get creative here"},
	}

	got := e.Extract(moves)

	if len(got) != 1 {
		t.Fatalf("milestones = %d, want 1", len(got))
	}
	if got[0].Type != TypeBreakthrough {
		t.Errorf("type = %q, want breakthrough", got[0].Type)
	}
	if got[0].ImpactScore != 75 {
		t.Errorf("impact = %d, want 75", got[0].ImpactScore)
	}
	if got[0].TimestampSeconds != 180 { // index 6 x 30s fallback
		t.Errorf("timestamp = %d, want 180", got[0].TimestampSeconds)
	}
}

func TestExtract_KeyMoment(t *testing.T) {
	e := New(rules.Default())
	moves := []analysis.NegotiationMove{
		{Type: analysis.MoveCompetitive, Indicator: "anchor", MessageIndex: 2, Context: "I'll anchor at 90k"},
	}

	got := e.Extract(moves)

	if len(got) != 1 {
		t.Fatalf("milestones = %d, want 1", len(got))
	}
	if got[0].Type != TypeKeyMoment {
		t.Errorf("type = %q, want key_moment", got[0].Type)
	}
	if got[0].ImpactScore != 60 {
		t.Errorf("impact = %d, want 60", got[0].ImpactScore)
	}
	if got[0].TimestampSeconds != 60 {
		t.Errorf("timestamp = %d, want 60", got[0].TimestampSeconds)
	}
}

func TestExtract_PrefersRealOffsets(t *testing.T) {
	e := New(rules.Default())
	offset := 47
	moves := []analysis.NegotiationMove{
		{Type: analysis.MoveCompetitive, Indicator: "anchor", MessageIndex: 2, OffsetSeconds: &offset},
	}

	got := e.Extract(moves)

	if len(got) != 1 {
		t.Fatalf("milestones = %d, want 1", len(got))
	}
	if got[0].TimestampSeconds != 47 {
		t.Errorf("timestamp = %d, want real offset 47", got[0].TimestampSeconds)
	}
}

func TestExtract_IgnoresNonMatchingMoves(t *testing.T) {
	e := New(rules.Default())
	moves := []analysis.NegotiationMove{
		{Type: analysis.MoveCollaborative, Indicator: "what if", MessageIndex: 1},
		{Type: analysis.MoveCompetitive, Indicator: "final offer", MessageIndex: 2},
		// Marker on the wrong move type must not fire.
		{Type: analysis.MoveCompetitive, Indicator: "creative", MessageIndex: 3},
		{Type: analysis.MoveCollaborative, Indicator: "anchor", MessageIndex: 4},
		{Type: analysis.MoveRelationship, Indicator: "appreciate", MessageIndex: 5},
	}

	if got := e.Extract(moves); len(got) != 0 {
		t.Errorf("milestones = %d, want 0", len(got))
	}
}

func TestExtract_TimestampsNonDecreasing(t *testing.T) {
	e := New(rules.Default())
	moves := []analysis.NegotiationMove{
		{Type: analysis.MoveCompetitive, Indicator: "anchor", MessageIndex: 1},
		{Type: analysis.MoveCollaborative, Indicator: "creative", MessageIndex: 4},
		{Type: analysis.MoveCompetitive, Indicator: "anchor", MessageIndex: 9},
	}

	got := e.Extract(moves)

	if len(got) != 3 {
		t.Fatalf("milestones = %d, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].TimestampSeconds < got[i-1].TimestampSeconds {
			t.Errorf("timestamps decreased: %d then %d",
				got[i-1].TimestampSeconds, got[i].TimestampSeconds)
		}
	}
}

func TestExtract_MixedTimingStaysNonDecreasing(t *testing.T) {
	e := New(rules.Default())
	// The first move has no capture offset, so it falls back to 6 x 30s = 180.
	// The later move carries a real offset below that estimate; its timestamp
	// is floored at the predecessor's instead of rewinding the timeline.
	offset := 47
	moves := []analysis.NegotiationMove{
		{Type: analysis.MoveCollaborative, Indicator: "creative", MessageIndex: 6},
		{Type: analysis.MoveCompetitive, Indicator: "anchor", MessageIndex: 7, OffsetSeconds: &offset},
	}

	got := e.Extract(moves)

	if len(got) != 2 {
		t.Fatalf("milestones = %d, want 2", len(got))
	}
	if got[0].TimestampSeconds != 180 {
		t.Errorf("first timestamp = %d, want 180", got[0].TimestampSeconds)
	}
	if got[1].TimestampSeconds != 180 {
		t.Errorf("second timestamp = %d, want floored to 180", got[1].TimestampSeconds)
	}
}

func TestExtract_EmptyMoves(t *testing.T) {
	e := New(rules.Default())
	if got := e.Extract(nil); len(got) != 0 {
		t.Errorf("milestones = %d, want 0", len(got))
	}
}
