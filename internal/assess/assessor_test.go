package assess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/analysis"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/milestone"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/progress"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/rules"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/scoring"
)

// fakeStore implements RecordStore and progress.Store in memory with
// injectable failures.
type fakeStore struct {
	mu         sync.Mutex
	records    map[uuid.UUID]*PerformanceRecord
	milestones map[uuid.UUID][]milestone.Milestone
	progress   map[string]progress.UserProgress

	failInsert     bool
	failMilestones bool
	failProgress   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:    make(map[uuid.UUID]*PerformanceRecord),
		milestones: make(map[uuid.UUID][]milestone.Milestone),
		progress:   make(map[string]progress.UserProgress),
	}
}

func (f *fakeStore) GetPerformanceRecord(_ context.Context, id uuid.UUID) (*PerformanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec, nil
}

func (f *fakeStore) InsertPerformanceRecord(_ context.Context, rec *PerformanceRecord) error {
	if f.failInsert {
		return errors.New("connection refused")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *rec
	f.records[rec.NegotiationID] = &stored
	return nil
}

func (f *fakeStore) InsertMilestones(_ context.Context, id uuid.UUID, ms []milestone.Milestone) error {
	if f.failMilestones {
		return errors.New("milestones table unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.milestones[id] = ms
	return nil
}

func (f *fakeStore) GetUserProgress(_ context.Context, userID string) (*progress.UserProgress, error) {
	if f.failProgress {
		return nil, errors.New("progress table unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.progress[userID]
	if !ok {
		return nil, progress.ErrNotFound
	}
	return &p, nil
}

func (f *fakeStore) UpsertUserProgress(_ context.Context, p progress.UserProgress) error {
	if f.failProgress {
		return errors.New("progress table unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress[p.UserID] = p
	return nil
}

func (f *fakeStore) DimensionHistory(_ context.Context, _ string) (map[string][]float64, error) {
	return nil, nil
}

func (f *fakeStore) ScoreHistory(_ context.Context, userID string) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var recs []*PerformanceRecord
	for _, rec := range f.records {
		if rec.UserID == userID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].AssessedAt.Before(recs[j].AssessedAt) })
	scores := make([]float64, len(recs))
	for i, rec := range recs {
		scores[i] = rec.OverallScore
	}
	return scores, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakePublisher) Publish(subject string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, subject)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

type fakeBoard struct {
	mu      sync.Mutex
	updates int
}

func (f *fakeBoard) Record(_ context.Context, _ string, _ float64, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAssessor(store *fakeStore, pub Publisher, board Leaderboard) *Assessor {
	return New(rules.Default(), store, progress.NewTracker(store), pub, board, testLogger())
}

func sampleTranscript() []analysis.Utterance {
	return []analysis.Utterance{
		{Speaker: analysis.SpeakerUser, Text: "What if we work together on a creative alternative?", Index: 0},
		{Speaker: analysis.SpeakerCounterpart, Text: "Tell me more.", Index: 1},
		{Speaker: analysis.SpeakerUser, Text: "Because of our budget, I need a win-win for both sides.", Index: 2},
		{Speaker: analysis.SpeakerCounterpart, Text: "Interesting.", Index: 3},
		{Speaker: analysis.SpeakerUser, Text: "I'll anchor at 90k, that's my bottom line for now.", Index: 4},
	}
}

func TestAssess_HappyPath(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	board := &fakeBoard{}
	a := newTestAssessor(store, pub, board)

	negID := uuid.New()
	rec, err := a.Assess(context.Background(), Request{
		NegotiationID: negID,
		UserID:        "user-1",
		ScenarioID:    "salary-negotiation",
		Transcript:    sampleTranscript(),
	})
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}

	if rec.NegotiationID != negID {
		t.Errorf("negotiation id = %v, want %v", rec.NegotiationID, negID)
	}
	if rec.FramingLabel != "Distributive salary negotiation" {
		t.Errorf("framing label = %q", rec.FramingLabel)
	}
	if rec.OverallRating == "" || rec.Feedback == "" {
		t.Error("expected rating and feedback to be set")
	}
	if _, ok := store.records[negID]; !ok {
		t.Error("record was not persisted")
	}

	p := store.progress["user-1"]
	if p.TotalNegotiations != 1 {
		t.Errorf("total negotiations = %d, want 1", p.TotalNegotiations)
	}
	if math.Abs(p.AveragePerformance-rec.OverallScore) > 1e-9 {
		t.Errorf("average = %g, want %g", p.AveragePerformance, rec.OverallScore)
	}

	if pub.count() != 1 {
		t.Errorf("published events = %d, want 1", pub.count())
	}
	if board.updates != 1 {
		t.Errorf("leaderboard updates = %d, want 1", board.updates)
	}
	if got := a.Status(); got.Processed != 1 || got.Failed != 0 {
		t.Errorf("status = %+v, want 1 processed / 0 failed", got)
	}
}

func TestAssess_IdempotentPerNegotiation(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	a := newTestAssessor(store, pub, nil)

	req := Request{
		NegotiationID: uuid.New(),
		UserID:        "user-1",
		Transcript:    sampleTranscript(),
	}

	first, err := a.Assess(context.Background(), req)
	if err != nil {
		t.Fatalf("first Assess failed: %v", err)
	}
	second, err := a.Assess(context.Background(), req)
	if err != nil {
		t.Fatalf("second Assess failed: %v", err)
	}

	if first.ID != second.ID {
		t.Error("retry produced a different record instead of the stored one")
	}
	// Progress must not be double-counted.
	if got := store.progress["user-1"].TotalNegotiations; got != 1 {
		t.Errorf("total negotiations = %d, want 1 after retry", got)
	}
	if pub.count() != 1 {
		t.Errorf("published events = %d, want 1 after retry", pub.count())
	}
}

func TestAssess_RetryAfterProgressFailureRecoversProgress(t *testing.T) {
	store := newFakeStore()
	store.failProgress = true
	pub := &fakePublisher{}
	a := newTestAssessor(store, pub, nil)

	req := Request{
		NegotiationID: uuid.New(),
		UserID:        "user-1",
		Transcript:    sampleTranscript(),
	}

	// First attempt stores the record but dies on the progress write.
	_, err := a.Assess(context.Background(), req)
	var pe *PhaseError
	if !errors.As(err, &pe) || pe.Phase != PhaseProgress {
		t.Fatalf("expected progress phase error, got %v", err)
	}
	if _, ok := store.records[req.NegotiationID]; !ok {
		t.Fatal("record should be stored before the progress write")
	}

	// The retry hits the idempotency path and must fold the orphaned score in.
	store.failProgress = false
	rec, err := a.Assess(context.Background(), req)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}

	p := store.progress["user-1"]
	if p.TotalNegotiations != 1 {
		t.Fatalf("total negotiations = %d, want 1 after retry", p.TotalNegotiations)
	}
	if math.Abs(p.AveragePerformance-rec.OverallScore) > 1e-9 {
		t.Errorf("average = %g, want %g", p.AveragePerformance, rec.OverallScore)
	}
	if p.LastSessionAt.IsZero() {
		t.Error("last session time not set by reconciliation")
	}
	if pub.count() != 1 {
		t.Errorf("published events = %d, want 1 (announced on recovery)", pub.count())
	}

	// A further retry must not double-count.
	if _, err := a.Assess(context.Background(), req); err != nil {
		t.Fatalf("third attempt failed: %v", err)
	}
	if got := store.progress["user-1"].TotalNegotiations; got != 1 {
		t.Errorf("total negotiations = %d, want 1 after repeated retries", got)
	}
	if pub.count() != 1 {
		t.Errorf("published events = %d, want 1 after repeated retries", pub.count())
	}
}

func TestAssess_EmptyTranscriptDegradesToBaseline(t *testing.T) {
	store := newFakeStore()
	a := newTestAssessor(store, nil, nil)

	rec, err := a.Assess(context.Background(), Request{
		NegotiationID: uuid.New(),
		UserID:        "user-1",
	})
	if err != nil {
		t.Fatalf("empty transcript must not error, got: %v", err)
	}

	if rec.Claiming.Score != 50 || rec.Creating.Score != 50 || rec.Relationship.Score != 50 {
		t.Errorf("dimension scores = %d/%d/%d, want 50/50/50",
			rec.Claiming.Score, rec.Creating.Score, rec.Relationship.Score)
	}
	if math.Abs(rec.OverallScore-50) > 1e-9 {
		t.Errorf("overall = %g, want 50", rec.OverallScore)
	}
	if len(rec.Milestones) != 0 {
		t.Errorf("milestones = %d, want 0", len(rec.Milestones))
	}
}

func TestAssess_InputValidation(t *testing.T) {
	a := newTestAssessor(newFakeStore(), nil, nil)

	tests := []struct {
		name string
		req  Request
	}{
		{"nil negotiation id", Request{UserID: "u"}},
		{"missing user id", Request{NegotiationID: uuid.New()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Assess(context.Background(), tt.req)
			var pe *PhaseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected PhaseError, got %v", err)
			}
			if pe.Phase != PhaseAnalysis {
				t.Errorf("phase = %q, want analysis", pe.Phase)
			}
		})
	}
}

func TestAssess_PersistenceFailure(t *testing.T) {
	store := newFakeStore()
	store.failInsert = true
	a := newTestAssessor(store, nil, nil)

	_, err := a.Assess(context.Background(), Request{
		NegotiationID: uuid.New(),
		UserID:        "user-1",
		Transcript:    sampleTranscript(),
	})

	var pe *PhaseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PhaseError, got %v", err)
	}
	if pe.Phase != PhasePersistence {
		t.Errorf("phase = %q, want persistence", pe.Phase)
	}
	if got := a.Status(); got.Failed != 1 {
		t.Errorf("failed counter = %d, want 1", got.Failed)
	}
}

func TestAssess_MilestoneFailureIsNonFatal(t *testing.T) {
	store := newFakeStore()
	store.failMilestones = true
	a := newTestAssessor(store, nil, nil)

	// Transcript with an anchoring move so at least one milestone fires.
	rec, err := a.Assess(context.Background(), Request{
		NegotiationID: uuid.New(),
		UserID:        "user-1",
		Transcript:    sampleTranscript(),
	})
	if err != nil {
		t.Fatalf("milestone failure must be non-fatal, got: %v", err)
	}

	if len(rec.Milestones) == 0 {
		t.Fatal("test transcript should produce milestones")
	}
	if rec.MilestoneWarning == "" {
		t.Error("expected milestone warning on the returned record")
	}
	// Main record still stored and progress still applied.
	if got := store.progress["user-1"].TotalNegotiations; got != 1 {
		t.Errorf("total negotiations = %d, want 1", got)
	}
}

func TestAssess_ProgressFailure(t *testing.T) {
	store := newFakeStore()
	store.failProgress = true
	a := newTestAssessor(store, nil, nil)

	_, err := a.Assess(context.Background(), Request{
		NegotiationID: uuid.New(),
		UserID:        "user-1",
		Transcript:    sampleTranscript(),
	})

	var pe *PhaseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PhaseError, got %v", err)
	}
	if pe.Phase != PhaseProgress {
		t.Errorf("phase = %q, want progress_update", pe.Phase)
	}
}

func TestEvaluate_MilestonesFromTranscript(t *testing.T) {
	rec := Evaluate(rules.Default(), Request{
		NegotiationID: uuid.New(),
		UserID:        "user-1",
		Transcript:    sampleTranscript(),
	})

	// "creative" collaborative move at index 0, "anchor" competitive at index 4.
	if len(rec.Milestones) != 2 {
		t.Fatalf("milestones = %d, want 2", len(rec.Milestones))
	}
	if rec.Milestones[0].Type != milestone.TypeBreakthrough {
		t.Errorf("first milestone = %q, want breakthrough", rec.Milestones[0].Type)
	}
	if rec.Milestones[1].Type != milestone.TypeKeyMoment {
		t.Errorf("second milestone = %q, want key_moment", rec.Milestones[1].Type)
	}
}

func TestEvaluate_OverallIsWeightedBlend(t *testing.T) {
	rec := Evaluate(rules.Default(), Request{
		NegotiationID: uuid.New(),
		UserID:        "u",
		Transcript:    sampleTranscript(),
	})

	want := 0.35*float64(rec.Claiming.Score) +
		0.35*float64(rec.Creating.Score) +
		0.30*float64(rec.Relationship.Score)
	if math.Abs(rec.OverallScore-want) > 1e-9 {
		t.Errorf("overall = %g, want %g", rec.OverallScore, want)
	}
}

func TestFramingLabel(t *testing.T) {
	if got := framingLabel("salary-negotiation"); got != "Distributive salary negotiation" {
		t.Errorf("framing = %q", got)
	}
	if got := framingLabel("unknown-scenario"); got != "General negotiation assessment" {
		t.Errorf("default framing = %q", got)
	}
}

func TestFeedback_NamesWeakestFocus(t *testing.T) {
	rec := &PerformanceRecord{
		Claiming:      DimensionResult{DimensionScore: scoring.DimensionScore{Score: 90}},
		Creating:      DimensionResult{DimensionScore: scoring.DimensionScore{Score: 40}},
		Relationship:  DimensionResult{DimensionScore: scoring.DimensionScore{Score: 75}},
		OverallScore:  68.5,
		OverallRating: scoring.RatingAverage,
	}
	got := feedback(rec)
	if got == "" {
		t.Fatal("empty feedback")
	}
	// Strongest is claiming; with no suggestions there is no focus clause.
	want := fmt.Sprintf("Overall %s performance (%.1f). Strongest dimension: claiming value.",
		scoring.RatingAverage, 68.5)
	if got != want {
		t.Errorf("feedback = %q, want %q", got, want)
	}
}

func TestHandleTranscriptCompleted(t *testing.T) {
	store := newFakeStore()
	a := newTestAssessor(store, nil, nil)

	negID := uuid.New()
	payload, err := json.Marshal(map[string]any{
		"negotiation_id": negID.String(),
		"user_id":        "user-9",
		"scenario_id":    "vendor-contract",
		"transcript": []map[string]any{
			{"speaker": "user", "text": "That's my final offer.", "index": 0},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	a.HandleTranscriptCompleted("negotiation.transcript.completed", payload)

	if _, ok := store.records[negID]; !ok {
		t.Error("transcript event did not produce a stored record")
	}
	if store.progress["user-9"].TotalNegotiations != 1 {
		t.Error("transcript event did not update progress")
	}
}

func TestHandleTranscriptCompleted_BadPayload(t *testing.T) {
	store := newFakeStore()
	a := newTestAssessor(store, nil, nil)

	a.HandleTranscriptCompleted("negotiation.transcript.completed", []byte("not json"))
	a.HandleTranscriptCompleted("negotiation.transcript.completed",
		[]byte(`{"negotiation_id":"not-a-uuid","user_id":"u"}`))

	if len(store.records) != 0 {
		t.Error("malformed events must not produce records")
	}
}

func TestAssess_ConcurrentSameUserSerialized(t *testing.T) {
	store := newFakeStore()
	a := newTestAssessor(store, nil, nil)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.Assess(context.Background(), Request{
				NegotiationID: uuid.New(),
				UserID:        "user-1",
				Transcript:    sampleTranscript(),
			})
			if err != nil {
				t.Errorf("concurrent assess: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := store.progress["user-1"].TotalNegotiations; got != n {
		t.Errorf("total negotiations = %d, want %d (lost update)", got, n)
	}
}
