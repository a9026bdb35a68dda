package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound is returned by a Store when a user has no progress row yet.
var ErrNotFound = errors.New("user progress not found")

// UserProgress is the per-user longitudinal aggregate. It is mutated only by
// the Tracker, which serializes updates per user.
type UserProgress struct {
	UserID             string    `json:"user_id"`
	TotalNegotiations  int       `json:"total_negotiations"`
	AveragePerformance float64   `json:"average_performance"`
	LastSessionAt      time.Time `json:"last_session_at"`
}

// SkillTrend is the least-squares slope of one dimension's score series
// across sessions. Recomputed on demand, never persisted.
type SkillTrend struct {
	Dimension string  `json:"dimension"`
	Slope     float64 `json:"slope"`
}

// Store is the persistence surface the tracker needs. Implementations return
// ErrNotFound from GetUserProgress for users with no history.
type Store interface {
	GetUserProgress(ctx context.Context, userID string) (*UserProgress, error)
	UpsertUserProgress(ctx context.Context, p UserProgress) error
	// DimensionHistory returns the ordered per-dimension score series for a
	// user, oldest first, keyed by dimension identifier.
	DimensionHistory(ctx context.Context, userID string) (map[string][]float64, error)
	// ScoreHistory returns the ordered overall-score series, oldest first.
	ScoreHistory(ctx context.Context, userID string) ([]float64, error)
}

// Tracker folds assessment results into per-user progress. A read-modify-write
// of the rolling average races if two assessments for the same user complete
// together, so the tracker holds a mutex per user: at most one in-flight
// update per user, while different users proceed in parallel.
type Tracker struct {
	store Store

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// NewTracker creates a tracker over the given store.
func NewTracker(store Store) *Tracker {
	return &Tracker{
		store: store,
		users: make(map[string]*sync.Mutex),
	}
}

func (t *Tracker) lockFor(userID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.users[userID]
	if !ok {
		l = &sync.Mutex{}
		t.users[userID] = l
	}
	return l
}

// Apply folds one overall score into the user's progress using the exact
// incremental-mean formula: new_avg = (avg*total + score) / (total+1).
// First assessment for a user initializes progress from zero.
func (t *Tracker) Apply(ctx context.Context, userID string, overallScore float64, at time.Time) (UserProgress, error) {
	l := t.lockFor(userID)
	l.Lock()
	defer l.Unlock()

	current, err := t.store.GetUserProgress(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return UserProgress{}, fmt.Errorf("read progress for %s: %w", userID, err)
		}
		current = &UserProgress{UserID: userID}
	}

	newTotal := current.TotalNegotiations + 1
	updated := UserProgress{
		UserID:             userID,
		TotalNegotiations:  newTotal,
		AveragePerformance: (current.AveragePerformance*float64(current.TotalNegotiations) + overallScore) / float64(newTotal),
		LastSessionAt:      at,
	}

	if err := t.store.UpsertUserProgress(ctx, updated); err != nil {
		return UserProgress{}, fmt.Errorf("write progress for %s: %w", userID, err)
	}
	return updated, nil
}

// ReconcileIfStale rebuilds a user's progress when the stored aggregate
// counts fewer sessions than exist in the score history. That state arises
// when a performance record persisted but the progress write failed; the
// caller's retry lands here and folds the missing score back in. Rebuilding
// from the full history keeps the operation idempotent: a session is never
// counted twice no matter how often it runs. `at` advances LastSessionAt when
// it is newer than the stored value, covering the case where the progress row
// never existed. Holds the same per-user lock as Apply.
func (t *Tracker) ReconcileIfStale(ctx context.Context, userID string, at time.Time) (UserProgress, bool, error) {
	l := t.lockFor(userID)
	l.Lock()
	defer l.Unlock()

	scores, err := t.store.ScoreHistory(ctx, userID)
	if err != nil {
		return UserProgress{}, false, fmt.Errorf("read score history for %s: %w", userID, err)
	}

	current := UserProgress{UserID: userID}
	if stored, err := t.store.GetUserProgress(ctx, userID); err == nil {
		current = *stored
	} else if !errors.Is(err, ErrNotFound) {
		return UserProgress{}, false, fmt.Errorf("read progress for %s: %w", userID, err)
	}

	if current.TotalNegotiations >= len(scores) {
		return current, false, nil
	}

	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	rebuilt := UserProgress{
		UserID:             userID,
		TotalNegotiations:  len(scores),
		AveragePerformance: sum / float64(len(scores)),
		LastSessionAt:      current.LastSessionAt,
	}
	if at.After(rebuilt.LastSessionAt) {
		rebuilt.LastSessionAt = at
	}

	if err := t.store.UpsertUserProgress(ctx, rebuilt); err != nil {
		return UserProgress{}, false, fmt.Errorf("write reconciled progress for %s: %w", userID, err)
	}
	return rebuilt, true, nil
}

// Rebuild recomputes a user's progress from their full stored score history.
// Used to repair drift after out-of-band data changes; holds the same
// per-user lock as Apply.
func (t *Tracker) Rebuild(ctx context.Context, userID string) (UserProgress, error) {
	l := t.lockFor(userID)
	l.Lock()
	defer l.Unlock()

	scores, err := t.store.ScoreHistory(ctx, userID)
	if err != nil {
		return UserProgress{}, fmt.Errorf("read score history for %s: %w", userID, err)
	}

	rebuilt := UserProgress{UserID: userID, TotalNegotiations: len(scores)}
	if len(scores) > 0 {
		sum := 0.0
		for _, s := range scores {
			sum += s
		}
		rebuilt.AveragePerformance = sum / float64(len(scores))
	}

	if current, err := t.store.GetUserProgress(ctx, userID); err == nil {
		rebuilt.LastSessionAt = current.LastSessionAt
	}

	if err := t.store.UpsertUserProgress(ctx, rebuilt); err != nil {
		return UserProgress{}, fmt.Errorf("write rebuilt progress for %s: %w", userID, err)
	}
	return rebuilt, nil
}

// Trends computes the per-dimension skill trends for a user from stored
// history. Dimensions with fewer than two sessions report slope 0.
func (t *Tracker) Trends(ctx context.Context, userID string) ([]SkillTrend, error) {
	history, err := t.store.DimensionHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read dimension history for %s: %w", userID, err)
	}

	trends := make([]SkillTrend, 0, len(history))
	for _, dimension := range trendOrder(history) {
		trends = append(trends, SkillTrend{
			Dimension: dimension,
			Slope:     Slope(history[dimension]),
		})
	}
	return trends, nil
}
