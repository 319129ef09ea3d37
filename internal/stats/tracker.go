package stats

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/liftscore/internal/models"
	"github.com/claude/liftscore/internal/observability"
	"github.com/google/uuid"
)

// Lister returns a user's full workout history.
type Lister interface {
	ListWorkouts(ctx context.Context, userID uuid.UUID) ([]models.Workout, error)
}

// Subscription delivers one value per change to a user's workouts.
// The channel closes when the subscription ends; Err reports why.
type Subscription interface {
	Notifications() <-chan struct{}
	Err() error
	Close()
}

// State is the tracker's view of a user's statistics.
// On a failed refresh Summary keeps the last good value and Err is set.
type State struct {
	Summary   Summary   `json:"summary"`
	Loading   bool      `json:"loading"`
	Err       string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tracker recomputes a user's Summary from scratch on every change notification.
type Tracker struct {
	lister Lister
	userID uuid.UUID
	loc    *time.Location
	log    *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	state    State
	onUpdate func(State)
}

// NewTracker creates a Tracker for one user. It starts in the loading state.
func NewTracker(lister Lister, userID uuid.UUID, loc *time.Location, log *slog.Logger) *Tracker {
	return &Tracker{
		lister: lister,
		userID: userID,
		loc:    loc,
		log:    log,
		now:    time.Now,
		state:  State{Loading: true},
	}
}

// OnUpdate registers fn to be called with every new State. Must be set before Run.
func (t *Tracker) OnUpdate(fn func(State)) {
	t.onUpdate = fn
}

// State returns the latest state.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Refresh re-lists the user's workouts and recomputes the summary.
func (t *Tracker) Refresh(ctx context.Context) State {
	start := time.Now()
	workouts, err := t.lister.ListWorkouts(ctx, t.userID)

	t.mu.Lock()
	t.state.Loading = false
	t.state.UpdatedAt = t.now()
	if err != nil {
		t.log.Warn("stats refresh failed, keeping last summary", "user_id", t.userID, "error", err)
		t.state.Err = "Statistics could not be loaded"
	} else {
		t.state.Summary = Compute(workouts, t.now(), t.loc)
		t.state.Err = ""
		observability.ObserveStatsCompute(time.Since(start))
	}
	st := t.state
	t.mu.Unlock()

	if t.onUpdate != nil {
		t.onUpdate(st)
	}
	return st
}

// Run computes an initial summary, then refreshes on every notification until
// ctx ends or the subscription closes. The subscription is always released.
func (t *Tracker) Run(ctx context.Context, sub Subscription) error {
	defer sub.Close()

	t.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-sub.Notifications():
			if !ok {
				err := sub.Err()
				if err != nil {
					t.markError(err)
				}
				return err
			}
			t.Refresh(ctx)
		}
	}
}

func (t *Tracker) markError(err error) {
	t.log.Warn("stats subscription ended", "user_id", t.userID, "error", err)
	t.mu.Lock()
	t.state.Err = "Live statistics updates stopped"
	t.state.UpdatedAt = t.now()
	st := t.state
	t.mu.Unlock()
	if t.onUpdate != nil {
		t.onUpdate(st)
	}
}
