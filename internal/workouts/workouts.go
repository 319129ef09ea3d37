// Package workouts validates, scores and persists workouts.
package workouts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/liftscore/internal/catalog"
	"github.com/claude/liftscore/internal/models"
	"github.com/claude/liftscore/internal/observability"
	"github.com/claude/liftscore/internal/scoring"
	"github.com/google/uuid"
)

// Store persists workouts. Create, Update and Delete must apply the score
// delta to the owner's profile atomically with the workout write.
type Store interface {
	ListWorkouts(ctx context.Context, userID uuid.UUID) ([]models.Workout, error)
	GetWorkout(ctx context.Context, id, userID uuid.UUID) (*models.Workout, error)
	CreateWorkout(ctx context.Context, w *models.Workout) error
	CreateWorkouts(ctx context.Context, ws []*models.Workout) error
	UpdateWorkout(ctx context.Context, w *models.Workout) (oldScore float64, err error)
	DeleteWorkout(ctx context.Context, id, userID uuid.UUID) (deletedScore float64, err error)
}

// BodyWeighter reports a user's current body weight.
type BodyWeighter interface {
	BodyWeight(ctx context.Context, userID uuid.UUID) (float64, error)
}

// ChangeHook is told after every committed score change.
type ChangeHook interface {
	Invalidate()
}

// Service is the entry point for all workout mutations.
type Service struct {
	store    Store
	profiles BodyWeighter
	catalog  *catalog.Catalog
	hook     ChangeHook
	log      *slog.Logger
	now      func() time.Time
}

// NewService creates a Service. hook may be nil.
func NewService(store Store, profiles BodyWeighter, cat *catalog.Catalog, hook ChangeHook, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		profiles: profiles,
		catalog:  cat,
		hook:     hook,
		log:      log,
		now:      time.Now,
	}
}

// Catalog returns the exercise catalog workouts are validated against.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// List returns the user's workouts, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Workout, error) {
	ws, err := s.store.ListWorkouts(ctx, userID)
	if err != nil {
		observability.RecordStoreError("list")
		return nil, models.StoreFailure("Workouts could not be loaded", err)
	}
	return ws, nil
}

// ListWorkouts is List under the name the statistics tracker expects.
func (s *Service) ListWorkouts(ctx context.Context, userID uuid.UUID) ([]models.Workout, error) {
	return s.List(ctx, userID)
}

// Between keeps the workouts dated in [start, end]. A zero bound is open.
// Order is preserved.
func Between(ws []models.Workout, start, end time.Time) []models.Workout {
	out := make([]models.Workout, 0, len(ws))
	for _, w := range ws {
		if !start.IsZero() && w.Date.Before(start) {
			continue
		}
		if !end.IsZero() && w.Date.After(end) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Get returns one of the user's workouts.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*models.Workout, error) {
	w, err := s.store.GetWorkout(ctx, id, userID)
	if err != nil {
		return nil, models.StoreFailure("Workout could not be loaded", err)
	}
	return w, nil
}

// Create validates in, scores it against the user's current body weight and stores it.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in models.WorkoutInput) (*models.Workout, error) {
	w, err := s.build(userID, in)
	if err != nil {
		return nil, err
	}
	bw, err := s.profiles.BodyWeight(ctx, userID)
	if err != nil {
		return nil, err
	}
	w.WorkoutScore = scoring.Score(w.Exercises, bw)

	if err := s.store.CreateWorkout(ctx, w); err != nil {
		return nil, s.failed("create", userID, "Workout not saved successfully", err)
	}
	s.changed("create", userID, w.ID, w.WorkoutScore)
	return w, nil
}

// Update replaces the workout's exercises and rescores it with the current body
// weight. A date or duration left out of in keeps the stored value.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, in models.WorkoutInput) (*models.Workout, error) {
	w, err := s.build(userID, in)
	if err != nil {
		return nil, err
	}
	current, err := s.store.GetWorkout(ctx, id, userID)
	if err != nil {
		return nil, s.failed("update", userID, "Workout not updated successfully", err)
	}
	w.ID = id
	if in.Date.IsZero() {
		w.Date = current.Date
	}
	if in.DurationMin == nil {
		w.DurationMin = current.DurationMin
	}
	bw, err := s.profiles.BodyWeight(ctx, userID)
	if err != nil {
		return nil, err
	}
	w.WorkoutScore = scoring.Score(w.Exercises, bw)

	oldScore, err := s.store.UpdateWorkout(ctx, w)
	if err != nil {
		return nil, s.failed("update", userID, "Workout not updated successfully", err)
	}
	s.changed("update", userID, w.ID, w.WorkoutScore-oldScore)
	return w, nil
}

// Delete removes the workout and its contribution to the user's score.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	score, err := s.store.DeleteWorkout(ctx, id, userID)
	if err != nil {
		return s.failed("delete", userID, "Workout not deleted successfully", err)
	}
	s.changed("delete", userID, id, -score)
	return nil
}

// Import validates every input first, then stores them all in one transaction.
// On failure nothing is stored and the count is 0.
func (s *Service) Import(ctx context.Context, userID uuid.UUID, inputs []models.WorkoutInput) (int, error) {
	built := make([]*models.Workout, 0, len(inputs))
	for i, in := range inputs {
		w, err := s.build(userID, in)
		if err != nil {
			return 0, fmt.Errorf("workout %d: %w", i+1, err)
		}
		built = append(built, w)
	}
	if len(built) == 0 {
		return 0, nil
	}

	bw, err := s.profiles.BodyWeight(ctx, userID)
	if err != nil {
		return 0, err
	}

	var delta float64
	for _, w := range built {
		w.WorkoutScore = scoring.Score(w.Exercises, bw)
		delta += w.WorkoutScore
	}
	if err := s.store.CreateWorkouts(ctx, built); err != nil {
		return 0, s.failed("import", userID, "Workouts not imported successfully", err)
	}
	s.changed("import", userID, uuid.Nil, delta)
	return len(built), nil
}

// build validates in and returns an unsaved workout with catalog ids as names.
func (s *Service) build(userID uuid.UUID, in models.WorkoutInput) (*models.Workout, error) {
	if len(in.Exercises) == 0 {
		return nil, models.Invalid("exercises", "Add at least one exercise")
	}
	if in.DurationMin != nil && *in.DurationMin < 0 {
		return nil, models.Invalid("duration", "Duration cannot be negative")
	}

	exercises := make([]models.ExerciseEntry, 0, len(in.Exercises))
	for i, ex := range in.Exercises {
		entry, ok := s.catalog.Lookup(ex.Name)
		if !ok {
			return nil, models.Invalid(fmt.Sprintf("exercises[%d].name", i), "Unknown exercise %q", ex.Name)
		}
		sets := make([]models.Set, 0, len(ex.Sets))
		for j, set := range ex.Sets {
			field := fmt.Sprintf("exercises[%d].sets[%d]", i, j)
			if set.Reps < 0 {
				return nil, models.Invalid(field+".reps", "Reps cannot be negative")
			}
			if !(set.WeightKg >= 0) || set.WeightKg > maxWeightKg {
				return nil, models.Invalid(field+".weight", "Weight must be between 0 and %d kg", maxWeightKg)
			}
			sets = append(sets, set)
		}
		exercises = append(exercises, models.ExerciseEntry{Name: entry.ID, Sets: sets})
	}

	date := in.Date.Time
	if date.IsZero() {
		date = s.now()
	}
	return &models.Workout{
		UserID:      userID,
		Date:        date,
		DurationMin: in.DurationMin,
		Exercises:   exercises,
	}, nil
}

// maxWeightKg bounds a single set's load; it also rejects +Inf.
const maxWeightKg = 1000

func (s *Service) failed(op string, userID uuid.UUID, action string, err error) error {
	observability.RecordStoreError(op)
	s.log.Error("workout "+op+" failed", "user_id", userID, "error", err)
	return models.StoreFailure(action, err)
}

func (s *Service) changed(op string, userID, workoutID uuid.UUID, delta float64) {
	observability.RecordWorkoutMutation(op)
	s.log.Info("workout "+op, "user_id", userID, "workout_id", workoutID, "score_delta", delta)
	if s.hook != nil {
		s.hook.Invalidate()
	}
}
