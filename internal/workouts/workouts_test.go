package workouts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/claude/liftscore/internal/catalog"
	"github.com/claude/liftscore/internal/models"
	"github.com/google/uuid"
)

// memStore applies score deltas the way the database transaction does.
type memStore struct {
	mu       sync.Mutex
	workouts map[uuid.UUID]models.Workout
	scores   map[uuid.UUID]float64
	failNext error
	// failOnInsert makes the nth insert of a batch fail, rolling back the batch.
	failOnInsert int
}

func newMemStore() *memStore {
	return &memStore{workouts: map[uuid.UUID]models.Workout{}, scores: map[uuid.UUID]float64{}}
}

func (m *memStore) fail() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *memStore) ListWorkouts(_ context.Context, userID uuid.UUID) ([]models.Workout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	var out []models.Workout
	for _, w := range m.workouts {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *memStore) GetWorkout(_ context.Context, id, userID uuid.UUID) (*models.Workout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workouts[id]
	if !ok || w.UserID != userID {
		return nil, models.ErrNotFound
	}
	return &w, nil
}

func (m *memStore) CreateWorkout(_ context.Context, w *models.Workout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	m.workouts[w.ID] = *w
	m.scores[w.UserID] += w.WorkoutScore
	return nil
}

func (m *memStore) CreateWorkouts(_ context.Context, ws []*models.Workout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	staged := make([]models.Workout, 0, len(ws))
	for i, w := range ws {
		if m.failOnInsert == i+1 {
			return errors.New("insert failed")
		}
		if w.ID == uuid.Nil {
			w.ID = uuid.New()
		}
		staged = append(staged, *w)
	}
	for _, w := range staged {
		m.workouts[w.ID] = w
		m.scores[w.UserID] += w.WorkoutScore
	}
	return nil
}

func (m *memStore) UpdateWorkout(_ context.Context, w *models.Workout) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return 0, err
	}
	old, ok := m.workouts[w.ID]
	if !ok || old.UserID != w.UserID {
		return 0, models.ErrNotFound
	}
	m.workouts[w.ID] = *w
	m.scores[w.UserID] += w.WorkoutScore - old.WorkoutScore
	return old.WorkoutScore, nil
}

func (m *memStore) DeleteWorkout(_ context.Context, id, userID uuid.UUID) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return 0, err
	}
	w, ok := m.workouts[id]
	if !ok || w.UserID != userID {
		return 0, models.ErrNotFound
	}
	delete(m.workouts, id)
	m.scores[userID] -= w.WorkoutScore
	return w.WorkoutScore, nil
}

type fixedWeight float64

func (f fixedWeight) BodyWeight(context.Context, uuid.UUID) (float64, error) { return float64(f), nil }

type countingHook struct{ n int }

func (h *countingHook) Invalidate() { h.n++ }

func newService(store Store, bw float64) (*Service, *countingHook) {
	hook := &countingHook{}
	s := NewService(store, fixedWeight(bw), catalog.Default(), hook, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return s, hook
}

func squat(weight float64, reps int) models.WorkoutInput {
	return models.WorkoutInput{
		Date:      models.Date{Time: time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)},
		Exercises: []models.ExerciseEntry{{Name: "Squat", Sets: []models.Set{{WeightKg: weight, Reps: reps}}}},
	}
}

// TestCreateScoresAgainstBodyWeight verifies 70 kg lifting {70, 10} scores 10.
func TestCreateScoresAgainstBodyWeight(t *testing.T) {
	store := newMemStore()
	s, hook := newService(store, 70)
	userID := uuid.New()

	w, err := s.Create(context.Background(), userID, squat(70, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.WorkoutScore != 10 {
		t.Errorf("workout score = %v, want 10", w.WorkoutScore)
	}
	if store.scores[userID] != 10 {
		t.Errorf("profile score = %v, want 10", store.scores[userID])
	}
	if w.Exercises[0].Name != "squat" {
		t.Errorf("exercise name = %q, want catalog id squat", w.Exercises[0].Name)
	}
	if hook.n != 1 {
		t.Errorf("hook calls = %d, want 1", hook.n)
	}
}

// TestCreateValidation verifies malformed input never reaches the store.
func TestCreateValidation(t *testing.T) {
	store := newMemStore()
	s, _ := newService(store, 70)
	neg := -5

	tests := []struct {
		name  string
		in    models.WorkoutInput
		field string
	}{
		{"no exercises", models.WorkoutInput{}, "exercises"},
		{"unknown exercise", models.WorkoutInput{Exercises: []models.ExerciseEntry{{Name: "underwater basket weaving"}}}, "exercises[0].name"},
		{"blank exercise", models.WorkoutInput{Exercises: []models.ExerciseEntry{{Name: "  "}}}, "exercises[0].name"},
		{"negative reps", squat(50, -1), "exercises[0].sets[0].reps"},
		{"negative weight", squat(-10, 5), "exercises[0].sets[0].weight"},
		{"nan weight", squat(math.NaN(), 5), "exercises[0].sets[0].weight"},
		{"negative duration", models.WorkoutInput{DurationMin: &neg, Exercises: squat(50, 5).Exercises}, "duration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(context.Background(), uuid.New(), tt.in)
			var ve *models.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
	if len(store.workouts) != 0 {
		t.Errorf("store has %d workouts, want 0", len(store.workouts))
	}
}

// TestDeleteSubtractsStoredScore verifies deleting a workout worth 12 from a
// profile at 50 leaves 38.
func TestDeleteSubtractsStoredScore(t *testing.T) {
	store := newMemStore()
	s, _ := newService(store, 50)
	userID := uuid.New()

	store.scores[userID] = 38
	w, err := s.Create(context.Background(), userID, squat(120, 5)) // 120/50*5 = 12
	if err != nil {
		t.Fatal(err)
	}
	if store.scores[userID] != 50 {
		t.Fatalf("profile score = %v, want 50", store.scores[userID])
	}

	if err := s.Delete(context.Background(), userID, w.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.scores[userID] != 38 {
		t.Errorf("profile score after delete = %v, want 38", store.scores[userID])
	}

	err = s.Delete(context.Background(), userID, w.ID)
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
	var se *models.StoreError
	if !errors.As(err, &se) || se.Action != "Workout not deleted successfully" {
		t.Errorf("second delete err = %v, want StoreError with action", err)
	}
}

// TestUpdateThenList verifies an update is visible on the next list with a
// recomputed score, and the profile moves by new - old.
func TestUpdateThenList(t *testing.T) {
	store := newMemStore()
	s, _ := newService(store, 80)
	userID := uuid.New()

	w, err := s.Create(context.Background(), userID, squat(80, 5)) // 5
	if err != nil {
		t.Fatal(err)
	}

	in := models.WorkoutInput{
		Date: models.Date{Time: w.Date},
		Exercises: []models.ExerciseEntry{
			{Name: "bench press", Sets: []models.Set{{WeightKg: 60, Reps: 8}}}, // 6
			{Name: "pull-up", Sets: []models.Set{{WeightKg: 0, Reps: 12}}},     // 0
		},
	}
	if _, err := s.Update(context.Background(), userID, w.ID, in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	list, err := s.List(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("len = %d, want 1", len(list))
	}
	got := list[0]
	if len(got.Exercises) != 2 || got.Exercises[0].Name != "bench_press" {
		t.Errorf("exercises = %+v", got.Exercises)
	}
	if got.WorkoutScore != 6 {
		t.Errorf("workout score = %v, want 6", got.WorkoutScore)
	}
	if store.scores[userID] != 6 {
		t.Errorf("profile score = %v, want 6", store.scores[userID])
	}

	if _, err := s.Update(context.Background(), uuid.New(), w.ID, in); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("update by another user err = %v, want ErrNotFound", err)
	}
}

// TestUpdateKeepsOmittedDateAndDuration verifies an edit that only sends exercises
// leaves the stored date and duration untouched and rescores the workout.
func TestUpdateKeepsOmittedDateAndDuration(t *testing.T) {
	store := newMemStore()
	s, _ := newService(store, 50)
	s.now = func() time.Time { return time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC) }
	userID := uuid.New()

	date := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	duration := 45
	in := squat(50, 5)
	in.Date = models.Date{Time: date}
	in.DurationMin = &duration
	w, err := s.Create(context.Background(), userID, in)
	if err != nil {
		t.Fatal(err)
	}

	edit := models.WorkoutInput{Exercises: squat(100, 5).Exercises}
	got, err := s.Update(context.Background(), userID, w.ID, edit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Date.Equal(date) {
		t.Errorf("date = %v, want %v", got.Date, date)
	}
	if got.DurationMin == nil || *got.DurationMin != 45 {
		t.Errorf("duration = %v, want 45", got.DurationMin)
	}
	stored := store.workouts[w.ID]
	if !stored.Date.Equal(date) || stored.DurationMin == nil || *stored.DurationMin != 45 {
		t.Errorf("stored workout = %+v, want original date and duration", stored)
	}
	if stored.WorkoutScore != 10 {
		t.Errorf("stored score = %v, want 10", stored.WorkoutScore)
	}
	if store.scores[userID] != 10 {
		t.Errorf("profile score = %v, want 10", store.scores[userID])
	}

	later := time.Date(2026, 1, 3, 9, 0, 0, 0, time.UTC)
	edit.Date = models.Date{Time: later}
	got, err = s.Update(context.Background(), userID, w.ID, edit)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Date.Equal(later) {
		t.Errorf("date = %v, want explicit %v", got.Date, later)
	}
}

// TestZeroBodyWeightScoresZero verifies a profile without a body weight earns nothing.
func TestZeroBodyWeightScoresZero(t *testing.T) {
	store := newMemStore()
	s, _ := newService(store, 0)
	w, err := s.Create(context.Background(), uuid.New(), squat(100, 10))
	if err != nil {
		t.Fatal(err)
	}
	if w.WorkoutScore != 0 {
		t.Errorf("workout score = %v, want 0", w.WorkoutScore)
	}
}

// TestStoreFailureMapping verifies store failures surface with a user-facing action.
func TestStoreFailureMapping(t *testing.T) {
	store := newMemStore()
	s, hook := newService(store, 70)
	store.failNext = errors.New("connection refused")

	_, err := s.Create(context.Background(), uuid.New(), squat(70, 10))
	var se *models.StoreError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StoreError", err)
	}
	if se.Action != "Workout not saved successfully" {
		t.Errorf("action = %q", se.Action)
	}
	if hook.n != 0 {
		t.Errorf("hook called on failure")
	}
}

// TestImport verifies all inputs are validated before any is stored.
func TestImport(t *testing.T) {
	store := newMemStore()
	s, hook := newService(store, 70)
	userID := uuid.New()

	bad := []models.WorkoutInput{squat(70, 10), {Exercises: []models.ExerciseEntry{{Name: "nope"}}}}
	if _, err := s.Import(context.Background(), userID, bad); err == nil {
		t.Fatal("expected validation error")
	}
	if len(store.workouts) != 0 {
		t.Fatalf("partial import stored %d workouts", len(store.workouts))
	}

	n, err := s.Import(context.Background(), userID, []models.WorkoutInput{squat(70, 10), squat(35, 10)})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("imported = %d, want 2", n)
	}
	if store.scores[userID] != 15 {
		t.Errorf("profile score = %v, want 15", store.scores[userID])
	}
	if hook.n != 1 {
		t.Errorf("hook calls = %d, want 1 per import", hook.n)
	}
}

// TestImportFailureStoresNothing verifies a failed insert partway through a batch
// leaves neither workouts nor score behind, so a retry cannot double count.
func TestImportFailureStoresNothing(t *testing.T) {
	store := newMemStore()
	s, hook := newService(store, 70)
	userID := uuid.New()
	store.failOnInsert = 2

	batch := []models.WorkoutInput{squat(70, 10), squat(35, 10), squat(70, 5)}
	n, err := s.Import(context.Background(), userID, batch)
	var se *models.StoreError
	if !errors.As(err, &se) || se.Action != "Workouts not imported successfully" {
		t.Fatalf("err = %v, want import StoreError", err)
	}
	if n != 0 {
		t.Errorf("imported = %d, want 0", n)
	}
	if len(store.workouts) != 0 || store.scores[userID] != 0 {
		t.Errorf("store has %d workouts and score %v, want nothing", len(store.workouts), store.scores[userID])
	}
	if hook.n != 0 {
		t.Errorf("hook calls = %d, want 0", hook.n)
	}

	store.failOnInsert = 0
	if n, err = s.Import(context.Background(), userID, batch); err != nil || n != 3 {
		t.Fatalf("retry = (%d, %v), want (3, nil)", n, err)
	}
	if len(store.workouts) != 3 || store.scores[userID] != 20 {
		t.Errorf("after retry: %d workouts, score %v; want 3 and 20", len(store.workouts), store.scores[userID])
	}
}

// TestBetween verifies inclusive bounds and open zero bounds.
func TestBetween(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 5, d, 12, 0, 0, 0, time.UTC) }
	ws := []models.Workout{{Date: day(9)}, {Date: day(5)}, {Date: day(1)}}

	got := Between(ws, day(5), day(9))
	if len(got) != 2 || !got[0].Date.Equal(day(9)) || !got[1].Date.Equal(day(5)) {
		t.Errorf("Between(5..9) = %v", got)
	}
	if got := Between(ws, time.Time{}, day(4)); len(got) != 1 {
		t.Errorf("Between(..4) returned %d workouts, want 1", len(got))
	}
	if got := Between(ws, time.Time{}, time.Time{}); len(got) != 3 {
		t.Errorf("Between(open) returned %d workouts, want 3", len(got))
	}
}
