package models

import (
	"errors"
	"testing"
)

// TestDecodeExercisesValid verifies a well-formed exercises document decodes in order.
func TestDecodeExercisesValid(t *testing.T) {
	raw := `[
		{"name": "bench_press", "sets": [{"weight": 80, "reps": 8}, {"weight": 82.5, "reps": 6}]},
		{"name": "pull_up", "sets": [{"weight": 0, "reps": 12}]}
	]`
	got, err := DecodeExercises([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("exercises = %d, want 2", len(got))
	}
	if got[0].Name != "bench_press" || len(got[0].Sets) != 2 {
		t.Errorf("exercise 0 = %+v", got[0])
	}
	if got[0].Sets[1].WeightKg != 82.5 || got[0].Sets[1].Reps != 6 {
		t.Errorf("set = %+v, want {82.5 6}", got[0].Sets[1])
	}
	if got[1].Sets[0].WeightKg != 0 {
		t.Errorf("bodyweight set weight = %v, want 0", got[1].Sets[0].WeightKg)
	}
}

// TestDecodeExercisesRejectsBadShapes verifies that malformed documents fail with a
// DecodeError naming the offending path rather than decoding partially.
func TestDecodeExercisesRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantPath string
	}{
		{"not an array", `{"name": "x"}`, "exercises"},
		{"missing name", `[{"sets": []}]`, "exercises[0].name"},
		{"missing weight", `[{"name": "squat", "sets": [{"reps": 5}]}]`, "exercises[0].sets[0].weight"},
		{"negative reps", `[{"name": "squat", "sets": [{"weight": 100, "reps": -1}]}]`, "exercises[0].sets[0].reps"},
		{"fractional reps", `[{"name": "squat", "sets": [{"weight": 100, "reps": 2.5}]}]`, "exercises[0].sets[0].reps"},
		{"unknown field", `[{"name": "squat", "sets": [], "notes": "x"}]`, "exercises"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeExercises([]byte(tt.raw))
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("err = %v, want *DecodeError", err)
			}
			if de.Path != tt.wantPath {
				t.Errorf("path = %q, want %q", de.Path, tt.wantPath)
			}
		})
	}
}

// TestEncodeExercisesNilSets verifies nil slices are stored as empty arrays so the
// decoder never sees null.
func TestEncodeExercisesNilSets(t *testing.T) {
	data, err := EncodeExercises([]ExerciseEntry{{Name: "plank"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := string(data), `[{"name":"plank","sets":[]}]`; got != want {
		t.Errorf("encoded = %s, want %s", got, want)
	}
	if _, err := DecodeExercises(data); err != nil {
		t.Errorf("decode of encoded value failed: %v", err)
	}
}
