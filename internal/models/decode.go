package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// rawExercise mirrors the stored JSON with pointer fields so absent keys are detectable.
type rawExercise struct {
	Name *string  `json:"name"`
	Sets []rawSet `json:"sets"`
}

type rawSet struct {
	Weight *float64 `json:"weight"`
	Reps   *float64 `json:"reps"`
}

// DecodeExercises decodes the exercises JSONB column of a workout document.
// It fails with a *DecodeError instead of passing an unchecked shape inward.
func DecodeExercises(data []byte) ([]ExerciseEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var raw []rawExercise
	if err := dec.Decode(&raw); err != nil {
		return nil, &DecodeError{Document: "workout", Path: "exercises", Reason: err.Error()}
	}

	out := make([]ExerciseEntry, 0, len(raw))
	for i, ex := range raw {
		path := fmt.Sprintf("exercises[%d]", i)
		if ex.Name == nil || *ex.Name == "" {
			return nil, &DecodeError{Document: "workout", Path: path + ".name", Reason: "missing exercise name"}
		}
		entry := ExerciseEntry{Name: *ex.Name, Sets: make([]Set, 0, len(ex.Sets))}
		for j, s := range ex.Sets {
			setPath := fmt.Sprintf("%s.sets[%d]", path, j)
			if s.Weight == nil || math.IsNaN(*s.Weight) || *s.Weight < 0 {
				return nil, &DecodeError{Document: "workout", Path: setPath + ".weight", Reason: "weight must be a non-negative number"}
			}
			if s.Reps == nil || *s.Reps < 0 || *s.Reps != math.Trunc(*s.Reps) {
				return nil, &DecodeError{Document: "workout", Path: setPath + ".reps", Reason: "reps must be a non-negative integer"}
			}
			entry.Sets = append(entry.Sets, Set{WeightKg: *s.Weight, Reps: int(*s.Reps)})
		}
		out = append(out, entry)
	}
	return out, nil
}

// EncodeExercises is the inverse of DecodeExercises.
func EncodeExercises(exercises []ExerciseEntry) ([]byte, error) {
	out := make([]ExerciseEntry, len(exercises))
	for i, ex := range exercises {
		if ex.Sets == nil {
			ex.Sets = []Set{}
		}
		out[i] = ex
	}
	return json.Marshal(out)
}
