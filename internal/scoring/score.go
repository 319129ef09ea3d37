// Package scoring computes per-workout scores and lifting volume.
package scoring

import (
	"math"

	"github.com/claude/liftscore/internal/models"
)

// SetScore returns (weight / bodyWeight) * reps for one set.
// A zero, negative or non-finite body weight yields 0.
func SetScore(s models.Set, bodyWeightKg float64) float64 {
	if !validBodyWeight(bodyWeightKg) {
		return 0
	}
	return s.WeightKg / bodyWeightKg * float64(s.Reps)
}

// Score sums SetScore over every set of every exercise.
func Score(exercises []models.ExerciseEntry, bodyWeightKg float64) float64 {
	if !validBodyWeight(bodyWeightKg) {
		return 0
	}
	var total float64
	for _, ex := range exercises {
		for _, s := range ex.Sets {
			total += SetScore(s, bodyWeightKg)
		}
	}
	return total
}

// Volume returns the unnormalized weight-volume, the sum of weight * reps.
// It is a display metric and is never mixed with Score.
func Volume(exercises []models.ExerciseEntry) float64 {
	var total float64
	for _, ex := range exercises {
		for _, s := range ex.Sets {
			total += s.WeightKg * float64(s.Reps)
		}
	}
	return total
}

// Reps returns the total repetitions across all sets.
func Reps(exercises []models.ExerciseEntry) int {
	var total int
	for _, ex := range exercises {
		for _, s := range ex.Sets {
			total += s.Reps
		}
	}
	return total
}

func validBodyWeight(w float64) bool {
	return w > 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}
