// Package stats folds a user's workout history into summary metrics.
package stats

import (
	"sort"
	"time"

	"github.com/claude/liftscore/internal/models"
	"github.com/claude/liftscore/internal/scoring"
)

// Summary holds the statistics shown on the profile screen.
// TotalWeight and AverageWeight are weight-volume (weight * reps), not score.
type Summary struct {
	TotalWorkouts   int        `json:"totalWorkouts"`
	TotalWeight     float64    `json:"totalWeight"`
	AverageWeight   float64    `json:"averageWeight"`
	TotalReps       int        `json:"totalReps"`
	AverageReps     float64    `json:"averageReps"`
	TotalScore      float64    `json:"totalScore"`
	CurrentStreak   int        `json:"currentStreak"`
	LongestStreak   int        `json:"longestStreak"`
	LastWorkoutDate *time.Time `json:"lastWorkoutDate,omitempty"`
}

// Compute builds a Summary from scratch. Calendar days are taken in loc
// (UTC when nil) and now decides whether the latest run is still current.
//
// The current streak is the run ending at the most recent workout day, as long as
// that day is today or yesterday. A run whose last day is older counts as broken.
// Workouts dated after today count toward today.
func Compute(workouts []models.Workout, now time.Time, loc *time.Location) Summary {
	if loc == nil {
		loc = time.UTC
	}
	var s Summary
	if len(workouts) == 0 {
		return s
	}

	today := calendarDay(now, loc)
	days := make(map[time.Time]struct{}, len(workouts))
	var last time.Time
	for _, w := range workouts {
		s.TotalWorkouts++
		s.TotalWeight += scoring.Volume(w.Exercises)
		s.TotalReps += scoring.Reps(w.Exercises)
		s.TotalScore += w.WorkoutScore
		day := calendarDay(w.Date, loc)
		if day.After(today) {
			day = today
		}
		days[day] = struct{}{}
		if w.Date.After(last) {
			last = w.Date
		}
	}

	s.AverageWeight = s.TotalWeight / float64(s.TotalWorkouts)
	s.AverageReps = float64(s.TotalReps) / float64(s.TotalWorkouts)
	s.LastWorkoutDate = &last

	sorted := make([]time.Time, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	run := 0
	for i, d := range sorted {
		if i > 0 && sorted[i-1].AddDate(0, 0, 1).Equal(d) {
			run++
		} else {
			run = 1
		}
		if run > s.LongestStreak {
			s.LongestStreak = run
		}
	}

	latest := sorted[len(sorted)-1]
	if latest.Equal(today) || latest.AddDate(0, 0, 1).Equal(today) {
		s.CurrentStreak = run
	}
	return s
}

// calendarDay maps t to midnight UTC of its calendar date in loc, so that
// day arithmetic is free of DST shifts.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
