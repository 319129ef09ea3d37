package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TrainingPeriod holds aggregated training volume for one week or month.
// Volume is weight * reps; Score is the sum of the stored workout scores.
type TrainingPeriod struct {
	Period   string  `json:"period"`
	Sessions int     `json:"sessions"`
	Sets     int     `json:"sets"`
	Reps     int     `json:"reps"`
	Volume   float64 `json:"volume"`
	Score    float64 `json:"score"`
}

// GetTrainingSummary returns per-period totals for workouts dated in [start, end),
// newest period first. Periods are calendar weeks or months in loc.
func (db *DB) GetTrainingSummary(ctx context.Context, userID uuid.UUID, start, end time.Time, bucket string, loc *time.Location) ([]TrainingPeriod, error) {
	if loc == nil {
		loc = time.UTC
	}
	rows, err := db.Pool.Query(ctx,
		`WITH w AS (
		     SELECT id, date_trunc($1, date AT TIME ZONE $5)::date AS period, workout_score, exercises
		     FROM workouts
		     WHERE user_id = $2 AND date >= $3 AND date < $4
		 ), per_workout AS (
		     SELECT period, COUNT(*)::int AS sessions, SUM(workout_score) AS score
		     FROM w GROUP BY period
		 ), per_set AS (
		     SELECT w.period,
		            COUNT(*)::int AS sets,
		            COALESCE(SUM((s->>'reps')::int), 0)::int AS reps,
		            COALESCE(SUM((s->>'weight')::float8 * (s->>'reps')::int), 0) AS volume
		     FROM w
		     CROSS JOIN LATERAL jsonb_array_elements(w.exercises) e
		     CROSS JOIN LATERAL jsonb_array_elements(e->'sets') s
		     GROUP BY w.period
		 )
		 SELECT p.period, p.sessions, COALESCE(s.sets, 0), COALESCE(s.reps, 0), COALESCE(s.volume, 0), p.score
		 FROM per_workout p LEFT JOIN per_set s USING (period)
		 ORDER BY p.period DESC`,
		truncInterval(bucket), userID, start, end, loc.String())
	if err != nil {
		return nil, fmt.Errorf("querying training summary: %w", err)
	}
	defer rows.Close()

	var periods []TrainingPeriod
	for rows.Next() {
		var period time.Time
		var p TrainingPeriod
		if err := rows.Scan(&period, &p.Sessions, &p.Sets, &p.Reps, &p.Volume, &p.Score); err != nil {
			return nil, fmt.Errorf("scanning training summary: %w", err)
		}
		p.Period = period.Format("2006-01-02")
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// truncInterval maps a bucket name to a date_trunc field. Unknown buckets are monthly.
func truncInterval(bucket string) string {
	switch bucket {
	case "1 week", "week", "weekly":
		return "week"
	default:
		return "month"
	}
}
