package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/liftscore/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const workoutColumns = `id, user_id, date, duration_min, exercises, workout_score, created_at, updated_at`

func scanWorkout(row pgx.Row) (*models.Workout, error) {
	var (
		w   models.Workout
		raw []byte
	)
	if err := row.Scan(&w.ID, &w.UserID, &w.Date, &w.DurationMin, &raw,
		&w.WorkoutScore, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	exercises, err := models.DecodeExercises(raw)
	if err != nil {
		return nil, fmt.Errorf("workout %s: %w", w.ID, err)
	}
	w.Exercises = exercises
	return &w, nil
}

// ListWorkouts returns all of a user's workouts, newest first.
func (db *DB) ListWorkouts(ctx context.Context, userID uuid.UUID) ([]models.Workout, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+workoutColumns+` FROM workouts
		 WHERE user_id = $1
		 ORDER BY date DESC, created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	result := []models.Workout{}
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		result = append(result, *w)
	}
	return result, rows.Err()
}

// GetWorkout returns one of the user's workouts.
func (db *DB) GetWorkout(ctx context.Context, id, userID uuid.UUID) (*models.Workout, error) {
	w, err := scanWorkout(db.Pool.QueryRow(ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE id = $1 AND user_id = $2`,
		id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("workout %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying workout: %w", err)
	}
	return w, nil
}

// CreateWorkout inserts w and adds its score to the owner's profile in the same
// transaction. w.ID is assigned when nil; timestamps are filled from the database.
func (db *DB) CreateWorkout(ctx context.Context, w *models.Workout) error {
	return db.CreateWorkouts(ctx, []*models.Workout{w})
}

// CreateWorkouts inserts every workout in one transaction and applies one combined
// score delta per owner. Either all workouts are stored or none are.
func (db *DB) CreateWorkouts(ctx context.Context, ws []*models.Workout) error {
	if len(ws) == 0 {
		return nil
	}
	encoded := make([][]byte, len(ws))
	for i, w := range ws {
		if w.ID == uuid.Nil {
			w.ID = uuid.New()
		}
		exercises, err := models.EncodeExercises(w.Exercises)
		if err != nil {
			return fmt.Errorf("encoding exercises: %w", err)
		}
		encoded[i] = exercises
	}

	return db.inTx(ctx, func(tx pgx.Tx) error {
		deltas := map[uuid.UUID]float64{}
		var owners []uuid.UUID
		for i, w := range ws {
			if err := tx.QueryRow(ctx,
				`INSERT INTO workouts (id, user_id, date, duration_min, exercises, workout_score)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 RETURNING created_at, updated_at`,
				w.ID, w.UserID, w.Date, w.DurationMin, encoded[i], w.WorkoutScore,
			).Scan(&w.CreatedAt, &w.UpdatedAt); err != nil {
				return fmt.Errorf("inserting workout: %w", err)
			}
			if _, ok := deltas[w.UserID]; !ok {
				owners = append(owners, w.UserID)
			}
			deltas[w.UserID] += w.WorkoutScore
		}
		for _, uid := range owners {
			if err := applyScoreDelta(ctx, tx, uid, deltas[uid]); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateWorkout replaces the contents of an existing workout and applies
// new - old to the owner's score. It returns the previous workout score.
func (db *DB) UpdateWorkout(ctx context.Context, w *models.Workout) (float64, error) {
	exercises, err := models.EncodeExercises(w.Exercises)
	if err != nil {
		return 0, fmt.Errorf("encoding exercises: %w", err)
	}

	var oldScore float64
	err = db.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`SELECT workout_score FROM workouts WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			w.ID, w.UserID).Scan(&oldScore)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("workout %s: %w", w.ID, models.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("locking workout: %w", err)
		}

		if err := tx.QueryRow(ctx,
			`UPDATE workouts
			 SET date = $3, duration_min = $4, exercises = $5, workout_score = $6, updated_at = NOW()
			 WHERE id = $1 AND user_id = $2
			 RETURNING created_at, updated_at`,
			w.ID, w.UserID, w.Date, w.DurationMin, exercises, w.WorkoutScore,
		).Scan(&w.CreatedAt, &w.UpdatedAt); err != nil {
			return fmt.Errorf("updating workout: %w", err)
		}
		return applyScoreDelta(ctx, tx, w.UserID, w.WorkoutScore-oldScore)
	})
	if err != nil {
		return 0, err
	}
	return oldScore, nil
}

// DeleteWorkout removes a workout and subtracts its stored score from the
// owner's profile. It returns the deleted workout's score.
func (db *DB) DeleteWorkout(ctx context.Context, id, userID uuid.UUID) (float64, error) {
	var score float64
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`DELETE FROM workouts WHERE id = $1 AND user_id = $2 RETURNING workout_score`,
			id, userID).Scan(&score)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("workout %s: %w", id, models.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("deleting workout: %w", err)
		}
		return applyScoreDelta(ctx, tx, userID, -score)
	})
	if err != nil {
		return 0, err
	}
	return score, nil
}

// applyScoreDelta increments the profile score in place and signals subscribers.
// The notification is delivered only if the surrounding transaction commits.
func applyScoreDelta(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta float64) error {
	tag, err := tx.Exec(ctx,
		`UPDATE profiles SET score = score + $2, updated_at = NOW() WHERE user_id = $1`,
		userID, delta)
	if err != nil {
		return fmt.Errorf("applying score delta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("profile %s: %w", userID, models.ErrNotFound)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, WorkoutsChannel, userID.String()); err != nil {
		return fmt.Errorf("notifying change: %w", err)
	}
	return nil
}
