package storage

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// scoreTolerance absorbs float summation order differences between the
// incremental score and a fresh SUM.
const scoreTolerance = 1e-6

// ScoreCorrection records a profile whose stored score drifted from the sum of its workouts.
type ScoreCorrection struct {
	UserID   uuid.UUID
	OldScore float64
	NewScore float64
}

// ReconcileScores sets every drifted profile score back to the sum of its
// workout scores. Each user is fixed under a row lock on their profile so a
// concurrent workout mutation cannot interleave.
func (db *DB) ReconcileScores(ctx context.Context) ([]ScoreCorrection, error) {
	candidates, err := db.driftedProfiles(ctx)
	if err != nil {
		return nil, err
	}

	var fixed []ScoreCorrection
	for _, userID := range candidates {
		var c ScoreCorrection
		var changed bool
		err := db.inTx(ctx, func(tx pgx.Tx) error {
			var old, sum float64
			if err := tx.QueryRow(ctx,
				`SELECT score FROM profiles WHERE user_id = $1 FOR UPDATE`, userID).Scan(&old); err != nil {
				return fmt.Errorf("locking profile: %w", err)
			}
			if err := tx.QueryRow(ctx,
				`SELECT COALESCE(SUM(workout_score), 0) FROM workouts WHERE user_id = $1`, userID).Scan(&sum); err != nil {
				return fmt.Errorf("summing workout scores: %w", err)
			}
			if math.Abs(old-sum) <= scoreTolerance {
				return nil
			}
			if _, err := tx.Exec(ctx,
				`UPDATE profiles SET score = $2, updated_at = NOW() WHERE user_id = $1`, userID, sum); err != nil {
				return fmt.Errorf("correcting score: %w", err)
			}
			c = ScoreCorrection{UserID: userID, OldScore: old, NewScore: sum}
			changed = true
			return nil
		})
		if err != nil {
			return fixed, fmt.Errorf("reconciling %s: %w", userID, err)
		}
		if changed {
			fixed = append(fixed, c)
		}
	}
	return fixed, nil
}

func (db *DB) driftedProfiles(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT p.user_id
		 FROM profiles p
		 LEFT JOIN workouts w ON w.user_id = p.user_id
		 GROUP BY p.user_id, p.score
		 HAVING ABS(p.score - COALESCE(SUM(w.workout_score), 0)) > $1`, scoreTolerance)
	if err != nil {
		return nil, fmt.Errorf("finding drifted scores: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning drifted score: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
