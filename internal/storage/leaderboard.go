package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/liftscore/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TopProfiles returns up to limit profiles ordered by score, ties broken by username.
func (db *DB) TopProfiles(ctx context.Context, limit int) ([]models.Profile, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+profileColumns+` FROM profiles
		 ORDER BY score DESC, username ASC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer rows.Close()

	result := []models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning leaderboard: %w", err)
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

// RankOf returns the user's 1-based competition rank and the number of ranked profiles.
func (db *DB) RankOf(ctx context.Context, userID uuid.UUID) (rank, total int, err error) {
	err = db.Pool.QueryRow(ctx,
		`SELECT r.rank, r.total FROM (
			SELECT user_id,
			       RANK() OVER (ORDER BY score DESC) AS rank,
			       COUNT(*) OVER () AS total
			FROM profiles
		 ) r WHERE r.user_id = $1`, userID).Scan(&rank, &total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, fmt.Errorf("profile %s: %w", userID, models.ErrNotFound)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("querying rank: %w", err)
	}
	return rank, total, nil
}
