package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/liftscore/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const profileColumns = `user_id, name, username, weight_kg, profile_picture, score, updated_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	if err := row.Scan(&p.UserID, &p.Name, &p.Username, &p.WeightKg,
		&p.ProfilePicture, &p.Score, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfile returns a user's profile.
func (db *DB) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p, err := scanProfile(db.Pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", userID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	return p, nil
}

// UpdateProfile writes the editable profile fields. The score is never touched here.
func (db *DB) UpdateProfile(ctx context.Context, userID uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error) {
	p, err := scanProfile(db.Pool.QueryRow(ctx,
		`UPDATE profiles SET name = $2, username = $3, weight_kg = $4, updated_at = NOW()
		 WHERE user_id = $1
		 RETURNING `+profileColumns,
		userID, upd.Name, upd.Username, upd.WeightKg))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("profile %s: %w", userID, models.ErrNotFound)
	case isUniqueViolation(err, "profiles_username_key"):
		return nil, fmt.Errorf("username %q: %w", upd.Username, models.ErrConflict)
	case err != nil:
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return p, nil
}

// SetProfilePicture stores the object key of the user's profile picture.
func (db *DB) SetProfilePicture(ctx context.Context, userID uuid.UUID, key string) (*models.Profile, error) {
	p, err := scanProfile(db.Pool.QueryRow(ctx,
		`UPDATE profiles SET profile_picture = $2, updated_at = NOW()
		 WHERE user_id = $1
		 RETURNING `+profileColumns,
		userID, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", userID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("setting profile picture: %w", err)
	}
	return p, nil
}
