package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/claude/liftscore/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateUserWithProfile inserts a user and its profile (score 0) in one transaction.
// A taken email or username fails with models.ErrConflict.
func (db *DB) CreateUserWithProfile(ctx context.Context, email, passwordHash, name, username string) (uuid.UUID, error) {
	id := uuid.New()
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)`,
			id, strings.ToLower(email), passwordHash); err != nil {
			if isUniqueViolation(err, "") {
				return fmt.Errorf("email %q: %w", email, models.ErrConflict)
			}
			return fmt.Errorf("inserting user: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO profiles (user_id, name, username, score) VALUES ($1, $2, $3, 0)`,
			id, name, username); err != nil {
			if isUniqueViolation(err, "profiles_username_key") {
				return fmt.Errorf("username %q: %w", username, models.ErrConflict)
			}
			return fmt.Errorf("inserting profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// GetUserByEmail looks a user up by (case-insensitive) email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := db.Pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1`,
		strings.ToLower(email)).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", email, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}
