package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ImportLog represents a single import operation's outcome.
type ImportLog struct {
	ID               int64     `json:"id"`
	UserID           uuid.UUID `json:"userId"`
	CreatedAt        time.Time `json:"createdAt"`
	Source           string    `json:"source"`
	Status           string    `json:"status"`
	FileHash         *string   `json:"fileHash,omitempty"`
	WorkoutsReceived int       `json:"workoutsReceived"`
	WorkoutsInserted int       `json:"workoutsInserted"`
	RejectedNames    []string  `json:"rejectedNames,omitempty"`
	DurationMs       *int      `json:"durationMs"`
	ErrorMessage     *string   `json:"errorMessage"`
}

// InsertImportLog creates a new import log entry and returns its ID.
func (db *DB) InsertImportLog(ctx context.Context, log ImportLog) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO import_logs (user_id, source, status, file_hash, workouts_received,
		 workouts_inserted, rejected_names, duration_ms, error_message)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING id`,
		log.UserID, log.Source, log.Status, log.FileHash, log.WorkoutsReceived,
		log.WorkoutsInserted, log.RejectedNames, log.DurationMs, log.ErrorMessage,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting import log: %w", err)
	}
	return id, nil
}

// UpdateImportLog updates an existing import log entry (typically from "running" to "success" or "error").
func (db *DB) UpdateImportLog(ctx context.Context, id int64, log ImportLog) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE import_logs SET
		 status = $2, workouts_received = $3, workouts_inserted = $4,
		 rejected_names = $5, duration_ms = $6, error_message = $7
		 WHERE id = $1`,
		id, log.Status, log.WorkoutsReceived, log.WorkoutsInserted,
		log.RejectedNames, log.DurationMs, log.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("updating import log %d: %w", id, err)
	}
	return nil
}

// QueryImportLogs returns the most recent import logs for a user.
func (db *DB) QueryImportLogs(ctx context.Context, userID uuid.UUID, limit int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, created_at, source, status, file_hash, workouts_received,
		 workouts_inserted, rejected_names, duration_ms, error_message
		 FROM import_logs
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying import logs: %w", err)
	}
	defer rows.Close()

	result := []ImportLog{}
	for rows.Next() {
		var l ImportLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.CreatedAt, &l.Source, &l.Status, &l.FileHash,
			&l.WorkoutsReceived, &l.WorkoutsInserted, &l.RejectedNames,
			&l.DurationMs, &l.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scanning import log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
