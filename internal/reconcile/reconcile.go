// Package reconcile periodically repairs profile scores that drifted from the
// sum of their workout scores.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/liftscore/internal/observability"
	"github.com/claude/liftscore/internal/storage"
	"github.com/go-co-op/gocron/v2"
)

// Store recomputes drifted scores and returns what it changed.
type Store interface {
	ReconcileScores(ctx context.Context) ([]storage.ScoreCorrection, error)
}

// ChangeHook is told when any score was corrected.
type ChangeHook interface {
	Invalidate()
}

// Job is one reconciliation pass.
type Job struct {
	store   Store
	hook    ChangeHook
	log     *slog.Logger
	timeout time.Duration
}

// NewJob creates a Job. hook may be nil.
func NewJob(store Store, hook ChangeHook, log *slog.Logger) *Job {
	return &Job{store: store, hook: hook, log: log, timeout: 5 * time.Minute}
}

// Run performs one pass and returns the number of corrected profiles.
func (j *Job) Run(ctx context.Context) (int, error) {
	fixed, err := j.store.ReconcileScores(ctx)
	for _, c := range fixed {
		j.log.Warn("corrected drifted score",
			"user_id", c.UserID, "old_score", c.OldScore, "new_score", c.NewScore)
	}
	observability.RecordScoreCorrections(len(fixed))
	if len(fixed) > 0 && j.hook != nil {
		j.hook.Invalidate()
	}
	if err != nil {
		return len(fixed), fmt.Errorf("reconciling scores: %w", err)
	}
	return len(fixed), nil
}

// Start schedules the job every interval, starting immediately. Overlapping
// runs are skipped. Call Shutdown on the returned scheduler to stop it.
func Start(job *Job, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), job.timeout)
			defer cancel()
			if _, err := job.Run(ctx); err != nil {
				job.log.Error("score reconciliation failed", "error", err)
			}
		}),
		gocron.WithName("reconcile-scores"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("scheduling reconciliation: %w", err)
	}

	sched.Start()
	return sched, nil
}
