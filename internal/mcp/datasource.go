package mcp

import (
	"context"
	"time"

	"github.com/claude/liftscore/internal/catalog"
	"github.com/claude/liftscore/internal/leaderboard"
	"github.com/claude/liftscore/internal/models"
	"github.com/claude/liftscore/internal/profile"
	"github.com/claude/liftscore/internal/stats"
	"github.com/claude/liftscore/internal/storage"
	"github.com/claude/liftscore/internal/workouts"
	"github.com/google/uuid"
)

// DataSource abstracts the data layer for MCP tools. Both Local (in-process
// services) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListWorkouts(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]models.Workout, error)
	GetStatistics(ctx context.Context, userID uuid.UUID) (*stats.Summary, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	GetLeaderboard(ctx context.Context, limit int) ([]leaderboard.Entry, error)
	GetStanding(ctx context.Context, userID uuid.UUID) (*leaderboard.Standing, error)
	ListExercises(ctx context.Context) ([]catalog.Exercise, error)
	GetTrainingSummary(ctx context.Context, userID uuid.UUID, start, end time.Time, bucket string) ([]storage.TrainingPeriod, error)
}

// TrainingSummarizer aggregates workouts into weekly or monthly periods.
type TrainingSummarizer interface {
	GetTrainingSummary(ctx context.Context, userID uuid.UUID, start, end time.Time, bucket string, loc *time.Location) ([]storage.TrainingPeriod, error)
}

// Compile-time checks.
var (
	_ DataSource = (*Local)(nil)
	_ DataSource = (*HTTPClient)(nil)
)

// Local serves MCP requests from the in-process services.
type Local struct {
	workouts *workouts.Service
	profiles *profile.Manager
	board    *leaderboard.Board
	training TrainingSummarizer
	loc      *time.Location
	now      func() time.Time
}

// NewLocal creates a Local data source. loc groups workouts into calendar days for streaks.
func NewLocal(ws *workouts.Service, profiles *profile.Manager, board *leaderboard.Board, training TrainingSummarizer, loc *time.Location) *Local {
	return &Local{workouts: ws, profiles: profiles, board: board, training: training, loc: loc, now: time.Now}
}

func (l *Local) ListWorkouts(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]models.Workout, error) {
	ws, err := l.workouts.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return workouts.Between(ws, start, end), nil
}

func (l *Local) GetStatistics(ctx context.Context, userID uuid.UUID) (*stats.Summary, error) {
	ws, err := l.workouts.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	s := stats.Compute(ws, l.now(), l.loc)
	return &s, nil
}

func (l *Local) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return l.profiles.Get(ctx, userID)
}

func (l *Local) GetLeaderboard(ctx context.Context, limit int) ([]leaderboard.Entry, error) {
	return l.board.Top(ctx, limit)
}

func (l *Local) GetStanding(ctx context.Context, userID uuid.UUID) (*leaderboard.Standing, error) {
	return l.board.Rank(ctx, userID)
}

func (l *Local) ListExercises(_ context.Context) ([]catalog.Exercise, error) {
	return l.workouts.Catalog().All(), nil
}

func (l *Local) GetTrainingSummary(ctx context.Context, userID uuid.UUID, start, end time.Time, bucket string) ([]storage.TrainingPeriod, error) {
	return l.training.GetTrainingSummary(ctx, userID, start, end, bucket, l.loc)
}
