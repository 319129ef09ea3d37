package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/liftscore/internal/auth"
	"github.com/claude/liftscore/internal/catalog"
	"github.com/claude/liftscore/internal/ingest"
	"github.com/claude/liftscore/internal/leaderboard"
	"github.com/claude/liftscore/internal/models"
	"github.com/claude/liftscore/internal/observability"
	"github.com/claude/liftscore/internal/stats"
	"github.com/claude/liftscore/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Authenticator is the session surface used by the API.
type Authenticator interface {
	SignUp(ctx context.Context, email, password, name, username string) (*auth.Session, error)
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignOut(ctx context.Context, token string) error
	Verify(ctx context.Context, token string) (uuid.UUID, error)
}

// Profiles reads and edits the signed-in user's profile.
type Profiles interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Update(ctx context.Context, userID uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error)
	SetPicture(ctx context.Context, userID uuid.UUID, contentType string, body io.Reader, size int64) (*models.Profile, error)
}

// Workouts is the workout CRUD surface.
type Workouts interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.Workout, error)
	ListWorkouts(ctx context.Context, userID uuid.UUID) ([]models.Workout, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Workout, error)
	Create(ctx context.Context, userID uuid.UUID, in models.WorkoutInput) (*models.Workout, error)
	Update(ctx context.Context, userID, id uuid.UUID, in models.WorkoutInput) (*models.Workout, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Catalog() *catalog.Catalog
}

// Leaderboard ranks users by score.
type Leaderboard interface {
	Top(ctx context.Context, limit int) ([]leaderboard.Entry, error)
	Rank(ctx context.Context, userID uuid.UUID) (*leaderboard.Standing, error)
}

// Ingester imports an Alpha Progression CSV export.
type Ingester interface {
	Ingest(ctx context.Context, r io.Reader, userID uuid.UUID) (*ingest.Result, error)
}

// ImportLogs stores and lists import history.
type ImportLogs interface {
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	QueryImportLogs(ctx context.Context, userID uuid.UUID, limit int) ([]storage.ImportLog, error)
}

// TrainingSummaries aggregates workouts per week or month.
type TrainingSummaries interface {
	GetTrainingSummary(ctx context.Context, userID uuid.UUID, start, end time.Time, bucket string, loc *time.Location) ([]storage.TrainingPeriod, error)
}

// SubscribeFunc opens a change subscription for one user's workouts.
type SubscribeFunc func(ctx context.Context, userID uuid.UUID) (stats.Subscription, error)

// Deps are the services behind the HTTP API. MCP may be nil.
type Deps struct {
	Auth        Authenticator
	Profiles    Profiles
	Workouts    Workouts
	Leaderboard Leaderboard
	Subscribe   SubscribeFunc
	Alpha       Ingester
	ImportLogs  ImportLogs
	Training    TrainingSummaries
	MCP         http.Handler
	Location    *time.Location
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	Deps
	log    *slog.Logger
	now    func() time.Time
	router chi.Router

	// streams is cancelled by CloseStreams to end long-lived responses.
	streams     context.Context
	stopStreams context.CancelFunc
}

// New creates a new Server with all routes configured.
func New(deps Deps, log *slog.Logger) *Server {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	s := &Server{
		Deps:   deps,
		log:    log,
		now:    time.Now,
		router: chi.NewRouter(),
	}
	s.streams, s.stopStreams = context.WithCancel(context.Background())
	s.routes()
	return s
}

// SubscribeStore adapts the database LISTEN subscription to SubscribeFunc.
func SubscribeStore(db *storage.DB) SubscribeFunc {
	return func(ctx context.Context, userID uuid.UUID) (stats.Subscription, error) {
		sub, err := db.Subscribe(ctx, userID)
		if err != nil {
			return nil, err
		}
		return sub, nil
	}
}

// CloseStreams ends every open stats stream and releases its subscription.
// http.Server.Shutdown does not cancel running requests, so register this
// with RegisterOnShutdown. Safe to call more than once.
func (s *Server) CloseStreams() {
	s.stopStreams()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Handle("/metrics", observability.Handler())

	// Session endpoints (no token yet)
	s.router.Post("/api/v1/auth/signup", s.handleSignUp)
	s.router.Post("/api/v1/auth/signin", s.handleSignIn)

	// Everything else requires a valid session token
	s.router.Group(func(r chi.Router) {
		r.Use(BearerAuth(s.Auth))

		r.Post("/api/v1/auth/signout", s.handleSignOut)

		r.Get("/api/v1/profile", s.handleGetProfile)
		r.Put("/api/v1/profile", s.handleUpdateProfile)
		r.Put("/api/v1/profile/picture", s.handleSetPicture)

		r.Get("/api/v1/workouts", s.handleListWorkouts)
		r.Post("/api/v1/workouts", s.handleCreateWorkout)
		r.Get("/api/v1/workouts/{id}", s.handleGetWorkout)
		r.Put("/api/v1/workouts/{id}", s.handleUpdateWorkout)
		r.Delete("/api/v1/workouts/{id}", s.handleDeleteWorkout)

		r.Get("/api/v1/stats", s.handleStats)
		r.Get("/api/v1/stats/stream", s.handleStatsStream)
		r.Get("/api/v1/stats/periods", s.handleTrainingSummary)

		r.Get("/api/v1/leaderboard", s.handleLeaderboard)
		r.Get("/api/v1/leaderboard/me", s.handleStanding)

		r.Get("/api/v1/exercises", s.handleExercises)

		r.Post("/api/v1/import/alpha", s.handleAlphaImport)
		r.Get("/api/v1/import/logs", s.handleImportLogs)

		if s.MCP != nil {
			r.Handle("/mcp", s.MCP)
		}
	})
}
