package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/claude/liftscore/internal/catalog"
	"github.com/claude/liftscore/internal/config"
	"github.com/claude/liftscore/internal/importer"
	"github.com/claude/liftscore/internal/ingest/alpha"
	"github.com/claude/liftscore/internal/leaderboard"
	"github.com/claude/liftscore/internal/logging"
	"github.com/claude/liftscore/internal/profile"
	"github.com/claude/liftscore/internal/storage"
	"github.com/claude/liftscore/internal/workouts"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	path := flag.String("path", "", "Alpha Progression CSV export, or a directory of them (required)")
	email := flag.String("user", "", "email of the account to import into (required)")
	stateDir := flag.String("state-dir", "", "directory for the import state database (default ~/.liftscore-import)")
	dryRun := flag.Bool("dry-run", false, "parse and convert but don't write workouts")
	flag.Parse()

	if *path == "" || *email == "" {
		fmt.Fprintf(os.Stderr, "Usage: liftscore-import -config config.yaml -user you@example.com -path /path/to/exports [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	_ = godotenv.Load()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Logging)

	if _, err := os.Stat(*path); err != nil {
		log.Error("import path does not exist", "path", *path)
		os.Exit(1)
	}

	loc, err := cfg.Stats.Location()
	if err != nil {
		log.Error("invalid stats timezone", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode: no workouts will be written to the database")
	}

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	user, err := db.GetUserByEmail(ctx, *email)
	if err != nil {
		log.Error("unknown user", "email", *email, "error", err)
		os.Exit(1)
	}

	// Open state database
	dir := *stateDir
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Error("failed to get home directory", "error", err)
			os.Exit(1)
		}
		dir = filepath.Join(homeDir, ".liftscore-import")
	}
	state, err := importer.OpenStateDB(dir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	cat := catalog.Default()
	profiles := profile.NewManager(db, nil, log)
	board := leaderboard.New(db, cfg.Leaderboard, log)
	svc := workouts.NewService(db, profiles, cat, board, log)
	provider := alpha.NewProvider(svc, cat, loc, log)

	// Run import
	imp := importer.New(provider, state, db, log, *dryRun)
	stats, err := imp.Import(ctx, *path, user.ID)
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	if stats == nil {
		return
	}
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"workouts_inserted", stats.WorkoutsInserted,
	)
	if len(stats.RejectedNames) > 0 {
		log.Info("rejected exercises (not in catalog)", "names", stats.RejectedNames)
	}
}
