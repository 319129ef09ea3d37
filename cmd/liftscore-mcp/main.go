package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/claude/liftscore/internal/catalog"
	"github.com/claude/liftscore/internal/config"
	"github.com/claude/liftscore/internal/leaderboard"
	"github.com/claude/liftscore/internal/logging"
	lsmcp "github.com/claude/liftscore/internal/mcp"
	"github.com/claude/liftscore/internal/profile"
	"github.com/claude/liftscore/internal/storage"
	"github.com/claude/liftscore/internal/workouts"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	email := flag.String("user", "", "email of the account to serve (local mode)")
	serverURL := flag.String("server", "", "LiftScore server URL (remote mode, e.g. https://liftscore.tail1234.ts.net)")
	token := flag.String("token", os.Getenv("LIFTSCORE_TOKEN"), "session token for remote mode (or LIFTSCORE_TOKEN)")
	logLevel := flag.String("log-level", "warn", "log level (logs go to stderr)")
	flag.Parse()

	_ = godotenv.Load()

	// stdout carries the protocol
	log := logging.NewWithWriter(os.Stderr, *logLevel)

	var (
		ds     lsmcp.DataSource
		userID uuid.UUID
	)

	if *serverURL != "" {
		if *token == "" {
			fmt.Fprintf(os.Stderr, "Error: -token is required with -server\n")
			os.Exit(1)
		}
		ds = lsmcp.NewHTTPClient(*serverURL, *token)
		// The server derives the user from the token; any non-nil ID satisfies the tools.
		userID = uuid.New()
		log.Info("remote mode", "server", *serverURL)
	} else {
		if *email == "" {
			fmt.Fprintf(os.Stderr, "Usage: liftscore-mcp -config config.yaml -user you@example.com\n       liftscore-mcp -server <URL> -token <session token>\n\n")
			flag.PrintDefaults()
			os.Exit(1)
		}

		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		loc, err := cfg.Stats.Location()
		if err != nil {
			log.Error("invalid stats timezone", "error", err)
			os.Exit(1)
		}

		ctx := context.Background()
		db, err := storage.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		user, err := db.GetUserByEmail(ctx, *email)
		if err != nil {
			log.Error("unknown user", "email", *email, "error", err)
			os.Exit(1)
		}
		userID = user.ID

		cat := catalog.Default()
		board := leaderboard.New(db, cfg.Leaderboard, log)
		profiles := profile.NewManager(db, nil, log)
		svc := workouts.NewService(db, profiles, cat, board, log)
		ds = lsmcp.NewLocal(svc, profiles, board, db, loc)
		log.Info("local mode", "user_id", userID)
	}

	s := lsmcp.New(ds, Version, log)
	err := server.ServeStdio(s, server.WithStdioContextFunc(func(ctx context.Context) context.Context {
		return lsmcp.WithUserID(ctx, userID)
	}))
	if err != nil {
		log.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}
