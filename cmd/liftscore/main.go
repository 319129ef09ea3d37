package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/liftscore/internal/auth"
	"github.com/claude/liftscore/internal/catalog"
	"github.com/claude/liftscore/internal/config"
	"github.com/claude/liftscore/internal/ingest/alpha"
	"github.com/claude/liftscore/internal/leaderboard"
	"github.com/claude/liftscore/internal/logging"
	lsmcp "github.com/claude/liftscore/internal/mcp"
	"github.com/claude/liftscore/internal/media"
	"github.com/claude/liftscore/internal/models"
	"github.com/claude/liftscore/internal/profile"
	"github.com/claude/liftscore/internal/reconcile"
	"github.com/claude/liftscore/internal/server"
	"github.com/claude/liftscore/internal/storage"
	"github.com/claude/liftscore/internal/workouts"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Logging)
	log.Info("LiftScore starting", "version", Version)

	// Run migrations
	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	// Connect database
	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	// Connect Redis (session store)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect redis", "addr", cfg.Redis.Addr, "error", err)
		os.Exit(1)
	}
	log.Info("redis connected", "addr", cfg.Redis.Addr)

	loc, err := cfg.Stats.Location()
	if err != nil {
		log.Error("invalid stats timezone", "error", err)
		os.Exit(1)
	}

	// Profile pictures are optional
	var pictures profile.PictureUploader
	if cfg.Storage.Bucket != "" {
		store, err := media.New(ctx, cfg.Storage)
		if err != nil {
			log.Error("failed to configure picture storage", "error", err)
			os.Exit(1)
		}
		pictures = store
		log.Info("picture storage configured", "bucket", cfg.Storage.Bucket)
	}

	// Build services
	board := leaderboard.New(db, cfg.Leaderboard, log)
	profiles := profile.NewManager(db, pictures, log)
	cancelProfileHook := profiles.OnChange(func(models.Profile) { board.Invalidate() })
	defer cancelProfileHook()

	cat := catalog.Default()
	workoutSvc := workouts.NewService(db, profiles, cat, board, log)
	authMgr := auth.NewManager(db, rdb, cfg.Auth, log)
	cancelSessionHook := authMgr.OnSessionChanged(func(userID uuid.UUID, signedIn bool) {
		log.Debug("session changed", "user_id", userID, "signed_in", signedIn)
	})
	defer cancelSessionHook()
	alphaProvider := alpha.NewProvider(workoutSvc, cat, loc, log)

	// Background score reconciliation
	scheduler, err := reconcile.Start(reconcile.NewJob(db, board, log), cfg.Reconcile.Interval)
	if err != nil {
		log.Error("failed to start reconciliation", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			log.Warn("scheduler shutdown", "error", err)
		}
	}()
	log.Info("score reconciliation scheduled", "interval", cfg.Reconcile.Interval)

	mcpSrv := lsmcp.New(lsmcp.NewLocal(workoutSvc, profiles, board, db, loc), Version, log)

	// Create server
	srv := server.New(server.Deps{
		Auth:        authMgr,
		Profiles:    profiles,
		Workouts:    workoutSvc,
		Leaderboard: board,
		Subscribe:   server.SubscribeStore(db),
		Alpha:       alphaProvider,
		ImportLogs:  db,
		Training:    db,
		MCP:         server.MCPHandler(mcpSrv),
		Location:    loc,
	}, log)

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr)
	}

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}
	// Stats streams hold a database connection until their request ends.
	httpSrv.RegisterOnShutdown(srv.CloseStreams)

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		if err := httpSrv.Close(); err != nil {
			log.Error("force close error", "error", err)
		}
	}
	log.Info("server stopped")
}
