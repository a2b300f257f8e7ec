package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/csvcleaner/internal/config"
	"github.com/JonMunkholm/csvcleaner/internal/history"
	"github.com/JonMunkholm/csvcleaner/internal/logging"
	"github.com/JonMunkholm/csvcleaner/internal/profile"
	"github.com/JonMunkholm/csvcleaner/internal/session"
	"github.com/JonMunkholm/csvcleaner/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	closeLogs := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.SeqURL)
	defer closeLogs()

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"load_max_concurrent", cfg.Load.MaxConcurrent,
		"session_ttl", cfg.Session.TTL,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"history_enabled", cfg.Database.Enabled(),
	)

	profiles, err := profile.LoadFile(cfg.Columns.ProfilesFile, cfg.Columns.Defaults)
	if err != nil {
		slog.Error("failed to load column profiles", "error", err)
		os.Exit(1)
	}
	slog.Info("column profiles loaded", "profiles", profiles.Names())

	ctx := context.Background()

	var recorder history.Recorder = history.NopStore{}
	if cfg.Database.Enabled() {
		pool, err := connectDB(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		store := history.NewPGStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare history table", "error", err)
			os.Exit(1)
		}
		recorder = store
	}

	sessions := session.NewStore(cfg.Session.TTL, cfg.Session.MaxSessions)
	limiter := session.NewLimiter(cfg.Load.MaxConcurrent, cfg.Load.MaxWaitTime)

	server := web.NewServer(cfg, web.Deps{
		Sessions: sessions,
		Limiter:  limiter,
		Profiles: profiles,
		History:  recorder,
	})

	// Cancelled on SIGINT/SIGTERM; stops the sweeper and the server
	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sessions.Run(runCtx, cfg.Session.SweepInterval)

	// Run returns after in-flight requests have drained, so the deferred
	// pool and log sink closes only run once nothing is using them.
	if err := server.Run(runCtx); err != nil {
		slog.Error("server error", "error", err)
		return
	}
	slog.Info("server stopped")
}

// connectDB opens and verifies the history database pool.
func connectDB(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to history database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to history database")
	}
	return pool, nil
}
