package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/xilytix/revdatasource/internal/config"
	"github.com/xilytix/revdatasource/internal/dataset"
	"github.com/xilytix/revdatasource/internal/logging"
	"github.com/xilytix/revdatasource/internal/schema"
	"github.com/xilytix/revdatasource/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	loader, closeLoader, err := newLoader(ctx, cfg)
	if err != nil {
		slog.Error("failed to set up dataset source", "source", cfg.Dataset.Source, "error", err)
		os.Exit(1)
	}
	defer closeLoader()

	fields, ok := schema.Preset(cfg.Dataset.Preset)
	if !ok {
		slog.Error("unknown dataset preset",
			"preset", cfg.Dataset.Preset,
			"available", strings.Join(schema.PresetNames(), ","),
		)
		os.Exit(1)
	}

	data := dataset.New(loader, dataset.Options{
		MaxSorts:             cfg.Dataset.MaxSorts,
		PartialSortThreshold: cfg.Dataset.PartialSortThreshold,
		EventBuffer:          cfg.Dataset.EventBuffer,
	})
	if err := data.SetFields(ctx, fields); err != nil {
		slog.Error("failed to load dataset", "error", err, "message", dataset.FormatUserError(err))
		os.Exit(1)
	}
	slog.Info("dataset loaded",
		"source", cfg.Dataset.Source,
		"preset", cfg.Dataset.Preset,
		"fields", len(fields),
		"records", data.Len(),
	)

	server := web.NewServer(data, cfg)

	// Cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go data.RunReloads(jobCtx, cfg.Dataset.ReloadInterval)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		// Ends open event streams so Shutdown does not wait on them.
		data.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// newLoader builds the configured record loader and a function releasing
// its resources.
func newLoader(ctx context.Context, cfg *config.Config) (dataset.Loader, func(), error) {
	noop := func() {}

	switch cfg.Dataset.Source {
	case config.SourceDemo:
		return dataset.DemoLoader{Rows: cfg.Dataset.DemoRows, Seed: uint64(cfg.Dataset.DemoSeed)}, noop, nil

	case config.SourceCSV:
		return dataset.CSVLoader{Path: cfg.Dataset.CSVPath}, noop, nil

	case config.SourcePostgres:
		pool, err := connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return dataset.PgLoader{
			DB:        pool,
			Table:     cfg.Dataset.Table,
			KeyColumn: cfg.Dataset.KeyColumn,
			Limit:     cfg.Dataset.LoadLimit,
		}, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown dataset source %q", cfg.Dataset.Source)
	}
}

// connect opens and verifies a connection pool.
func connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
