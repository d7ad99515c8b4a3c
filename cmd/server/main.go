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

	"github.com/jivoecom/po-import/internal/config"
	"github.com/jivoecom/po-import/internal/importer"
	"github.com/jivoecom/po-import/internal/logging"
	"github.com/jivoecom/po-import/internal/platform"
	"github.com/jivoecom/po-import/internal/store"
	"github.com/jivoecom/po-import/internal/validate"
	"github.com/jivoecom/po-import/internal/web"
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

	// Setup structured logging based on config
	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"commit_timeout", cfg.Import.CommitTimeout,
		"rules_file", cfg.Import.RulesFile,
	)

	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		dbName := strings.TrimPrefix(u.Path, "/")
		slog.Info("connected to database", "name", dbName)
	} else {
		slog.Info("connected to database")
	}

	// Per-platform validation overrides
	rules, err := cfg.LoadRules()
	if err != nil {
		slog.Error("failed to load platform rules", "error", err)
		os.Exit(1)
	}

	st := store.New(pool)
	svc := importer.New(st, st, logger, importerOptions(cfg, rules))

	slog.Info("platforms registered", "platforms", platform.Known())

	server := web.NewServer(svc, cfg, pool)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let in-flight imports finish before closing the listener
		if n := server.ActiveImports(); n > 0 {
			slog.Info("waiting for imports to complete", "active", n)
			if err := server.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}

// importerOptions maps config onto the import service options.
func importerOptions(cfg *config.Config, rules map[string]config.PlatformRule) importer.Options {
	opts := importer.Options{
		CommitTimeout: cfg.Import.CommitTimeout,
		MaxRetries:    cfg.Import.MaxRetries,
		RetryBackoff:  cfg.Import.RetryBackoff,
		Default:       validate.Validator{TolerancePerLine: cfg.Import.TolerancePerLine},
	}
	if len(rules) > 0 {
		opts.Rules = make(map[string]validate.Validator, len(rules))
		for key, rule := range rules {
			v := opts.Default
			v.Strict = rule.Strict
			if rule.TolerancePerLine != nil {
				v.TolerancePerLine = *rule.TolerancePerLine
			}
			opts.Rules[key] = v
		}
	}
	return opts
}
