package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jivoecom/po-import/internal/config"
	"github.com/jivoecom/po-import/internal/importer"
	"github.com/jivoecom/po-import/internal/logging"
	"github.com/jivoecom/po-import/internal/po"
	"github.com/jivoecom/po-import/internal/store"
	"github.com/jivoecom/po-import/internal/validate"
)

var (
	importPlatform  string
	importSheet     string
	importDelimiter string
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Parse a PO export and write it to the database",
	Long: `Import parses one export file and commits every PO it contains. Each
PO is written atomically: the platform-fidelity record and the canonical
record land in one transaction, and re-importing the same file is a
no-op reported as already_exists.

Database connection and behavior are configured through the environment
(DATABASE_URL, IMPORT_*), with a .env file honored when present.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importPlatform, "platform", "p", "", "platform key (required)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "worksheet name for xlsx files")
	importCmd.Flags().StringVar(&importDelimiter, "delimiter", "", "field delimiter for csv files")
	importCmd.MarkFlagRequired("platform")
}

func runImport(ctx context.Context, path string) error {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger := logging.Setup(level, cfg.Logging.Format)

	rules, err := cfg.LoadRules()
	if err != nil {
		return err
	}

	pool, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	st := store.New(pool)
	opts := importer.Options{
		CommitTimeout: cfg.Import.CommitTimeout,
		MaxRetries:    cfg.Import.MaxRetries,
		RetryBackoff:  cfg.Import.RetryBackoff,
		Default:       validate.Validator{TolerancePerLine: cfg.Import.TolerancePerLine},
	}
	for key, rule := range rules {
		if opts.Rules == nil {
			opts.Rules = make(map[string]validate.Validator, len(rules))
		}
		v := opts.Default
		v.Strict = rule.Strict
		if rule.TolerancePerLine != nil {
			v.TolerancePerLine = *rule.TolerancePerLine
		}
		opts.Rules[key] = v
	}
	svc := importer.New(st, st, logger, opts)

	docs, err := parseFile(path, importPlatform, importSheet, importDelimiter)
	if err != nil {
		return err
	}

	results := make([]po.ImportResult, 0, len(docs))
	rejected := 0
	for i := range docs {
		result := svc.ImportPO(ctx, importPlatform, &docs[i])
		if result.Outcome == po.Rejected {
			rejected++
		}
		results = append(results, result)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return err
	}

	if rejected > 0 {
		return fmt.Errorf("%d of %d purchase orders rejected", rejected, len(results))
	}
	return nil
}

// connect opens and verifies a pgx pool using the database config.
func connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
