package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nu0ma/spanwright-sub002/pkg/config"
	"github.com/nu0ma/spanwright-sub002/pkg/database"
	"github.com/nu0ma/spanwright-sub002/pkg/logging"
	"github.com/nu0ma/spanwright-sub002/pkg/validator"
)

// errValidationFailed marks a run where queries succeeded but the state
// did not match expectations.
var errValidationFailed = errors.New("validation failed")

func main() {
	var (
		databaseID   string
		expectedFile string
		configFile   string
		envFile      string
		showSummary  bool
	)

	rootCmd := &cobra.Command{
		Use:   "db-validator",
		Short: "Validate a Spanner database's state against an expected-state file",
		Long: `db-validator checks that a database holds the rows an E2E scenario
expects: per-table row counts and optional row spot-checks, declared in
an expected-state YAML file. Any failed check exits non-zero.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				_ = godotenv.Load(envFile)
			} else {
				_ = godotenv.Load()
			}

			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			logger, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()
			logger = logger.With(zap.String("run_id", uuid.NewString()))

			if err := config.ValidateDatabaseID(databaseID); err != nil {
				return err
			}
			if err := config.ValidateSeedFile(expectedFile, cfg.Seed.MaxFileSizeBytes); err != nil {
				return err
			}

			exp, err := validator.LoadExpectations(expectedFile)
			if err != nil {
				return err
			}

			if cfg.EmulatorHost != "" {
				os.Setenv("SPANNER_EMULATOR_HOST", cfg.EmulatorHost)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pool := database.NewPool(database.PoolConfig{
				MaxConnections:  cfg.Pool.MaxConnections,
				IdleTimeout:     cfg.Pool.IdleTimeout(),
				MaxLifetime:     cfg.Pool.MaxLifetime(),
				CleanupInterval: cfg.Pool.CleanupInterval(),
			}, spannerFactory, logger)
			defer pool.Close()

			db := database.NewManager(pool, cfg.DatabasePath(databaseID), logger)

			report, err := validator.New(db, logger).Validate(ctx, exp)
			if err != nil {
				return fmt.Errorf("validating %s: %w", databaseID, err)
			}
			printReport(report)

			if showSummary {
				if err := printSummary(ctx, db); err != nil {
					return err
				}
			}

			if !report.Passed() {
				return errValidationFailed
			}
			fmt.Printf("Validation passed for %s (%d tables)\n", databaseID, len(report.Results))
			return nil
		},
	}

	rootCmd.Flags().StringVar(&databaseID, "database", "", "Spanner database ID to validate (required)")
	rootCmd.Flags().StringVar(&expectedFile, "expected", "", "Expected-state YAML file (required)")
	rootCmd.Flags().StringVar(&configFile, "config", "", "Config file path (default "+config.DefaultConfigFile+")")
	rootCmd.Flags().StringVar(&envFile, "env-file", "", "Env file to load (default .env)")
	rootCmd.Flags().BoolVar(&showSummary, "table-summary", false, "Also print row counts for every table")
	_ = rootCmd.MarkFlagRequired("database")
	_ = rootCmd.MarkFlagRequired("expected")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "db-validator: %v\n", err)
		os.Exit(1)
	}
}

func spannerFactory(ctx context.Context, databasePath string) (database.Conn, error) {
	return database.Connect(ctx, databasePath)
}

func printReport(report *validator.Report) {
	for _, result := range report.Results {
		if result.Passed {
			fmt.Printf("PASS %s\n", result.Table)
			continue
		}
		fmt.Printf("FAIL %s: %s\n", result.Table, strings.Join(result.Failures, "; "))
	}
}

func printSummary(ctx context.Context, db *database.Manager) error {
	summary, err := db.TableSummary(ctx)
	if err != nil {
		return err
	}
	for _, table := range summary.Tables {
		if table.Error != "" {
			fmt.Printf("  %s: error: %s\n", table.Table, table.Error)
			continue
		}
		fmt.Printf("  %s: %d rows\n", table.Table, table.Count)
	}
	fmt.Printf("  total: %d rows\n", summary.Total)
	return nil
}
