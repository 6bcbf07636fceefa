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
	"github.com/nu0ma/spanwright-sub002/pkg/schema"
	"github.com/nu0ma/spanwright-sub002/pkg/seed"
)

func main() {
	var (
		databaseID string
		seedFile   string
		fixtureDir string
		schemaDir  string
		configFile string
		envFile    string
	)

	rootCmd := &cobra.Command{
		Use:   "seed-injector",
		Short: "Inject seed data into a Spanner database for E2E scenarios",
		Long: `seed-injector reads a scenario's seed data and inserts it into a
Spanner database (usually the emulator), inferring column types from the
schema's migration DDL.

Seed data comes from either a single seed file mapping table names to
rows (--seed-file) or a directory of one-file-per-table fixtures
(--fixture-dir).`,
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
			if (seedFile == "") == (fixtureDir == "") {
				return errors.New("exactly one of --seed-file or --fixture-dir is required")
			}

			if schemaDir == "" {
				schemaDir = cfg.SchemaDir
			}
			if schemaDir == "" {
				return errors.New("--schema-dir (or SCHEMA_DIR) is required")
			}

			schemas, err := loadSchemas(schemaDir, cfg.Seed.SchemaCacheSize, logger)
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

			var seeder seed.Seeder
			if seedFile != "" {
				if err := config.ValidateSeedFile(seedFile, cfg.Seed.MaxFileSizeBytes); err != nil {
					return err
				}
				seeder = seed.NewFileSeeder(db, schemas, seedFile, logger)
			} else {
				if err := config.ValidateFixtureDir(fixtureDir); err != nil {
					return err
				}
				seeder = seed.NewFixtureSeeder(db, schemas, fixtureDir, cfg.Seed.MaxFileSizeBytes, logger)
			}

			result, err := seeder.Seed(ctx)
			if err != nil {
				return fmt.Errorf("seeding %s: %w", databaseID, err)
			}

			fmt.Printf("Seeded %d rows into %s (tables: %s)\n",
				result.Mutations, databaseID, strings.Join(result.Tables, ", "))
			return nil
		},
	}

	rootCmd.Flags().StringVar(&databaseID, "database", "", "Spanner database ID to seed (required)")
	rootCmd.Flags().StringVar(&seedFile, "seed-file", "", "Seed file mapping table names to rows")
	rootCmd.Flags().StringVar(&fixtureDir, "fixture-dir", "", "Directory of one-file-per-table fixtures")
	rootCmd.Flags().StringVar(&schemaDir, "schema-dir", "", "Directory of migration DDL files")
	rootCmd.Flags().StringVar(&configFile, "config", "", "Config file path (default "+config.DefaultConfigFile+")")
	rootCmd.Flags().StringVar(&envFile, "env-file", "", "Env file to load (default .env)")
	_ = rootCmd.MarkFlagRequired("database")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "seed-injector: %v\n", err)
		os.Exit(1)
	}
}

// spannerFactory opens real Spanner clients for the pool.
func spannerFactory(ctx context.Context, databasePath string) (database.Conn, error) {
	return database.Connect(ctx, databasePath)
}

// loadSchemas parses the migration DDL and wraps it in a read-through
// catalog, so lookups go through the bounded cache while every parsed
// table stays reachable even when the cache capacity is smaller than the
// schema.
func loadSchemas(dir string, cacheSize int, logger *zap.Logger) (schema.Source, error) {
	schemas, err := schema.LoadDir(dir)
	if err != nil {
		return nil, err
	}

	logger.Info("loaded schemas",
		zap.String("dir", dir),
		zap.Int("tables", len(schemas)),
		zap.Int("cache_capacity", cacheSize),
	)
	return schema.NewCatalog(schemas, cacheSize), nil
}
