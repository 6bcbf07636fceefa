package seed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/nu0ma/spanwright-sub002/pkg/config"
	"github.com/nu0ma/spanwright-sub002/pkg/mutation"
	"github.com/nu0ma/spanwright-sub002/pkg/schema"
)

// FixtureSeeder seeds from a directory of one-file-per-table fixtures,
// the convention older generated projects use: Users.yml holds the rows
// for the Users table. File names resolve to schema tables with the same
// tolerance as seed keys (case and pluralization differences are fine).
type FixtureSeeder struct {
	db          applier
	builder     *mutation.AutoBuilder
	dir         string
	maxFileSize int64
	logger      *zap.Logger
}

// NewFixtureSeeder creates a seeder reading per-table fixture files from
// dir. The directory is expected to have been validated by
// config.ValidateFixtureDir already; individual files are still checked
// against maxFileSize bytes before reading (non-positive means no cap).
func NewFixtureSeeder(db applier, schemas schema.Source, dir string, maxFileSize int64, logger *zap.Logger) *FixtureSeeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FixtureSeeder{
		db:          db,
		builder:     mutation.NewAutoBuilder(schemas, logger),
		dir:         dir,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// fixtureExtensions lists the file types read from a fixture directory.
var fixtureExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
}

// BuildMutations reads every fixture file in lexical order and builds the
// combined mutation list. Files that fail validation or parsing are
// skipped with a warning so one bad fixture does not sink the scenario.
func (s *FixtureSeeder) BuildMutations() ([]*mutation.Mutation, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading fixture directory %s: %w", s.dir, err)
	}

	var entries []mutation.SeedEntry
	for _, entry := range dirEntries {
		if entry.IsDir() || !fixtureExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		if err := config.ValidateSeedFile(path, s.maxFileSize); err != nil {
			s.logger.Warn("skipping fixture file that failed validation",
				zap.String("file", entry.Name()),
				zap.Error(err),
			)
			continue
		}

		var rows any
		if err := loadYAML(path, &rows); err != nil {
			s.logger.Warn("skipping unparseable fixture file",
				zap.String("file", entry.Name()),
				zap.Error(err),
			)
			continue
		}
		if rows == nil {
			continue
		}

		entries = append(entries, mutation.SeedEntry{
			Key:  strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			Rows: rows,
		})
	}

	mutations, err := s.builder.BuildFromSeedEntries(entries)
	if err != nil {
		return nil, fmt.Errorf("building mutations from fixtures in %s: %w", s.dir, err)
	}
	return mutations, nil
}

// Seed reads the fixture directory and applies the resulting mutations
// as one atomic batch.
func (s *FixtureSeeder) Seed(ctx context.Context) (*Result, error) {
	mutations, err := s.BuildMutations()
	if err != nil {
		return nil, err
	}
	return apply(ctx, s.db, mutations, s.logger)
}
