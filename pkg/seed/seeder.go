// Package seed injects scenario data into a database. Two adapters cover
// the two fixture conventions in use: a single structured seed file per
// scenario, and a directory of one-file-per-table fixtures.
package seed

import (
	"context"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/nu0ma/spanwright-sub002/pkg/database"
	"github.com/nu0ma/spanwright-sub002/pkg/mutation"
)

// Seeder injects seed data into its target database.
type Seeder interface {
	Seed(ctx context.Context) (*Result, error)
}

// Result summarizes one seeding run.
type Result struct {
	// Mutations is the number of rows inserted (or found already present).
	Mutations int
	// Tables lists the distinct tables touched, sorted.
	Tables []string
}

// applier is the slice of the database manager seeding needs.
// *database.Manager satisfies it.
type applier interface {
	ApplyMutations(ctx context.Context, mutations []*mutation.Mutation) error
}

var _ applier = (*database.Manager)(nil)

// apply pushes built mutations through the manager and summarizes them.
func apply(ctx context.Context, db applier, mutations []*mutation.Mutation, logger *zap.Logger) (*Result, error) {
	if err := db.ApplyMutations(ctx, mutations); err != nil {
		return nil, err
	}

	tables := make(map[string]bool)
	for _, m := range mutations {
		tables[m.Table] = true
	}
	result := &Result{
		Mutations: len(mutations),
		Tables:    make([]string, 0, len(tables)),
	}
	for table := range tables {
		result.Tables = append(result.Tables, table)
	}
	sort.Strings(result.Tables)

	logger.Info("seeding complete",
		zap.Int("mutations", result.Mutations),
		zap.Strings("tables", result.Tables),
	)
	return result, nil
}

// loadYAML parses a YAML document into a loosely typed value. JSON input
// works too since YAML is a superset.
func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// loadSeedEntries parses a seed document's top-level mapping into entries
// in document order, which a plain map decode would lose.
func loadSeedEntries(path string) ([]mutation.SeedEntry, error) {
	var doc yaml.Node
	if err := loadYAML(path, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parsing %s: top level must be a mapping of table names to rows", path)
	}

	entries := make([]mutation.SeedEntry, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		var rows any
		if err := root.Content[i+1].Decode(&rows); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		entries = append(entries, mutation.SeedEntry{
			Key:  root.Content[i].Value,
			Rows: rows,
		})
	}
	return entries, nil
}
