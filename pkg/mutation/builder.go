package mutation

import (
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/spanner"
	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/nu0ma/spanwright-sub002/pkg/apperrors"
	"github.com/nu0ma/spanwright-sub002/pkg/schema"
)

// Mutation is one atomic insert-row instruction. Columns and Values are
// parallel slices and always have equal length.
type Mutation struct {
	Table   string
	Columns []string
	Values  []any
}

// SpannerMutation converts to the client's mutation type for an apply call.
func (m *Mutation) SpannerMutation() *spanner.Mutation {
	return spanner.Insert(m.Table, m.Columns, m.Values)
}

// SpannerMutations converts a batch for a single atomic apply.
func SpannerMutations(mutations []*Mutation) []*spanner.Mutation {
	out := make([]*spanner.Mutation, len(mutations))
	for i, m := range mutations {
		out[i] = m.SpannerMutation()
	}
	return out
}

// Builder constructs insert mutations for tables known to a schema source.
type Builder struct {
	schemas   schema.Source
	converter *Converter
	logger    *zap.Logger
}

func NewBuilder(schemas schema.Source, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		schemas:   schemas,
		converter: NewConverter(logger),
		logger:    logger,
	}
}

// Build creates one insert mutation for a single row. Only columns present
// in both the table schema and the row are included, sorted
// lexicographically; absent columns are omitted, not null-filled.
func (b *Builder) Build(table string, row map[string]any) (*Mutation, error) {
	tableSchema, ok := b.schemas.Lookup(table)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrTableNotFound, table)
	}

	columns := make([]string, 0, len(row))
	for column := range tableSchema {
		if _, present := row[column]; present {
			columns = append(columns, column)
		}
	}
	sort.Strings(columns)

	values := make([]any, len(columns))
	for i, column := range columns {
		values[i] = b.converter.Convert(table, column, row[column], tableSchema[column])
	}

	return &Mutation{Table: table, Columns: columns, Values: values}, nil
}

// AutoBuilder drives Builder across a whole seed-data document, matching
// seed keys to schema tables tolerantly and accepting single-row or
// multi-row shapes per table.
type AutoBuilder struct {
	builder *Builder
	schemas schema.Source
	logger  *zap.Logger
}

func NewAutoBuilder(schemas schema.Source, logger *zap.Logger) *AutoBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoBuilder{
		builder: NewBuilder(schemas, logger),
		schemas: schemas,
		logger:  logger,
	}
}

// SeedEntry is one seed key and its row data, in seed-document order.
type SeedEntry struct {
	Key  string
	Rows any
}

// BuildFromSeedEntries builds one mutation per usable seed row, preserving
// entry order and, within a table, row order. Unresolvable keys and
// unusable shapes are skipped with a warning, never a failure, and empty
// input yields an empty, non-error result.
func (a *AutoBuilder) BuildFromSeedEntries(entries []SeedEntry) ([]*Mutation, error) {
	var mutations []*Mutation
	for _, entry := range entries {
		table, ok := a.ResolveTable(entry.Key)
		if !ok {
			a.logger.Warn("seed key matches no schema table, skipping",
				zap.String("key", entry.Key),
			)
			continue
		}

		rows, ok := normalizeRows(entry.Rows)
		if !ok {
			a.logger.Warn("seed data has unusable shape, skipping",
				zap.String("key", entry.Key),
				zap.String("table", table),
			)
			continue
		}

		for _, row := range rows {
			m, err := a.builder.Build(table, row)
			if err != nil {
				return nil, fmt.Errorf("building mutation for %s: %w", table, err)
			}
			mutations = append(mutations, m)
		}
	}
	return mutations, nil
}

// BuildFromSeedData is the unordered-map variant of BuildFromSeedEntries.
// Keys are processed in sorted order since a map carries no document order.
func (a *AutoBuilder) BuildFromSeedData(seedData map[string]any) ([]*Mutation, error) {
	keys := make([]string, 0, len(seedData))
	for key := range seedData {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]SeedEntry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, SeedEntry{Key: key, Rows: seedData[key]})
	}
	return a.BuildFromSeedEntries(entries)
}

// ResolveTable maps a seed key to a schema table name. Matching priority:
// exact, then case-insensitive, then singular/plural normalization
// (case-insensitive). Candidate tables are scanned in sorted order so ties
// resolve deterministically.
func (a *AutoBuilder) ResolveTable(key string) (string, bool) {
	if _, ok := a.schemas.Lookup(key); ok {
		return key, true
	}

	names := a.schemas.TableNames()
	for _, name := range names {
		if strings.EqualFold(name, key) {
			return name, true
		}
	}

	keySingular := inflection.Singular(key)
	for _, name := range names {
		if strings.EqualFold(inflection.Singular(name), keySingular) {
			return name, true
		}
	}

	return "", false
}

// normalizeRows accepts the two legal seed shapes: a single mapping (one
// row) or a list of mappings (many rows, order preserved).
func normalizeRows(value any) ([]map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return []map[string]any{v}, true
	case []any:
		rows := make([]map[string]any, 0, len(v))
		for _, elem := range v {
			row, ok := elem.(map[string]any)
			if !ok {
				return nil, false
			}
			rows = append(rows, row)
		}
		return rows, true
	default:
		return nil, false
	}
}
