package database

import (
	"context"
	"fmt"

	"cloud.google.com/go/spanner"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"

	"github.com/nu0ma/spanwright-sub002/pkg/logging"
	"github.com/nu0ma/spanwright-sub002/pkg/mutation"
	"github.com/nu0ma/spanwright-sub002/pkg/retry"
	"github.com/nu0ma/spanwright-sub002/pkg/sql"
)

// listTablesSQL pulls user table names from the system catalog. Empty
// catalog and schema select the default (non-information) schema.
const listTablesSQL = `SELECT table_name FROM information_schema.tables
WHERE table_catalog = '' AND table_schema = '' ORDER BY table_name`

// Manager exposes table-level operations for one database, borrowing
// clients from a shared pool and retrying transient failures.
type Manager struct {
	pool         *Pool
	databasePath string
	logger       *zap.Logger
}

// TableCount is one table's row count in a summary. A per-table count
// failure is recorded in Error instead of aborting the whole summary.
type TableCount struct {
	Table string
	Count int64
	Error string
}

// TableSummary aggregates per-table row counts.
type TableSummary struct {
	Tables []TableCount
	Total  int64
}

// NewManager creates a manager for the database at
// projects/P/instances/I/databases/D.
func NewManager(pool *Pool, databasePath string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		pool:         pool,
		databasePath: databasePath,
		logger:       logger,
	}
}

// DatabasePath returns the full database path this manager targets.
func (m *Manager) DatabasePath() string {
	return m.databasePath
}

// withConn borrows a client from the pool for the duration of fn.
func (m *Manager) withConn(ctx context.Context, fn func(conn Conn) error) error {
	conn, err := m.pool.GetClient(ctx, m.databasePath)
	if err != nil {
		return err
	}
	defer m.pool.ReleaseClient(m.databasePath)
	return fn(conn)
}

// ListTables returns the database's table names from the system catalog.
func (m *Manager) ListTables(ctx context.Context) ([]string, error) {
	var tables []string
	err := m.withConn(ctx, func(conn Conn) error {
		return retry.Do(ctx, "list-tables", retry.QuickConfig(), func() error {
			var err error
			tables, err = conn.QueryStrings(ctx, spanner.NewStatement(listTablesSQL))
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	return tables, nil
}

// TableRowCount returns COUNT(*) for one table. The table name is
// validated against an identifier allowlist and screened for injection
// before interpolation, and embedded backquotes are escaped.
func (m *Manager) TableRowCount(ctx context.Context, table string) (int64, error) {
	if err := sql.ValidateIdentifier(table); err != nil {
		return 0, err
	}

	stmt := spanner.NewStatement(fmt.Sprintf("SELECT COUNT(*) FROM `%s`", sql.EscapeIdentifier(table)))
	var count int64
	err := m.withConn(ctx, func(conn Conn) error {
		return retry.Do(ctx, "table-row-count", retry.QuickConfig(), func() error {
			var err error
			count, err = conn.QueryInt64(ctx, stmt)
			return err
		})
	})
	if err != nil {
		return 0, fmt.Errorf("counting rows in %s: %w", table, err)
	}
	return count, nil
}

// ApplyMutations applies the batch atomically. Empty input is a no-op
// success. AlreadyExists conflicts are swallowed with a warning so
// re-seeding the same scenario stays idempotent.
func (m *Manager) ApplyMutations(ctx context.Context, mutations []*mutation.Mutation) error {
	if len(mutations) == 0 {
		return nil
	}

	ms := mutation.SpannerMutations(mutations)
	err := m.withConn(ctx, func(conn Conn) error {
		return retry.Do(ctx, "apply-mutations", retry.DatabaseConfig(), func() error {
			return conn.Apply(ctx, ms)
		})
	})
	if err != nil {
		if spanner.ErrCode(err) == codes.AlreadyExists {
			m.logger.Warn("rows already exist, treating as success",
				zap.String("database", m.databasePath),
				zap.Int("mutations", len(mutations)),
				zap.String("error", logging.SanitizeError(err)),
			)
			return nil
		}
		return fmt.Errorf("applying %d mutations: %w", len(mutations), err)
	}

	m.logger.Info("applied mutations",
		zap.String("database", m.databasePath),
		zap.Int("count", len(mutations)),
	)
	return nil
}

// Query runs a single read statement and returns decoded rows.
func (m *Manager) Query(ctx context.Context, statement string) ([]map[string]any, error) {
	normalized, err := sql.ValidateSingleStatement(statement)
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	err = m.withConn(ctx, func(conn Conn) error {
		return retry.Do(ctx, "query", retry.QuickConfig(), func() error {
			var err error
			rows, err = conn.QueryRows(ctx, spanner.NewStatement(normalized))
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", logging.SanitizeQuery(normalized), err)
	}
	return rows, nil
}

// TableSummary counts rows in every table. Individual count failures are
// recorded inline so one broken table does not hide the rest.
func (m *Manager) TableSummary(ctx context.Context) (*TableSummary, error) {
	tables, err := m.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	summary := &TableSummary{Tables: make([]TableCount, 0, len(tables))}
	for _, table := range tables {
		count, err := m.TableRowCount(ctx, table)
		if err != nil {
			summary.Tables = append(summary.Tables, TableCount{
				Table: table,
				Error: logging.SanitizeError(err),
			})
			continue
		}
		summary.Tables = append(summary.Tables, TableCount{Table: table, Count: count})
		summary.Total += count
	}
	return summary, nil
}
