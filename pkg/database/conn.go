// Package database manages pooled Cloud Spanner clients and exposes the
// table-level operations the seeding and validation tools need.
package database

import (
	"context"
	"fmt"

	"cloud.google.com/go/spanner"
	sppb "cloud.google.com/go/spanner/apiv1/spannerpb"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Conn is the behavior the pool and manager need from a database client.
// *SpannerConn is the production implementation; tests substitute fakes.
type Conn interface {
	// Ping issues a lightweight round-trip query to verify the connection
	// is still usable.
	Ping(ctx context.Context) error
	// Apply commits the mutations as one atomic batch.
	Apply(ctx context.Context, ms []*spanner.Mutation) error
	// QueryInt64 runs a single-row, single-column query returning an
	// integer (COUNT(*) and friends).
	QueryInt64(ctx context.Context, stmt spanner.Statement) (int64, error)
	// QueryStrings runs a query and collects the first column of every
	// row as a string.
	QueryStrings(ctx context.Context, stmt spanner.Statement) ([]string, error)
	// QueryRows runs a query and decodes every row into a column->value
	// map.
	QueryRows(ctx context.Context, stmt spanner.Statement) ([]map[string]any, error)
	// Close releases the underlying client.
	Close()
}

// SpannerConn wraps a Cloud Spanner client with the Conn operations.
type SpannerConn struct {
	client *spanner.Client
}

// Connect creates a client for the given full database path
// (projects/P/instances/I/databases/D). The SPANNER_EMULATOR_HOST
// environment variable reroutes the client to an emulator as usual.
func Connect(ctx context.Context, databasePath string, opts ...option.ClientOption) (*SpannerConn, error) {
	client, err := spanner.NewClient(ctx, databasePath, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating spanner client for %s: %w", databasePath, err)
	}
	return &SpannerConn{client: client}, nil
}

func (c *SpannerConn) Ping(ctx context.Context) error {
	_, err := c.QueryInt64(ctx, spanner.NewStatement("SELECT 1"))
	return err
}

func (c *SpannerConn) Apply(ctx context.Context, ms []*spanner.Mutation) error {
	_, err := c.client.Apply(ctx, ms)
	return err
}

func (c *SpannerConn) QueryInt64(ctx context.Context, stmt spanner.Statement) (int64, error) {
	iter := c.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	row, err := iter.Next()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Column(0, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *SpannerConn) QueryStrings(ctx context.Context, stmt spanner.Statement) ([]string, error) {
	iter := c.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	var out []string
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		var s string
		if err := row.Column(0, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
}

func (c *SpannerConn) QueryRows(ctx context.Context, stmt spanner.Statement) ([]map[string]any, error) {
	iter := c.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	var out []map[string]any
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		decoded, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded)
	}
}

func (c *SpannerConn) Close() {
	c.client.Close()
}

// decodeRow converts a row into plain Go values keyed by column name.
// NULLs decode to nil; types without a natural Go scalar fall back to the
// generic column value's string form.
func decodeRow(row *spanner.Row) (map[string]any, error) {
	out := make(map[string]any, row.Size())
	for i, name := range row.ColumnNames() {
		value, err := decodeColumn(row, i)
		if err != nil {
			return nil, fmt.Errorf("decoding column %s: %w", name, err)
		}
		out[name] = value
	}
	return out, nil
}

func decodeColumn(row *spanner.Row, i int) (any, error) {
	typ := row.ColumnType(i)
	switch typ.GetCode() {
	case sppb.TypeCode_STRING:
		var v spanner.NullString
		if err := row.Column(i, &v); err != nil {
			return nil, err
		}
		if !v.Valid {
			return nil, nil
		}
		return v.StringVal, nil
	case sppb.TypeCode_INT64:
		var v spanner.NullInt64
		if err := row.Column(i, &v); err != nil {
			return nil, err
		}
		if !v.Valid {
			return nil, nil
		}
		return v.Int64, nil
	case sppb.TypeCode_FLOAT64:
		var v spanner.NullFloat64
		if err := row.Column(i, &v); err != nil {
			return nil, err
		}
		if !v.Valid {
			return nil, nil
		}
		return v.Float64, nil
	case sppb.TypeCode_BOOL:
		var v spanner.NullBool
		if err := row.Column(i, &v); err != nil {
			return nil, err
		}
		if !v.Valid {
			return nil, nil
		}
		return v.Bool, nil
	case sppb.TypeCode_TIMESTAMP:
		var v spanner.NullTime
		if err := row.Column(i, &v); err != nil {
			return nil, err
		}
		if !v.Valid {
			return nil, nil
		}
		return v.Time, nil
	case sppb.TypeCode_JSON:
		var v spanner.NullJSON
		if err := row.Column(i, &v); err != nil {
			return nil, err
		}
		if !v.Valid {
			return nil, nil
		}
		return v.String(), nil
	default:
		var v spanner.GenericColumnValue
		if err := row.Column(i, &v); err != nil {
			return nil, err
		}
		return v.Value.GetStringValue(), nil
	}
}
