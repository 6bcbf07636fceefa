package validator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeReader struct {
	counts   map[string]int64
	rows     map[string][]map[string]any
	countErr error
	queryErr error
}

func (f *fakeReader) TableRowCount(_ context.Context, table string) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.counts[table], nil
}

func (f *fakeReader) Query(_ context.Context, _ string) ([]map[string]any, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	for _, rows := range f.rows {
		return rows, nil
	}
	return nil, nil
}

func int64Ptr(v int64) *int64 { return &v }

func TestValidate_CountPass(t *testing.T) {
	db := &fakeReader{counts: map[string]int64{"Users": 2}}
	v := New(db, zaptest.NewLogger(t))

	report, err := v.Validate(context.Background(), &Expectations{
		Tables: map[string]TableExpectation{
			"Users": {Count: int64Ptr(2)},
		},
	})
	require.NoError(t, err)

	assert.True(t, report.Passed())
	require.Len(t, report.Results, 1)
	assert.Equal(t, "Users", report.Results[0].Table)
	assert.Empty(t, report.Results[0].Failures)
}

func TestValidate_CountMismatch(t *testing.T) {
	db := &fakeReader{counts: map[string]int64{"Users": 3}}
	v := New(db, zaptest.NewLogger(t))

	report, err := v.Validate(context.Background(), &Expectations{
		Tables: map[string]TableExpectation{
			"Users": {Count: int64Ptr(2)},
		},
	})
	require.NoError(t, err)

	assert.False(t, report.Passed())
	require.Len(t, report.Results[0].Failures, 1)
	assert.Contains(t, report.Results[0].Failures[0], "expected 2 rows, found 3")
}

func TestValidate_RowSpotCheck(t *testing.T) {
	db := &fakeReader{
		rows: map[string][]map[string]any{
			"Users": {
				{"UserID": "u1", "Name": "Alice", "Age": int64(30)},
				{"UserID": "u2", "Name": "Bob", "Age": int64(25)},
			},
		},
	}
	v := New(db, zaptest.NewLogger(t))

	report, err := v.Validate(context.Background(), &Expectations{
		Tables: map[string]TableExpectation{
			"Users": {Rows: []map[string]any{
				{"Name": "Alice", "Age": 30},
			}},
		},
	})
	require.NoError(t, err)
	assert.True(t, report.Passed())
}

func TestValidate_RowSpotCheckMiss(t *testing.T) {
	db := &fakeReader{
		rows: map[string][]map[string]any{
			"Users": {{"UserID": "u1", "Name": "Alice"}},
		},
	}
	v := New(db, zaptest.NewLogger(t))

	report, err := v.Validate(context.Background(), &Expectations{
		Tables: map[string]TableExpectation{
			"Users": {Rows: []map[string]any{
				{"Name": "Carol"},
			}},
		},
	})
	require.NoError(t, err)

	assert.False(t, report.Passed())
	assert.Contains(t, report.Results[0].Failures[0], "no row matching {Name: Carol}")
}

func TestValidate_QueryFailureIsTableFailure(t *testing.T) {
	db := &fakeReader{queryErr: errors.New("table not readable")}
	v := New(db, zaptest.NewLogger(t))

	report, err := v.Validate(context.Background(), &Expectations{
		Tables: map[string]TableExpectation{
			"Users": {Rows: []map[string]any{{"Name": "Alice"}}},
		},
	})
	require.NoError(t, err)

	assert.False(t, report.Passed())
	assert.Contains(t, report.Results[0].Failures[0], "row query failed")
}

func TestValidate_CountErrorIsTableFailure(t *testing.T) {
	db := &fakeReader{countErr: errors.New("deadline exceeded")}
	v := New(db, zaptest.NewLogger(t))

	report, err := v.Validate(context.Background(), &Expectations{
		Tables: map[string]TableExpectation{
			"Users": {Count: int64Ptr(1)},
		},
	})
	require.NoError(t, err)

	assert.False(t, report.Passed())
	assert.Contains(t, report.Results[0].Failures[0], "count query failed")
}

func TestValidate_InvalidTableName(t *testing.T) {
	v := New(&fakeReader{}, zaptest.NewLogger(t))

	report, err := v.Validate(context.Background(), &Expectations{
		Tables: map[string]TableExpectation{
			"Users; DROP TABLE Users": {Count: int64Ptr(1)},
		},
	})
	require.NoError(t, err)
	assert.False(t, report.Passed())
}

func TestValidate_ResultsSortedByTable(t *testing.T) {
	db := &fakeReader{counts: map[string]int64{"Orders": 1, "Users": 1}}
	v := New(db, zaptest.NewLogger(t))

	report, err := v.Validate(context.Background(), &Expectations{
		Tables: map[string]TableExpectation{
			"Users":  {Count: int64Ptr(1)},
			"Orders": {Count: int64Ptr(1)},
		},
	})
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.Equal(t, "Orders", report.Results[0].Table)
	assert.Equal(t, "Users", report.Results[1].Table)
}

func TestLoadExpectations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "expected.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tables:
  Users:
    count: 2
    rows:
      - Name: Alice
  Orders:
    count: 1
`), 0o644))

	exp, err := LoadExpectations(path)
	require.NoError(t, err)

	require.Len(t, exp.Tables, 2)
	require.NotNil(t, exp.Tables["Users"].Count)
	assert.Equal(t, int64(2), *exp.Tables["Users"].Count)
	assert.Len(t, exp.Tables["Users"].Rows, 1)
}

func TestLoadExpectations_Empty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "expected.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	_, err := LoadExpectations(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tables declared")
}

func TestLoadExpectations_MissingFile(t *testing.T) {
	_, err := LoadExpectations(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLooseEqual(t *testing.T) {
	tests := []struct {
		name string
		got  any
		want any
		eq   bool
	}{
		{"identical strings", "Alice", "Alice", true},
		{"different strings", "Alice", "Bob", false},
		{"int64 vs int", int64(30), 30, true},
		{"int64 vs float64", int64(5), 5.0, true},
		{"numeric string vs int", "42", 42, true},
		{"bools", true, true, true},
		{"nil both", nil, nil, true},
		{"nil one side", nil, "x", false},
		{"number vs word", int64(5), "Alice", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.eq, looseEqual(tt.got, tt.want))
		})
	}
}
