// Package validator compares a database's state against an expected-state
// document, reporting per-table pass/fail results for E2E assertions.
package validator

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/nu0ma/spanwright-sub002/pkg/sql"
)

// Expectations is the parsed expected-state document:
//
//	tables:
//	  Users:
//	    count: 2
//	    rows:
//	      - Name: Alice
//	        Age: 30
//
// Every table entry may pin an exact row count, a set of row spot-checks
// (each must match at least one stored row on every listed column), or
// both.
type Expectations struct {
	Tables map[string]TableExpectation `yaml:"tables"`
}

// TableExpectation holds the checks for a single table. A nil Count means
// the row count is unconstrained.
type TableExpectation struct {
	Count *int64           `yaml:"count"`
	Rows  []map[string]any `yaml:"rows"`
}

// TableResult is the outcome of validating one table.
type TableResult struct {
	Table    string
	Passed   bool
	Failures []string
}

// Report aggregates per-table results in sorted table order.
type Report struct {
	Results []TableResult
}

// Passed reports whether every table check succeeded.
func (r *Report) Passed() bool {
	for _, result := range r.Results {
		if !result.Passed {
			return false
		}
	}
	return true
}

// reader is the slice of the database manager validation needs.
type reader interface {
	TableRowCount(ctx context.Context, table string) (int64, error)
	Query(ctx context.Context, statement string) ([]map[string]any, error)
}

// Validator runs expected-state checks against one database.
type Validator struct {
	db     reader
	logger *zap.Logger
}

// New creates a validator reading through the given database manager.
func New(db reader, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{db: db, logger: logger}
}

// LoadExpectations parses an expected-state YAML file.
func LoadExpectations(path string) (*Expectations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var exp Expectations
	if err := yaml.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(exp.Tables) == 0 {
		return nil, fmt.Errorf("%s: no tables declared", path)
	}
	return &exp, nil
}

// Validate runs every table's checks and returns the combined report.
// Query failures count as table failures rather than aborting the run,
// so the report always covers every declared table.
func (v *Validator) Validate(ctx context.Context, exp *Expectations) (*Report, error) {
	tables := make([]string, 0, len(exp.Tables))
	for table := range exp.Tables {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	report := &Report{Results: make([]TableResult, 0, len(tables))}
	for _, table := range tables {
		result := v.validateTable(ctx, table, exp.Tables[table])
		if !result.Passed {
			v.logger.Warn("table validation failed",
				zap.String("table", table),
				zap.Strings("failures", result.Failures),
			)
		}
		report.Results = append(report.Results, result)
	}
	return report, nil
}

func (v *Validator) validateTable(ctx context.Context, table string, exp TableExpectation) TableResult {
	result := TableResult{Table: table}

	if err := sql.ValidateIdentifier(table); err != nil {
		result.Failures = append(result.Failures, err.Error())
		return result
	}

	if exp.Count != nil {
		count, err := v.db.TableRowCount(ctx, table)
		if err != nil {
			result.Failures = append(result.Failures, fmt.Sprintf("count query failed: %v", err))
		} else if count != *exp.Count {
			result.Failures = append(result.Failures,
				fmt.Sprintf("expected %d rows, found %d", *exp.Count, count))
		}
	}

	if len(exp.Rows) > 0 {
		failures := v.checkRows(ctx, table, exp.Rows)
		result.Failures = append(result.Failures, failures...)
	}

	result.Passed = len(result.Failures) == 0
	return result
}

// checkRows fetches the table's rows once and verifies each expected row
// matches at least one of them on every listed column.
func (v *Validator) checkRows(ctx context.Context, table string, expected []map[string]any) []string {
	stored, err := v.db.Query(ctx, fmt.Sprintf("SELECT * FROM `%s`", sql.EscapeIdentifier(table)))
	if err != nil {
		return []string{fmt.Sprintf("row query failed: %v", err)}
	}

	var failures []string
	for _, want := range expected {
		if !anyRowMatches(stored, want) {
			failures = append(failures, fmt.Sprintf("no row matching %s", describeRow(want)))
		}
	}
	return failures
}

func anyRowMatches(stored []map[string]any, want map[string]any) bool {
	for _, row := range stored {
		if rowMatches(row, want) {
			return true
		}
	}
	return false
}

func rowMatches(row, want map[string]any) bool {
	for column, wantValue := range want {
		got, ok := row[column]
		if !ok || !looseEqual(got, wantValue) {
			return false
		}
	}
	return true
}

// looseEqual compares a stored value against an expected one, tolerating
// the numeric-type drift between YAML decoding and Spanner row decoding
// (int vs int64 vs float64).
func looseEqual(got, want any) bool {
	if got == nil || want == nil {
		return got == nil && want == nil
	}
	if gotNum, ok := toFloat64(got); ok {
		if wantNum, ok := toFloat64(want); ok {
			return gotNum == wantNum
		}
		return false
	}
	return fmt.Sprint(got) == fmt.Sprint(want)
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// describeRow renders an expected row with sorted keys so failure
// messages are stable.
func describeRow(want map[string]any) string {
	keys := make([]string, 0, len(want))
	for key := range want {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := "{"
	for i, key := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s: %v", key, want[key])
	}
	return out + "}"
}
