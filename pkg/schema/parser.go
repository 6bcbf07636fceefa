// Package schema turns raw Cloud Spanner DDL into per-table column type
// maps used by the mutation builder.
package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/nu0ma/spanwright-sub002/pkg/apperrors"
)

// ColumnType is the declared storage type of a column with length and
// constraint qualifiers stripped (STRING(36) -> STRING, ARRAY<INT64> -> ARRAY).
type ColumnType string

const (
	TypeString    ColumnType = "STRING"
	TypeInt64     ColumnType = "INT64"
	TypeFloat64   ColumnType = "FLOAT64"
	TypeBool      ColumnType = "BOOL"
	TypeTimestamp ColumnType = "TIMESTAMP"
	TypeJSON      ColumnType = "JSON"
	TypeArray     ColumnType = "ARRAY"
	TypeBytes     ColumnType = "BYTES"
	TypeDate      ColumnType = "DATE"
	TypeNumeric   ColumnType = "NUMERIC"
)

// TableSchema maps column name (case-sensitive) to its declared type.
type TableSchema map[string]ColumnType

// SchemaMap maps table name to its schema.
type SchemaMap map[string]TableSchema

var (
	createTableRegex = regexp.MustCompile(`(?is)^\s*CREATE\s+TABLE\s`)
	commentRegex     = regexp.MustCompile(`--[^\n]*|/\*[\s\S]*?\*/`)
)

// ParseStatements extracts a SchemaMap from raw DDL statements in order.
// Statements that are not CREATE TABLE (ALTER TABLE, CREATE INDEX, ...)
// contribute nothing but never fail; parsing is best-effort.
func ParseStatements(statements []string) SchemaMap {
	schemas := make(SchemaMap)
	for _, stmt := range statements {
		stmt = commentRegex.ReplaceAllString(stmt, "")
		if !createTableRegex.MatchString(stmt) {
			continue
		}
		name, table := parseCreateTable(stmt)
		if name == "" || len(table) == 0 {
			continue
		}
		schemas[name] = table
	}
	return schemas
}

// parseCreateTable extracts the table name and column map from a single
// CREATE TABLE statement.
//
// The table name is the token immediately following TABLE, or following
// EXISTS when the statement uses IF NOT EXISTS. Anything the tokenizer
// cannot make sense of yields an empty result rather than an error.
func parseCreateTable(stmt string) (string, TableSchema) {
	// Isolate the header (everything before the column list) for name
	// extraction.
	open := strings.IndexByte(stmt, '(')
	if open < 0 {
		return "", nil
	}

	header := strings.Fields(stmt[:open])
	name := ""
	for i, tok := range header {
		if !strings.EqualFold(tok, "TABLE") || i+1 >= len(header) {
			continue
		}
		name = header[i+1]
		// CREATE TABLE IF NOT EXISTS Foo: skip to the token after EXISTS.
		if strings.EqualFold(name, "IF") && i+4 < len(header) &&
			strings.EqualFold(header[i+2], "NOT") && strings.EqualFold(header[i+3], "EXISTS") {
			name = header[i+4]
		}
		break
	}
	name = strings.Trim(name, "`\"")
	if name == "" {
		return "", nil
	}

	body, ok := columnBody(stmt[open:])
	if !ok {
		return "", nil
	}

	table := make(TableSchema)
	for _, line := range splitTopLevel(body) {
		col, typ, ok := parseColumnLine(line)
		if ok {
			table[col] = typ
		}
	}
	return name, table
}

// columnBody returns the text between the opening paren of the column list
// and its matching close, excluding the parens themselves. The trailing
// PRIMARY KEY clause of Spanner DDL sits outside this region.
func columnBody(s string) (string, bool) {
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[1:i], true
			}
		}
	}
	return "", false
}

// splitTopLevel splits a column list body on commas that are not nested
// inside parentheses or ARRAY<> brackets, so STRING(36) and
// ARRAY<STRING(20)> stay intact.
func splitTopLevel(body string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range body {
		switch r {
		case '(', '<':
			depth++
		case ')', '>':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, body[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, body[start:])
	return parts
}

// constraint lead tokens that introduce non-column lines inside a table body
var constraintTokens = map[string]bool{
	"PRIMARY":    true,
	"FOREIGN":    true,
	"CONSTRAINT": true,
	"CHECK":      true,
	"INTERLEAVE": true,
}

// parseColumnLine extracts (column name, base type) from one column
// definition line, discarding qualifiers like lengths, NOT NULL and
// OPTIONS clauses.
func parseColumnLine(line string) (string, ColumnType, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", false
	}
	name := strings.Trim(fields[0], "`\"")
	if name == "" || constraintTokens[strings.ToUpper(name)] {
		return "", "", false
	}
	return name, baseType(fields[1]), true
}

// baseType strips length and element qualifiers from a declared type:
// STRING(MAX) -> STRING, ARRAY<STRING(20)> -> ARRAY.
func baseType(raw string) ColumnType {
	if idx := strings.IndexAny(raw, "(<"); idx > 0 {
		raw = raw[:idx]
	}
	return ColumnType(strings.ToUpper(raw))
}

// Lookup returns the named table's schema.
func (m SchemaMap) Lookup(table string) (TableSchema, bool) {
	s, ok := m[table]
	return s, ok
}

// TableNames returns the schema's table names in sorted order, for
// deterministic iteration and log output.
func (m SchemaMap) TableNames() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadDir reads every .sql file in dir in lexical filename order (the
// 001_foo.sql numbering convention sorts correctly), splits the contents
// into statements and parses them.
//
// Returns apperrors.ErrNoMigrationFiles when the directory holds no SQL
// files, and a wrapped read error when the directory or a file is
// unreadable.
func LoadDir(dir string) (SchemaMap, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading schema directory %s: %w", dir, err)
	}

	var statements []string
	found := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".sql") {
			continue
		}
		found++
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading schema file %s: %w", entry.Name(), err)
		}
		statements = append(statements, SplitStatements(string(data))...)
	}
	if found == 0 {
		return nil, fmt.Errorf("%w in %s", apperrors.ErrNoMigrationFiles, dir)
	}

	return ParseStatements(statements), nil
}

// SplitStatements splits raw SQL text on semicolons, dropping empty
// fragments.
func SplitStatements(sql string) []string {
	raw := strings.Split(sql, ";")
	statements := make([]string, 0, len(raw))
	for _, stmt := range raw {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
