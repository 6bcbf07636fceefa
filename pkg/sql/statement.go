package sql

import (
	"errors"
	"strings"
)

// ErrMultipleStatements indicates the query contains multiple SQL statements.
var ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

// ErrEmptyStatement indicates the query is blank after normalization.
var ErrEmptyStatement = errors.New("empty SQL statement")

// ValidateSingleStatement strips the trailing semicolon and rejects input
// containing further statements. Semicolons inside string literals do not
// count.
func ValidateSingleStatement(statement string) (string, error) {
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return "", ErrEmptyStatement
	}

	normalized := stripTrailingSemicolon(statement)
	if hasSemicolonOutsideStrings(normalized) {
		return "", ErrMultipleStatements
	}
	return normalized, nil
}

// hasSemicolonOutsideStrings returns true if the SQL contains any
// semicolon outside of string literals.
func hasSemicolonOutsideStrings(statement string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range statement {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// SQL standard doubled quotes ('') exit and immediately
			// re-enter on the next quote, which keeps the scan correct.
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}

// stripTrailingSemicolon removes a trailing semicolon and surrounding
// whitespace.
func stripTrailingSemicolon(statement string) string {
	statement = strings.TrimRight(statement, " \t\n\r")
	if strings.HasSuffix(statement, ";") {
		statement = strings.TrimSuffix(statement, ";")
		statement = strings.TrimRight(statement, " \t\n\r")
	}
	return statement
}
