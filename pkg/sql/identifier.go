// Package sql validates identifiers and statements before they reach the
// database, since row-count queries interpolate table names directly.
package sql

import (
	"fmt"
	"regexp"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/nu0ma/spanwright-sub002/pkg/apperrors"
)

// identifierPattern matches Spanner table and column identifiers: a
// letter or underscore followed by letters, digits or underscores, at
// most 128 characters.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,127}$`)

// ValidateIdentifier rejects anything that is not a plain identifier,
// including whitespace, quoting, statement separators, and strings
// libinjection flags as SQL injection.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidIdentifier, name)
	}
	if isSQLi, fingerprint := libinjection.IsSQLi(name); isSQLi {
		return fmt.Errorf("%w: %q (injection fingerprint %s)", apperrors.ErrInvalidIdentifier, name, fingerprint)
	}
	return nil
}

// EscapeIdentifier escapes embedded backquotes for interpolation inside a
// backquoted identifier. Defense in depth behind ValidateIdentifier,
// which already rejects backquotes.
func EscapeIdentifier(name string) string {
	return strings.ReplaceAll(name, "`", "\\`")
}
