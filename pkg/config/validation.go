package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ValidationError reports a rejected identifier, path, or file shape,
// with a suggestion the CLI surfaces to the user.
type ValidationError struct {
	Field      string
	Value      string
	Message    string
	Suggestion string
}

func (e *ValidationError) Error() string {
	if e.Suggestion == "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("invalid %s %q: %s (%s)", e.Field, e.Value, e.Message, e.Suggestion)
}

var (
	// Spanner database IDs: 2-30 characters, lowercase letters, digits,
	// underscores and hyphens, starting with a letter and not ending with
	// a hyphen.
	databaseIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,28}[a-z0-9]$`)

	// Project and instance IDs: lowercase letters, digits and hyphens.
	resourceIDPattern = regexp.MustCompile(`^[a-z][a-z0-9-]{0,61}[a-z0-9]$`)
)

// seedExtensions is the allowlist of seed and fixture file extensions.
var seedExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
}

// ValidateDatabaseID rejects database identifiers that do not match
// Spanner's naming rules. Validation happens before the ID is embedded in
// a database path or log line.
func ValidateDatabaseID(id string) error {
	if !databaseIDPattern.MatchString(id) {
		return &ValidationError{
			Field:      "database",
			Value:      id,
			Message:    "must be 2-30 lowercase letters, digits, underscores or hyphens, starting with a letter",
			Suggestion: "e.g. primary-db",
		}
	}
	return nil
}

// ValidateResourceID checks a project or instance identifier.
func ValidateResourceID(field, id string) error {
	if !resourceIDPattern.MatchString(id) {
		return &ValidationError{
			Field:      field,
			Value:      id,
			Message:    "must be lowercase letters, digits and hyphens, starting with a letter",
			Suggestion: "e.g. test-project",
		}
	}
	return nil
}

// ValidateSeedFile checks a seed file path before it is opened: no parent
// traversal, an allowlisted extension, a regular file, and a size within
// maxSize bytes.
func ValidateSeedFile(path string, maxSize int64) error {
	if err := rejectTraversal("seed file", path); err != nil {
		return err
	}

	if !seedExtensions[strings.ToLower(filepath.Ext(path))] {
		return &ValidationError{
			Field:      "seed file",
			Value:      path,
			Message:    "extension not allowed",
			Suggestion: "use a .yaml, .yml or .json file",
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return &ValidationError{
			Field:      "seed file",
			Value:      path,
			Message:    "not readable",
			Suggestion: "check that the file exists",
		}
	}
	if !info.Mode().IsRegular() {
		return &ValidationError{
			Field:   "seed file",
			Value:   path,
			Message: "not a regular file",
		}
	}
	if maxSize > 0 && info.Size() > maxSize {
		return &ValidationError{
			Field:      "seed file",
			Value:      path,
			Message:    fmt.Sprintf("file is %d bytes, limit is %d", info.Size(), maxSize),
			Suggestion: "split the seed data or raise seed.max_file_size_bytes",
		}
	}
	return nil
}

// ValidateFixtureDir checks a fixture directory path: no parent
// traversal, and it must be an existing directory.
func ValidateFixtureDir(path string) error {
	if err := rejectTraversal("fixture directory", path); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return &ValidationError{
			Field:      "fixture directory",
			Value:      path,
			Message:    "not readable",
			Suggestion: "check that the directory exists",
		}
	}
	if !info.IsDir() {
		return &ValidationError{
			Field:   "fixture directory",
			Value:   path,
			Message: "not a directory",
		}
	}
	return nil
}

// rejectTraversal refuses paths with parent-directory elements. Absolute
// paths are fine; climbing out of the working tree with .. is not.
func rejectTraversal(field, path string) error {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return &ValidationError{
				Field:      field,
				Value:      path,
				Message:    "parent traversal not allowed",
				Suggestion: "use a path relative to the project root or an absolute path",
			}
		}
	}
	return nil
}
