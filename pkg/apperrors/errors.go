package apperrors

import "errors"

var (
	ErrNoMigrationFiles  = errors.New("no migration files found")
	ErrPoolExhausted     = errors.New("connection pool exhausted")
	ErrPoolClosed        = errors.New("connection pool closed")
	ErrTableNotFound     = errors.New("table not found in schema")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrInvalidSeedShape  = errors.New("invalid seed data shape")
)
