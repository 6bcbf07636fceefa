package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nu0ma/spanwright-sub002/pkg/mutation"
	"github.com/nu0ma/spanwright-sub002/pkg/schema"
)

// FileSeeder seeds from a single structured seed file mapping table name
// to one row or a list of rows:
//
//	Users:
//	  - UserID: u1
//	    Name: Alice
//	Orders:
//	  OrderID: o1
type FileSeeder struct {
	db      applier
	builder *mutation.AutoBuilder
	path    string
	logger  *zap.Logger
}

// NewFileSeeder creates a seeder reading the given seed file. The path is
// expected to have been validated by config.ValidateSeedFile already.
func NewFileSeeder(db applier, schemas schema.Source, path string, logger *zap.Logger) *FileSeeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSeeder{
		db:      db,
		builder: mutation.NewAutoBuilder(schemas, logger),
		path:    path,
		logger:  logger,
	}
}

// BuildMutations parses the seed file and builds its mutations without
// applying them. Tables are processed in seed-document order and rows keep
// their listed order.
func (s *FileSeeder) BuildMutations() ([]*mutation.Mutation, error) {
	entries, err := loadSeedEntries(s.path)
	if err != nil {
		return nil, err
	}
	mutations, err := s.builder.BuildFromSeedEntries(entries)
	if err != nil {
		return nil, fmt.Errorf("building mutations from %s: %w", s.path, err)
	}
	return mutations, nil
}

// Seed parses the seed file and applies the resulting mutations as one
// atomic batch.
func (s *FileSeeder) Seed(ctx context.Context) (*Result, error) {
	mutations, err := s.BuildMutations()
	if err != nil {
		return nil, err
	}
	return apply(ctx, s.db, mutations, s.logger)
}
