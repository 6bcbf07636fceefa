package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nu0ma/spanwright-sub002/pkg/mutation"
	"github.com/nu0ma/spanwright-sub002/pkg/schema"
)

type fakeApplier struct {
	applied []*mutation.Mutation
	err     error
}

func (f *fakeApplier) ApplyMutations(_ context.Context, mutations []*mutation.Mutation) error {
	if f.err != nil {
		return f.err
	}
	f.applied = append(f.applied, mutations...)
	return nil
}

func testSchemas() schema.SchemaMap {
	return schema.SchemaMap{
		"Users": {
			"UserID": schema.TypeString,
			"Name":   schema.TypeString,
			"Age":    schema.TypeInt64,
		},
		"Orders": {
			"OrderID": schema.TypeString,
			"UserID":  schema.TypeString,
		},
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileSeeder_Seed(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "seed.yaml", `
Users:
  - UserID: u1
    Name: Alice
    Age: 30
  - UserID: u2
    Name: Bob
Orders:
  OrderID: o1
  UserID: u1
`)

	db := &fakeApplier{}
	seeder := NewFileSeeder(db, testSchemas(), path, zaptest.NewLogger(t))

	result, err := seeder.Seed(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Mutations)
	assert.Equal(t, []string{"Orders", "Users"}, result.Tables)
	assert.Len(t, db.applied, 3)
}

func TestFileSeeder_Seed_MissingFile(t *testing.T) {
	db := &fakeApplier{}
	seeder := NewFileSeeder(db, testSchemas(), filepath.Join(t.TempDir(), "nope.yaml"), zaptest.NewLogger(t))

	_, err := seeder.Seed(context.Background())
	require.Error(t, err)
	assert.Empty(t, db.applied)
}

func TestFileSeeder_Seed_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "seed.yaml", "Users: [unclosed")

	seeder := NewFileSeeder(&fakeApplier{}, testSchemas(), path, zaptest.NewLogger(t))

	_, err := seeder.Seed(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}

func TestFileSeeder_Seed_EmptySeed(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "seed.yaml", "{}")

	db := &fakeApplier{}
	seeder := NewFileSeeder(db, testSchemas(), path, zaptest.NewLogger(t))

	result, err := seeder.Seed(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Mutations)
	assert.Empty(t, result.Tables)
}

func TestFileSeeder_Seed_ApplyError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "seed.yaml", "Users:\n  UserID: u1\n")

	applyErr := errors.New("apply failed")
	seeder := NewFileSeeder(&fakeApplier{err: applyErr}, testSchemas(), path, zaptest.NewLogger(t))

	_, err := seeder.Seed(context.Background())
	assert.ErrorIs(t, err, applyErr)
}

func TestFileSeeder_BuildMutations_UnknownTableSkipped(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "seed.yaml", `
Users:
  UserID: u1
Ghosts:
  GhostID: g1
`)

	seeder := NewFileSeeder(&fakeApplier{}, testSchemas(), path, zaptest.NewLogger(t))

	mutations, err := seeder.BuildMutations()
	require.NoError(t, err)
	require.Len(t, mutations, 1)
	assert.Equal(t, "Users", mutations[0].Table)
}

func TestFileSeeder_BuildMutations_DocumentOrder(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "seed.yaml", `
Users:
  - UserID: u1
  - UserID: u2
Orders:
  OrderID: o1
  UserID: u1
`)

	seeder := NewFileSeeder(&fakeApplier{}, testSchemas(), path, zaptest.NewLogger(t))

	mutations, err := seeder.BuildMutations()
	require.NoError(t, err)
	require.Len(t, mutations, 3)

	assert.Equal(t, "Users", mutations[0].Table)
	assert.Equal(t, "Users", mutations[1].Table)
	assert.Equal(t, "Orders", mutations[2].Table)
}

func TestFileSeeder_BuildMutations_NonMappingDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "seed.yaml", "- just\n- a\n- list\n")

	seeder := NewFileSeeder(&fakeApplier{}, testSchemas(), path, zaptest.NewLogger(t))

	_, err := seeder.BuildMutations()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top level must be a mapping")
}

func TestFixtureSeeder_Seed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Users.yaml", "- UserID: u1\n  Name: Alice\n- UserID: u2\n  Name: Bob\n")
	writeFile(t, dir, "Orders.yml", "- OrderID: o1\n  UserID: u1\n")
	writeFile(t, dir, "README.md", "not a fixture")

	db := &fakeApplier{}
	seeder := NewFixtureSeeder(db, testSchemas(), dir, 0, zaptest.NewLogger(t))

	result, err := seeder.Seed(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Mutations)
	assert.Equal(t, []string{"Orders", "Users"}, result.Tables)
}

func TestFixtureSeeder_Seed_JSONFixture(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Users.json", `[{"UserID": "u1", "Name": "Alice"}]`)

	db := &fakeApplier{}
	seeder := NewFixtureSeeder(db, testSchemas(), dir, 0, zaptest.NewLogger(t))

	result, err := seeder.Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Mutations)
	assert.Equal(t, []string{"Users"}, result.Tables)
}

func TestFixtureSeeder_Seed_PluralizedFilename(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "user.yaml", "- UserID: u1\n  Name: Alice\n")

	db := &fakeApplier{}
	seeder := NewFixtureSeeder(db, testSchemas(), dir, 0, zaptest.NewLogger(t))

	_, err := seeder.Seed(context.Background())
	require.NoError(t, err)
	require.Len(t, db.applied, 1)
	assert.Equal(t, "Users", db.applied[0].Table)
}

func TestFixtureSeeder_Seed_MalformedFixtureSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Orders.yaml", "- OrderID: [unclosed")
	writeFile(t, dir, "Users.yaml", "- UserID: u1\n")

	db := &fakeApplier{}
	seeder := NewFixtureSeeder(db, testSchemas(), dir, 0, zaptest.NewLogger(t))

	result, err := seeder.Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Mutations)
	assert.Equal(t, []string{"Users"}, result.Tables)
}

func TestFixtureSeeder_Seed_OversizedFixtureSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Orders.yaml", "- OrderID: o1\n  UserID: "+strings.Repeat("x", 256)+"\n")
	writeFile(t, dir, "Users.yaml", "- UserID: u1\n")

	db := &fakeApplier{}
	seeder := NewFixtureSeeder(db, testSchemas(), dir, 64, zaptest.NewLogger(t))

	result, err := seeder.Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Mutations)
	assert.Equal(t, []string{"Users"}, result.Tables)
}

func TestFixtureSeeder_Seed_MissingDirectory(t *testing.T) {
	seeder := NewFixtureSeeder(&fakeApplier{}, testSchemas(), filepath.Join(t.TempDir(), "nope"), 0, zaptest.NewLogger(t))

	_, err := seeder.Seed(context.Background())
	require.Error(t, err)
}

func TestFixtureSeeder_Seed_EmptyDirectory(t *testing.T) {
	db := &fakeApplier{}
	seeder := NewFixtureSeeder(db, testSchemas(), t.TempDir(), 0, zaptest.NewLogger(t))

	result, err := seeder.Seed(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Mutations)
}
