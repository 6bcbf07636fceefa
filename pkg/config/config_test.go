package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir switches to dir for the duration of the test; testing.T.Chdir
// needs Go 1.24, which this toolchain predates.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "test-project", cfg.ProjectID)
	assert.Equal(t, "test-instance", cfg.InstanceID)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10, cfg.Pool.MaxConnections)
	assert.Equal(t, 5, cfg.Pool.IdleTimeoutMinutes)
	assert.Equal(t, 10, cfg.Pool.MaxLifetimeMinutes)
	assert.Equal(t, int64(10485760), cfg.Seed.MaxFileSizeBytes)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spanwright.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
project_id: acme-e2e
instance_id: ci-instance
log_level: debug
pool:
  max_connections: 3
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "acme-e2e", cfg.ProjectID)
	assert.Equal(t, "ci-instance", cfg.InstanceID)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.Pool.MaxConnections)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spanwright.yaml")
	require.NoError(t, os.WriteFile(path, []byte("project_id: from-yaml\n"), 0o644))

	t.Setenv("SPANNER_PROJECT_ID", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.ProjectID)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsBadProjectID(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SPANNER_PROJECT_ID", "Not A Project")

	_, err := Load("")
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDatabasePath(t *testing.T) {
	cfg := &Config{ProjectID: "p", InstanceID: "i"}
	assert.Equal(t, "projects/p/instances/i/databases/primary-db", cfg.DatabasePath("primary-db"))
}

func TestPoolConfig_Durations(t *testing.T) {
	p := PoolConfig{IdleTimeoutMinutes: 5, MaxLifetimeMinutes: 10, CleanupIntervalSeconds: 60}
	assert.Equal(t, "5m0s", p.IdleTimeout().String())
	assert.Equal(t, "10m0s", p.MaxLifetime().String())
	assert.Equal(t, "1m0s", p.CleanupInterval().String())
}
