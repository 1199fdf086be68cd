package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
	"github.com/quarrydb/quarry/config"
)

const sampleYAML = `default: primary

connections:
  primary:
    type: postgres
    host: db.internal
    port: 5432
    database: app
    username: app
    password: hunter2
    pool:
      min: 2
      max: 10
  analytics:
    type: mongodb
    host: mongo.internal
    database: events

migrations:
  dir: db/migrations
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quarry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "primary", cfg.Default)
	assert.Equal(t, "db/migrations", cfg.Migrations.Dir)
	assert.Equal(t, "migrations", cfg.Migrations.Table)

	primary, err := cfg.Connection("")
	require.NoError(t, err)
	assert.Equal(t, adapter.Postgres, primary.Type)
	assert.Equal(t, "db.internal", primary.Host)
	assert.Equal(t, 10, primary.Pool.Max)

	analytics, err := cfg.Connection("analytics")
	require.NoError(t, err)
	assert.Equal(t, adapter.Mongo, analytics.Type)

	_, err = cfg.Connection("reporting")
	require.Error(t, err)
	assert.True(t, quarry.IsConfig(err))
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("QUARRY_CONNECTIONS__PRIMARY__HOST", "replica.internal")
	t.Setenv("QUARRY_CONNECTIONS__PRIMARY__PASSWORD", "rotated")

	cfg, err := config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	primary, err := cfg.Connection("primary")
	require.NoError(t, err)
	assert.Equal(t, "replica.internal", primary.Host)
	assert.Equal(t, "rotated", primary.Password)
	// Values without overrides stay intact.
	assert.Equal(t, "app", primary.Database)
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("QUARRY_DEFAULT", "primary")
	t.Setenv("QUARRY_CONNECTIONS__PRIMARY__TYPE", "sqlite")
	t.Setenv("QUARRY_CONNECTIONS__PRIMARY__PATH", ":memory:")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	conn, err := cfg.Connection("")
	require.NoError(t, err)
	assert.Equal(t, adapter.SQLite, conn.Type)
	assert.Equal(t, ":memory:", conn.Path)
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	_, err := config.Load(writeConfig(t, "default: [unclosed"))
	require.Error(t, err)
	assert.True(t, quarry.IsConfig(err))
}
