package migrations_test

import (
	"context"
	"testing"

	"ms-events/internal/database"
	"ms-events/internal/database/migrations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, name string, exec func(query string, dest *int) error) bool {
	t.Helper()
	var count int
	require.NoError(t, exec("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = '"+name+"'", &count))
	return count == 1
}

func TestRunMigrations(t *testing.T) {
	ctx := context.Background()
	bunDB, err := database.Open(ctx, database.MemoryPath, database.Options{})
	require.NoError(t, err)
	defer bunDB.Close()

	exec := func(query string, dest *int) error {
		return bunDB.QueryRowContext(ctx, query).Scan(dest)
	}

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())

	version, err := runner.RunMigrations()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.True(t, tableExists(t, "events", exec))

	// Running again is a no-op
	version, err = runner.RunMigrations()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	require.NoError(t, runner.MigrateDown())
	assert.False(t, tableExists(t, "events", exec))

	version, err = runner.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}
