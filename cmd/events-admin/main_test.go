package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"ms-events/internal/database"
	"ms-events/internal/events/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runAdmin(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestSeedAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admin.db")
	t.Cleanup(func() { dbPath = "" })

	assert.Contains(t, runAdmin(t, "seed", "--db", path), "seeded 3 events")
	assert.Contains(t, runAdmin(t, "migrate", "version", "--db", path), "schema version 1")

	bunDB, err := database.Open(context.Background(), path, database.Options{MaxRetries: 1})
	require.NoError(t, err)
	events, err := (&db.DB{Bun: bunDB}).ListEvents(context.Background())
	require.NoError(t, err)
	require.NoError(t, bunDB.Close())

	require.Len(t, events, 3)
	assert.Equal(t, "Community Meetup", events[0].Name)
	assert.Equal(t, "Open Air Cinema", events[2].Name)

	assert.Contains(t, runAdmin(t, "migrate", "down", "--db", path), "rolled back")
	assert.Contains(t, runAdmin(t, "migrate", "up", "--db", path), "schema at version 1")
}
