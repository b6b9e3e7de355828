package database_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ms-events/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "database", "events.db")

	bunDB, err := database.Open(context.Background(), path, database.Options{MaxOpenConns: 4})
	require.NoError(t, err)
	defer bunDB.Close()

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, 4, bunDB.DB.Stats().MaxOpenConnections)
}

func TestOpenMemoryUsesSingleConnection(t *testing.T) {
	bunDB, err := database.Open(context.Background(), database.MemoryPath, database.Options{MaxOpenConns: 10})
	require.NoError(t, err)
	defer bunDB.Close()

	assert.Equal(t, 1, bunDB.DB.Stats().MaxOpenConnections)
}
