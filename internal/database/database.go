package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// MemoryPath opens a private in-memory database. It only lives as long
// as its single connection, so Open pins the pool to one connection.
const MemoryPath = ":memory:"

type Options struct {
	MaxOpenConns int
	MaxRetries   int
	RetryDelay   time.Duration
}

// Open opens the SQLite file at path, creating its directory when needed,
// and wraps it in a bun.DB.
func Open(ctx context.Context, path string, opts Options) (*bun.DB, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	maxOpen := opts.MaxOpenConns
	if path == MemoryPath || maxOpen <= 0 {
		maxOpen = 1
	}
	sqldb.SetMaxOpenConns(maxOpen)
	sqldb.SetMaxIdleConns(maxOpen)
	sqldb.SetConnMaxLifetime(0)

	if err := ping(ctx, sqldb, opts); err != nil {
		sqldb.Close()
		return nil, err
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func ping(ctx context.Context, sqldb *sql.DB, opts Options) error {
	attempts := opts.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = sqldb.PingContext(ctx); err == nil {
			return nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.RetryDelay):
			}
		}
	}
	return fmt.Errorf("failed to connect to sqlite after %d attempts: %w", attempts, err)
}
