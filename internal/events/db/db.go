package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ms-events/internal/models"

	"github.com/uptrace/bun"
)

// ErrNotFound is returned when no event row has the requested id.
var ErrNotFound = errors.New("event not found")

type DB struct {
	Bun *bun.DB
}

// ListEvents returns every event ordered by date, oldest first.
func (d *DB) ListEvents(ctx context.Context) ([]models.Event, error) {
	events := make([]models.Event, 0)
	err := d.Bun.NewSelect().
		Model(&events).
		Order("date ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (d *DB) GetEventByID(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// CreateEvent inserts the event and writes the assigned id back into it.
func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	event.ID = 0
	_, err := d.Bun.NewInsert().
		Model(event).
		Returning("id").
		Exec(ctx)
	return err
}

// UpdateEvent overwrites every mutable column of the row with event.ID.
func (d *DB) UpdateEvent(ctx context.Context, event models.Event) error {
	res, err := d.Bun.NewUpdate().
		Model(&event).
		Column("name", "minimum_age", "date", "time", "postal_code", "state_code", "city", "venue").
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (d *DB) DeleteEvent(ctx context.Context, id int64) error {
	res, err := d.Bun.NewDelete().
		Model((*models.Event)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// Ping reports whether the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.Bun.PingContext(ctx)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
