package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"sprint-metrics/domain"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	kind       TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	fetched_at INTEGER NOT NULL
)`

// CacheRepository keeps the last good snapshot of each kind in a local sqlite file
type CacheRepository struct {
	db  *sql.DB
	now func() time.Time
}

// OpenCache opens or creates the snapshot cache at path
func OpenCache(ctx context.Context, path string) (*CacheRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialising cache %s: %w", path, err)
	}
	return &CacheRepository{db: db, now: time.Now}, nil
}

// Close closes the underlying database
func (c *CacheRepository) Close() error {
	return c.db.Close()
}

func (c *CacheRepository) save(ctx context.Context, kind Kind, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s snapshot: %w", kind, err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO snapshots (kind, payload, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(kind) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		string(kind), payload, c.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("saving %s snapshot: %w", kind, err)
	}
	return nil
}

func (c *CacheRepository) load(ctx context.Context, kind Kind, v any) error {
	var payload []byte
	err := c.db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE kind = ?`, string(kind)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", kind, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("loading %s snapshot: %w", kind, err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decoding %s snapshot: %w", kind, err)
	}
	return nil
}

// FetchedAt returns when the snapshot of kind was stored
func (c *CacheRepository) FetchedAt(ctx context.Context, kind Kind) (time.Time, error) {
	var ms int64
	err := c.db.QueryRowContext(ctx, `SELECT fetched_at FROM snapshots WHERE kind = ?`, string(kind)).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("%s: %w", kind, ErrNotFound)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading %s snapshot time: %w", kind, err)
	}
	return time.UnixMilli(ms), nil
}

// Age returns how old the snapshot of kind is
func (c *CacheRepository) Age(ctx context.Context, kind Kind) (time.Duration, error) {
	at, err := c.FetchedAt(ctx, kind)
	if err != nil {
		return 0, err
	}
	return c.now().Sub(at), nil
}

// SaveStories replaces the cached story snapshot
func (c *CacheRepository) SaveStories(ctx context.Context, stories []domain.Story) error {
	return c.save(ctx, KindStories, stories)
}

// SaveSprints replaces the cached sprint snapshot
func (c *CacheRepository) SaveSprints(ctx context.Context, sprints []domain.Sprint) error {
	return c.save(ctx, KindSprints, sprints)
}

// SaveTasks replaces the cached task snapshot
func (c *CacheRepository) SaveTasks(ctx context.Context, tasks []domain.Task) error {
	return c.save(ctx, KindTasks, tasks)
}

// Stories returns the cached story snapshot
func (c *CacheRepository) Stories(ctx context.Context) ([]domain.Story, error) {
	var stories []domain.Story
	if err := c.load(ctx, KindStories, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

// Sprints returns the cached sprint snapshot
func (c *CacheRepository) Sprints(ctx context.Context) ([]domain.Sprint, error) {
	var sprints []domain.Sprint
	if err := c.load(ctx, KindSprints, &sprints); err != nil {
		return nil, err
	}
	return sprints, nil
}

// Tasks returns the cached task snapshot
func (c *CacheRepository) Tasks(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := c.load(ctx, KindTasks, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}
