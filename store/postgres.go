package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"sprint-metrics/config"
	"sprint-metrics/domain"
)

// Rows are aggregated to JSON in the database so they pass through the same
// normaliser as REST payloads.
const (
	storiesQuery = `SELECT coalesce(json_agg(s ORDER BY s.created_at), '[]'::json) FROM stories s`
	sprintsQuery = `SELECT coalesce(json_agg(s ORDER BY s.start_date NULLS LAST, s.name), '[]'::json) FROM sprints s`
	tasksQuery   = `SELECT coalesce(json_agg(t ORDER BY t.created_at), '[]'::json) FROM tasks t`
)

// PostgresRepository reads snapshots straight from the agile backend database
type PostgresRepository struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewPostgresRepository opens a pool and verifies connectivity
func NewPostgresRepository(ctx context.Context, cfg config.Config, log zerolog.Logger) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return &PostgresRepository{pool: pool, log: log.With().Str("source", config.SourcePostgres).Logger()}, nil
}

// Close releases the pool
func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func (r *PostgresRepository) collection(ctx context.Context, kind Kind, query string) ([]byte, error) {
	var raw []byte
	if err := r.pool.QueryRow(ctx, query).Scan(&raw); err != nil {
		return nil, fmt.Errorf("querying %s: %w", kind, err)
	}
	return raw, nil
}

// Stories retrieves every story
func (r *PostgresRepository) Stories(ctx context.Context) ([]domain.Story, error) {
	raw, err := r.collection(ctx, KindStories, storiesQuery)
	if err != nil {
		return nil, err
	}
	return domain.NormalizeStories(raw, r.log)
}

// Sprints retrieves every sprint
func (r *PostgresRepository) Sprints(ctx context.Context) ([]domain.Sprint, error) {
	raw, err := r.collection(ctx, KindSprints, sprintsQuery)
	if err != nil {
		return nil, err
	}
	return domain.NormalizeSprints(raw, r.log)
}

// Tasks retrieves every task
func (r *PostgresRepository) Tasks(ctx context.Context) ([]domain.Task, error) {
	raw, err := r.collection(ctx, KindTasks, tasksQuery)
	if err != nil {
		return nil, err
	}
	return domain.NormalizeTasks(raw, r.log)
}
