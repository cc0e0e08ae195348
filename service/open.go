package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"sprint-metrics/config"
	"sprint-metrics/jira"
	"sprint-metrics/metrics"
	"sprint-metrics/store"
)

// Backend is a wired repository together with its resources
type Backend struct {
	*store.FallbackRepository
	closers []func()
}

// Close releases the source and cache
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// OpenBackend builds the configured source behind the snapshot cache
func OpenBackend(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Backend, error) {
	policy, err := store.ParseFallbackPolicy(cfg.FallbackPolicy)
	if err != nil {
		return nil, err
	}
	b := &Backend{}

	var remote store.Repository
	if policy != store.CacheOnly {
		switch cfg.Source {
		case config.SourceAPI:
			remote = store.NewAPIRepository(cfg, log)
		case config.SourceJira:
			remote = jira.NewClient(cfg, log)
		case config.SourcePostgres:
			pg, err := store.NewPostgresRepository(ctx, cfg, log)
			if err != nil {
				return nil, err
			}
			b.closers = append(b.closers, pg.Close)
			remote = pg
		default:
			return nil, fmt.Errorf("unknown source %q", cfg.Source)
		}
	}

	var cache *store.CacheRepository
	if cfg.CachePath != "" {
		cache, err = store.OpenCache(ctx, cfg.CachePath)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { cache.Close() })
	}

	repo, err := store.NewFallbackRepository(remote, cache, policy, cfg.CacheMaxAgeDuration(), log)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.FallbackRepository = repo

	log.Info().
		Str("source", cfg.Source).
		Str("fallback_policy", string(policy)).
		Str("cache", cfg.CachePath).
		Msg("story source ready")
	return b, nil
}

// LoadPolicy returns the configured readiness policy, or the default one
func LoadPolicy(cfg config.Config) (metrics.Policy, error) {
	if cfg.ReadinessPolicyFile == "" {
		return metrics.DefaultPolicy(), nil
	}
	return metrics.LoadPolicy(cfg.ReadinessPolicyFile)
}
