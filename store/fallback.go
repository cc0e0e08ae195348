package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"sprint-metrics/domain"
)

// FallbackPolicy decides how the remote source and the local cache combine
type FallbackPolicy string

const (
	// RemoteFirst reads the remote source, writes through to the cache, and
	// serves the cache when the remote read fails and the snapshot is fresh enough.
	RemoteFirst FallbackPolicy = "remote-first"
	RemoteOnly  FallbackPolicy = "remote-only"
	CacheOnly   FallbackPolicy = "cache-only"
)

// ParseFallbackPolicy validates a policy name
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch p := FallbackPolicy(s); p {
	case RemoteFirst, RemoteOnly, CacheOnly:
		return p, nil
	case "":
		return RemoteFirst, nil
	}
	return "", fmt.Errorf("unknown fallback policy %q", s)
}

// FallbackRepository combines a remote Repository with a snapshot cache
type FallbackRepository struct {
	remote Repository
	cache  *CacheRepository
	policy FallbackPolicy
	maxAge time.Duration
	log    zerolog.Logger
}

// NewFallbackRepository wires remote and cache under policy. cache may be nil
// unless the policy is CacheOnly; remote may be nil only for CacheOnly.
func NewFallbackRepository(remote Repository, cache *CacheRepository, policy FallbackPolicy, maxAge time.Duration, log zerolog.Logger) (*FallbackRepository, error) {
	switch policy {
	case CacheOnly:
		if cache == nil {
			return nil, errors.New("cache-only policy needs a cache")
		}
	case RemoteFirst, RemoteOnly:
		if remote == nil {
			return nil, fmt.Errorf("%s policy needs a remote source", policy)
		}
	default:
		return nil, fmt.Errorf("unknown fallback policy %q", policy)
	}
	return &FallbackRepository{remote: remote, cache: cache, policy: policy, maxAge: maxAge, log: log}, nil
}

// Stories returns stories according to the policy
func (f *FallbackRepository) Stories(ctx context.Context) ([]domain.Story, error) {
	return read(ctx, f, KindStories, f.remoteStories, f.saveStories, f.cachedStories)
}

// Sprints returns sprints according to the policy
func (f *FallbackRepository) Sprints(ctx context.Context) ([]domain.Sprint, error) {
	return read(ctx, f, KindSprints, f.remoteSprints, f.saveSprints, f.cachedSprints)
}

// Tasks returns tasks according to the policy
func (f *FallbackRepository) Tasks(ctx context.Context) ([]domain.Task, error) {
	return read(ctx, f, KindTasks, f.remoteTasks, f.saveTasks, f.cachedTasks)
}

// Refresh pulls every collection from the remote source into the cache.
// It returns ErrNothingToRefresh when either side is missing.
func (f *FallbackRepository) Refresh(ctx context.Context) error {
	if f.remote == nil {
		return fmt.Errorf("%w: %s policy has no remote source", ErrNothingToRefresh, f.policy)
	}
	if f.cache == nil {
		return fmt.Errorf("%w: no cache configured", ErrNothingToRefresh)
	}
	stories, err := f.remote.Stories(ctx)
	if err != nil {
		return fmt.Errorf("refreshing stories: %w", err)
	}
	sprints, err := f.remote.Sprints(ctx)
	if err != nil {
		return fmt.Errorf("refreshing sprints: %w", err)
	}
	tasks, err := f.remote.Tasks(ctx)
	if err != nil {
		return fmt.Errorf("refreshing tasks: %w", err)
	}
	return errors.Join(
		f.cache.SaveStories(ctx, stories),
		f.cache.SaveSprints(ctx, sprints),
		f.cache.SaveTasks(ctx, tasks),
	)
}

func read[T any](
	ctx context.Context,
	f *FallbackRepository,
	kind Kind,
	remote func(context.Context) ([]T, error),
	save func(context.Context, []T) error,
	cached func(context.Context) ([]T, error),
) ([]T, error) {
	if f.policy == CacheOnly {
		return cached(ctx)
	}

	items, err := remote(ctx)
	if err == nil {
		if f.policy == RemoteFirst && f.cache != nil {
			if serr := save(ctx, items); serr != nil {
				f.log.Warn().Err(serr).Str("kind", string(kind)).Msg("could not update snapshot cache")
			}
		}
		return items, nil
	}

	if f.policy == RemoteOnly || f.cache == nil {
		return nil, err
	}

	age, aerr := f.cache.Age(ctx, kind)
	if aerr != nil {
		return nil, errors.Join(err, aerr)
	}
	if f.maxAge > 0 && age > f.maxAge {
		return nil, fmt.Errorf("%w; cached %s snapshot is stale (%s old)", err, kind, age.Round(time.Second))
	}
	items, cerr := cached(ctx)
	if cerr != nil {
		return nil, errors.Join(err, cerr)
	}
	f.log.Warn().Err(err).
		Str("kind", string(kind)).
		Dur("age", age).
		Msg("remote source unavailable, serving cached snapshot")
	return items, nil
}

func (f *FallbackRepository) remoteStories(ctx context.Context) ([]domain.Story, error) {
	return f.remote.Stories(ctx)
}

func (f *FallbackRepository) remoteSprints(ctx context.Context) ([]domain.Sprint, error) {
	return f.remote.Sprints(ctx)
}

func (f *FallbackRepository) remoteTasks(ctx context.Context) ([]domain.Task, error) {
	return f.remote.Tasks(ctx)
}

func (f *FallbackRepository) saveStories(ctx context.Context, v []domain.Story) error {
	return f.cache.SaveStories(ctx, v)
}

func (f *FallbackRepository) saveSprints(ctx context.Context, v []domain.Sprint) error {
	return f.cache.SaveSprints(ctx, v)
}

func (f *FallbackRepository) saveTasks(ctx context.Context, v []domain.Task) error {
	return f.cache.SaveTasks(ctx, v)
}

func (f *FallbackRepository) cachedStories(ctx context.Context) ([]domain.Story, error) {
	return f.cache.Stories(ctx)
}

func (f *FallbackRepository) cachedSprints(ctx context.Context) ([]domain.Sprint, error) {
	return f.cache.Sprints(ctx)
}

func (f *FallbackRepository) cachedTasks(ctx context.Context) ([]domain.Task, error) {
	return f.cache.Tasks(ctx)
}
