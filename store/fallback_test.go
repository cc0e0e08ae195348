package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprint-metrics/domain"
	"sprint-metrics/store"
)

type fakeRemote struct {
	stories []domain.Story
	sprints []domain.Sprint
	err     error
	calls   int
}

func (f *fakeRemote) Stories(context.Context) ([]domain.Story, error) {
	f.calls++
	return f.stories, f.err
}

func (f *fakeRemote) Sprints(context.Context) ([]domain.Sprint, error) {
	f.calls++
	return f.sprints, f.err
}

func (f *fakeRemote) Tasks(context.Context) ([]domain.Task, error) {
	f.calls++
	return nil, f.err
}

var errOffline = errors.New("backend offline")

func TestFallbackRepository_RemoteFirstWritesThroughAndFallsBack(t *testing.T) {
	ctx := context.Background()
	cache := openCache(t)
	remote := &fakeRemote{stories: []domain.Story{{ID: "1"}, {ID: "2"}}}

	repo, err := store.NewFallbackRepository(remote, cache, store.RemoteFirst, time.Hour, zerolog.Nop())
	require.NoError(t, err)

	stories, err := repo.Stories(ctx)
	require.NoError(t, err)
	assert.Len(t, stories, 2)

	remote.err = errOffline
	stories, err = repo.Stories(ctx)
	require.NoError(t, err, "cached snapshot is served while fresh")
	assert.Len(t, stories, 2)

	_, err = repo.Sprints(ctx)
	assert.ErrorIs(t, err, errOffline)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFallbackRepository_StaleCacheIsRejected(t *testing.T) {
	ctx := context.Background()
	cache := openCache(t)
	require.NoError(t, cache.SaveStories(ctx, []domain.Story{{ID: "old"}}))

	repo, err := store.NewFallbackRepository(&fakeRemote{err: errOffline}, cache, store.RemoteFirst, time.Nanosecond, zerolog.Nop())
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	_, err = repo.Stories(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errOffline)
	assert.Contains(t, err.Error(), "stale")
}

func TestFallbackRepository_RemoteOnly(t *testing.T) {
	ctx := context.Background()
	cache := openCache(t)
	require.NoError(t, cache.SaveStories(ctx, []domain.Story{{ID: "cached"}}))

	repo, err := store.NewFallbackRepository(&fakeRemote{err: errOffline}, cache, store.RemoteOnly, 0, zerolog.Nop())
	require.NoError(t, err)

	_, err = repo.Stories(ctx)
	assert.ErrorIs(t, err, errOffline)
}

func TestFallbackRepository_CacheOnly(t *testing.T) {
	ctx := context.Background()
	cache := openCache(t)
	require.NoError(t, cache.SaveStories(ctx, []domain.Story{{ID: "cached"}}))

	repo, err := store.NewFallbackRepository(nil, cache, store.CacheOnly, 0, zerolog.Nop())
	require.NoError(t, err)

	stories, err := repo.Stories(ctx)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, "cached", stories[0].ID)

	_, err = store.NewFallbackRepository(nil, nil, store.CacheOnly, 0, zerolog.Nop())
	assert.Error(t, err)
}

func TestFallbackRepository_Refresh(t *testing.T) {
	ctx := context.Background()
	cache := openCache(t)
	remote := &fakeRemote{
		stories: []domain.Story{{ID: "1"}},
		sprints: []domain.Sprint{{ID: "s", Name: "Sprint 1"}},
	}
	repo, err := store.NewFallbackRepository(remote, cache, store.RemoteFirst, 0, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, repo.Refresh(ctx))
	sprints, err := cache.Sprints(ctx)
	require.NoError(t, err)
	assert.Len(t, sprints, 1)
	assert.Equal(t, 3, remote.calls)
}

func TestFallbackRepository_RefreshWithoutCacheOrRemote(t *testing.T) {
	ctx := context.Background()

	noCache, err := store.NewFallbackRepository(&fakeRemote{}, nil, store.RemoteFirst, 0, zerolog.Nop())
	require.NoError(t, err)
	assert.ErrorIs(t, noCache.Refresh(ctx), store.ErrNothingToRefresh)

	cacheOnly, err := store.NewFallbackRepository(nil, openCache(t), store.CacheOnly, 0, zerolog.Nop())
	require.NoError(t, err)
	assert.ErrorIs(t, cacheOnly.Refresh(ctx), store.ErrNothingToRefresh)
}

func TestParseFallbackPolicy(t *testing.T) {
	p, err := store.ParseFallbackPolicy("")
	require.NoError(t, err)
	assert.Equal(t, store.RemoteFirst, p)

	p, err = store.ParseFallbackPolicy("cache-only")
	require.NoError(t, err)
	assert.Equal(t, store.CacheOnly, p)

	_, err = store.ParseFallbackPolicy("whenever")
	assert.Error(t, err)
}
