package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprint-metrics/config"
	"sprint-metrics/domain"
)

func newTestAPI(t *testing.T, handler http.HandlerFunc) (*APIRepository, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.APIURL = srv.URL + "/"
	cfg.APIToken = "secret"
	cfg.FetchRetries = 2

	repo := NewAPIRepository(cfg, zerolog.Nop())
	repo.fetcher.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return repo, srv
}

func TestAPIRepository_Stories(t *testing.T) {
	repo, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/stories", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"success":true,"data":[{"id":"1","title":"Login","status":"Done","storyPoints":3}]}`))
	})

	stories, err := repo.Stories(context.Background())
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, domain.StatusDone, stories[0].Status)
	assert.Equal(t, 3, stories[0].Points())
}

func TestAPIRepository_SprintsAndTasks(t *testing.T) {
	repo, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/sprints":
			w.Write([]byte(`[{"id":"s1","name":"Sprint 1","start_date":"2025-01-06","end_date":"2025-01-17"}]`))
		case "/api/tasks":
			w.Write([]byte(`{"data":{"data":[{"id":"t1","status":"Done"}]}}`))
		default:
			http.NotFound(w, r)
		}
	})

	sprints, err := repo.Sprints(context.Background())
	require.NoError(t, err)
	require.Len(t, sprints, 1)
	assert.Equal(t, "Sprint 1", sprints[0].Name)

	tasks, err := repo.Tasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.StatusDone, tasks[0].Status)
}

func TestAPIRepository_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	repo, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[]`))
	})

	stories, err := repo.Stories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stories)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAPIRepository_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	repo, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	_, err := repo.Stories(context.Background())
	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Equal(t, int32(3), calls.Load(), "one attempt plus two retries")
}

func TestAPIRepository_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	repo, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusUnauthorized)
	})

	_, err := repo.Stories(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAPIRepository_RejectsFailedEnvelope(t *testing.T) {
	repo, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"database offline"}`))
	})

	_, err := repo.Stories(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
	assert.Contains(t, err.Error(), "database offline")
}
