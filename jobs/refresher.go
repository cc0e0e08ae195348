package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"sprint-metrics/metrics"
	"sprint-metrics/store"
)

type refresher interface {
	Refresh(ctx context.Context) error
}

type scorer interface {
	ActiveReadiness(ctx context.Context) ([]metrics.Readiness, error)
}

// Refresher periodically pulls the remote snapshot into the cache and logs
// the readiness of every active sprint
type Refresher struct {
	repo    refresher
	svc     scorer
	log     zerolog.Logger
	c       *cron.Cron
	timeout time.Duration

	mu      sync.Mutex
	running bool
	lastRun time.Time
	lastErr error
}

// NewRefresher runs the refresh on a cron schedule in loc. An empty schedule leaves the
// job unscheduled so RunOnce is the only trigger.
func NewRefresher(schedule string, loc *time.Location, repo refresher, svc scorer, log zerolog.Logger) (*Refresher, error) {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)))
	r := &Refresher{repo: repo, svc: svc, log: log, c: c, timeout: 5 * time.Minute}
	if schedule != "" {
		if _, err := c.AddFunc(schedule, r.tick); err != nil {
			return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
		}
	}
	return r, nil
}

func (r *Refresher) Start() { r.c.Start() }

// Stop halts the schedule and waits for a running refresh to finish
func (r *Refresher) Stop() { <-r.c.Stop().Done() }

func (r *Refresher) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	err := r.RunOnce(ctx)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNothingToRefresh):
		r.log.Warn().Err(err).Msg("cron: run finished without refreshing")
	default:
		r.log.Error().Err(err).Msg("cron: refresh failed")
	}
}

// RunOnce refreshes the cache and logs active sprint readiness. Overlapping
// calls are skipped.
func (r *Refresher) RunOnce(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.log.Info().Msg("cron: refresh already running")
		return nil
	}
	r.running = true
	r.mu.Unlock()

	start := time.Now()
	err := r.run(ctx)

	r.mu.Lock()
	r.running = false
	r.lastRun = start
	r.lastErr = err
	r.mu.Unlock()
	return err
}

func (r *Refresher) run(ctx context.Context) error {
	r.log.Info().Msg("cron: refreshing snapshot")
	var skipped error
	if err := r.repo.Refresh(ctx); err != nil {
		if !errors.Is(err, store.ErrNothingToRefresh) {
			return fmt.Errorf("refreshing snapshot: %w", err)
		}
		// still score the snapshot the repository serves
		r.log.Warn().Err(err).Msg("cron: refresh skipped")
		skipped = fmt.Errorf("refresh skipped: %w", err)
	}

	results, err := r.svc.ActiveReadiness(ctx)
	if err != nil {
		return errors.Join(skipped, fmt.Errorf("scoring active sprints: %w", err))
	}
	for _, res := range results {
		ev := r.log.Info()
		if res.Status == metrics.StatusNotReady || res.Status == metrics.StatusAtRisk {
			ev = r.log.Warn()
		}
		ev.Str("sprint", res.Sprint).
			Int("score", res.Score).
			Str("status", string(res.Status)).
			Int("issues", len(res.Issues)).
			Msg("sprint readiness")
	}
	return skipped
}

// LastRun reports when the last refresh started and how it ended
func (r *Refresher) LastRun() (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun, r.lastErr
}
