package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"sprint-metrics/domain"
	"sprint-metrics/metrics"
	"sprint-metrics/store"
)

var (
	ErrSprintNotFound = errors.New("sprint not found")
	ErrStoryNotFound  = errors.New("story not found")
)

// Service answers analytics and readiness questions over a Repository
type Service struct {
	repo   store.Repository
	policy metrics.Policy
	log    zerolog.Logger
	now    func() time.Time
}

// Option customises a Service
type Option func(*Service)

// WithPolicy overrides the readiness rule table
func WithPolicy(p metrics.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service
func New(repo store.Repository, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		policy: metrics.DefaultPolicy(),
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the readiness rule table in use
func (s *Service) Policy() metrics.Policy {
	return s.policy
}

// Snapshot is a consistent read of stories and sprints
type Snapshot struct {
	Stories []domain.Story
	Sprints []domain.Sprint
}

// Snapshot fetches stories and sprints concurrently
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stories, err := s.repo.Stories(gctx)
		if err != nil {
			return fmt.Errorf("fetching stories: %w", err)
		}
		snap.Stories = stories
		return nil
	})
	g.Go(func() error {
		sprints, err := s.repo.Sprints(gctx)
		if err != nil {
			return fmt.Errorf("fetching sprints: %w", err)
		}
		snap.Sprints = sprints
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Overall returns the dashboard roll-up
func (s *Service) Overall(ctx context.Context) (metrics.OverallAnalytics, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return metrics.OverallAnalytics{}, err
	}
	return metrics.CalculateOverallAnalytics(snap.Sprints, snap.Stories, s.now()), nil
}

// StoryAnalytics returns backlog analytics
func (s *Service) StoryAnalytics(ctx context.Context) (metrics.StoryAnalytics, error) {
	stories, err := s.repo.Stories(ctx)
	if err != nil {
		return metrics.StoryAnalytics{}, fmt.Errorf("fetching stories: %w", err)
	}
	return metrics.CalculateStoryAnalytics(stories, s.now()), nil
}

// Metrics returns the raw story reducer output, plus task metrics when the
// source provides tasks
func (s *Service) Metrics(ctx context.Context) (metrics.Bundle, error) {
	stories, err := s.repo.Stories(ctx)
	if err != nil {
		return metrics.Bundle{}, fmt.Errorf("fetching stories: %w", err)
	}
	tasks, err := s.repo.Tasks(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("tasks unavailable, reporting stories only")
		tasks = nil
	}
	return metrics.Calculate(stories, tasks), nil
}

// sprint resolves a sprint and its stories
func (s *Service) sprint(ctx context.Context, name string) (*domain.Sprint, []domain.Story, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	sp := domain.FindSprint(snap.Sprints, name)
	if sp == nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrSprintNotFound, name)
	}
	return sp, domain.StoriesInSprint(snap.Stories, sp.Name), nil
}

// Sprint returns analytics for one sprint
func (s *Service) Sprint(ctx context.Context, name string) (metrics.SprintAnalytics, error) {
	sp, stories, err := s.sprint(ctx, name)
	if err != nil {
		return metrics.SprintAnalytics{}, err
	}
	return metrics.CalculateSprintAnalytics(*sp, stories, s.now()), nil
}

// Readiness scores a named sprint
func (s *Service) Readiness(ctx context.Context, name string) (metrics.Readiness, error) {
	sp, stories, err := s.sprint(ctx, name)
	if err != nil {
		return metrics.Readiness{}, err
	}
	return s.policy.Score(sp, stories), nil
}

// Burndown builds the burndown series of a named sprint
func (s *Service) Burndown(ctx context.Context, name string) ([]metrics.BurndownPoint, error) {
	sp, stories, err := s.sprint(ctx, name)
	if err != nil {
		return nil, err
	}
	return metrics.BuildSprintBurndown(sp, stories), nil
}

// StoryChecklist evaluates the definition-of-ready checklist for a story
func (s *Service) StoryChecklist(ctx context.Context, id string) (metrics.StoryChecklist, error) {
	stories, err := s.repo.Stories(ctx)
	if err != nil {
		return metrics.StoryChecklist{}, fmt.Errorf("fetching stories: %w", err)
	}
	id = strings.TrimSpace(id)
	for _, st := range stories {
		if st.ID == id {
			return metrics.CheckStory(st), nil
		}
	}
	return metrics.StoryChecklist{}, fmt.Errorf("%w: %q", ErrStoryNotFound, id)
}

// ScoreSnapshot scores an ad-hoc story payload, optionally labelled with a sprint name
func (s *Service) ScoreSnapshot(raw []byte, sprintName string) (metrics.Readiness, error) {
	stories, err := domain.NormalizeStories(raw, s.log)
	if err != nil {
		return metrics.Readiness{}, err
	}
	var sp *domain.Sprint
	if sprintName != "" {
		sp = &domain.Sprint{Name: sprintName}
	}
	return s.policy.Score(sp, stories), nil
}

// ActiveReadiness scores every sprint active today
func (s *Service) ActiveReadiness(ctx context.Context) ([]metrics.Readiness, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := []metrics.Readiness{}
	for i := range snap.Sprints {
		sp := &snap.Sprints[i]
		if !sp.IsActive(now) {
			continue
		}
		out = append(out, s.policy.Score(sp, domain.StoriesInSprint(snap.Stories, sp.Name)))
	}
	return out, nil
}
