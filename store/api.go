package store

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"sprint-metrics/config"
	"sprint-metrics/domain"
)

// APIRepository reads snapshots from the agile backend REST API
type APIRepository struct {
	baseURL string
	fetcher *Fetcher
	log     zerolog.Logger
}

// NewAPIRepository creates a REST-backed repository
func NewAPIRepository(cfg config.Config, log zerolog.Logger) *APIRepository {
	f := NewFetcher(cfg.HTTPTimeoutDuration(), cfg.FetchRetries, log)
	if token := cfg.APIToken; token != "" {
		f.Authorize = func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return &APIRepository{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		fetcher: f,
		log:     log.With().Str("source", config.SourceAPI).Logger(),
	}
}

func (r *APIRepository) get(ctx context.Context, kind Kind) ([]byte, error) {
	url := fmt.Sprintf("%s/api/%s", r.baseURL, kind)
	body, err := r.fetcher.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("error fetching %s: %w", kind, err)
	}
	return body, nil
}

// Stories retrieves every story
func (r *APIRepository) Stories(ctx context.Context) ([]domain.Story, error) {
	body, err := r.get(ctx, KindStories)
	if err != nil {
		return nil, err
	}
	stories, err := domain.NormalizeStories(body, r.log)
	if err != nil {
		return nil, fmt.Errorf("error parsing stories response: %w", err)
	}
	return stories, nil
}

// Sprints retrieves every sprint
func (r *APIRepository) Sprints(ctx context.Context) ([]domain.Sprint, error) {
	body, err := r.get(ctx, KindSprints)
	if err != nil {
		return nil, err
	}
	sprints, err := domain.NormalizeSprints(body, r.log)
	if err != nil {
		return nil, fmt.Errorf("error parsing sprints response: %w", err)
	}
	return sprints, nil
}

// Tasks retrieves every task
func (r *APIRepository) Tasks(ctx context.Context) ([]domain.Task, error) {
	body, err := r.get(ctx, KindTasks)
	if err != nil {
		return nil, err
	}
	tasks, err := domain.NormalizeTasks(body, r.log)
	if err != nil {
		return nil, fmt.Errorf("error parsing tasks response: %w", err)
	}
	return tasks, nil
}
