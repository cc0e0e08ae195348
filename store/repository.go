package store

import (
	"context"
	"errors"

	"sprint-metrics/domain"
)

// ErrNotFound is returned when a cache holds no snapshot of the requested kind
var ErrNotFound = errors.New("snapshot not found")

// ErrNothingToRefresh is returned by Refresh when there is no remote source or
// no cache to copy it into
var ErrNothingToRefresh = errors.New("nothing to refresh")

// Kind names a snapshot collection
type Kind string

const (
	KindStories Kind = "stories"
	KindSprints Kind = "sprints"
	KindTasks   Kind = "tasks"
)

// Repository provides read access to the current story, sprint and task snapshots
type Repository interface {
	Stories(ctx context.Context) ([]domain.Story, error)
	Sprints(ctx context.Context) ([]domain.Sprint, error)
	Tasks(ctx context.Context) ([]domain.Task, error)
}
