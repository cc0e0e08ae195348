package metrics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprint-metrics/domain"
	"sprint-metrics/metrics"
)

func TestCalculateSprintAnalytics_Progress(t *testing.T) {
	sprint := domain.Sprint{ID: "s1", Name: "Sprint 1", StartDate: day(2025, 4, 1), EndDate: day(2025, 4, 11)}
	stories := []domain.Story{
		{ID: "1", Sprint: "Sprint 1", Status: domain.StatusDone, StoryPoints: intPtr(5)},
		{ID: "2", Sprint: "Sprint 1", Status: domain.StatusToDo, StoryPoints: intPtr(3)},
	}

	tests := []struct {
		name      string
		now       time.Time
		elapsed   int
		remaining int
		progress  float64
	}{
		{"before start", time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC), 0, 10, 0},
		{"midway", time.Date(2025, 4, 5, 12, 0, 0, 0, time.UTC), 4, 6, 40},
		{"after end", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), 10, 0, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sa := metrics.CalculateSprintAnalytics(sprint, stories, tt.now)
			require.NotNil(t, sa.DaysElapsed)
			require.NotNil(t, sa.DaysRemaining)
			require.NotNil(t, sa.SprintProgress)
			assert.Equal(t, tt.elapsed, *sa.DaysElapsed)
			assert.Equal(t, tt.remaining, *sa.DaysRemaining)
			assert.InDelta(t, tt.progress, *sa.SprintProgress, 0.001)
		})
	}

	sa := metrics.CalculateSprintAnalytics(sprint, stories, time.Now())
	assert.Equal(t, 5, sa.Velocity)
	assert.Equal(t, 8, sa.TotalStoryPoints)
	assert.InDelta(t, 50.0, sa.CompletionRate, 0.001)
	assert.Equal(t, "2025-04-01", sa.StartDate)

	undated := metrics.CalculateSprintAnalytics(domain.Sprint{Name: "Backlog"}, nil, time.Now())
	assert.Nil(t, undated.DaysRemaining)
	assert.Zero(t, undated.CompletionRate)
}

func TestCalculateStoryAnalytics(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-48 * time.Hour)
	old := now.Add(-20 * 24 * time.Hour)
	stories := []domain.Story{
		{ID: "1", Sprint: "S", Value: intPtr(6), Effort: intPtr(3), CreatedAt: &recent},
		{ID: "2", Value: intPtr(2), CreatedAt: &old},
		{ID: "3"},
	}

	sa := metrics.CalculateStoryAnalytics(stories, now)
	assert.Equal(t, 3, sa.TotalStories)
	assert.Equal(t, 2, sa.UnassignedStories)
	assert.Equal(t, 2, sa.StoriesWithValue)
	assert.Equal(t, 1, sa.StoriesWithEffort)
	assert.InDelta(t, 4.0, sa.AverageValue, 0.001)
	assert.InDelta(t, 3.0, sa.AverageEffort, 0.001)
	assert.InDelta(t, 2.67, sa.ValueEffortRatio, 0.001)
	assert.Equal(t, 1, sa.RecentStories)
}

func TestCalculateOverallAnalytics(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	created := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	finished := time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC)

	sprints := []domain.Sprint{
		{ID: "2", Name: "Sprint 2", StartDate: day(2025, 6, 2), EndDate: day(2025, 6, 15)},
		{ID: "1", Name: "Sprint 1", StartDate: day(2025, 5, 19), EndDate: day(2025, 6, 1)},
		{ID: "0", Name: "Someday"},
	}
	stories := []domain.Story{
		{ID: "a", Sprint: "Sprint 1", Status: domain.StatusDone, StoryPoints: intPtr(8), CreatedAt: &created, UpdatedAt: &finished},
		{ID: "b", Sprint: "Sprint 1", Status: domain.StatusDone, StoryPoints: intPtr(5), CreatedAt: &created},
		{ID: "c", Sprint: "Sprint 2", Status: domain.StatusInProgress, StoryPoints: intPtr(3), CreatedAt: &created},
		{ID: "d", Status: domain.StatusToDo, Priority: domain.PriorityHigh},
	}

	oa := metrics.CalculateOverallAnalytics(sprints, stories, now)

	assert.Equal(t, 3, oa.TotalSprints)
	assert.Equal(t, 1, oa.ActiveSprints)
	assert.Equal(t, 1, oa.CompletedSprints)
	assert.InDelta(t, 13.0, oa.AverageSprintVelocity, 0.001)
	assert.InDelta(t, 50.0, oa.OverallCompletionRate, 0.001)
	assert.Equal(t, 1, oa.SprintReadyStories)
	require.Len(t, oa.Sprints, 3)
	assert.Equal(t, "Sprint 2", oa.Sprints[0].SprintName)
	assert.Equal(t, 3, oa.Sprints[0].TotalStoryPoints)

	require.Len(t, oa.Trends.Velocity, 2)
	assert.Equal(t, "Sprint 1", oa.Trends.Velocity[0].SprintName)
	assert.Equal(t, 13, oa.Trends.Velocity[0].Velocity)
	assert.Equal(t, "Sprint 2", oa.Trends.Velocity[1].SprintName)

	require.Len(t, oa.Trends.StoryCreation, 1)
	assert.Equal(t, metrics.CountPoint{Date: "2025-06-01", Count: 3}, oa.Trends.StoryCreation[0])

	assert.Equal(t, []metrics.CompletionPoint{
		{Date: "2025-06-01", Total: 2, Completed: 1},
		{Date: "2025-06-03", Total: 1, Completed: 1},
	}, oa.Trends.Completion)
}
