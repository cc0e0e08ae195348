package metrics_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprint-metrics/domain"
	"sprint-metrics/metrics"
)

func TestCalculateStoryMetrics(t *testing.T) {
	stories := []domain.Story{
		{ID: "1", Status: domain.StatusDone, Priority: domain.PriorityHigh, StoryPoints: intPtr(5), Assignee: "ana", Sprint: "S1", Epic: "Auth", Value: intPtr(8), Effort: intPtr(2)},
		{ID: "2", Status: domain.StatusInProgress, Priority: domain.PriorityLow, StoryPoints: intPtr(3), Sprint: "S1", Value: intPtr(2), Effort: intPtr(2)},
		{ID: "3", Status: domain.StatusToDo, Priority: domain.PriorityCritical, Assignee: "ana"},
		{ID: "4", Status: domain.StatusToDo, Priority: domain.PriorityMedium, StoryPoints: intPtr(2), Assignee: "bo"},
		{ID: "5"},
	}

	m := metrics.CalculateStoryMetrics(stories)

	assert.Equal(t, 5, m.TotalStories)
	assert.Equal(t, 1, m.CompletedStories)
	assert.Equal(t, 1, m.InProgressStories)
	assert.Equal(t, 2, m.TodoStories)
	assert.Equal(t, 2, m.MVPStories)
	assert.Equal(t, 2, m.SprintReadyStories, "stories 3 and 4 have no sprint but a status and priority")
	assert.Equal(t, 10, m.TotalStoryPoints)
	assert.Equal(t, 5, m.CompletedStoryPoints)
	assert.InDelta(t, 2.0, m.AverageStoryPoints, 0.001)
	assert.InDelta(t, 2.5, m.ValueEffortRatio, 0.001)

	assert.Equal(t, []string{"Done", "In Progress", "To Do", "none"}, m.StoriesByStatus.Keys())
	assert.Equal(t, 2, m.StoriesByStatus.Get("To Do"))
	assert.Equal(t, []string{"ana", "unassigned", "bo"}, m.StoriesByAssignee.Keys())
	assert.Equal(t, 2, m.StoriesByAssignee.Get("unassigned"))
	assert.Equal(t, []string{"S1", "unassigned"}, m.StoriesBySprint.Keys())
	assert.Equal(t, []string{"Auth", "none"}, m.StoriesByEpic.Keys())
	assert.Equal(t, 5, m.StoriesByPriority.Total())
}

func TestCalculateStoryMetrics_Empty(t *testing.T) {
	m := metrics.CalculateStoryMetrics(nil)
	assert.Zero(t, m.TotalStories)
	assert.Zero(t, m.AverageStoryPoints)
	assert.Zero(t, m.ValueEffortRatio)
	assert.Empty(t, m.StoriesByStatus)

	raw, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"stories_by_status":[]`)
}

func TestCalculateStoryMetrics_ZeroEffort(t *testing.T) {
	m := metrics.CalculateStoryMetrics([]domain.Story{{ID: "1", Value: intPtr(13), Effort: intPtr(0)}})
	assert.Zero(t, m.ValueEffortRatio)
}

func TestCalculateTaskMetrics(t *testing.T) {
	h := func(f float64) *float64 { return &f }
	tasks := []domain.Task{
		{ID: "t1", Status: domain.StatusDone, AssigneeID: "ana", EstimatedHours: h(2.5), ActualHours: h(3)},
		{ID: "t2", Status: domain.StatusInProgress, Priority: domain.PriorityHigh, EstimatedHours: h(1.25)},
		{ID: "t3"},
	}

	m := metrics.CalculateTaskMetrics(tasks)
	assert.Equal(t, 3, m.TotalTasks)
	assert.Equal(t, 1, m.CompletedTasks)
	assert.Equal(t, 1, m.InProgressTasks)
	assert.InDelta(t, 3.75, m.TotalEstimatedHours, 0.001)
	assert.InDelta(t, 3.0, m.TotalActualHours, 0.001)
	assert.Equal(t, 2, m.TasksByAssignee.Get("unassigned"))
	assert.Equal(t, 2, m.TasksByPriority.Get("none"))

	b := metrics.Calculate(nil, nil)
	assert.Nil(t, b.Tasks)
	b = metrics.Calculate(nil, tasks)
	require.NotNil(t, b.Tasks)
	assert.Equal(t, 3, b.Tasks.TotalTasks)
}
