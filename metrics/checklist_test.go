package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sprint-metrics/domain"
	"sprint-metrics/metrics"
)

func TestCheckStory(t *testing.T) {
	yes, no := true, false

	ready := domain.Story{
		ID:          "1",
		Priority:    domain.PriorityHigh,
		StoryPoints: intPtr(3),
		Effort:      intPtr(2),
		HasTests:    &yes,
		HasBlockers: &no,
	}
	got := metrics.CheckStory(ready)
	assert.True(t, got.IsReady)
	assert.Equal(t, metrics.ChecklistReady, got.Status)
	assert.Empty(t, got.FailedChecks)
	assert.Len(t, got.Checks, 6)

	got = metrics.CheckStory(domain.Story{ID: "2", StoryPoints: intPtr(0)})
	assert.False(t, got.IsReady)
	assert.Equal(t, metrics.ChecklistIncomplete, got.Status)
	assert.Equal(t, []string{
		"Points must be entered",
		"Priority must be set",
		"Estimation must be entered",
		"Tests must be created",
		"Blockers must be resolved",
	}, got.FailedChecks)
}

func TestCheckStory_MVPTagIsOptional(t *testing.T) {
	yes, no := true, false
	s := domain.Story{
		ID:          "1",
		Priority:    domain.PriorityLow,
		StoryPoints: intPtr(1),
		Effort:      intPtr(1),
		HasTests:    &yes,
		HasBlockers: &no,
	}
	assert.True(t, metrics.CheckStory(s).IsReady)

	assert.True(t, metrics.CheckStory(s).Checks[5].Passed)
	assert.Equal(t, false, metrics.CheckStory(s).Checks[5].Value)

	s.Tags = []string{"mvp"}
	got := metrics.CheckStory(s)
	assert.True(t, got.IsReady)
	assert.True(t, got.Checks[5].Passed)
	assert.Equal(t, false, got.Checks[5].Value, "tag match is exact")

	s.Tags = []string{"MVP"}
	assert.Equal(t, true, metrics.CheckStory(s).Checks[5].Value)
}

func TestCheckStory_PointsCountAsEstimate(t *testing.T) {
	yes, no := true, false
	got := metrics.CheckStory(domain.Story{
		ID:          "1",
		Priority:    domain.PriorityHigh,
		StoryPoints: intPtr(5),
		HasTests:    &yes,
		HasBlockers: &no,
	})
	assert.True(t, got.IsReady)
	assert.Empty(t, got.FailedChecks)
	assert.Equal(t, "estimation", got.Checks[2].Name)
	assert.True(t, got.Checks[2].Passed)
}
