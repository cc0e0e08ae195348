package report_test

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"sprint-metrics/metrics"
	"sprint-metrics/report"
)

func sampleOverall() metrics.OverallAnalytics {
	return metrics.OverallAnalytics{
		TotalSprints:          2,
		ActiveSprints:         1,
		TotalStories:          4,
		CompletedStories:      1,
		OverallCompletionRate: 25,
		Sprints: []metrics.SprintAnalytics{
			{SprintName: "Sprint 1", Velocity: 8, CompletionRate: 50},
		},
		Stories: metrics.StoryAnalytics{StoryMetrics: metrics.StoryMetrics{
			StoriesByStatus: metrics.Partition{{Key: "Done", Count: 1}, {Key: "To Do", Count: 3}},
		}},
	}
}

func TestExportToCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, report.ExportToCSV(sampleOverall(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"Metric Category", "Metric Name", "Value"}, rows[0])
	assert.Contains(t, rows, []string{"Sprints", "Total Sprints", "2"})
	assert.Contains(t, rows, []string{"Stories", "Completion Rate (%)", "25.00"})
	assert.Contains(t, rows, []string{"Status", "To Do", "3"})
	assert.Contains(t, rows, []string{"Sprint Sprint 1", "Velocity", "8"})
}

func TestExportToJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, report.ExportToJSON(sampleOverall(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2), gjson.GetBytes(data, "total_sprints").Int())
	assert.Equal(t, "To Do", gjson.GetBytes(data, "stories.stories_by_status.1.key").String())
}

func TestExportBurndownCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "burndown.csv")
	points := []metrics.BurndownPoint{
		{Day: 0, Date: "2025-01-01", Label: "Jan 1", Ideal: 10, Actual: 10},
		{Day: 1, Date: "2025-01-02", Label: "Jan 2", Ideal: 0, Actual: 7.5},
	}
	require.NoError(t, report.ExportBurndownCSV(points, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Day,Date,Ideal,Actual\n0,2025-01-01,10,10\n1,2025-01-02,0,7.5\n", string(data))
}

func TestPrintReadiness(t *testing.T) {
	var buf bytes.Buffer
	report.PrintReadiness(&buf, metrics.Readiness{
		Sprint: "Sprint 7",
		Status: metrics.StatusAtRisk,
		Score:  60,
		Issues: []metrics.Issue{{Type: metrics.IssueError, Priority: metrics.PriorityHigh, Message: "Sprint has no story points assigned"}},
	})
	out := buf.String()
	assert.Contains(t, out, "SPRINT READINESS: Sprint 7")
	assert.Contains(t, out, "Status: At Risk | Score: 60/100")
	assert.Contains(t, out, "[high] Sprint has no story points assigned")
}

func TestPrintSummaryAndBurndown(t *testing.T) {
	var buf bytes.Buffer
	report.PrintSummary(&buf, sampleOverall())
	assert.Contains(t, buf.String(), "Total Sprints: 2 (Active: 1, Completed: 0)")
	assert.Contains(t, buf.String(), "  - To Do: 3")

	buf.Reset()
	report.PrintBurndown(&buf, "Sprint 1", nil)
	assert.Contains(t, buf.String(), "No burndown data")
}
