package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"sprint-metrics/metrics"
)

// ExportToJSON saves any report value to a JSON file
func ExportToJSON(v any, filename string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// ExportToCSV saves the overall analytics to a CSV file
func ExportToCSV(overall metrics.OverallAnalytics, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteCSV(file, overall)
}

// WriteCSV writes the overall analytics as category/name/value rows
func WriteCSV(w io.Writer, overall metrics.OverallAnalytics) error {
	writer := csv.NewWriter(w)

	rows := [][]string{
		{"Metric Category", "Metric Name", "Value"},

		{"Sprints", "Total Sprints", strconv.Itoa(overall.TotalSprints)},
		{"Sprints", "Active Sprints", strconv.Itoa(overall.ActiveSprints)},
		{"Sprints", "Completed Sprints", strconv.Itoa(overall.CompletedSprints)},
		{"Sprints", "Average Velocity", fmt.Sprintf("%.2f", overall.AverageSprintVelocity)},

		{"Stories", "Total Stories", strconv.Itoa(overall.TotalStories)},
		{"Stories", "Completed Stories", strconv.Itoa(overall.CompletedStories)},
		{"Stories", "In Progress Stories", strconv.Itoa(overall.InProgressStories)},
		{"Stories", "MVP Stories", strconv.Itoa(overall.MVPStories)},
		{"Stories", "Sprint Ready Stories", strconv.Itoa(overall.SprintReadyStories)},
		{"Stories", "Total Story Points", strconv.Itoa(overall.TotalStoryPoints)},
		{"Stories", "Completed Story Points", strconv.Itoa(overall.CompletedStoryPoints)},
		{"Stories", "Completion Rate (%)", fmt.Sprintf("%.2f", overall.OverallCompletionRate)},
		{"Stories", "Value/Effort Ratio", fmt.Sprintf("%.2f", overall.Stories.ValueEffortRatio)},
	}
	for _, b := range overall.Stories.StoriesByStatus {
		rows = append(rows, []string{"Status", b.Key, strconv.Itoa(b.Count)})
	}
	for _, b := range overall.Stories.StoriesByPriority {
		rows = append(rows, []string{"Priority", b.Key, strconv.Itoa(b.Count)})
	}
	for _, sa := range overall.Sprints {
		rows = append(rows,
			[]string{"Sprint " + sa.SprintName, "Velocity", strconv.Itoa(sa.Velocity)},
			[]string{"Sprint " + sa.SprintName, "Completion Rate (%)", fmt.Sprintf("%.2f", sa.CompletionRate)},
		)
	}

	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

// ExportBurndownCSV saves a burndown series to a CSV file
func ExportBurndownCSV(points []metrics.BurndownPoint, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	rows := [][]string{{"Day", "Date", "Ideal", "Actual"}}
	for _, p := range points {
		rows = append(rows, []string{
			strconv.Itoa(p.Day),
			p.Date,
			strconv.FormatFloat(p.Ideal, 'f', -1, 64),
			strconv.FormatFloat(p.Actual, 'f', -1, 64),
		})
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("writing burndown csv: %w", err)
	}
	return nil
}

// PrintSummary displays a formatted summary of the overall analytics
func PrintSummary(w io.Writer, overall metrics.OverallAnalytics) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 60))
	fmt.Fprintln(w, "SPRINT ANALYTICS REPORT")
	fmt.Fprintln(w, strings.Repeat("=", 60))

	fmt.Fprintln(w, "\n🏃 SPRINTS")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Total Sprints: %d (Active: %d, Completed: %d)\n",
		overall.TotalSprints, overall.ActiveSprints, overall.CompletedSprints)
	fmt.Fprintf(w, "Average Velocity: %.2f points\n", overall.AverageSprintVelocity)
	for _, sa := range overall.Sprints {
		line := fmt.Sprintf("  - %s: %d/%d stories done, velocity %d",
			sa.SprintName, sa.CompletedStories, sa.TotalStories, sa.Velocity)
		if sa.DaysRemaining != nil {
			line += fmt.Sprintf(", %d days left", *sa.DaysRemaining)
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintln(w, "\n📋 STORIES")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Total Stories: %d (Completed: %d, In Progress: %d, To Do: %d)\n",
		overall.TotalStories, overall.CompletedStories, overall.InProgressStories, overall.TodoStories)
	fmt.Fprintf(w, "Story Points: %d (Completed: %d)\n", overall.TotalStoryPoints, overall.CompletedStoryPoints)
	fmt.Fprintf(w, "Completion Rate: %.2f%%\n", overall.OverallCompletionRate)
	fmt.Fprintf(w, "MVP Stories: %d | Sprint Ready: %d\n", overall.MVPStories, overall.SprintReadyStories)
	fmt.Fprintf(w, "Value/Effort Ratio: %.2f\n", overall.Stories.ValueEffortRatio)

	fmt.Fprintln(w, "\nStories by Status:")
	for _, b := range overall.Stories.StoriesByStatus {
		fmt.Fprintf(w, "  - %s: %d\n", b.Key, b.Count)
	}
	fmt.Fprintln(w, "\nStories by Assignee:")
	for _, b := range overall.Stories.StoriesByAssignee {
		fmt.Fprintf(w, "  - %s: %d\n", b.Key, b.Count)
	}

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 60))
}

// PrintReadiness displays a sprint readiness result
func PrintReadiness(w io.Writer, r metrics.Readiness) {
	name := r.Sprint
	if name == "" {
		name = "(unnamed sprint)"
	}
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 60))
	fmt.Fprintf(w, "SPRINT READINESS: %s\n", name)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Status: %s | Score: %d/100\n", r.Status, r.Score)
	fmt.Fprintf(w, "Stories: %d | Story Points: %d\n", r.TotalStories, r.TotalPoints)

	if len(r.Issues) == 0 {
		fmt.Fprintln(w, "\n✅ No issues found")
		return
	}
	fmt.Fprintln(w, "\nIssues:")
	for _, issue := range r.Issues {
		fmt.Fprintf(w, "  %s [%s] %s\n", issueIcon(issue.Type), issue.Priority, issue.Message)
	}
}

// PrintBurndown displays a burndown series as a table
func PrintBurndown(w io.Writer, sprint string, points []metrics.BurndownPoint) {
	fmt.Fprintf(w, "\n📉 BURNDOWN: %s\n", sprint)
	fmt.Fprintln(w, strings.Repeat("-", 60))
	if len(points) == 0 {
		fmt.Fprintln(w, "No burndown data (missing sprint dates or stories)")
		return
	}
	fmt.Fprintf(w, "%-8s %10s %10s\n", "Day", "Ideal", "Actual")
	for _, p := range points {
		fmt.Fprintf(w, "%-8s %10.2f %10.2f\n", p.Label, p.Ideal, p.Actual)
	}
}

func issueIcon(t metrics.IssueType) string {
	switch t {
	case metrics.IssueError:
		return "❌"
	case metrics.IssueWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}
