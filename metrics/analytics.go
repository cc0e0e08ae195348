package metrics

import (
	"math"
	"sort"
	"time"

	"sprint-metrics/domain"
)

// Windows used by the trend and recent-activity figures
const (
	RecentWindow = 7 * 24 * time.Hour
	TrendWindow  = 30 * 24 * time.Hour
)

// SprintAnalytics summarises one sprint
type SprintAnalytics struct {
	SprintID             string          `json:"sprint_id"`
	SprintName           string          `json:"sprint_name"`
	StartDate            string          `json:"start_date,omitempty"`
	EndDate              string          `json:"end_date,omitempty"`
	TotalStories         int             `json:"total_stories"`
	CompletedStories     int             `json:"completed_stories"`
	InProgressStories    int             `json:"in_progress_stories"`
	TodoStories          int             `json:"todo_stories"`
	TotalStoryPoints     int             `json:"total_story_points"`
	CompletedStoryPoints int             `json:"completed_story_points"`
	CompletionRate       float64         `json:"completion_rate"`
	Velocity             int             `json:"velocity"`
	AverageStoryPoints   float64         `json:"average_story_points"`
	MVPStories           int             `json:"mvp_stories"`
	ValueEffortRatio     float64         `json:"value_effort_ratio"`
	DaysElapsed          *int            `json:"days_elapsed,omitempty"`
	DaysRemaining        *int            `json:"days_remaining,omitempty"`
	SprintProgress       *float64        `json:"sprint_progress,omitempty"`
	StoriesByStatus      Partition       `json:"stories_by_status"`
	StoriesByPriority    Partition       `json:"stories_by_priority"`
	StoriesByAssignee    Partition       `json:"stories_by_assignee"`
	Burndown             []BurndownPoint `json:"burndown"`
}

// StoryAnalytics summarises a story backlog
type StoryAnalytics struct {
	StoryMetrics
	UnassignedStories int     `json:"unassigned_stories"`
	StoriesWithValue  int     `json:"stories_with_value"`
	StoriesWithEffort int     `json:"stories_with_effort"`
	AverageValue      float64 `json:"average_value"`
	AverageEffort     float64 `json:"average_effort"`
	RecentStories     int     `json:"recent_stories"`
}

// VelocityPoint is the velocity of one dated sprint
type VelocityPoint struct {
	SprintName string `json:"sprint_name"`
	Velocity   int    `json:"velocity"`
	Date       string `json:"date"`
}

// CountPoint is a per-day count
type CountPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// CompletionPoint is the per-day completion of recently created stories
type CompletionPoint struct {
	Date      string `json:"date"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
}

// Trends groups the time series of the overall dashboard
type Trends struct {
	Velocity      []VelocityPoint   `json:"velocity"`
	StoryCreation []CountPoint      `json:"story_creation"`
	Completion    []CompletionPoint `json:"completion"`
}

// OverallAnalytics is the dashboard roll-up across every sprint and story
type OverallAnalytics struct {
	TotalSprints          int               `json:"total_sprints"`
	ActiveSprints         int               `json:"active_sprints"`
	CompletedSprints      int               `json:"completed_sprints"`
	TotalStories          int               `json:"total_stories"`
	CompletedStories      int               `json:"completed_stories"`
	InProgressStories     int               `json:"in_progress_stories"`
	TodoStories           int               `json:"todo_stories"`
	MVPStories            int               `json:"mvp_stories"`
	SprintReadyStories    int               `json:"sprint_ready_stories"`
	TotalStoryPoints      int               `json:"total_story_points"`
	CompletedStoryPoints  int               `json:"completed_story_points"`
	OverallCompletionRate float64           `json:"overall_completion_rate"`
	AverageSprintVelocity float64           `json:"average_sprint_velocity"`
	Sprints               []SprintAnalytics `json:"sprints"`
	Stories               StoryAnalytics    `json:"stories"`
	Trends                Trends            `json:"trends"`
}

// CalculateSprintAnalytics summarises a sprint. stories must already be the
// sprint's own stories; now anchors the elapsed and remaining day counts.
func CalculateSprintAnalytics(sprint domain.Sprint, stories []domain.Story, now time.Time) SprintAnalytics {
	m := CalculateStoryMetrics(stories)
	sa := SprintAnalytics{
		SprintID:             sprint.ID,
		SprintName:           sprint.Name,
		TotalStories:         m.TotalStories,
		CompletedStories:     m.CompletedStories,
		InProgressStories:    m.InProgressStories,
		TodoStories:          m.TodoStories,
		TotalStoryPoints:     m.TotalStoryPoints,
		CompletedStoryPoints: m.CompletedStoryPoints,
		CompletionRate:       percent(m.CompletedStories, m.TotalStories),
		Velocity:             m.CompletedStoryPoints,
		AverageStoryPoints:   m.AverageStoryPoints,
		MVPStories:           m.MVPStories,
		ValueEffortRatio:     m.ValueEffortRatio,
		StoriesByStatus:      m.StoriesByStatus,
		StoriesByPriority:    m.StoriesByPriority,
		StoriesByAssignee:    m.StoriesByAssignee,
		Burndown:             BuildSprintBurndown(&sprint, stories),
	}
	if sprint.StartDate != nil {
		sa.StartDate = domain.FormatDate(*sprint.StartDate)
	}
	if sprint.EndDate != nil {
		sa.EndDate = domain.FormatDate(*sprint.EndDate)
	}

	if sprint.StartDate != nil && sprint.EndDate != nil {
		start := domain.DateOnly(*sprint.StartDate)
		end := domain.DateOnly(*sprint.EndDate)
		today := domain.DateOnly(now)
		total := daysBetween(start, end)

		var elapsed, remaining int
		var progress float64
		switch {
		case today.Before(start):
			elapsed, remaining, progress = 0, total, 0
		case today.After(end):
			elapsed, remaining, progress = total, 0, 100
		default:
			elapsed = daysBetween(start, today)
			remaining = daysBetween(today, end)
			progress = 100
			if total > 0 {
				progress = round2(float64(elapsed) / float64(total) * 100)
			}
		}
		sa.DaysElapsed = &elapsed
		sa.DaysRemaining = &remaining
		sa.SprintProgress = &progress
	}
	return sa
}

// CalculateStoryAnalytics summarises a backlog relative to now
func CalculateStoryAnalytics(stories []domain.Story, now time.Time) StoryAnalytics {
	sa := StoryAnalytics{StoryMetrics: CalculateStoryMetrics(stories)}
	var valueSum, effortSum int
	for _, s := range stories {
		if s.Sprint == "" {
			sa.UnassignedStories++
		}
		if s.Value != nil {
			sa.StoriesWithValue++
			valueSum += *s.Value
		}
		if s.Effort != nil {
			sa.StoriesWithEffort++
			effortSum += *s.Effort
		}
		if s.CreatedAt != nil && within(*s.CreatedAt, now, RecentWindow) {
			sa.RecentStories++
		}
	}
	if sa.StoriesWithValue > 0 {
		sa.AverageValue = round2(float64(valueSum) / float64(sa.StoriesWithValue))
	}
	if sa.StoriesWithEffort > 0 {
		sa.AverageEffort = round2(float64(effortSum) / float64(sa.StoriesWithEffort))
	}
	return sa
}

// CalculateOverallAnalytics rolls every sprint and story into one dashboard view
func CalculateOverallAnalytics(sprints []domain.Sprint, stories []domain.Story, now time.Time) OverallAnalytics {
	m := CalculateStoryMetrics(stories)
	oa := OverallAnalytics{
		TotalSprints:          len(sprints),
		TotalStories:          m.TotalStories,
		CompletedStories:      m.CompletedStories,
		InProgressStories:     m.InProgressStories,
		TodoStories:           m.TodoStories,
		MVPStories:            m.MVPStories,
		SprintReadyStories:    m.SprintReadyStories,
		TotalStoryPoints:      m.TotalStoryPoints,
		CompletedStoryPoints:  m.CompletedStoryPoints,
		OverallCompletionRate: percent(m.CompletedStories, m.TotalStories),
		Sprints:               make([]SprintAnalytics, 0, len(sprints)),
		Stories:               CalculateStoryAnalytics(stories, now),
	}

	velocitySum := 0
	for _, sp := range sprints {
		sa := CalculateSprintAnalytics(sp, domain.StoriesInSprint(stories, sp.Name), now)
		oa.Sprints = append(oa.Sprints, sa)
		if sp.IsActive(now) {
			oa.ActiveSprints++
		}
		if sp.IsCompleted(now) {
			oa.CompletedSprints++
			velocitySum += sa.Velocity
		}
	}
	if oa.CompletedSprints > 0 {
		oa.AverageSprintVelocity = round2(float64(velocitySum) / float64(oa.CompletedSprints))
	}

	oa.Trends = CalculateTrends(sprints, stories, now)
	return oa
}

// CalculateTrends builds the velocity, creation and completion series
func CalculateTrends(sprints []domain.Sprint, stories []domain.Story, now time.Time) Trends {
	t := Trends{
		Velocity:      []VelocityPoint{},
		StoryCreation: []CountPoint{},
		Completion:    []CompletionPoint{},
	}

	for _, sp := range sprints {
		if sp.EndDate == nil {
			continue
		}
		velocity := 0
		for _, s := range domain.StoriesInSprint(stories, sp.Name) {
			if s.IsDone() {
				velocity += s.Points()
			}
		}
		t.Velocity = append(t.Velocity, VelocityPoint{
			SprintName: sp.Name,
			Velocity:   velocity,
			Date:       domain.FormatDate(*sp.EndDate),
		})
	}
	sort.SliceStable(t.Velocity, func(i, j int) bool { return t.Velocity[i].Date < t.Velocity[j].Date })

	created := map[string]int{}
	completion := map[string]*CompletionPoint{}
	for _, s := range stories {
		if s.CreatedAt == nil || !within(*s.CreatedAt, now, TrendWindow) {
			continue
		}
		created[domain.FormatDate(*s.CreatedAt)]++

		day := domain.FormatDate(*s.LastUpdated())
		cp, ok := completion[day]
		if !ok {
			cp = &CompletionPoint{Date: day}
			completion[day] = cp
		}
		cp.Total++
		if s.IsDone() {
			cp.Completed++
		}
	}
	for day, n := range created {
		t.StoryCreation = append(t.StoryCreation, CountPoint{Date: day, Count: n})
	}
	sort.Slice(t.StoryCreation, func(i, j int) bool { return t.StoryCreation[i].Date < t.StoryCreation[j].Date })
	for _, cp := range completion {
		t.Completion = append(t.Completion, *cp)
	}
	sort.Slice(t.Completion, func(i, j int) bool { return t.Completion[i].Date < t.Completion[j].Date })
	return t
}

func daysBetween(from, to time.Time) int {
	return int(math.Ceil(to.Sub(from).Hours() / 24))
}

// within reports whether t lies in the window ending at now
func within(t, now time.Time, window time.Duration) bool {
	return !t.After(now) && now.Sub(t) <= window
}
