package metrics

import (
	"math"

	"sprint-metrics/domain"
)

// Keys used for records that lack the partitioned field
const (
	NoneKey       = "none"
	UnassignedKey = "unassigned"
)

// Bucket is one group of a partition
type Bucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Partition is a count breakdown that keeps keys in first-seen order
type Partition []Bucket

// Get returns the count stored under key, or zero
func (p Partition) Get(key string) int {
	for _, b := range p {
		if b.Key == key {
			return b.Count
		}
	}
	return 0
}

// Keys returns the partition keys in insertion order
func (p Partition) Keys() []string {
	keys := make([]string, 0, len(p))
	for _, b := range p {
		keys = append(keys, b.Key)
	}
	return keys
}

// Total sums every bucket
func (p Partition) Total() int {
	n := 0
	for _, b := range p {
		n += b.Count
	}
	return n
}

type partitioner struct {
	index   map[string]int
	buckets Partition
}

func newPartitioner() *partitioner {
	return &partitioner{index: make(map[string]int), buckets: Partition{}}
}

func (p *partitioner) add(key, missing string) {
	if key == "" {
		key = missing
	}
	if i, ok := p.index[key]; ok {
		p.buckets[i].Count++
		return
	}
	p.index[key] = len(p.buckets)
	p.buckets = append(p.buckets, Bucket{Key: key, Count: 1})
}

// StoryMetrics holds the scalar aggregates and breakdowns of a story set
type StoryMetrics struct {
	TotalStories         int       `json:"total_stories"`
	CompletedStories     int       `json:"completed_stories"`
	InProgressStories    int       `json:"in_progress_stories"`
	TodoStories          int       `json:"todo_stories"`
	MVPStories           int       `json:"mvp_stories"`
	SprintReadyStories   int       `json:"sprint_ready_stories"`
	TotalStoryPoints     int       `json:"total_story_points"`
	CompletedStoryPoints int       `json:"completed_story_points"`
	AverageStoryPoints   float64   `json:"average_story_points"`
	ValueEffortRatio     float64   `json:"value_effort_ratio"`
	StoriesByStatus      Partition `json:"stories_by_status"`
	StoriesByPriority    Partition `json:"stories_by_priority"`
	StoriesByAssignee    Partition `json:"stories_by_assignee"`
	StoriesBySprint      Partition `json:"stories_by_sprint"`
	StoriesByEpic        Partition `json:"stories_by_epic"`
}

// TaskMetrics holds the aggregates of a task set
type TaskMetrics struct {
	TotalTasks          int       `json:"total_tasks"`
	CompletedTasks      int       `json:"completed_tasks"`
	InProgressTasks     int       `json:"in_progress_tasks"`
	TotalEstimatedHours float64   `json:"total_estimated_hours"`
	TotalActualHours    float64   `json:"total_actual_hours"`
	TasksByStatus       Partition `json:"tasks_by_status"`
	TasksByPriority     Partition `json:"tasks_by_priority"`
	TasksByAssignee     Partition `json:"tasks_by_assignee"`
}

// Bundle pairs story metrics with optional task metrics
type Bundle struct {
	Stories StoryMetrics `json:"stories"`
	Tasks   *TaskMetrics `json:"tasks,omitempty"`
}

// Calculate reduces a story snapshot and, when tasks is non-nil, a task snapshot
func Calculate(stories []domain.Story, tasks []domain.Task) Bundle {
	b := Bundle{Stories: CalculateStoryMetrics(stories)}
	if tasks != nil {
		tm := CalculateTaskMetrics(tasks)
		b.Tasks = &tm
	}
	return b
}

// CalculateStoryMetrics computes counts and breakdowns from stories
func CalculateStoryMetrics(stories []domain.Story) StoryMetrics {
	byStatus := newPartitioner()
	byPriority := newPartitioner()
	byAssignee := newPartitioner()
	bySprint := newPartitioner()
	byEpic := newPartitioner()

	metrics := StoryMetrics{TotalStories: len(stories)}
	var valueSum, effortSum int

	for _, s := range stories {
		byStatus.add(string(s.Status), NoneKey)
		byPriority.add(string(s.Priority), NoneKey)
		byAssignee.add(s.Assignee, UnassignedKey)
		bySprint.add(s.Sprint, UnassignedKey)
		byEpic.add(s.Epic, NoneKey)

		switch s.Status {
		case domain.StatusDone:
			metrics.CompletedStories++
			metrics.CompletedStoryPoints += s.Points()
		case domain.StatusInProgress:
			metrics.InProgressStories++
		case domain.StatusToDo:
			metrics.TodoStories++
		}

		if s.IsMVP() {
			metrics.MVPStories++
		}
		if isSprintReady(s) {
			metrics.SprintReadyStories++
		}

		metrics.TotalStoryPoints += s.Points()
		if s.Value != nil {
			valueSum += *s.Value
		}
		if s.Effort != nil {
			effortSum += *s.Effort
		}
	}

	if metrics.TotalStories > 0 {
		metrics.AverageStoryPoints = round2(float64(metrics.TotalStoryPoints) / float64(metrics.TotalStories))
	}
	if effortSum > 0 {
		metrics.ValueEffortRatio = round2(float64(valueSum) / float64(effortSum))
	}

	metrics.StoriesByStatus = byStatus.buckets
	metrics.StoriesByPriority = byPriority.buckets
	metrics.StoriesByAssignee = byAssignee.buckets
	metrics.StoriesBySprint = bySprint.buckets
	metrics.StoriesByEpic = byEpic.buckets
	return metrics
}

// CalculateTaskMetrics computes counts and hour totals from tasks
func CalculateTaskMetrics(tasks []domain.Task) TaskMetrics {
	byStatus := newPartitioner()
	byPriority := newPartitioner()
	byAssignee := newPartitioner()

	metrics := TaskMetrics{TotalTasks: len(tasks)}
	for _, t := range tasks {
		byStatus.add(string(t.Status), NoneKey)
		byPriority.add(string(t.Priority), NoneKey)
		byAssignee.add(t.AssigneeID, UnassignedKey)

		switch t.Status {
		case domain.StatusDone:
			metrics.CompletedTasks++
		case domain.StatusInProgress:
			metrics.InProgressTasks++
		}
		if t.EstimatedHours != nil {
			metrics.TotalEstimatedHours += *t.EstimatedHours
		}
		if t.ActualHours != nil {
			metrics.TotalActualHours += *t.ActualHours
		}
	}
	metrics.TotalEstimatedHours = round2(metrics.TotalEstimatedHours)
	metrics.TotalActualHours = round2(metrics.TotalActualHours)

	metrics.TasksByStatus = byStatus.buckets
	metrics.TasksByPriority = byPriority.buckets
	metrics.TasksByAssignee = byAssignee.buckets
	return metrics
}

// isSprintReady matches stories outside any sprint that could be pulled into one
func isSprintReady(s domain.Story) bool {
	return s.Sprint == "" && s.Priority != "" && s.Status != "" && !s.IsDone()
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round2(float64(part) / float64(whole) * 100)
}
