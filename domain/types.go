package domain

import (
	"strings"
	"time"
)

// types.go - Canonical records shared by every story source

// Status is the workflow state of a story or task
type Status string

const (
	StatusToDo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusInReview   Status = "In Review"
	StatusDone       Status = "Done"
	StatusBlocked    Status = "Blocked"
)

// Priority is the business priority of a story or task
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// ParseStatus maps free-form status text onto the canonical set.
// Unknown non-empty values are kept verbatim so they still show up in breakdowns.
func ParseStatus(s string) Status {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", " ", "-", " ").Replace(key)
	switch key {
	case "":
		return ""
	case "to do", "todo", "open", "backlog":
		return StatusToDo
	case "in progress", "inprogress", "doing":
		return StatusInProgress
	case "in review", "review", "inreview":
		return StatusInReview
	case "done", "completed", "complete", "closed", "resolved":
		return StatusDone
	case "blocked":
		return StatusBlocked
	}
	return Status(strings.TrimSpace(s))
}

// ParsePriority maps free-form priority text onto the canonical set
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ""
	case "low", "lowest", "minor", "trivial":
		return PriorityLow
	case "medium", "normal", "major":
		return PriorityMedium
	case "high", "highest":
		return PriorityHigh
	case "critical", "blocker", "urgent":
		return PriorityCritical
	}
	return Priority(strings.TrimSpace(s))
}

// Story represents a user story snapshot
type Story struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	Status             Status     `json:"status,omitempty"`
	Priority           Priority   `json:"priority,omitempty"`
	StoryPoints        *int       `json:"story_points,omitempty"`
	Assignee           string     `json:"assignee,omitempty"`
	Sprint             string     `json:"sprint,omitempty"`
	Epic               string     `json:"epic,omitempty"`
	AcceptanceCriteria string     `json:"acceptance_criteria,omitempty"`
	HasTests           *bool      `json:"has_tests,omitempty"`
	HasBlockers        *bool      `json:"has_blockers,omitempty"`
	Value              *int       `json:"value,omitempty"`
	Effort             *int       `json:"effort,omitempty"`
	Tags               []string   `json:"tags,omitempty"`
	CreatedAt          *time.Time `json:"created_at,omitempty"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
}

// Points returns the story points, treating a missing estimate as zero
func (s Story) Points() int {
	if s.StoryPoints == nil {
		return 0
	}
	return *s.StoryPoints
}

// IsEstimated reports whether the story carries a positive estimate
func (s Story) IsEstimated() bool {
	return s.StoryPoints != nil && *s.StoryPoints > 0
}

// IsDone reports whether the story is finished
func (s Story) IsDone() bool {
	return s.Status == StatusDone
}

// IsMVP reports whether the story is minimum-viable-product scope
func (s Story) IsMVP() bool {
	return s.Priority == PriorityCritical || s.Priority == PriorityHigh
}

// HasTag reports whether the story carries the tag, ignoring case
func (s Story) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// LastUpdated prefers UpdatedAt and falls back to CreatedAt
func (s Story) LastUpdated() *time.Time {
	if s.UpdatedAt != nil {
		return s.UpdatedAt
	}
	return s.CreatedAt
}

// Sprint represents a named, time-boxed iteration
type Sprint struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Goal        string     `json:"goal,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

// IsActive reports whether day falls within the sprint dates, inclusive
func (s Sprint) IsActive(day time.Time) bool {
	if s.StartDate == nil || s.EndDate == nil {
		return false
	}
	d := DateOnly(day)
	return !d.Before(DateOnly(*s.StartDate)) && !d.After(DateOnly(*s.EndDate))
}

// IsCompleted reports whether the sprint ended before day
func (s Sprint) IsCompleted(day time.Time) bool {
	if s.EndDate == nil {
		return false
	}
	return DateOnly(day).After(DateOnly(*s.EndDate))
}

// Task represents a unit of work, optionally linked to a story or sprint
type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         Status     `json:"status,omitempty"`
	Priority       Priority   `json:"priority,omitempty"`
	AssigneeID     string     `json:"assignee_id,omitempty"`
	StoryID        string     `json:"story_id,omitempty"`
	SprintID       string     `json:"sprint_id,omitempty"`
	ProjectID      string     `json:"project_id,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	EstimatedHours *float64   `json:"estimated_hours,omitempty"`
	ActualHours    *float64   `json:"actual_hours,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// FindSprint looks a sprint up by name. A miss returns nil rather than an error.
func FindSprint(sprints []Sprint, name string) *Sprint {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	for i := range sprints {
		if sprints[i].Name == name {
			return &sprints[i]
		}
	}
	return nil
}

// StoriesInSprint returns the stories that reference the sprint by name
func StoriesInSprint(stories []Story, name string) []Story {
	out := make([]Story, 0)
	for _, s := range stories {
		if s.Sprint != "" && s.Sprint == name {
			out = append(out, s)
		}
	}
	return out
}
