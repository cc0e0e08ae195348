package metrics

import (
	"slices"

	"sprint-metrics/domain"
)

// Story checklist statuses
const (
	ChecklistReady      = "Ready"
	ChecklistIncomplete = "Incomplete"
)

// MVPTag marks stories that belong to the minimum viable product
const MVPTag = "MVP"

// Check is one line of a story readiness checklist
type Check struct {
	Name     string `json:"name"`
	Value    any    `json:"value"`
	Required bool   `json:"required"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message,omitempty"`
}

// StoryChecklist reports whether a single story can be pulled into a sprint
type StoryChecklist struct {
	StoryID      string   `json:"story_id"`
	Title        string   `json:"title"`
	Status       string   `json:"status"`
	IsReady      bool     `json:"is_ready"`
	Checks       []Check  `json:"checks"`
	FailedChecks []string `json:"failed_checks"`
}

// CheckStory evaluates the definition-of-ready checklist for one story.
// Story points stand in for the estimate. Tests and blockers are optional
// inputs; an unknown value fails the check. The MVP tag is informational.
func CheckStory(s domain.Story) StoryChecklist {
	hasTests := s.HasTests != nil && *s.HasTests
	blocked := s.HasBlockers == nil || *s.HasBlockers

	checks := []Check{
		{Name: "points", Value: s.StoryPoints, Required: true, Passed: s.IsEstimated(), Message: "Points must be entered"},
		{Name: "priority", Value: s.Priority, Required: true, Passed: s.Priority != "", Message: "Priority must be set"},
		{Name: "estimation", Value: s.StoryPoints, Required: true, Passed: s.IsEstimated(), Message: "Estimation must be entered"},
		{Name: "tests", Value: s.HasTests, Required: true, Passed: hasTests, Message: "Tests must be created"},
		{Name: "blockers", Value: s.HasBlockers, Required: true, Passed: !blocked, Message: "Blockers must be resolved"},
		{Name: "mvp_tag", Value: slices.Contains(s.Tags, MVPTag), Required: false, Passed: true},
	}

	out := StoryChecklist{
		StoryID:      s.ID,
		Title:        s.Title,
		Checks:       checks,
		FailedChecks: []string{},
	}
	for i := range checks {
		if checks[i].Passed {
			checks[i].Message = ""
			continue
		}
		if checks[i].Required {
			out.FailedChecks = append(out.FailedChecks, checks[i].Message)
		}
	}

	out.IsReady = len(out.FailedChecks) == 0
	out.Status = ChecklistIncomplete
	if out.IsReady {
		out.Status = ChecklistReady
	}
	return out
}
