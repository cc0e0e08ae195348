package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"sprint-metrics/domain"
)

// Score bounds
const (
	MaxScore = 100
	MinScore = 0
)

// ReadinessStatus labels a readiness score
type ReadinessStatus string

const (
	StatusReady       ReadinessStatus = "Ready"
	StatusAlmostReady ReadinessStatus = "Almost Ready"
	StatusAtRisk      ReadinessStatus = "At Risk"
	StatusNotReady    ReadinessStatus = "Not Ready"
)

// IssueType is the display category of a readiness issue
type IssueType string

const (
	IssueError   IssueType = "error"
	IssueWarning IssueType = "warning"
	IssueInfo    IssueType = "info"
)

// IssuePriority orders readiness issues
type IssuePriority string

const (
	PriorityHigh   IssuePriority = "high"
	PriorityMedium IssuePriority = "medium"
	PriorityLow    IssuePriority = "low"
)

func (p IssuePriority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Issue is one finding raised while scoring a sprint
type Issue struct {
	Type     IssueType     `json:"type"`
	Message  string        `json:"message"`
	Count    int           `json:"count,omitempty"`
	Priority IssuePriority `json:"priority"`
}

// Readiness is the result of scoring a sprint's story set
type Readiness struct {
	Sprint       string          `json:"sprint,omitempty"`
	Status       ReadinessStatus `json:"status"`
	Score        int             `json:"score"`
	TotalStories int             `json:"total_stories"`
	TotalPoints  int             `json:"total_points"`
	Issues       []Issue         `json:"issues"`
}

// ScoreReadiness scores stories with the default policy
func ScoreReadiness(sprint *domain.Sprint, stories []domain.Story) Readiness {
	return DefaultPolicy().Score(sprint, stories)
}

// Score evaluates whether a sprint's stories are ready to start. The sprint
// only labels the result; a nil sprint with stories is scored normally.
func (p Policy) Score(sprint *domain.Sprint, stories []domain.Story) Readiness {
	result := Readiness{Issues: []Issue{}}
	if sprint != nil {
		result.Sprint = sprint.Name
	}

	if len(stories) == 0 {
		result.Status = StatusNotReady
		result.Score = 0
		result.Issues = append(result.Issues, Issue{
			Type:     IssueWarning,
			Message:  "No stories assigned to this sprint",
			Priority: PriorityHigh,
		})
		return result
	}

	score := MaxScore
	var missingPoints, unassigned, missingCriteria, urgentTodo, done int
	for _, s := range stories {
		result.TotalPoints += s.Points()
		if !s.IsEstimated() {
			missingPoints++
		}
		if s.Assignee == "" {
			unassigned++
		}
		if strings.TrimSpace(s.AcceptanceCriteria) == "" {
			missingCriteria++
		}
		if s.IsMVP() && s.Status == domain.StatusToDo {
			urgentTodo++
		}
		if s.IsDone() {
			done++
		}
	}
	result.TotalStories = len(stories)

	if missingPoints > 0 {
		score -= missingPoints * p.MissingPointsPenalty
		result.Issues = append(result.Issues, Issue{
			Type:     IssueWarning,
			Message:  fmt.Sprintf("%d %s missing story points", missingPoints, storyWord(missingPoints)),
			Count:    missingPoints,
			Priority: PriorityMedium,
		})
	}
	if unassigned > 0 {
		score -= unassigned * p.UnassignedPenalty
		result.Issues = append(result.Issues, Issue{
			Type:     IssueWarning,
			Message:  fmt.Sprintf("%d %s not assigned", unassigned, storyWord(unassigned)),
			Count:    unassigned,
			Priority: PriorityMedium,
		})
	}
	if missingCriteria > 0 {
		score -= missingCriteria * p.MissingCriteriaPenalty
		result.Issues = append(result.Issues, Issue{
			Type:     IssueInfo,
			Message:  fmt.Sprintf("%d %s missing acceptance criteria", missingCriteria, storyWord(missingCriteria)),
			Count:    missingCriteria,
			Priority: PriorityLow,
		})
	}
	if urgentTodo > 0 {
		score -= urgentTodo * p.HighPriorityTodoPenalty
		result.Issues = append(result.Issues, Issue{
			Type:     IssueError,
			Message:  fmt.Sprintf("%d high/critical priority %s still in %q", urgentTodo, storyWord(urgentTodo), domain.StatusToDo),
			Count:    urgentTodo,
			Priority: PriorityHigh,
		})
	}

	switch {
	case result.TotalPoints == 0:
		score -= p.NoPointsPenalty
		result.Issues = append(result.Issues, Issue{
			Type:     IssueError,
			Message:  "Sprint has no story points assigned",
			Priority: PriorityHigh,
		})
	case result.TotalPoints < p.LowPointsThreshold:
		score -= p.LowPointsPenalty
		result.Issues = append(result.Issues, Issue{
			Type:     IssueWarning,
			Message:  fmt.Sprintf("Low story points total (%d). Consider adding more stories.", result.TotalPoints),
			Priority: PriorityLow,
		})
	case result.TotalPoints > p.HighPointsThreshold:
		score -= p.HighPointsPenalty
		result.Issues = append(result.Issues, Issue{
			Type:     IssueWarning,
			Message:  fmt.Sprintf("High story points total (%d). Sprint may be overloaded.", result.TotalPoints),
			Priority: PriorityMedium,
		})
	}

	// informational only, never touches the score
	donePct := float64(done) / float64(len(stories)) * 100
	if donePct > p.DoneNoticeAbove && donePct < 100 {
		result.Issues = append(result.Issues, Issue{
			Type:     IssueInfo,
			Message:  fmt.Sprintf("%.0f%% of stories already completed", math.Round(donePct)),
			Count:    done,
			Priority: PriorityLow,
		})
	}

	result.Score = clampScore(score)
	result.Status = p.StatusFor(result.Score)

	sort.SliceStable(result.Issues, func(i, j int) bool {
		return result.Issues[i].Priority.rank() < result.Issues[j].Priority.rank()
	})
	return result
}

func clampScore(score int) int {
	if score > MaxScore {
		return MaxScore
	}
	if score < MinScore {
		return MinScore
	}
	return score
}

func storyWord(n int) string {
	if n == 1 {
		return "story"
	}
	return "stories"
}
