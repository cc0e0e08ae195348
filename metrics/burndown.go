package metrics

import (
	"math"
	"time"

	"sprint-metrics/domain"
)

// BurndownPoint is one day of a burndown series
type BurndownPoint struct {
	Day    int     `json:"day"`
	Date   string  `json:"date"`
	Label  string  `json:"label"`
	Ideal  float64 `json:"ideal"`
	Actual float64 `json:"actual"`
}

// BuildSprintBurndown builds the burndown of a sprint from its stories
func BuildSprintBurndown(sprint *domain.Sprint, stories []domain.Story) []BurndownPoint {
	if sprint == nil {
		return []BurndownPoint{}
	}
	return BuildBurndown(sprint.StartDate, sprint.EndDate, stories)
}

// BuildBurndown returns one point per calendar day from start to end inclusive.
// Remaining work drops on the day a Done story was last updated. The series is
// empty when either date is missing, end precedes start, or there are no stories.
func BuildBurndown(start, end *time.Time, stories []domain.Story) []BurndownPoint {
	points := []BurndownPoint{}
	if start == nil || end == nil || start.IsZero() || end.IsZero() || len(stories) == 0 {
		return points
	}

	first := domain.DateOnly(*start)
	last := domain.DateOnly(*end)
	totalDays := int(math.Ceil(last.Sub(first).Hours() / 24))
	if totalDays < 0 {
		return points
	}

	total := 0
	for _, s := range stories {
		total += s.Points()
	}

	for i := 0; i <= totalDays; i++ {
		day := first.AddDate(0, 0, i)

		ideal := 0.0
		if totalDays > 0 {
			ideal = float64(total) * (1 - float64(i)/float64(totalDays))
		}

		burned := 0
		for _, s := range stories {
			if !s.IsDone() {
				continue
			}
			updated := s.LastUpdated()
			if updated == nil {
				continue
			}
			if !domain.DateOnly(*updated).After(day) {
				burned += s.Points()
			}
		}

		points = append(points, BurndownPoint{
			Day:    i,
			Date:   domain.FormatDate(day),
			Label:  day.Format("Jan 2"),
			Ideal:  math.Max(0, round2(ideal)),
			Actual: math.Max(0, float64(total-burned)),
		})
	}
	return points
}
