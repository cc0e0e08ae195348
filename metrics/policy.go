package metrics

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy is the readiness rule table. Penalties are points deducted from a
// starting score of 100; thresholds are inclusive lower bounds.
type Policy struct {
	MissingPointsPenalty    int `yaml:"missing_points_penalty" json:"missing_points_penalty"`
	UnassignedPenalty       int `yaml:"unassigned_penalty" json:"unassigned_penalty"`
	MissingCriteriaPenalty  int `yaml:"missing_criteria_penalty" json:"missing_criteria_penalty"`
	HighPriorityTodoPenalty int `yaml:"high_priority_todo_penalty" json:"high_priority_todo_penalty"`
	NoPointsPenalty         int `yaml:"no_points_penalty" json:"no_points_penalty"`
	LowPointsPenalty        int `yaml:"low_points_penalty" json:"low_points_penalty"`
	HighPointsPenalty       int `yaml:"high_points_penalty" json:"high_points_penalty"`

	LowPointsThreshold  int `yaml:"low_points_threshold" json:"low_points_threshold"`
	HighPointsThreshold int `yaml:"high_points_threshold" json:"high_points_threshold"`

	AtRiskFrom      int `yaml:"at_risk_from" json:"at_risk_from"`
	AlmostReadyFrom int `yaml:"almost_ready_from" json:"almost_ready_from"`
	ReadyFrom       int `yaml:"ready_from" json:"ready_from"`

	// DoneNoticeAbove is the completed-stories percentage above which an
	// informational issue is raised. It never affects the score.
	DoneNoticeAbove float64 `yaml:"done_notice_above" json:"done_notice_above"`
}

// DefaultPolicy returns the stock readiness weights
func DefaultPolicy() Policy {
	return Policy{
		MissingPointsPenalty:    5,
		UnassignedPenalty:       3,
		MissingCriteriaPenalty:  2,
		HighPriorityTodoPenalty: 10,
		NoPointsPenalty:         20,
		LowPointsPenalty:        5,
		HighPointsPenalty:       10,
		LowPointsThreshold:      10,
		HighPointsThreshold:     50,
		AtRiskFrom:              60,
		AlmostReadyFrom:         80,
		ReadyFrom:               95,
		DoneNoticeAbove:         50,
	}
}

// LoadPolicy reads a YAML policy file. Omitted keys keep their default value.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("reading readiness policy: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parsing readiness policy %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("readiness policy %s: %w", path, err)
	}
	return p, nil
}

// Validate checks that penalties are non-negative and thresholds are ordered
func (p Policy) Validate() error {
	var errs []error
	penalties := map[string]int{
		"missing_points_penalty":     p.MissingPointsPenalty,
		"unassigned_penalty":         p.UnassignedPenalty,
		"missing_criteria_penalty":   p.MissingCriteriaPenalty,
		"high_priority_todo_penalty": p.HighPriorityTodoPenalty,
		"no_points_penalty":          p.NoPointsPenalty,
		"low_points_penalty":         p.LowPointsPenalty,
		"high_points_penalty":        p.HighPointsPenalty,
	}
	for _, name := range []string{
		"missing_points_penalty", "unassigned_penalty", "missing_criteria_penalty",
		"high_priority_todo_penalty", "no_points_penalty", "low_points_penalty", "high_points_penalty",
	} {
		if penalties[name] < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if p.LowPointsThreshold < 0 || p.LowPointsThreshold > p.HighPointsThreshold {
		errs = append(errs, errors.New("low_points_threshold must be between 0 and high_points_threshold"))
	}
	if !(0 <= p.AtRiskFrom && p.AtRiskFrom <= p.AlmostReadyFrom && p.AlmostReadyFrom <= p.ReadyFrom && p.ReadyFrom <= MaxScore) {
		errs = append(errs, errors.New("status thresholds must satisfy 0 <= at_risk_from <= almost_ready_from <= ready_from <= 100"))
	}
	if p.DoneNoticeAbove < 0 || p.DoneNoticeAbove > 100 {
		errs = append(errs, errors.New("done_notice_above must be a percentage"))
	}
	return errors.Join(errs...)
}

// StatusFor maps a clamped score onto a readiness label
func (p Policy) StatusFor(score int) ReadinessStatus {
	switch {
	case score < p.AtRiskFrom:
		return StatusNotReady
	case score < p.AlmostReadyFrom:
		return StatusAtRisk
	case score < p.ReadyFrom:
		return StatusAlmostReady
	default:
		return StatusReady
	}
}
