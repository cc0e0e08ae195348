package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// normalize.go - Ingestion boundary. Every source payload is turned into the
// canonical shape here, so consumers never look at raw field names.

// ErrInvalidPayload is returned when a payload is not a JSON collection
var ErrInvalidPayload = errors.New("invalid collection payload")

// Records unwraps a collection payload. Accepted shapes are a bare array,
// {"success": true, "data": [...]} and a paginated {"data": {"data": [...]}}.
func Records(raw []byte) ([]gjson.Result, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidPayload)
	}
	root := gjson.ParseBytes(raw)
	for depth := 0; depth < 3; depth++ {
		if root.IsArray() {
			return root.Array(), nil
		}
		if !root.IsObject() {
			break
		}
		if ok := root.Get("success"); ok.Exists() && ok.Type == gjson.False {
			msg := firstOf(root, "message", "error").String()
			return nil, fmt.Errorf("%w: source reported failure: %s", ErrInvalidPayload, msg)
		}
		data := root.Get("data")
		if !data.Exists() {
			break
		}
		if data.Type == gjson.Null {
			return nil, nil
		}
		root = data
	}
	return nil, fmt.Errorf("%w: expected an array or a {data} envelope", ErrInvalidPayload)
}

// NormalizeStories decodes a story collection payload
func NormalizeStories(raw []byte, log zerolog.Logger) ([]Story, error) {
	recs, err := Records(raw)
	if err != nil {
		return nil, err
	}
	out := make([]Story, 0, len(recs))
	for _, r := range recs {
		out = append(out, StoryFromJSON(r, log))
	}
	return out, nil
}

// NormalizeSprints decodes a sprint collection payload
func NormalizeSprints(raw []byte, log zerolog.Logger) ([]Sprint, error) {
	recs, err := Records(raw)
	if err != nil {
		return nil, err
	}
	out := make([]Sprint, 0, len(recs))
	for _, r := range recs {
		out = append(out, SprintFromJSON(r, log))
	}
	return out, nil
}

// NormalizeTasks decodes a task collection payload
func NormalizeTasks(raw []byte, log zerolog.Logger) ([]Task, error) {
	recs, err := Records(raw)
	if err != nil {
		return nil, err
	}
	out := make([]Task, 0, len(recs))
	for _, r := range recs {
		out = append(out, TaskFromJSON(r, log))
	}
	return out, nil
}

// StoryFromJSON builds a Story from one record, accepting camelCase and snake_case names
func StoryFromJSON(r gjson.Result, log zerolog.Logger) Story {
	d := decoder{log: log, kind: "story", id: firstOf(r, "id", "_id", "key").String()}
	return Story{
		ID:                 d.id,
		Title:              firstOf(r, "title", "summary", "name").String(),
		Description:        firstOf(r, "description").String(),
		Status:             ParseStatus(d.name(firstOf(r, "status"))),
		Priority:           ParsePriority(d.name(firstOf(r, "priority"))),
		StoryPoints:        d.count(firstOf(r, "storyPoints", "story_points", "points"), "story_points"),
		Assignee:           d.name(firstOf(r, "assignee", "assignedTo", "assigned_to")),
		Sprint:             d.name(firstOf(r, "sprint", "sprintName", "sprint_name")),
		Epic:               d.name(firstOf(r, "epic", "epicName", "epic_name")),
		AcceptanceCriteria: strings.TrimSpace(firstOf(r, "acceptanceCriteria", "acceptance_criteria").String()),
		HasTests:           d.flag(firstOf(r, "hasTests", "has_tests"), "has_tests"),
		HasBlockers:        d.flag(firstOf(r, "hasBlockers", "has_blockers"), "has_blockers"),
		Value:              d.count(firstOf(r, "value", "businessValue", "business_value"), "value"),
		Effort:             d.count(firstOf(r, "effort"), "effort"),
		Tags:               d.list(firstOf(r, "tags", "labels")),
		CreatedAt:          d.timestamp(firstOf(r, "createdAt", "created_at"), "created_at"),
		UpdatedAt:          d.timestamp(firstOf(r, "updatedAt", "updated_at"), "updated_at"),
	}
}

// SprintFromJSON builds a Sprint from one record
func SprintFromJSON(r gjson.Result, log zerolog.Logger) Sprint {
	d := decoder{log: log, kind: "sprint", id: firstOf(r, "id", "_id").String()}
	return Sprint{
		ID:          d.id,
		Name:        strings.TrimSpace(firstOf(r, "name", "sprintName", "sprint_name").String()),
		Description: firstOf(r, "description").String(),
		Goal:        firstOf(r, "goal").String(),
		StartDate:   d.date(firstOf(r, "startDate", "start_date"), "start_date"),
		EndDate:     d.date(firstOf(r, "endDate", "end_date"), "end_date"),
	}
}

// TaskFromJSON builds a Task from one record
func TaskFromJSON(r gjson.Result, log zerolog.Logger) Task {
	d := decoder{log: log, kind: "task", id: firstOf(r, "id", "_id").String()}
	return Task{
		ID:             d.id,
		Title:          firstOf(r, "title", "name").String(),
		Description:    firstOf(r, "description").String(),
		Status:         ParseStatus(d.name(firstOf(r, "status"))),
		Priority:       ParsePriority(d.name(firstOf(r, "priority"))),
		AssigneeID:     d.name(firstOf(r, "assigneeId", "assignee_id", "assignee")),
		StoryID:        firstOf(r, "storyId", "story_id").String(),
		SprintID:       firstOf(r, "sprintId", "sprint_id").String(),
		ProjectID:      firstOf(r, "projectId", "project_id").String(),
		DueDate:        d.timestamp(firstOf(r, "dueDate", "due_date"), "due_date"),
		EstimatedHours: d.hours(firstOf(r, "estimatedHours", "estimated_hours"), "estimated_hours"),
		ActualHours:    d.hours(firstOf(r, "actualHours", "actual_hours"), "actual_hours"),
		Tags:           d.list(firstOf(r, "tags", "labels")),
		CreatedAt:      d.timestamp(firstOf(r, "createdAt", "created_at"), "created_at"),
		UpdatedAt:      d.timestamp(firstOf(r, "updatedAt", "updated_at"), "updated_at"),
	}
}

// firstOf returns the first present, non-null field among names
func firstOf(r gjson.Result, names ...string) gjson.Result {
	for _, n := range names {
		v := r.Get(n)
		if v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

type decoder struct {
	log  zerolog.Logger
	kind string
	id   string
}

func (d decoder) defaulted(field string, v gjson.Result, reason string) {
	d.log.Warn().
		Str("record", d.kind).
		Str("id", d.id).
		Str("field", field).
		Str("raw", v.Raw).
		Msgf("treating field as absent: %s", reason)
}

// name reads a string, or the display name of an embedded object
func (d decoder) name(v gjson.Result) string {
	if !v.Exists() {
		return ""
	}
	if v.IsObject() {
		return strings.TrimSpace(firstOf(v, "name", "displayName", "display_name", "email", "value").String())
	}
	return strings.TrimSpace(v.String())
}

func (d decoder) count(v gjson.Result, field string) *int {
	if !v.Exists() {
		return nil
	}
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Float()
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			d.defaulted(field, v, "not a number")
			return nil
		}
		f = parsed
	default:
		d.defaulted(field, v, "not a number")
		return nil
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		d.defaulted(field, v, "negative or non-finite")
		return nil
	}
	n := int(math.Round(f))
	return &n
}

func (d decoder) hours(v gjson.Result, field string) *float64 {
	if !v.Exists() {
		return nil
	}
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Float()
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			d.defaulted(field, v, "not a number")
			return nil
		}
		f = parsed
	default:
		d.defaulted(field, v, "not a number")
		return nil
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		d.defaulted(field, v, "negative or non-finite")
		return nil
	}
	return &f
}

func (d decoder) flag(v gjson.Result, field string) *bool {
	if !v.Exists() {
		return nil
	}
	var b bool
	switch v.Type {
	case gjson.True:
		b = true
	case gjson.False:
		b = false
	case gjson.Number:
		b = v.Num != 0
	case gjson.String:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v.Str))
		if err != nil {
			d.defaulted(field, v, "not a boolean")
			return nil
		}
		b = parsed
	default:
		d.defaulted(field, v, "not a boolean")
		return nil
	}
	return &b
}

func (d decoder) list(v gjson.Result) []string {
	if !v.Exists() {
		return nil
	}
	var out []string
	if v.Type == gjson.String && strings.HasPrefix(strings.TrimSpace(v.Str), "[") && gjson.Valid(v.Str) {
		// JSON-encoded array stored as text
		v = gjson.Parse(v.Str)
	}
	if v.IsArray() {
		for _, item := range v.Array() {
			if s := d.name(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	for _, part := range strings.Split(v.String(), ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (d decoder) timestamp(v gjson.Result, field string) *time.Time {
	if !v.Exists() {
		return nil
	}
	if v.Type == gjson.Number {
		// epoch milliseconds, as emitted by some REST serialisers
		t := time.UnixMilli(v.Int()).UTC()
		return &t
	}
	t, ok := ParseTime(v.String())
	if !ok {
		if strings.TrimSpace(v.String()) != "" {
			d.defaulted(field, v, "unparseable timestamp")
		}
		return nil
	}
	return &t
}

func (d decoder) date(v gjson.Result, field string) *time.Time {
	t := d.timestamp(v, field)
	if t == nil {
		return nil
	}
	day := DateOnly(*t)
	return &day
}
