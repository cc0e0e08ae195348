package jira

import (
	"strings"

	"github.com/tidwall/gjson"
)

// types.go - Jira payload shapes that need more than a field lookup

// sprintRef is a sprint as embedded in an issue's sprint custom field
type sprintRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	State     string `json:"state,omitempty"`
	Goal      string `json:"goal,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// parseSprintField reads the sprint custom field. Cloud returns objects, Data
// Center returns strings such as
// "com.atlassian.greenhopper.service.sprint.Sprint@1a2b[id=7,state=ACTIVE,name=Sprint 7,...]".
func parseSprintField(v gjson.Result) []sprintRef {
	if !v.IsArray() {
		return nil
	}
	var refs []sprintRef
	for _, item := range v.Array() {
		var ref sprintRef
		switch {
		case item.IsObject():
			ref = sprintRef{
				ID:        item.Get("id").String(),
				Name:      item.Get("name").String(),
				State:     item.Get("state").String(),
				Goal:      item.Get("goal").String(),
				StartDate: item.Get("startDate").String(),
				EndDate:   item.Get("endDate").String(),
			}
		case item.Type == gjson.String:
			ref = parseGreenhopperSprint(item.Str)
		default:
			continue
		}
		if ref.Name != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

func parseGreenhopperSprint(s string) sprintRef {
	open := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if open < 0 || end <= open {
		return sprintRef{}
	}
	attrs := map[string]string{}
	var key string
	// values may contain commas, so a comma only starts a new pair when followed by key=
	for _, part := range strings.Split(s[open+1:end], ",") {
		if k, v, ok := strings.Cut(part, "="); ok && isAttrKey(k) {
			key = k
			attrs[key] = v
			continue
		}
		if key != "" {
			attrs[key] += "," + part
		}
	}
	ref := sprintRef{
		ID:        attrs["id"],
		Name:      attrs["name"],
		State:     attrs["state"],
		Goal:      attrs["goal"],
		StartDate: attrs["startDate"],
		EndDate:   attrs["endDate"],
	}
	for _, p := range []*string{&ref.Goal, &ref.StartDate, &ref.EndDate} {
		if *p == "<null>" {
			*p = ""
		}
	}
	return ref
}

func isAttrKey(k string) bool {
	if k == "" {
		return false
	}
	for _, r := range k {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// current picks the sprint an issue belongs to now: an active one, else the last listed
func current(refs []sprintRef) *sprintRef {
	if len(refs) == 0 {
		return nil
	}
	for i := range refs {
		if strings.EqualFold(refs[i].State, "active") {
			return &refs[i]
		}
	}
	return &refs[len(refs)-1]
}
