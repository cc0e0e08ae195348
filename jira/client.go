package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"sprint-metrics/config"
	"sprint-metrics/domain"
	"sprint-metrics/store"
)

const (
	maxResults = 100
	// issues are shared by Stories and Sprints, which are usually called together
	issueTTL = 30 * time.Second
)

// Client handles Jira API operations
type Client struct {
	config  config.Config
	fetcher *store.Fetcher
	log     zerolog.Logger

	mu        sync.Mutex
	issues    []gjson.Result
	fetchedAt time.Time
	now       func() time.Time
}

var _ store.Repository = (*Client)(nil)

// NewClient creates a new Jira client
func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	f := store.NewFetcher(cfg.HTTPTimeoutDuration(), cfg.FetchRetries, log)
	username, token := cfg.JiraUsername, cfg.JiraToken
	f.Authorize = func(req *http.Request) {
		if username != "" {
			req.SetBasicAuth(username, token)
		} else {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return &Client{
		config:  cfg,
		fetcher: f,
		log:     log.With().Str("source", config.SourceJira).Logger(),
		now:     time.Now,
	}
}

func (c *Client) searchURL(startAt int) string {
	since := c.now().AddDate(0, 0, -c.config.DaysToAnalyze).Format("2006-01-02")
	jql := fmt.Sprintf("project = %s AND updated >= %s ORDER BY created DESC", c.config.JiraProject, since)

	fields := []string{"summary", "description", "status", "priority", "assignee", "labels", "created", "updated", "parent"}
	for _, f := range []string{c.config.JiraStoryPointsField, c.config.JiraSprintField, c.config.JiraEpicField, c.config.JiraAcceptanceField} {
		if f != "" {
			fields = append(fields, f)
		}
	}

	q := url.Values{}
	q.Set("jql", jql)
	q.Set("maxResults", fmt.Sprint(maxResults))
	q.Set("startAt", fmt.Sprint(startAt))
	q.Set("fields", strings.Join(fields, ","))

	version := "2"
	if c.config.IsJiraCloud {
		version = "3"
	}
	return fmt.Sprintf("%s/rest/api/%s/search?%s", strings.TrimRight(c.config.JiraURL, "/"), version, q.Encode())
}

// FetchIssues retrieves raw issues from Jira, paging through the search API
func (c *Client) FetchIssues(ctx context.Context) ([]gjson.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.issues != nil && c.now().Sub(c.fetchedAt) < issueTTL {
		return c.issues, nil
	}

	var issues []gjson.Result
	startAt := 0
	for {
		body, err := c.fetcher.Get(ctx, c.searchURL(startAt))
		if err != nil {
			return nil, fmt.Errorf("error fetching Jira issues: %w", err)
		}
		if !gjson.ValidBytes(body) {
			return nil, fmt.Errorf("error parsing Jira response: invalid JSON")
		}

		page := gjson.GetBytes(body, "issues").Array()
		issues = append(issues, page...)

		total := gjson.GetBytes(body, "total").Int()
		if len(page) < maxResults || int64(startAt+len(page)) >= total {
			break
		}
		startAt += len(page)
	}

	c.log.Debug().Int("issues", len(issues)).Msg("fetched Jira issues")
	c.issues = issues
	c.fetchedAt = c.now()
	return issues, nil
}

// Stories maps issues onto canonical stories
func (c *Client) Stories(ctx context.Context) ([]domain.Story, error) {
	issues, err := c.FetchIssues(ctx)
	if err != nil {
		return nil, err
	}
	stories := make([]domain.Story, 0, len(issues))
	for _, issue := range issues {
		rec, err := json.Marshal(c.storyRecord(issue))
		if err != nil {
			return nil, fmt.Errorf("encoding issue %s: %w", issue.Get("key").String(), err)
		}
		stories = append(stories, domain.StoryFromJSON(gjson.ParseBytes(rec), c.log))
	}
	return stories, nil
}

// Sprints collects the distinct sprints referenced by issues
func (c *Client) Sprints(ctx context.Context) ([]domain.Sprint, error) {
	issues, err := c.FetchIssues(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var sprints []domain.Sprint
	for _, issue := range issues {
		for _, ref := range parseSprintField(issue.Get("fields").Get(c.config.JiraSprintField)) {
			if seen[ref.Name] {
				continue
			}
			seen[ref.Name] = true
			rec, err := json.Marshal(ref)
			if err != nil {
				return nil, fmt.Errorf("encoding sprint %s: %w", ref.Name, err)
			}
			sprints = append(sprints, domain.SprintFromJSON(gjson.ParseBytes(rec), c.log))
		}
	}
	return sprints, nil
}

// Tasks is empty for Jira; sub-tasks are not tracked separately
func (c *Client) Tasks(ctx context.Context) ([]domain.Task, error) {
	return []domain.Task{}, nil
}

// storyRecord flattens an issue into the record shape the normaliser reads
func (c *Client) storyRecord(issue gjson.Result) map[string]any {
	fields := issue.Get("fields")
	rec := map[string]any{
		"id":        issue.Get("key").String(),
		"title":     fields.Get("summary").String(),
		"status":    c.status(fields.Get("status")),
		"priority":  fields.Get("priority.name").String(),
		"tags":      fields.Get("labels").Value(),
		"createdAt": fields.Get("created").String(),
		"updatedAt": fields.Get("updated").String(),
	}
	if d := fields.Get("description"); d.Type == gjson.String {
		rec["description"] = d.Str
	}

	if assignee := fields.Get("assignee"); assignee.IsObject() {
		if c.config.IsJiraCloud {
			rec["assignee"] = assignee.Get("displayName").String()
		} else {
			rec["assignee"] = assignee.Get("name").String()
		}
	}

	if f := c.config.JiraStoryPointsField; f != "" {
		if v := fields.Get(f); v.Exists() && v.Type != gjson.Null {
			rec["storyPoints"] = v.Value()
		}
	}
	if ref := current(parseSprintField(fields.Get(c.config.JiraSprintField))); ref != nil {
		rec["sprint"] = ref.Name
	}

	epic := ""
	if f := c.config.JiraEpicField; f != "" {
		epic = fields.Get(f).String()
	}
	if parent := fields.Get("parent"); epic == "" && strings.EqualFold(parent.Get("fields.issuetype.name").String(), "epic") {
		epic = parent.Get("fields.summary").String()
	}
	if epic != "" {
		rec["epic"] = epic
	}

	if f := c.config.JiraAcceptanceField; f != "" {
		if v := fields.Get(f); v.Type == gjson.String {
			rec["acceptanceCriteria"] = v.Str
		}
	}
	return rec
}

// status normalises the workflow status, falling back to the Jira status category
func (c *Client) status(s gjson.Result) string {
	name := s.Get("name").String()
	switch parsed := domain.ParseStatus(name); parsed {
	case domain.StatusToDo, domain.StatusInProgress, domain.StatusInReview, domain.StatusDone, domain.StatusBlocked:
		return string(parsed)
	}
	switch s.Get("statusCategory.key").String() {
	case "new":
		return string(domain.StatusToDo)
	case "indeterminate":
		return string(domain.StatusInProgress)
	case "done":
		return string(domain.StatusDone)
	}
	return name
}
