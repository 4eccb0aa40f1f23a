package task

import (
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/task/entity"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/validation"
)

// Request is the body of create and update calls. Creator and assignee ids
// are deliberately absent: the creator comes from the token and the
// assignee is resolved from its login.
type Request struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	Assignee    string `json:"assignee"`
}

// Command is a validated create or update.
type Command struct {
	Title         string
	Description   string
	DueDate       time.Time
	Priority      entity.Priority
	Status        entity.Status
	AssigneeLogin string
}

// Command validates the request once at the boundary.
func (r Request) Command() (Command, error) {
	var ve validation.Error

	title := strings.TrimSpace(r.Title)
	if title == "" {
		ve.Add("title", "title is required")
	}
	due, err := ParseDueDate(r.DueDate)
	if err != nil {
		ve.Add("dueDate", "due date must be a calendar date (YYYY-MM-DD)")
	}
	prio := entity.Priority(strings.TrimSpace(r.Priority))
	if !prio.Valid() {
		ve.Add("priority", "priority must be one of high, medium, low")
	}
	status := entity.Status(strings.ReplaceAll(strings.TrimSpace(r.Status), "-", "_"))
	if !status.Valid() {
		ve.Add("status", "status must be one of todo, in_progress, done, canceled")
	}
	assignee := strings.TrimSpace(r.Assignee)
	switch {
	case assignee == "":
		ve.Add("assignee", "assignee is required")
	case !validation.IsLogin(assignee):
		ve.Add("assignee", "assignee must be a login")
	}
	if err := ve.Err(); err != nil {
		return Command{}, err
	}
	return Command{
		Title:         title,
		Description:   strings.TrimSpace(r.Description),
		DueDate:       due,
		Priority:      prio,
		Status:        status,
		AssigneeLogin: assignee,
	}, nil
}

// ParseDueDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns
// midnight UTC of that calendar date.
func ParseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
}
