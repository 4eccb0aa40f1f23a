package entity

import "time"

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusCanceled   Status = "canceled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusCanceled:
		return true
	}
	return false
}

// Task represents a row in the `tasks` table.
type Task struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	DueDate     time.Time `db:"due_date" json:"dueDate"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
	Priority    Priority  `db:"priority" json:"priority"`
	Status      Status    `db:"status" json:"status"`
	CreatorID   int64     `db:"creator_id" json:"creatorId"`
	AssigneeID  int64     `db:"assignee_id" json:"assigneeId"`
}

// Involves reports whether identity id created or is assigned the task.
func (t *Task) Involves(id int64) bool {
	return t.CreatorID == id || t.AssigneeID == id
}
