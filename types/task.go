package types

import (
	"fmt"
	"strings"
	"time"
)

// DueDateLayout is the accepted layout of Task.DueDate.
const DueDateLayout = "2006-01-02"

// Column names a workflow stage of a task.
type Column string

// Supported task columns.
const (
	ColumnTodo  Column = "TODO"
	ColumnDoing Column = "DOING"
	ColumnDone  Column = "DONE"
)

// TaskColumns lists the columns a task may be placed in. Boards may show
// extra columns, but tasks only ever live in one of these.
var TaskColumns = []Column{ColumnTodo, ColumnDoing, ColumnDone}

// DefaultColumns returns the columns of a freshly created board.
func DefaultColumns() []string {
	cols := make([]string, 0, len(TaskColumns))
	for _, c := range TaskColumns {
		cols = append(cols, string(c))
	}
	return cols
}

// ParseColumn upper-cases s and checks it is a task column.
func ParseColumn(s string) (Column, error) {
	col := Column(strings.ToUpper(strings.TrimSpace(s)))
	switch col {
	case ColumnTodo, ColumnDoing, ColumnDone:
		return col, nil
	default:
		return "", fmt.Errorf("invalid column %q: must be one of %v", s, TaskColumns)
	}
}

// Priority ranks the urgency of a task.
type Priority string

// Supported priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority checks s is a priority. An empty string yields PriorityMedium.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(s); p {
	case "":
		return PriorityMedium, nil
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p, nil
	default:
		return "", fmt.Errorf("invalid priority %q: must be 'high', 'medium', or 'low'", s)
	}
}

// ValidDueDate reports whether s is a calendar date in DueDateLayout.
func ValidDueDate(s string) bool {
	_, err := time.Parse(DueDateLayout, s)
	return err == nil
}

// Task represents a unit of work placed in one column of a board.
type Task struct {
	// ID is the unique identifier of the task.
	ID string `json:"id"`

	// Title is the short name of the task. Titles are not unique; lookups
	// by title return the first match.
	Title string `json:"title"`

	// BoardID identifies the board this task belongs to.
	BoardID string `json:"board_id"`

	// Column is the workflow stage the task is currently in.
	Column Column `json:"column"`

	// Description is an optional free-form description.
	Description *string `json:"description"`

	// DueDate is an optional ISO date (YYYY-MM-DD).
	DueDate *string `json:"due_date"`

	// Priority defaults to medium.
	Priority Priority `json:"priority"`

	// AssignedTo optionally references an account. It is stored but not
	// used by any business rule.
	AssignedTo *string `json:"assigned_to"`

	// CreatedAt is the timestamp at which the task was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the most recent change to the task.
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskUpdate is a partial update of a task. Nil fields are left unchanged.
type TaskUpdate struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	DueDate     *string   `json:"due_date,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u TaskUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.DueDate == nil && u.Priority == nil
}
