package types

import "time"

// MaxBoardColumns is the largest number of columns a board may carry.
const MaxBoardColumns = 10

// Board represents a named kanban board owned by one account.
// Tasks reference a board by ID; they are not embedded in it.
type Board struct {
	// ID is the unique identifier of the board.
	ID string `json:"id"`

	// Name is the human-readable name of the board. A given owner cannot
	// have two boards with the same name.
	Name string `json:"name"`

	// OwnerID identifies the account that created the board.
	OwnerID string `json:"owner_id"`

	// Columns is the ordered set of column names shown for the board.
	// New boards start with DefaultColumns.
	Columns []string `json:"columns"`

	// CreatedAt is the timestamp at which the board was created.
	CreatedAt time.Time `json:"created_at"`
}

// HasColumn reports whether name is one of the board's columns.
func (b Board) HasColumn(name string) bool {
	for _, c := range b.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// BoardView is a board together with its tasks grouped by column.
type BoardView struct {
	Board Board `json:"board"`

	// Tasks maps each of the board's columns to the tasks in it.
	Tasks map[string][]Task `json:"tasks"`
}

// NewBoardView groups tasks under the board's columns. Every column is
// present, empty ones included.
func NewBoardView(board Board, tasks []Task) BoardView {
	view := BoardView{Board: board, Tasks: make(map[string][]Task, len(board.Columns))}
	for _, col := range board.Columns {
		view.Tasks[col] = []Task{}
	}
	for _, task := range tasks {
		col := string(task.Column)
		view.Tasks[col] = append(view.Tasks[col], task)
	}
	return view
}
