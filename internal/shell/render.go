package shell

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/clikanban/kanban/internal/archive"
	"github.com/clikanban/kanban/types"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printBoards(w io.Writer, boards []types.Board) {
	if len(boards) == 0 {
		fmt.Fprintln(w, "No boards found")
		return
	}
	for _, board := range boards {
		fmt.Fprintf(w, "  - %s (columns: %s)\n", board.Name, strings.Join(board.Columns, ", "))
	}
}

// printBoardView lays the board out with one table column per board column.
func printBoardView(w io.Writer, view types.BoardView) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\nBOARD: %s\n%s\n\n", rule, view.Board.Name, rule)

	rows := 0
	for _, col := range view.Board.Columns {
		rows = max(rows, len(view.Tasks[col]))
	}
	if rows == 0 {
		fmt.Fprintln(w, "No tasks in this board.")
		return
	}

	tw := newTable(w)
	fmt.Fprintln(tw, strings.Join(view.Board.Columns, "\t"))
	for i := 0; i < rows; i++ {
		cells := make([]string, len(view.Board.Columns))
		for j, col := range view.Board.Columns {
			if tasks := view.Tasks[col]; i < len(tasks) {
				cells[j] = taskCell(tasks[i])
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
}

func taskCell(task types.Task) string {
	cell := fmt.Sprintf("• %s [%s]", task.Title, strings.ToUpper(string(task.Priority)))
	if task.DueDate != nil {
		cell += " | Due: " + *task.DueDate
	}
	return cell
}

func printTasks(w io.Writer, tasks []types.Task) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTitle\tColumn\tPriority\tDue Date")
	for _, task := range tasks {
		due := "N/A"
		if task.DueDate != nil {
			due = *task.DueDate
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", shortID(task.ID), task.Title, task.Column, task.Priority, due)
	}
	_ = tw.Flush()
}

func printExports(w io.Writer, entries []archive.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No exports found")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "Exported At\tBoard\tSize\tKey")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.ExportedAt.Format(time.RFC3339), shortID(e.BoardID), e.Size, e.Key)
	}
	_ = tw.Flush()
}
