package services

import (
	"context"
	"errors"
	"strings"

	"github.com/clikanban/kanban/internal/apperr"
	"github.com/clikanban/kanban/internal/authz"
	"github.com/clikanban/kanban/internal/events"
	"github.com/clikanban/kanban/internal/metrics"
	"github.com/clikanban/kanban/internal/store"
	"github.com/clikanban/kanban/types"
)

// TaskRepository defines persistence operations for tasks.
type TaskRepository interface {
	Create(ctx context.Context, task types.Task) (types.Task, error)
	GetByID(ctx context.Context, id string) (types.Task, error)
	FindByBoardAndTitle(ctx context.Context, boardID, title string) (types.Task, error)
	ListByBoard(ctx context.Context, boardID string) ([]types.Task, error)
	ListByColumn(ctx context.Context, boardID string, column types.Column) ([]types.Task, error)
	Search(ctx context.Context, boardID, keyword string) ([]types.Task, error)
	Update(ctx context.Context, id string, update types.TaskUpdate) (types.Task, error)
	SetColumn(ctx context.Context, id string, column types.Column) (types.Task, error)
	Delete(ctx context.Context, id string) error
	DeleteByBoard(ctx context.Context, boardID string) (int64, error)
}

// NewTask carries the fields of a task to create. Column and Priority are
// raw user input and are validated by CreateTask.
type NewTask struct {
	Title       string  `json:"title"`
	BoardID     string  `json:"board_id"`
	Column      string  `json:"column"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	Priority    string  `json:"priority,omitempty"`
	AssignedTo  *string `json:"assigned_to,omitempty"`
}

// TaskService encapsulates task use-cases. Reads are open to every role;
// writes need the task capabilities.
type TaskService struct {
	tasks   TaskRepository
	boards  BoardRepository
	events  events.Publisher
	metrics *metrics.Metrics
}

// NewTaskService constructs a TaskService. publisher and m may be nil.
func NewTaskService(tasks TaskRepository, boards BoardRepository, publisher events.Publisher, m *metrics.Metrics) *TaskService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &TaskService{tasks: tasks, boards: boards, events: publisher, metrics: m}
}

// CreateTask validates in and stores a new task on an existing board.
func (s *TaskService) CreateTask(ctx context.Context, sess types.Session, in NewTask) (types.Task, error) {
	if err := authorize(s.metrics, sess, authz.CreateTask); err != nil {
		return types.Task{}, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return types.Task{}, apperr.Validation("task title is required")
	}
	column, err := types.ParseColumn(in.Column)
	if err != nil {
		return types.Task{}, apperr.Validation("%v", err)
	}
	priority, err := types.ParsePriority(in.Priority)
	if err != nil {
		return types.Task{}, apperr.Validation("%v", err)
	}
	if err := validateDueDate(in.DueDate); err != nil {
		return types.Task{}, err
	}

	if _, err := s.boards.GetByID(ctx, in.BoardID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Task{}, apperr.NotFound("board not found")
		}
		return types.Task{}, apperr.Internal(err, "load board")
	}

	task, err := s.tasks.Create(ctx, types.Task{
		Title:       title,
		BoardID:     in.BoardID,
		Column:      column,
		Description: in.Description,
		DueDate:     in.DueDate,
		Priority:    priority,
		AssignedTo:  in.AssignedTo,
	})
	if err != nil {
		return types.Task{}, apperr.Internal(err, "create task")
	}

	s.metrics.IncTaskOperation("create")
	s.events.Publish(ctx, events.TaskCreated, sess.UserID, task)
	return task, nil
}

func (s *TaskService) GetTask(ctx context.Context, id string) (types.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return types.Task{}, taskLookupError(err, "task not found")
	}
	return task, nil
}

// FindByBoardAndTitle returns the first task on the board with this title.
func (s *TaskService) FindByBoardAndTitle(ctx context.Context, boardID, title string) (types.Task, error) {
	task, err := s.tasks.FindByBoardAndTitle(ctx, boardID, title)
	if err != nil {
		return types.Task{}, taskLookupError(err, "task '"+title+"' not found")
	}
	return task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, boardID string) ([]types.Task, error) {
	tasks, err := s.tasks.ListByBoard(ctx, boardID)
	if err != nil {
		return nil, apperr.Internal(err, "list tasks")
	}
	return tasks, nil
}

func (s *TaskService) ListTasksInColumn(ctx context.Context, boardID, column string) ([]types.Task, error) {
	col, err := types.ParseColumn(column)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	tasks, err := s.tasks.ListByColumn(ctx, boardID, col)
	if err != nil {
		return nil, apperr.Internal(err, "list tasks")
	}
	return tasks, nil
}

// SearchTasks returns the board's tasks whose title or description
// contains keyword, ignoring case.
func (s *TaskService) SearchTasks(ctx context.Context, boardID, keyword string) ([]types.Task, error) {
	tasks, err := s.tasks.Search(ctx, boardID, keyword)
	if err != nil {
		return nil, apperr.Internal(err, "search tasks")
	}
	return tasks, nil
}

// EditTask applies the fields set in update. Column changes go through
// MoveTask.
func (s *TaskService) EditTask(ctx context.Context, sess types.Session, id string, update types.TaskUpdate) (types.Task, error) {
	if err := authorize(s.metrics, sess, authz.EditTask); err != nil {
		return types.Task{}, err
	}
	if update.Empty() {
		return types.Task{}, apperr.Validation("nothing to update")
	}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return types.Task{}, apperr.Validation("task title cannot be empty")
		}
		update.Title = &title
	}
	if update.Priority != nil {
		priority, err := types.ParsePriority(string(*update.Priority))
		if err != nil || *update.Priority == "" {
			return types.Task{}, apperr.Validation("invalid priority %q: must be 'high', 'medium', or 'low'", *update.Priority)
		}
		update.Priority = &priority
	}
	if err := validateDueDate(update.DueDate); err != nil {
		return types.Task{}, err
	}

	task, err := s.tasks.Update(ctx, id, update)
	if err != nil {
		return types.Task{}, taskLookupError(err, "task not found")
	}

	s.metrics.IncTaskOperation("edit")
	s.events.Publish(ctx, events.TaskUpdated, sess.UserID, task)
	return task, nil
}

// MoveTask places the task in column.
func (s *TaskService) MoveTask(ctx context.Context, sess types.Session, id, column string) (types.Task, error) {
	if err := authorize(s.metrics, sess, authz.MoveTask); err != nil {
		return types.Task{}, err
	}
	col, err := types.ParseColumn(column)
	if err != nil {
		return types.Task{}, apperr.Validation("%v", err)
	}

	before, err := s.GetTask(ctx, id)
	if err != nil {
		return types.Task{}, err
	}
	task, err := s.tasks.SetColumn(ctx, id, col)
	if err != nil {
		return types.Task{}, taskLookupError(err, "task not found")
	}

	s.metrics.IncTaskOperation("move")
	s.events.Publish(ctx, events.TaskMoved, sess.UserID, map[string]string{
		"task_id": task.ID,
		"from":    string(before.Column),
		"to":      string(task.Column),
	})
	return task, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, sess types.Session, id string) error {
	if err := authorize(s.metrics, sess, authz.DeleteTask); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return taskLookupError(err, "task not found")
	}

	s.metrics.IncTaskOperation("delete")
	s.events.Publish(ctx, events.TaskDeleted, sess.UserID, map[string]string{"task_id": id})
	return nil
}

func validateDueDate(due *string) error {
	if due != nil && !types.ValidDueDate(*due) {
		return apperr.Validation("invalid due date %q, expected YYYY-MM-DD", *due)
	}
	return nil
}

func taskLookupError(err error, notFound string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("%s", notFound)
	}
	return apperr.Internal(err, "load task")
}
