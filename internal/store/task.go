package store

import (
	"context"
	"time"

	"github.com/clikanban/kanban/internal/docstore"
	"github.com/clikanban/kanban/types"
	"github.com/google/uuid"
)

type taskDocument struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	BoardID     string    `json:"board_id"`
	Column      string    `json:"column"`
	Description *string   `json:"description"`
	DueDate     *string   `json:"due_date"`
	Priority    string    `json:"priority"`
	AssignedTo  *string   `json:"assigned_to"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (d taskDocument) task() types.Task {
	return types.Task{
		ID:          d.ID,
		Title:       d.Title,
		BoardID:     d.BoardID,
		Column:      types.Column(d.Column),
		Description: d.Description,
		DueDate:     d.DueDate,
		Priority:    types.Priority(d.Priority),
		AssignedTo:  d.AssignedTo,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func tasksOf(docs []taskDocument) []types.Task {
	tasks := make([]types.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, d.task())
	}
	return tasks
}

// TaskRepository handles persistence for tasks.
type TaskRepository struct {
	coll docstore.Collection
}

func NewTaskRepository(ds docstore.Store) *TaskRepository {
	return &TaskRepository{coll: ds.Collection(tasksCollection)}
}

// EnsureIndexes creates the indexes the repository relies on.
func (r *TaskRepository) EnsureIndexes(ctx context.Context) error {
	return r.coll.CreateIndex(ctx, false, "board_id")
}

// Create assigns an ID and timestamps and stores the task.
func (r *TaskRepository) Create(ctx context.Context, task types.Task) (types.Task, error) {
	now := time.Now().UTC()
	doc := taskDocument{
		ID:          uuid.NewString(),
		Title:       task.Title,
		BoardID:     task.BoardID,
		Column:      string(task.Column),
		Description: task.Description,
		DueDate:     task.DueDate,
		Priority:    string(task.Priority),
		AssignedTo:  task.AssignedTo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.coll.InsertOne(ctx, doc.ID, doc); err != nil {
		return types.Task{}, translate(err)
	}
	return doc.task(), nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (types.Task, error) {
	doc, err := findOne[taskDocument](ctx, r.coll, docstore.Where(docstore.Eq("id", id)))
	if err != nil {
		return types.Task{}, err
	}
	return doc.task(), nil
}

// FindByBoardAndTitle returns the first task on the board with exactly
// this title.
func (r *TaskRepository) FindByBoardAndTitle(ctx context.Context, boardID, title string) (types.Task, error) {
	doc, err := findOne[taskDocument](ctx, r.coll, docstore.Where(
		docstore.Eq("board_id", boardID),
		docstore.Eq("title", title),
	))
	if err != nil {
		return types.Task{}, err
	}
	return doc.task(), nil
}

func (r *TaskRepository) ListByBoard(ctx context.Context, boardID string) ([]types.Task, error) {
	docs, err := findMany[taskDocument](ctx, r.coll, docstore.Where(docstore.Eq("board_id", boardID)))
	if err != nil {
		return nil, err
	}
	return tasksOf(docs), nil
}

func (r *TaskRepository) ListByColumn(ctx context.Context, boardID string, column types.Column) ([]types.Task, error) {
	docs, err := findMany[taskDocument](ctx, r.coll, docstore.Where(
		docstore.Eq("board_id", boardID),
		docstore.Eq("column", string(column)),
	))
	if err != nil {
		return nil, err
	}
	return tasksOf(docs), nil
}

// Search returns the board's tasks whose title or description contains
// keyword, ignoring case.
func (r *TaskRepository) Search(ctx context.Context, boardID, keyword string) ([]types.Task, error) {
	docs, err := findMany[taskDocument](ctx, r.coll, docstore.Where(
		docstore.Eq("board_id", boardID),
		docstore.ContainsFold(keyword, "title", "description"),
	))
	if err != nil {
		return nil, err
	}
	return tasksOf(docs), nil
}

// Update applies the non-nil fields of update and bumps UpdatedAt.
func (r *TaskRepository) Update(ctx context.Context, id string, update types.TaskUpdate) (types.Task, error) {
	set := map[string]any{}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.DueDate != nil {
		set["due_date"] = *update.DueDate
	}
	if update.Priority != nil {
		set["priority"] = string(*update.Priority)
	}
	return r.set(ctx, id, set)
}

// SetColumn moves the task to column.
func (r *TaskRepository) SetColumn(ctx context.Context, id string, column types.Column) (types.Task, error) {
	return r.set(ctx, id, map[string]any{"column": string(column)})
}

func (r *TaskRepository) set(ctx context.Context, id string, fields map[string]any) (types.Task, error) {
	fields["updated_at"] = time.Now().UTC()
	affected, err := r.coll.UpdateOne(ctx, docstore.Where(docstore.Eq("id", id)), fields)
	if err != nil {
		return types.Task{}, translate(err)
	}
	if affected == 0 {
		return types.Task{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, id)
}

// DeleteByBoard removes every task of the board and returns how many went.
func (r *TaskRepository) DeleteByBoard(ctx context.Context, boardID string) (int64, error) {
	return r.coll.DeleteMany(ctx, docstore.Where(docstore.Eq("board_id", boardID)))
}
