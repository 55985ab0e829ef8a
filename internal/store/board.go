package store

import (
	"context"
	"time"

	"github.com/clikanban/kanban/internal/docstore"
	"github.com/clikanban/kanban/types"
	"github.com/google/uuid"
)

type boardDocument struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	Columns   []string  `json:"columns"`
	CreatedAt time.Time `json:"created_at"`
}

func (d boardDocument) board() types.Board {
	return types.Board{
		ID:        d.ID,
		Name:      d.Name,
		OwnerID:   d.OwnerID,
		Columns:   d.Columns,
		CreatedAt: d.CreatedAt,
	}
}

// BoardRepository handles persistence for boards. It never touches tasks;
// cascading deletes are the caller's job.
type BoardRepository struct {
	coll docstore.Collection
}

func NewBoardRepository(ds docstore.Store) *BoardRepository {
	return &BoardRepository{coll: ds.Collection(boardsCollection)}
}

// EnsureIndexes creates the indexes the repository relies on.
func (r *BoardRepository) EnsureIndexes(ctx context.Context) error {
	if err := r.coll.CreateIndex(ctx, true, "name", "owner_id"); err != nil {
		return err
	}
	return r.coll.CreateIndex(ctx, false, "owner_id")
}

// Create stores a new board with the given columns. A second board with
// the same name for the same owner yields ErrAlreadyExists.
func (r *BoardRepository) Create(ctx context.Context, name, ownerID string, columns []string) (types.Board, error) {
	doc := boardDocument{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   ownerID,
		Columns:   columns,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.coll.InsertOne(ctx, doc.ID, doc); err != nil {
		return types.Board{}, translate(err)
	}
	return doc.board(), nil
}

func (r *BoardRepository) GetByID(ctx context.Context, id string) (types.Board, error) {
	doc, err := findOne[boardDocument](ctx, r.coll, docstore.Where(docstore.Eq("id", id)))
	if err != nil {
		return types.Board{}, err
	}
	return doc.board(), nil
}

func (r *BoardRepository) GetByNameAndOwner(ctx context.Context, name, ownerID string) (types.Board, error) {
	doc, err := findOne[boardDocument](ctx, r.coll, docstore.Where(
		docstore.Eq("name", name),
		docstore.Eq("owner_id", ownerID),
	))
	if err != nil {
		return types.Board{}, err
	}
	return doc.board(), nil
}

func (r *BoardRepository) ListByOwner(ctx context.Context, ownerID string) ([]types.Board, error) {
	docs, err := findMany[boardDocument](ctx, r.coll, docstore.Where(docstore.Eq("owner_id", ownerID)))
	if err != nil {
		return nil, err
	}
	boards := make([]types.Board, 0, len(docs))
	for _, d := range docs {
		boards = append(boards, d.board())
	}
	return boards, nil
}

// ReplaceColumns swaps the board's column list from previous to next. It
// reports false without writing if the stored list no longer equals
// previous.
func (r *BoardRepository) ReplaceColumns(ctx context.Context, id string, previous, next []string) (bool, error) {
	affected, err := r.coll.UpdateOne(ctx,
		docstore.Where(docstore.Eq("id", id), docstore.Eq("columns", previous)),
		map[string]any{"columns": next})
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *BoardRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, id)
}
