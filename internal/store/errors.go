package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/clikanban/kanban/internal/docstore"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when a write collides with a unique index.
var ErrAlreadyExists = errors.New("already exists")

// Collection names.
const (
	usersCollection    = "users"
	licencesCollection = "licences"
	boardsCollection   = "boards"
	tasksCollection    = "tasks"
)

// translate maps docstore sentinels onto the store's own.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, docstore.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	default:
		return err
	}
}

func findOne[T any](ctx context.Context, coll docstore.Collection, filter docstore.Filter) (T, error) {
	var zero T
	doc, err := coll.FindOne(ctx, filter)
	if err != nil {
		return zero, translate(err)
	}
	return docstore.Decode[T](doc)
}

func findMany[T any](ctx context.Context, coll docstore.Collection, filter docstore.Filter) ([]T, error) {
	docs, err := coll.FindMany(ctx, filter)
	if err != nil {
		return nil, err
	}
	return docstore.DecodeAll[T](docs)
}

// deleteByID removes the document with the given id, reporting ErrNotFound
// when nothing matched.
func deleteByID(ctx context.Context, coll docstore.Collection, id string) error {
	affected, err := coll.DeleteOne(ctx, docstore.Where(docstore.Eq("id", id)))
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
