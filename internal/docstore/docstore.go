// Package docstore is a small document store abstraction over named
// collections of JSON documents.
//
// Registries in internal/store only talk to the Collection interface. Two
// backends exist: Memory, for tests and throwaway sessions, and Postgres,
// which keeps every collection in one JSONB table.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrNotFound is returned by FindOne when no document matches.
	ErrNotFound = errors.New("document not found")

	// ErrDuplicate is returned when a write would violate a unique index.
	ErrDuplicate = errors.New("duplicate key")
)

// Document is the raw JSON body of a stored document.
type Document = json.RawMessage

// Collection is a named set of documents.
//
// Every method that takes a Filter applies it atomically: UpdateOne in
// particular selects and updates the first matching document in one step,
// so a filter can carry the precondition of a compare-and-swap.
type Collection interface {
	Name() string
	InsertOne(ctx context.Context, id string, doc any) error
	FindOne(ctx context.Context, filter Filter) (Document, error)
	FindMany(ctx context.Context, filter Filter) ([]Document, error)
	// UpdateOne sets the given top-level fields on the first document
	// matching filter and returns the number of documents updated (0 or 1).
	UpdateOne(ctx context.Context, filter Filter, set map[string]any) (int64, error)
	DeleteOne(ctx context.Context, filter Filter) (int64, error)
	DeleteMany(ctx context.Context, filter Filter) (int64, error)
	CreateIndex(ctx context.Context, unique bool, fields ...string) error
}

// Store hands out collections.
type Store interface {
	Collection(name string) Collection
	Close() error
}

// Decode unmarshals a document into a value of type T.
func Decode[T any](doc Document) (T, error) {
	var v T
	if err := json.Unmarshal(doc, &v); err != nil {
		return v, fmt.Errorf("decode document: %w", err)
	}
	return v, nil
}

// DecodeAll unmarshals every document into values of type T.
func DecodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := Decode[T](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func checkIdent(kind, name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid %s name %q", kind, name)
	}
	return nil
}
