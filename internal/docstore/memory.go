package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Memory is an in-process Store. A single mutex serializes every operation,
// which makes each filtered update atomic.
type Memory struct {
	mu          sync.Mutex
	collections map[string]*memoryCollection
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]*memoryCollection)}
}

// Collection returns the named collection, creating it on first use.
func (m *Memory) Collection(name string) Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		c = &memoryCollection{store: m, name: name}
		m.collections[name] = c
	}
	return c
}

func (m *Memory) Close() error {
	return nil
}

type memoryDoc struct {
	id   string
	body map[string]any
}

type memoryIndex struct {
	fields []string
	unique bool
}

type memoryCollection struct {
	store   *Memory
	name    string
	docs    []*memoryDoc
	indexes []memoryIndex
}

func (c *memoryCollection) Name() string {
	return c.name
}

func (c *memoryCollection) InsertOne(ctx context.Context, id string, doc any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Errorf("document must be a JSON object: %w", err)
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	for _, d := range c.docs {
		if d.id == id {
			return fmt.Errorf("%w: id %s", ErrDuplicate, id)
		}
	}
	if err := c.checkUnique(body, nil); err != nil {
		return err
	}
	c.docs = append(c.docs, &memoryDoc{id: id, body: body})
	return nil
}

func (c *memoryCollection) FindOne(ctx context.Context, filter Filter) (Document, error) {
	docs, err := c.find(ctx, filter, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

func (c *memoryCollection) FindMany(ctx context.Context, filter Filter) ([]Document, error) {
	return c.find(ctx, filter, 0)
}

func (c *memoryCollection) find(ctx context.Context, filter Filter, limit int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := filter.validate(); err != nil {
		return nil, err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	var out []Document
	for _, d := range c.docs {
		ok, err := filter.matches(d.body)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		raw, err := json.Marshal(d.body)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (c *memoryCollection) UpdateOne(ctx context.Context, filter Filter, set map[string]any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := filter.validate(); err != nil {
		return 0, err
	}
	patch := make(map[string]any, len(set))
	for k, v := range set {
		if err := checkIdent("field", k); err != nil {
			return 0, err
		}
		nv, err := normalize(v)
		if err != nil {
			return 0, fmt.Errorf("encode field %s: %w", k, err)
		}
		patch[k] = nv
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	for _, d := range c.docs {
		ok, err := filter.matches(d.body)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		updated := make(map[string]any, len(d.body)+len(patch))
		for k, v := range d.body {
			updated[k] = v
		}
		for k, v := range patch {
			updated[k] = v
		}
		if err := c.checkUnique(updated, d); err != nil {
			return 0, err
		}
		d.body = updated
		return 1, nil
	}
	return 0, nil
}

func (c *memoryCollection) DeleteOne(ctx context.Context, filter Filter) (int64, error) {
	return c.delete(ctx, filter, true)
}

func (c *memoryCollection) DeleteMany(ctx context.Context, filter Filter) (int64, error) {
	return c.delete(ctx, filter, false)
}

func (c *memoryCollection) delete(ctx context.Context, filter Filter, one bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := filter.validate(); err != nil {
		return 0, err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	kept := c.docs[:0]
	var deleted int64
	for _, d := range c.docs {
		if one && deleted == 1 {
			kept = append(kept, d)
			continue
		}
		ok, err := filter.matches(d.body)
		if err != nil {
			return 0, err
		}
		if ok {
			deleted++
			continue
		}
		kept = append(kept, d)
	}
	for i := len(kept); i < len(c.docs); i++ {
		c.docs[i] = nil
	}
	c.docs = kept
	return deleted, nil
}

func (c *memoryCollection) CreateIndex(ctx context.Context, unique bool, fields ...string) error {
	if len(fields) == 0 {
		return fmt.Errorf("index on %s needs at least one field", c.name)
	}
	for _, f := range fields {
		if err := checkIdent("field", f); err != nil {
			return err
		}
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	for _, idx := range c.indexes {
		if idx.unique == unique && strings.Join(idx.fields, ",") == strings.Join(fields, ",") {
			return nil
		}
	}
	idx := memoryIndex{fields: append([]string(nil), fields...), unique: unique}
	c.indexes = append(c.indexes, idx)
	return nil
}

// checkUnique reports ErrDuplicate if body collides with a document other
// than self on any unique index. Documents with a null indexed field never
// collide.
func (c *memoryCollection) checkUnique(body map[string]any, self *memoryDoc) error {
	for _, idx := range c.indexes {
		if !idx.unique {
			continue
		}
		key, ok := indexKey(body, idx.fields)
		if !ok {
			continue
		}
		for _, d := range c.docs {
			if d == self {
				continue
			}
			other, ok := indexKey(d.body, idx.fields)
			if ok && other == key {
				return fmt.Errorf("%w: %s(%s)", ErrDuplicate, c.name, strings.Join(idx.fields, ", "))
			}
		}
	}
	return nil
}

func indexKey(body map[string]any, fields []string) (string, bool) {
	parts := make([]any, 0, len(fields))
	for _, f := range fields {
		v := body[f]
		if v == nil {
			return "", false
		}
		parts = append(parts, v)
	}
	raw, err := json.Marshal(parts)
	if err != nil {
		return "", false
	}
	return string(raw), true
}
