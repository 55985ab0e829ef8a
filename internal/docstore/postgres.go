package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// Postgres stores every collection in the documents table created by the
// migrations in internal/db/migrations.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Collection(name string) Collection {
	return &postgresCollection{db: p.db, name: name}
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

type postgresCollection struct {
	db   *sql.DB
	name string
}

func (c *postgresCollection) Name() string {
	return c.name
}

func (c *postgresCollection) InsertOne(ctx context.Context, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	const query = `
		INSERT INTO documents (collection, id, body)
		VALUES ($1, $2, $3::jsonb)`
	if _, err := c.db.ExecContext(ctx, query, c.name, id, string(body)); err != nil {
		return translate(err)
	}
	return nil
}

func (c *postgresCollection) FindOne(ctx context.Context, filter Filter) (Document, error) {
	where, args, err := c.where(filter)
	if err != nil {
		return nil, err
	}
	query := `SELECT body FROM documents WHERE ` + where + ` ORDER BY seq LIMIT 1`
	var body []byte
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return Document(body), nil
}

func (c *postgresCollection) FindMany(ctx context.Context, filter Filter) ([]Document, error) {
	where, args, err := c.where(filter)
	if err != nil {
		return nil, err
	}
	query := `SELECT body FROM documents WHERE ` + where + ` ORDER BY seq`
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		docs = append(docs, Document(body))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// UpdateOne repeats the filter on the outer UPDATE so that a concurrent
// writer that changed the row first makes the predicate fail on recheck
// instead of both writers succeeding.
func (c *postgresCollection) UpdateOne(ctx context.Context, filter Filter, set map[string]any) (int64, error) {
	for k := range set {
		if err := checkIdent("field", k); err != nil {
			return 0, err
		}
	}
	patch, err := json.Marshal(set)
	if err != nil {
		return 0, fmt.Errorf("encode update: %w", err)
	}
	where, args, err := c.where(filter)
	if err != nil {
		return 0, err
	}
	args = append(args, string(patch))
	query := fmt.Sprintf(`
		UPDATE documents
		SET body = body || $%d::jsonb, updated_at = now()
		WHERE seq = (SELECT seq FROM documents WHERE %s ORDER BY seq LIMIT 1)
		  AND %s`, len(args), where, where)
	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translate(err)
	}
	return result.RowsAffected()
}

func (c *postgresCollection) DeleteOne(ctx context.Context, filter Filter) (int64, error) {
	where, args, err := c.where(filter)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`
		DELETE FROM documents
		WHERE seq = (SELECT seq FROM documents WHERE %s ORDER BY seq LIMIT 1)
		  AND %s`, where, where)
	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (c *postgresCollection) DeleteMany(ctx context.Context, filter Filter) (int64, error) {
	where, args, err := c.where(filter)
	if err != nil {
		return 0, err
	}
	result, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE `+where, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CreateIndex creates a partial expression index scoped to the collection.
func (c *postgresCollection) CreateIndex(ctx context.Context, unique bool, fields ...string) error {
	if len(fields) == 0 {
		return fmt.Errorf("index on %s needs at least one field", c.name)
	}
	if err := checkIdent("collection", c.name); err != nil {
		return err
	}
	exprs := make([]string, 0, len(fields))
	for _, f := range fields {
		if err := checkIdent("field", f); err != nil {
			return err
		}
		exprs = append(exprs, fmt.Sprintf("(body->>'%s')", f))
	}

	kind, suffix := "INDEX", "idx"
	if unique {
		kind, suffix = "UNIQUE INDEX", "key"
	}
	name := fmt.Sprintf("documents_%s_%s_%s", c.name, strings.Join(fields, "_"), suffix)
	query := fmt.Sprintf(`CREATE %s IF NOT EXISTS %s ON documents (%s) WHERE collection = '%s'`,
		kind, pq.QuoteIdentifier(name), strings.Join(exprs, ", "), c.name)
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// where renders filter as a SQL predicate. $1 is always the collection name.
func (c *postgresCollection) where(filter Filter) (string, []any, error) {
	if err := filter.validate(); err != nil {
		return "", nil, err
	}
	args := []any{c.name}
	preds := []string{"collection = $1"}
	for _, clause := range filter {
		switch clause.op {
		case opEq:
			pred, arg, err := eqPredicate(clause.fields[0], clause.value, len(args)+1)
			if err != nil {
				return "", nil, err
			}
			args = append(args, arg)
			preds = append(preds, pred)
		case opIsNull:
			preds = append(preds, fmt.Sprintf("COALESCE(body->'%s', 'null'::jsonb) = 'null'::jsonb", clause.fields[0]))
		case opContainsFold:
			args = append(args, clause.value)
			ors := make([]string, 0, len(clause.fields))
			for _, f := range clause.fields {
				ors = append(ors, fmt.Sprintf("strpos(lower(body->>'%s'), lower($%d)) > 0", f, len(args)))
			}
			preds = append(preds, "("+strings.Join(ors, " OR ")+")")
		}
	}
	return strings.Join(preds, " AND "), args, nil
}

// eqPredicate compares string values as text so the (body->>'field')
// expression indexes apply. Other values are compared as jsonb.
func eqPredicate(field string, value any, n int) (string, any, error) {
	norm, err := normalize(value)
	if err != nil {
		return "", nil, fmt.Errorf("encode filter value: %w", err)
	}
	if text, ok := norm.(string); ok {
		return fmt.Sprintf("body->>'%s' = $%d AND jsonb_typeof(body->'%s') = 'string'", field, n, field), text, nil
	}
	raw, err := json.Marshal(norm)
	if err != nil {
		return "", nil, fmt.Errorf("encode filter value: %w", err)
	}
	return fmt.Sprintf("body->'%s' = $%d::jsonb", field, n), string(raw), nil
}

func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	}
	return err
}
