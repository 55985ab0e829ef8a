package docstore

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
)

type op int

const (
	opEq op = iota
	opIsNull
	opContainsFold
)

// Clause is a single condition of a Filter.
type Clause struct {
	fields []string
	op     op
	value  any
}

// Eq matches documents whose field equals value. A nil value behaves like
// IsNull.
func Eq(field string, value any) Clause {
	if value == nil {
		return IsNull(field)
	}
	return Clause{fields: []string{field}, op: opEq, value: value}
}

// IsNull matches documents whose field is null or absent.
func IsNull(field string) Clause {
	return Clause{fields: []string{field}, op: opIsNull}
}

// ContainsFold matches documents where at least one of fields is a string
// containing substr, ignoring case.
func ContainsFold(substr string, fields ...string) Clause {
	return Clause{fields: fields, op: opContainsFold, value: substr}
}

// Filter is a conjunction of clauses. The empty filter matches everything.
type Filter []Clause

// Where builds a Filter.
func Where(clauses ...Clause) Filter {
	return Filter(clauses)
}

func (f Filter) validate() error {
	for _, c := range f {
		if len(c.fields) == 0 {
			return errors.New("filter clause without fields")
		}
		for _, field := range c.fields {
			if err := checkIdent("field", field); err != nil {
				return err
			}
		}
	}
	return nil
}

// normalize round-trips v through JSON so it compares equal to values
// decoded from stored documents.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (f Filter) matches(body map[string]any) (bool, error) {
	for _, c := range f {
		ok, err := c.matches(body)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (c Clause) matches(body map[string]any) (bool, error) {
	switch c.op {
	case opEq:
		want, err := normalize(c.value)
		if err != nil {
			return false, err
		}
		return reflect.DeepEqual(body[c.fields[0]], want), nil
	case opIsNull:
		return body[c.fields[0]] == nil, nil
	case opContainsFold:
		needle := strings.ToLower(c.value.(string))
		for _, field := range c.fields {
			s, ok := body[field].(string)
			if ok && strings.Contains(strings.ToLower(s), needle) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, nil
}
