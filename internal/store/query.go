package store

import (
	"reflect"
	"sort"
	"strings"
)

type Op string

const (
	OpEq            Op = "=="
	OpNeq           Op = "!="
	OpLt            Op = "<"
	OpLte           Op = "<="
	OpGt            Op = ">"
	OpGte           Op = ">="
	OpArrayContains Op = "array-contains"
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query selects the direct children of Collection.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

func Collection(path string) Query {
	return Query{Collection: path}
}

func (q Query) Where(field string, op Op, value any) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Op: op, Value: value})
	return q
}

func (q Query) Order(field string, descending bool) Query {
	q.OrderBy = field
	q.Descending = descending
	return q
}

func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// InCollection reports whether path is a direct child of the query collection.
func (q Query) InCollection(path string) bool {
	return CollectionOf(path) == q.Collection
}

// Match reports whether data satisfies every filter. A missing field never matches.
func Match(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok || v == nil {
			return false
		}
		want := Normalize(f.Value)
		switch f.Op {
		case OpEq:
			if !equal(v, want) {
				return false
			}
		case OpNeq:
			if equal(v, want) {
				return false
			}
		case OpArrayContains:
			arr, ok := v.([]any)
			if !ok || !containsValue(arr, want) {
				return false
			}
		case OpLt, OpLte, OpGt, OpGte:
			c, ok := compare(v, want)
			if !ok {
				return false
			}
			switch f.Op {
			case OpLt:
				if c >= 0 {
					return false
				}
			case OpLte:
				if c > 0 {
					return false
				}
			case OpGt:
				if c <= 0 {
					return false
				}
			case OpGte:
				if c < 0 {
					return false
				}
			}
		default:
			return false
		}
	}
	return true
}

// Apply filters, sorts and limits docs in place according to q.
func Apply(q Query, docs []Document) []Document {
	out := docs[:0]
	for _, d := range docs {
		if Match(d.Data, q.Filters) {
			out = append(out, d)
		}
	}
	SortDocuments(out, q.OrderBy, q.Descending)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// SortDocuments orders by field (missing values first), ties broken by path.
func SortDocuments(docs []Document, field string, descending bool) {
	sort.SliceStable(docs, func(i, j int) bool {
		c := 0
		if field != "" {
			c = compareField(docs[i].Data[field], docs[j].Data[field])
		}
		if c == 0 {
			c = strings.Compare(docs[i].Path, docs[j].Path)
		}
		if descending {
			return c > 0
		}
		return c < 0
	})
}

func compareField(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if c, ok := compare(a, b); ok {
		return c
	}
	return 0
}

func compare(a, b any) (int, bool) {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

func containsValue(arr []any, v any) bool {
	for _, e := range arr {
		if equal(e, v) {
			return true
		}
	}
	return false
}
