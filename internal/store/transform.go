package store

import (
	"fmt"
	"reflect"

	json "github.com/goccy/go-json"
)

type fieldTransform interface {
	apply(current any, exists bool) (next any, keep bool)
}

type arrayUnion struct{ values []any }

type arrayRemove struct{ values []any }

type increment struct{ delta float64 }

type deleteField struct{}

// ArrayUnion appends each value not already present in the array field.
func ArrayUnion(values ...any) any {
	return arrayUnion{values: normalizeAll(values)}
}

// ArrayRemove removes every occurrence of each value from the array field.
func ArrayRemove(values ...any) any {
	return arrayRemove{values: normalizeAll(values)}
}

// Increment adds delta to a numeric field, treating a missing field as zero.
func Increment(delta int) any {
	return increment{delta: float64(delta)}
}

// DeleteField removes the field from the document.
func DeleteField() any {
	return deleteField{}
}

func (t arrayUnion) apply(current any, _ bool) (any, bool) {
	arr, _ := current.([]any)
	out := append([]any{}, arr...)
	for _, v := range t.values {
		if !containsValue(out, v) {
			out = append(out, v)
		}
	}
	return out, true
}

func (t arrayRemove) apply(current any, _ bool) (any, bool) {
	arr, _ := current.([]any)
	out := []any{}
	for _, e := range arr {
		if !containsValue(t.values, e) {
			out = append(out, e)
		}
	}
	return out, true
}

func (t increment) apply(current any, _ bool) (any, bool) {
	n, _ := current.(float64)
	return n + t.delta, true
}

func (deleteField) apply(any, bool) (any, bool) {
	return nil, false
}

// Normalize converts a Go value to the shape it has after a JSON round trip,
// so filters and stored data compare consistently.
func Normalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func normalizeAll(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = Normalize(v)
	}
	return out
}

// ToMap converts a struct or map into document data.
func ToMap(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = Normalize(val)
		}
		return out, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("document must encode to an object: %w", err)
	}
	return out, nil
}

// CloneData deep-copies document data.
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneData(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}

// ApplyUpdate returns a copy of data with fields applied.
func ApplyUpdate(data map[string]any, fields map[string]any) map[string]any {
	out := CloneData(data)
	if out == nil {
		out = map[string]any{}
	}
	for k, v := range fields {
		if t, ok := v.(fieldTransform); ok {
			cur, exists := out[k]
			next, keep := t.apply(cur, exists)
			if keep {
				out[k] = next
			} else {
				delete(out, k)
			}
			continue
		}
		out[k] = Normalize(v)
	}
	return out
}

// Staged is the final state of one path after a set of writes.
type Staged struct {
	Path    string
	Data    map[string]any
	Deleted bool
}

// StageWrites folds ops over the current documents returned by lookup and
// returns the resulting state per touched path, in first-touch order.
// Nothing is written; callers persist the result atomically.
func StageWrites(ops []WriteOp, lookup func(path string) (map[string]any, bool, error)) ([]Staged, error) {
	index := map[string]int{}
	var staged []Staged

	current := func(path string) (map[string]any, bool, error) {
		if i, ok := index[path]; ok {
			s := staged[i]
			return s.Data, !s.Deleted, nil
		}
		return lookup(path)
	}
	put := func(s Staged) {
		if i, ok := index[s.Path]; ok {
			staged[i] = s
			return
		}
		index[s.Path] = len(staged)
		staged = append(staged, s)
	}

	for _, op := range ops {
		if err := ValidateDocPath(op.Path); err != nil {
			return nil, err
		}
		existing, exists, err := current(op.Path)
		if err != nil {
			return nil, err
		}
		switch op.Kind {
		case WriteCreate:
			if exists {
				return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, op.Path)
			}
			data, err := ToMap(op.Data)
			if err != nil {
				return nil, err
			}
			put(Staged{Path: op.Path, Data: data})
		case WriteSet:
			data, err := ToMap(op.Data)
			if err != nil {
				return nil, err
			}
			if op.Merge && exists {
				merged := CloneData(existing)
				for k, v := range data {
					merged[k] = v
				}
				data = merged
			}
			put(Staged{Path: op.Path, Data: data})
		case WriteUpdate:
			if !exists {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, op.Path)
			}
			put(Staged{Path: op.Path, Data: ApplyUpdate(existing, op.Fields)})
		case WriteDelete:
			put(Staged{Path: op.Path, Deleted: true})
		default:
			return nil, fmt.Errorf("unknown write kind %d", op.Kind)
		}
	}
	return staged, nil
}
