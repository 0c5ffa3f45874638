// Package store defines the document store the rest of hive is written against.
//
// Documents live at slash-separated paths made of alternating collection and
// document segments ("communities/{id}/channels/{id}"). Backends (memory,
// postgres, pebble) share the write staging, filter and change feed logic in
// this package so they behave identically.
package store

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
)

const (
	// MaxBatchSize is the per-commit write ceiling every backend enforces.
	MaxBatchSize = 500

	// MaxTransactionAttempts bounds optimistic transaction retries.
	MaxTransactionAttempts = 5
)

var (
	ErrNotFound       = errors.New("document not found")
	ErrAlreadyExists  = errors.New("document already exists")
	ErrConflict       = errors.New("transaction conflict")
	ErrBatchTooLarge  = errors.New("batch exceeds maximum size")
	ErrInvalidPath    = errors.New("invalid document path")
	ErrReadAfterWrite = errors.New("transaction reads must precede writes")
)

// Document is a snapshot of a stored document.
type Document struct {
	Path      string
	ID        string
	Data      map[string]any
	Version   int64
	UpdatedAt time.Time
}

// DataTo decodes the document body into v.
func (d *Document) DataTo(v any) error {
	b, err := json.Marshal(d.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Unsubscribe stops a subscription. Once it returns no further callbacks run.
// It must not be called from inside the subscription callback.
type Unsubscribe func()

// Store is the document store contract.
type Store interface {
	Get(ctx context.Context, path string) (*Document, error)
	// Create writes data only if nothing exists at path, else ErrAlreadyExists.
	Create(ctx context.Context, path string, data any) error
	Set(ctx context.Context, path string, data any, opts ...SetOption) error
	// Update changes top-level fields of an existing document. Field values may be
	// transforms (ArrayUnion, ArrayRemove, Increment, DeleteField).
	Update(ctx context.Context, path string, fields map[string]any) error
	Delete(ctx context.Context, path string) error
	Query(ctx context.Context, q Query) ([]Document, error)
	// Subscribe delivers the current result of q, then a fresh snapshot after
	// every committed change to q's collection.
	Subscribe(ctx context.Context, q Query, fn func([]Document)) (Unsubscribe, error)
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
	// Batch applies all ops atomically. At most MaxBatchSize ops.
	Batch(ctx context.Context, ops []WriteOp) error
	Close() error
}

// Tx is an optimistic transaction. All reads must happen before the first write.
type Tx interface {
	Get(path string) (*Document, error)
	Set(path string, data any, opts ...SetOption)
	Update(path string, fields map[string]any)
	Delete(path string)
}

type setOptions struct {
	merge bool
}

type SetOption func(*setOptions)

// Merge overlays the given top-level fields onto an existing document.
func Merge() SetOption {
	return func(o *setOptions) { o.merge = true }
}

type WriteKind int

const (
	WriteSet WriteKind = iota
	WriteCreate
	WriteUpdate
	WriteDelete
)

// WriteOp is one write inside a batch or transaction commit.
type WriteOp struct {
	Kind   WriteKind
	Path   string
	Data   any
	Fields map[string]any
	Merge  bool
}

func SetOp(path string, data any, opts ...SetOption) WriteOp {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}
	return WriteOp{Kind: WriteSet, Path: path, Data: data, Merge: o.merge}
}

func CreateOp(path string, data any) WriteOp {
	return WriteOp{Kind: WriteCreate, Path: path, Data: data}
}

func UpdateOp(path string, fields map[string]any) WriteOp {
	return WriteOp{Kind: WriteUpdate, Path: path, Fields: fields}
}

func DeleteOp(path string) WriteOp {
	return WriteOp{Kind: WriteDelete, Path: path}
}

// Chunk splits items into batches no larger than size.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 || size > MaxBatchSize {
		size = MaxBatchSize
	}
	var out [][]T
	for len(items) > 0 {
		n := min(size, len(items))
		out = append(out, items[:n])
		items = items[n:]
	}
	return out
}
