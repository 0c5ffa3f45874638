package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Getter reads a single document for a transaction.
type Getter func(ctx context.Context, path string) (*Document, error)

// Committer validates read versions and applies ops atomically. A read version
// of 0 means the document was absent. It returns ErrConflict when any read
// document changed since it was read.
type Committer func(ctx context.Context, reads map[string]int64, ops []WriteOp) error

type txBuffer struct {
	ctx   context.Context
	get   Getter
	reads map[string]int64
	ops   []WriteOp
}

func (t *txBuffer) Get(path string) (*Document, error) {
	if len(t.ops) > 0 {
		return nil, ErrReadAfterWrite
	}
	doc, err := t.get(t.ctx, path)
	if errors.Is(err, ErrNotFound) {
		t.reads[path] = 0
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	t.reads[path] = doc.Version
	return doc, nil
}

func (t *txBuffer) Set(path string, data any, opts ...SetOption) {
	t.ops = append(t.ops, SetOp(path, data, opts...))
}

func (t *txBuffer) Update(path string, fields map[string]any) {
	t.ops = append(t.ops, UpdateOp(path, fields))
}

func (t *txBuffer) Delete(path string) {
	t.ops = append(t.ops, DeleteOp(path))
}

// RunTransaction drives fn with optimistic concurrency, retrying on conflict.
// Backends supply the read and commit primitives.
func RunTransaction(ctx context.Context, get Getter, commit Committer, fn func(Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < MaxTransactionAttempts; attempt++ {
		buf := &txBuffer{ctx: ctx, get: get, reads: map[string]int64{}}
		if err := fn(buf); err != nil {
			return err
		}
		if len(buf.ops) > MaxBatchSize {
			return ErrBatchTooLarge
		}
		if len(buf.ops) == 0 {
			return nil
		}
		err := commit(ctx, buf.reads, buf.ops)
		if !errors.Is(err, ErrConflict) {
			return err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", MaxTransactionAttempts, lastErr)
}

// backoff is linear in attempt plus up to the same again in jitter.
func backoff(attempt int) time.Duration {
	base := time.Duration(attempt+1) * 5 * time.Millisecond
	return base + rand.N(base)
}

// CheckBatch enforces the batch ceiling.
func CheckBatch(ops []WriteOp) error {
	if len(ops) > MaxBatchSize {
		return fmt.Errorf("%w: %d ops", ErrBatchTooLarge, len(ops))
	}
	return nil
}
