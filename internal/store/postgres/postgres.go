// Package postgres stores documents as JSONB rows in a single table.
package postgres

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/vedran77/hive/internal/store"
)

const schema = `
	CREATE SEQUENCE IF NOT EXISTS document_versions;
	CREATE TABLE IF NOT EXISTS documents (
		path       TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		data       JSONB NOT NULL,
		version    BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents (collection);
	CREATE INDEX IF NOT EXISTS documents_data_idx ON documents USING GIN (data jsonb_path_ops);`

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
	log  logrus.FieldLogger
	feed *store.ChangeFeed
	bus  store.ChangeBus
}

func New(pool *pgxpool.Pool, log logrus.FieldLogger) *Store {
	return &Store{pool: pool, log: log, feed: store.NewChangeFeed()}
}

// EnsureSchema creates the documents table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// SetChangeBus publishes commits to other instances sharing the database.
func (s *Store) SetChangeBus(bus store.ChangeBus) {
	s.bus = bus
}

func (s *Store) Feed() *store.ChangeFeed {
	return s.feed
}

func (s *Store) Get(ctx context.Context, path string) (*store.Document, error) {
	if err := store.ValidateDocPath(path); err != nil {
		return nil, err
	}
	query := `SELECT data, version, updated_at FROM documents WHERE path = $1`
	doc := store.Document{Path: path, ID: store.IDOf(path)}
	var raw []byte
	err := s.pool.QueryRow(ctx, query, path).Scan(&raw, &doc.Version, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &doc.Data); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &doc, nil
}

func (s *Store) Create(ctx context.Context, path string, data any) error {
	return s.commit(ctx, nil, []store.WriteOp{store.CreateOp(path, data)})
}

func (s *Store) Set(ctx context.Context, path string, data any, opts ...store.SetOption) error {
	return s.commit(ctx, nil, []store.WriteOp{store.SetOp(path, data, opts...)})
}

func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	return s.commit(ctx, nil, []store.WriteOp{store.UpdateOp(path, fields)})
}

func (s *Store) Delete(ctx context.Context, path string) error {
	return s.commit(ctx, nil, []store.WriteOp{store.DeleteOp(path)})
}

// Query pushes equality and array-contains filters down as JSONB containment;
// range filters, ordering and the limit are applied after the scan.
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Document, error) {
	sql := `SELECT path, data, version, updated_at FROM documents WHERE collection = $1`
	args := []any{q.Collection}
	for _, f := range q.Filters {
		var probe map[string]any
		switch f.Op {
		case store.OpEq:
			probe = map[string]any{f.Field: store.Normalize(f.Value)}
		case store.OpArrayContains:
			probe = map[string]any{f.Field: []any{store.Normalize(f.Value)}}
		default:
			continue
		}
		b, err := json.Marshal(probe)
		if err != nil {
			return nil, err
		}
		args = append(args, string(b))
		sql += fmt.Sprintf(" AND data @> $%d::jsonb", len(args))
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var doc store.Document
		var raw []byte
		if err := rows.Scan(&doc.Path, &raw, &doc.Version, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &doc.Data); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", doc.Path, err)
		}
		doc.ID = store.IDOf(doc.Path)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return store.Apply(q, docs), nil
}

func (s *Store) Subscribe(ctx context.Context, q store.Query, fn func([]store.Document)) (store.Unsubscribe, error) {
	return s.feed.Watch(ctx, q, s.Query, fn)
}

func (s *Store) RunTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	return store.RunTransaction(ctx, s.Get, s.commit, fn)
}

func (s *Store) Batch(ctx context.Context, ops []store.WriteOp) error {
	if err := store.CheckBatch(ops); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}
	return s.commit(ctx, nil, ops)
}

// Close is a no-op; the pool belongs to the caller.
func (s *Store) Close() error {
	return nil
}

type row struct {
	data    map[string]any
	version int64
}

func (s *Store) commit(ctx context.Context, reads map[string]int64, ops []store.WriteOp) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	locked, err := lockRows(ctx, tx, touchedPaths(reads, ops))
	if err != nil {
		return err
	}

	for path, version := range reads {
		var current int64
		if r, ok := locked[path]; ok {
			current = r.version
		}
		if current != version {
			return store.ErrConflict
		}
	}

	staged, err := store.StageWrites(ops, func(path string) (map[string]any, bool, error) {
		r, ok := locked[path]
		if !ok {
			return nil, false, nil
		}
		return r.data, true, nil
	})
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, st := range staged {
		if st.Deleted {
			batch.Queue(`DELETE FROM documents WHERE path = $1`, st.Path)
			continue
		}
		b, err := json.Marshal(st.Data)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", st.Path, err)
		}
		if _, existed := locked[st.Path]; existed {
			batch.Queue(`
				UPDATE documents SET data = $2, version = nextval('document_versions'), updated_at = now()
				WHERE path = $1`, st.Path, string(b))
			continue
		}
		// absent rows cannot be locked; a concurrent insert surfaces as a unique violation
		batch.Queue(`
			INSERT INTO documents (path, collection, data, version, updated_at)
			VALUES ($1, $2, $3, nextval('document_versions'), now())`,
			st.Path, store.CollectionOf(st.Path), string(b))
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return mapWriteError(err, reads, ops)
		}
	}
	if err := br.Close(); err != nil {
		return mapWriteError(err, reads, ops)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing: %w", err)
	}

	collections := store.Collections(staged)
	s.feed.Changed(collections...)
	if s.bus != nil {
		if err := s.bus.Publish(ctx, collections); err != nil {
			s.log.WithError(err).Warn("change bus publish failed")
		}
	}
	return nil
}

func lockRows(ctx context.Context, tx pgx.Tx, paths []string) (map[string]row, error) {
	out := make(map[string]row, len(paths))
	if len(paths) == 0 {
		return out, nil
	}
	query := `SELECT path, data, version FROM documents WHERE path = ANY($1) ORDER BY path FOR UPDATE`
	rows, err := tx.Query(ctx, query, paths)
	if err != nil {
		return nil, fmt.Errorf("locking documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var path string
		var raw []byte
		var r row
		if err := rows.Scan(&path, &raw, &r.version); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &r.data); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		out[path] = r
	}
	return out, rows.Err()
}

func touchedPaths(reads map[string]int64, ops []store.WriteOp) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	for p := range reads {
		add(p)
	}
	for _, op := range ops {
		add(op.Path)
	}
	return out
}

// mapWriteError turns a lost insert race into the error the caller expects: a
// conflict inside a transaction, otherwise an already-exists for creates.
func mapWriteError(err error, reads map[string]int64, ops []store.WriteOp) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return fmt.Errorf("writing documents: %w", err)
	}
	if len(reads) > 0 {
		return store.ErrConflict
	}
	for _, op := range ops {
		if op.Kind == store.WriteCreate {
			return store.ErrAlreadyExists
		}
	}
	return store.ErrConflict
}
