// Package postgres serves storage.Store from one table per collection:
//
//	CREATE TABLE <coll> (id BIGSERIAL PRIMARY KEY, doc JSONB NOT NULL, created_at TIMESTAMPTZ)
//
// Row ids surface as Generic integer cursor keys.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corbtastik/incident-visualizer/internal/cursor"
	"github.com/corbtastik/incident-visualizer/internal/storage"
)

const codeUndefinedTable = "42P01"

// Store is a pgx-pool backed storage.Store.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ storage.Store    = (*Store)(nil)
	_ storage.Appender = (*Store)(nil)
)

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func table(coll string) string { return pgx.Identifier{coll}.Sanitize() }

// EnsureSchema creates the tables for colls if missing.
func (s *Store) EnsureSchema(ctx context.Context, colls []string) error {
	for _, c := range colls {
		sql := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id         BIGSERIAL PRIMARY KEY,
				doc        JSONB NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, table(c))
		if _, err := s.pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("postgres: create %s: %w", c, err)
		}
	}
	return nil
}

// Newest implements storage.Reader.
func (s *Store) Newest(ctx context.Context, coll string) (cursor.Key, bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT id FROM %s ORDER BY id DESC LIMIT 1`, table(coll))).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows), isUndefinedTable(err):
		return cursor.Key{}, false, nil
	case err != nil:
		return cursor.Key{}, false, fmt.Errorf("postgres: newest %s: %w", coll, err)
	}
	return cursor.Int64Key(id), true, nil
}

// After implements storage.Reader. Only zero and integer keys can be sought.
func (s *Store) After(ctx context.Context, coll string, after cursor.Key, limit int) ([]storage.Record, error) {
	from, err := rowID(after)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 1000
	}
	sql := fmt.Sprintf(`
		SELECT id, doc
		FROM %s
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2`, table(coll))
	rows, err := s.pool.Query(ctx, sql, from, limit)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: query %s: %w", coll, err)
	}
	defer rows.Close()

	var out []storage.Record
	for rows.Next() {
		var (
			id  int64
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("postgres: scan %s: %w", coll, err)
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("postgres: decode %s/%d: %w", coll, id, err)
		}
		out = append(out, storage.Record{Key: cursor.Int64Key(id), Doc: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate %s: %w", coll, err)
	}
	return out, nil
}

// Stats implements storage.Store.
func (s *Store) Stats(ctx context.Context, coll string) (storage.Stats, error) {
	var (
		count  int64
		lo, hi *int64
	)
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*), MIN(id), MAX(id) FROM %s`, table(coll))).Scan(&count, &lo, &hi)
	if isUndefinedTable(err) {
		return storage.Stats{}, nil
	}
	if err != nil {
		return storage.Stats{}, fmt.Errorf("postgres: stats %s: %w", coll, err)
	}
	st := storage.Stats{Count: count}
	if lo != nil && hi != nil {
		st.Oldest, st.Newest, st.HasData = cursor.Int64Key(*lo), cursor.Int64Key(*hi), true
	}
	return st, nil
}

// Append implements storage.Appender in one transaction.
func (s *Store) Append(ctx context.Context, coll string, docs []map[string]any) ([]cursor.Key, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sql := fmt.Sprintf(`INSERT INTO %s (doc) VALUES ($1) RETURNING id`, table(coll))
	keys := make([]cursor.Key, 0, len(docs))
	for i, d := range docs {
		raw, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("postgres: encode document %d: %w", i, err)
		}
		var id int64
		if err := tx.QueryRow(ctx, sql, raw).Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: insert %s: %w", coll, err)
		}
		keys = append(keys, cursor.Int64Key(id))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("postgres: commit: %w", err)
	}
	return keys, nil
}

// Ping implements storage.Store.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close implements storage.Store.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// rowID maps a cursor key onto a BIGSERIAL position.
func rowID(k cursor.Key) (int64, error) {
	switch k.Kind() {
	case cursor.KindNone:
		return 0, nil
	case cursor.KindGeneric:
		if n, ok := k.Int64(); ok {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: postgres needs an integer key, got %s", storage.ErrKeyKind, k.Kind())
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUndefinedTable
}
