// Package postgres implements the document store on a single JSONB
// table. The store's atomic batch maps directly onto a database
// transaction, which is what gives unified payment recording its
// all-or-nothing commit.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/costaverde/billing-backend/internal/store"
)

// Schema is the documents table DDL, applied at bootstrap.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
    path       text PRIMARY KEY,
    data       jsonb NOT NULL,
    updated_at timestamptz NOT NULL DEFAULT now()
);
`

// DocStore implements store.Store over a pgx connection pool.
type DocStore struct {
	pool *pgxpool.Pool
}

// NewDocStore creates a DocStore and ensures the documents table exists.
func NewDocStore(ctx context.Context, pool *pgxpool.Pool) (*DocStore, error) {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return nil, fmt.Errorf("ensure documents table: %w", err)
	}
	return &DocStore{pool: pool}, nil
}

func (s *DocStore) GetDoc(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM documents WHERE path = $1`, path).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrDocNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *DocStore) SetDoc(ctx context.Context, path string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (path, data, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		path, body)
	return err
}

func (s *DocStore) UpdateDoc(ctx context.Context, path string, fields map[string]any) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET data = data || $2::jsonb, updated_at = now() WHERE path = $1`,
		path, body)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrDocNotFound
	}
	return nil
}

func (s *DocStore) DeleteDoc(ctx context.Context, path string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE path = $1`, path)
	return err
}

// ListDocs returns direct children of collectionPath only, not nested
// sub-collection documents.
func (s *DocStore) ListDocs(ctx context.Context, collectionPath string) ([]store.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT path, data FROM documents
		WHERE path LIKE $1 || '/%' AND path NOT LIKE $1 || '/%/%'
		ORDER BY path`,
		collectionPath)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var d store.Document
		if err := rows.Scan(&d.Path, &d.Data); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *DocStore) Batch() store.Batch {
	return &batch{pool: s.pool}
}

type batchOp struct {
	kind   string // set, update, delete
	path   string
	data   any
	fields map[string]any
}

type batch struct {
	pool *pgxpool.Pool
	ops  []batchOp
}

func (b *batch) Set(path string, data any) {
	b.ops = append(b.ops, batchOp{kind: "set", path: path, data: data})
}

func (b *batch) Update(path string, fields map[string]any) {
	b.ops = append(b.ops, batchOp{kind: "update", path: path, fields: fields})
}

func (b *batch) Delete(path string) {
	b.ops = append(b.ops, batchOp{kind: "delete", path: path})
}

func (b *batch) Len() int { return len(b.ops) }

// Commit applies all staged writes in one database transaction.
func (b *batch) Commit(ctx context.Context) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, op := range b.ops {
		switch op.kind {
		case "set":
			body, err := json.Marshal(op.data)
			if err != nil {
				return fmt.Errorf("marshal %s: %w", op.path, err)
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO documents (path, data, updated_at) VALUES ($1, $2, now())
				ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
				op.path, body); err != nil {
				return err
			}
		case "update":
			body, err := json.Marshal(op.fields)
			if err != nil {
				return fmt.Errorf("marshal %s: %w", op.path, err)
			}
			tag, err := tx.Exec(ctx,
				`UPDATE documents SET data = data || $2::jsonb, updated_at = now() WHERE path = $1`,
				op.path, body)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("%s: %w", op.path, store.ErrDocNotFound)
			}
		case "delete":
			if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE path = $1`, op.path); err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}
