// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package postgres implements the storage repositories on PostgreSQL with
// the pgvector extension.
//
// Tasks, documents and checkpoints are stored as JSONB next to the few
// columns queries need. Chunk embeddings live in a vector column so
// similarity search runs in the database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/poiesic/gleaner/storage"
)

// uniqueViolation is the SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

// Store implements the task, document and checkpoint repositories on one
// connection pool.
type Store struct {
	pool       *pgxpool.Pool
	dimensions int
	logger     *slog.Logger
}

var (
	_ storage.TaskRepository       = (*Store)(nil)
	_ storage.DocumentRepository   = (*Store)(nil)
	_ storage.CheckpointRepository = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open connects to the database and creates the schema if needed.
// dimensions fixes the length of the embedding column.
func Open(ctx context.Context, connString string, dimensions int, opts ...Option) (*Store, error) {
	if dimensions < 1 {
		return nil, fmt.Errorf("postgres: dimensions must be positive, got %d", dimensions)
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{
		pool:       pool,
		dimensions: dimensions,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "postgres")

	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS gleaner_tasks (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS gleaner_documents (
			id TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL UNIQUE,
			owner TEXT NOT NULL,
			tags TEXT[] NOT NULL DEFAULT '{}',
			data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS gleaner_documents_tags_idx ON gleaner_documents USING GIN (tags)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS gleaner_chunks (
			document_id TEXT NOT NULL REFERENCES gleaner_documents(id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			data JSONB NOT NULL,
			embedding vector(%d),
			PRIMARY KEY (document_id, chunk_index)
		)`, s.dimensions),
		`CREATE INDEX IF NOT EXISTS gleaner_chunks_embedding_idx
			ON gleaner_chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`,
		`CREATE TABLE IF NOT EXISTS gleaner_checkpoints (
			name TEXT PRIMARY KEY,
			data JSONB NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

// withTx runs fn in a transaction, committing when fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// translate maps driver errors onto the storage sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, pgErr.ConstraintName)
	}
	return err
}
