// Package pgstore persists entries in a PostgreSQL table through pgx's
// database/sql driver. The schema is managed by embedded goose migrations.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"pagebin/internal/storage"
	"pagebin/internal/storage/pgstore/migrations"
)

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store implements storage.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open creates the connection pool for dsn. No connection is made until first use.
func Open(dsn string, opts Options) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("database url required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	return New(db), nil
}

// New wraps an existing pool.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// runMigrations is a seam for tests.
var runMigrations = func(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// Init verifies connectivity and applies pending migrations.
func (s *Store) Init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	if err := runMigrations(ctx, s.db); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Get fetches an entry by id.
func (s *Store) Get(ctx context.Context, id string) (*storage.Entry, error) {
	const q = `SELECT id, content, edit_code, created_at, updated_at FROM entries WHERE id = $1`

	var entry storage.Entry
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&entry.ID,
		&entry.Content,
		&entry.EditCode,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query entry: %w", err)
	}
	entry.Normalize()
	return &entry, nil
}

// Save upserts an entry. created_at is kept from the first insert.
func (s *Store) Save(ctx context.Context, entry *storage.Entry) error {
	if entry == nil {
		return errors.New("entry is nil")
	}
	entry.Normalize()

	const q = `
INSERT INTO entries (id, content, edit_code, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    content = EXCLUDED.content,
    edit_code = EXCLUDED.edit_code,
    updated_at = EXCLUDED.updated_at`

	_, err := s.db.ExecContext(ctx, q,
		entry.ID,
		entry.Content,
		entry.EditCode,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save entry: %w", err)
	}
	return nil
}

// Delete removes an entry by id; a missing row is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM entries WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// Close drains the connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
