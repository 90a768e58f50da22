package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"pagebin/internal/storage"
)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// Open prepares a SQLite database handle at path. Call Init before use.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// Init applies the schema.
func (s *Store) Init(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS entries (
    id TEXT PRIMARY KEY,
    content TEXT NOT NULL,
    edit_code TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Save inserts or updates an entry. created_at is kept from the first insert.
func (s *Store) Save(ctx context.Context, entry *storage.Entry) error {
	if entry == nil {
		return errors.New("entry is nil")
	}
	entry.Normalize()

	const q = `
INSERT INTO entries (id, content, edit_code, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    content=excluded.content,
    edit_code=excluded.edit_code,
    updated_at=excluded.updated_at;
`
	_, err := s.db.ExecContext(ctx, q,
		entry.ID,
		entry.Content,
		entry.EditCode,
		storage.FormatTime(entry.CreatedAt),
		storage.FormatTime(entry.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save entry: %w", err)
	}
	return nil
}

// Get fetches an entry by id.
func (s *Store) Get(ctx context.Context, id string) (*storage.Entry, error) {
	const q = `
SELECT id, content, edit_code, created_at, updated_at
FROM entries WHERE id = ?;
`
	var (
		entry     storage.Entry
		createdAt string
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(&entry.ID, &entry.Content, &entry.EditCode, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query entry: %w", err)
	}
	if entry.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if entry.UpdatedAt, err = storage.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Delete removes an entry by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM entries WHERE id = ?;`
	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
