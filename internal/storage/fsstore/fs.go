// Package fsstore keeps each entry as a pretty-printed JSON file named after
// its ID inside a single data directory.
package fsstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"pagebin/internal/id"
	"pagebin/internal/storage"
)

const (
	fileExt   = ".json"
	tmpPrefix = ".entry-"
	tmpSuffix = ".tmp"
)

// ErrInvalidID is returned when saving under an ID that is not in sanitized form.
var ErrInvalidID = errors.New("id is not filesystem safe")

// Store implements storage.Store on a directory of JSON files.
type Store struct {
	dir string
}

// Open returns a Store rooted at dir. Call Init before use.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("data directory required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve data directory: %w", err)
	}
	return &Store{dir: abs}, nil
}

// Dir reports the absolute data directory.
func (s *Store) Dir() string {
	return s.dir
}

// Init creates the data directory if needed.
func (s *Store) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("stat data directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data path %s is not a directory", s.dir)
	}
	return nil
}

// Get reads the entry stored under entryID. IDs that are not in sanitized form
// never map to a file.
func (s *Store) Get(ctx context.Context, entryID string) (*storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, ok := s.path(entryID)
	if !ok {
		return nil, storage.ErrNotFound
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read entry: %w", err)
	}
	var entry storage.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode entry %s: %w", entryID, err)
	}
	return &entry, nil
}

// Save replaces the file for entry.ID. The record is written to a temporary
// file in the same directory and renamed into place.
func (s *Store) Save(ctx context.Context, entry *storage.Entry) error {
	if entry == nil {
		return errors.New("entry is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, ok := s.path(entry.ID)
	if !ok {
		return fmt.Errorf("save entry %q: %w", entry.ID, ErrInvalidID)
	}

	entry.Normalize()
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, tmpPrefix+"*"+tmpSuffix)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write entry: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close entry: %w", err)
	}
	if err := os.Chmod(tmpName, 0o640); err != nil {
		return fmt.Errorf("chmod entry: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename entry: %w", err)
	}
	tmpName = ""
	return nil
}

// Delete removes the file for entryID if present.
func (s *Store) Delete(ctx context.Context, entryID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, ok := s.path(entryID)
	if !ok {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// SweepTemp removes temporary files last modified before cutoff, which only
// exist when a save was interrupted.
func (s *Store) SweepTemp(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("list data directory: %w", err)
	}
	removed := 0
	for _, de := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, tmpPrefix) || !strings.HasSuffix(name, tmpSuffix) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove stale temp file %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}

// Close is a no-op; the store holds no handles.
func (s *Store) Close() error {
	return nil
}

func (s *Store) path(entryID string) (string, bool) {
	if !id.Valid(entryID) {
		return "", false
	}
	return filepath.Join(s.dir, entryID+fileExt), true
}
