package boltstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"

	"pagebin/internal/storage"
)

var entryBucket = []byte("entries")

// Store implements storage.Store backed by BoltDB.
type Store struct {
	db *bolt.DB
}

// Open opens the BoltDB file at path. Call Init before use.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	return &Store{db: db}, nil
}

// Init creates the entries bucket if missing.
func (s *Store) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(entryBucket); err != nil {
			return fmt.Errorf("create entry bucket: %w", err)
		}
		return nil
	})
}

// Save persists or replaces an entry.
func (s *Store) Save(ctx context.Context, entry *storage.Entry) error {
	if entry == nil {
		return errors.New("entry is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	entry.Normalize()
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(entryBucket)
		if bucket == nil {
			return errors.New("entries bucket not initialized")
		}
		if err := bucket.Put([]byte(entry.ID), data); err != nil {
			return fmt.Errorf("save entry: %w", err)
		}
		return nil
	})
}

// Get retrieves an entry by id.
func (s *Store) Get(ctx context.Context, id string) (*storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(entryBucket)
		if bucket == nil {
			return errors.New("entries bucket missing")
		}
		if v := bucket.Get([]byte(id)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, storage.ErrNotFound
	}

	var entry storage.Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal entry: %w", err)
	}
	return &entry, nil
}

// Delete removes an entry; a missing key is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(entryBucket)
		if bucket == nil {
			return errors.New("entries bucket not initialized")
		}
		if err := bucket.Delete([]byte(id)); err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
		return nil
	})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
