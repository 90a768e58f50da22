package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Backend adapts a Store to the lenient contract the entry service relies on:
// lookups degrade to "absent" and writes report success as a bool. Failures
// are logged here and never travel further up.
type Backend struct {
	store  Store
	logger *slog.Logger
}

// NewBackend wraps store. A nil logger discards output.
func NewBackend(store Store, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Backend{store: store, logger: logger}
}

// Initialize prepares the underlying medium. Callers treat a failure as fatal.
func (b *Backend) Initialize(ctx context.Context) error {
	if err := b.store.Init(ctx); err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	return nil
}

// LoadEntry returns the entry stored under id, or false when it is missing or
// could not be read.
func (b *Backend) LoadEntry(ctx context.Context, id string) (*Entry, bool) {
	entry, err := b.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			b.logger.Error("load entry", "id", id, "error", err)
		}
		return nil, false
	}
	if entry == nil {
		return nil, false
	}
	return entry, true
}

// SaveEntry upserts entry and reports whether it was persisted.
func (b *Backend) SaveEntry(ctx context.Context, entry *Entry) bool {
	if entry == nil {
		return false
	}
	if err := b.store.Save(ctx, entry); err != nil {
		b.logger.Error("save entry", "id", entry.ID, "error", err)
		return false
	}
	return true
}

// DeleteEntry removes id. Removing a missing entry counts as success.
func (b *Backend) DeleteEntry(ctx context.Context, id string) bool {
	if err := b.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		b.logger.Error("delete entry", "id", id, "error", err)
		return false
	}
	return true
}

// Close releases the underlying store.
func (b *Backend) Close() error {
	return b.store.Close()
}
