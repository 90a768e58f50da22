package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// ErrNotFound is returned when an entry does not exist.
var ErrNotFound = errors.New("entry not found")

// TimeLayout is the ISO-8601 form used for every persisted and published timestamp.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Entry represents a stored paste.
type Entry struct {
	ID        string
	Content   string
	EditCode  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicEntry is an Entry without its edit code.
type PublicEntry struct {
	ID        string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Public strips the secret from e.
func (e Entry) Public() PublicEntry {
	return PublicEntry{
		ID:        e.ID,
		Content:   e.Content,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// Normalize brings timestamps to UTC at millisecond precision so every backend
// stores and returns the same instant.
func (e *Entry) Normalize() {
	e.CreatedAt = Timestamp(e.CreatedAt)
	e.UpdatedAt = Timestamp(e.UpdatedAt)
}

// Timestamp truncates t to the precision shared by all backends.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return Timestamp(t).Format(TimeLayout)
}

// ParseTime accepts any RFC 3339 timestamp, including ones with fewer or more
// fractional digits than TimeLayout produces.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return Timestamp(t), nil
}

type entryRecord struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	EditCode  string `json:"editCode,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// MarshalJSON encodes the persisted record layout.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryRecord{
		ID:        e.ID,
		Content:   e.Content,
		EditCode:  e.EditCode,
		CreatedAt: FormatTime(e.CreatedAt),
		UpdatedAt: FormatTime(e.UpdatedAt),
	})
}

// UnmarshalJSON decodes the persisted record layout.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var rec entryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	created, err := ParseTime(rec.CreatedAt)
	if err != nil {
		return err
	}
	updated, err := ParseTime(rec.UpdatedAt)
	if err != nil {
		return err
	}
	*e = Entry{
		ID:        rec.ID,
		Content:   rec.Content,
		EditCode:  rec.EditCode,
		CreatedAt: created,
		UpdatedAt: updated,
	}
	return nil
}

// MarshalJSON encodes the public projection, which never carries editCode.
func (p PublicEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryRecord{
		ID:        p.ID,
		Content:   p.Content,
		CreatedAt: FormatTime(p.CreatedAt),
		UpdatedAt: FormatTime(p.UpdatedAt),
	})
}

// Store defines the storage backend contract. Delete of a missing entry is
// not an error, and Init must be safe to call on every start.
type Store interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, id string) (*Entry, error)
	Save(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, id string) error
	Close() error
}
