package storage

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubStore struct {
	entry     *Entry
	getErr    error
	saveErr   error
	deleteErr error
	initErr   error
	saved     []*Entry
}

func (s *stubStore) Init(context.Context) error { return s.initErr }

func (s *stubStore) Get(context.Context, string) (*Entry, error) {
	return s.entry, s.getErr
}

func (s *stubStore) Save(_ context.Context, e *Entry) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, e)
	return nil
}

func (s *stubStore) Delete(context.Context, string) error { return s.deleteErr }

func (s *stubStore) Close() error { return nil }

func newTestBackend(store Store) (*Backend, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewBackend(store, logger), &buf
}

func TestBackendLoadEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		b, _ := newTestBackend(&stubStore{entry: &Entry{ID: "abc12", Content: "hi"}})
		got, ok := b.LoadEntry(ctx, "abc12")
		require.True(t, ok)
		require.Equal(t, "hi", got.Content)
	})

	t.Run("not found is silent", func(t *testing.T) {
		b, logs := newTestBackend(&stubStore{getErr: ErrNotFound})
		got, ok := b.LoadEntry(ctx, "nope")
		require.False(t, ok)
		require.Nil(t, got)
		require.Empty(t, logs.String())
	})

	t.Run("io error degrades to absent and is logged", func(t *testing.T) {
		b, logs := newTestBackend(&stubStore{getErr: errors.New("disk on fire")})
		got, ok := b.LoadEntry(ctx, "abc12")
		require.False(t, ok)
		require.Nil(t, got)
		require.Contains(t, logs.String(), "disk on fire")
	})
}

func TestBackendSaveAndDelete(t *testing.T) {
	ctx := context.Background()

	b, _ := newTestBackend(&stubStore{})
	require.True(t, b.SaveEntry(ctx, &Entry{ID: "abc12"}))
	require.False(t, b.SaveEntry(ctx, nil))
	require.True(t, b.DeleteEntry(ctx, "abc12"))

	failing, logs := newTestBackend(&stubStore{saveErr: errors.New("read-only fs"), deleteErr: errors.New("gone away")})
	require.False(t, failing.SaveEntry(ctx, &Entry{ID: "abc12"}))
	require.False(t, failing.DeleteEntry(ctx, "abc12"))
	require.Contains(t, logs.String(), "read-only fs")
	require.Contains(t, logs.String(), "gone away")

	missing, _ := newTestBackend(&stubStore{deleteErr: ErrNotFound})
	require.True(t, missing.DeleteEntry(ctx, "abc12"))
}

func TestBackendInitialize(t *testing.T) {
	b, _ := newTestBackend(&stubStore{initErr: errors.New("permission denied")})
	err := b.Initialize(context.Background())
	require.ErrorContains(t, err, "permission denied")
}

func TestEntryJSONRoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 20, 30, 123456789, time.FixedZone("X", 3600))
	in := Entry{ID: "abc12", Content: "<b>hi</b>", EditCode: "s3cr3t", CreatedAt: created, UpdatedAt: created.Add(time.Minute)}

	data, err := in.MarshalJSON()
	require.NoError(t, err)
	require.Contains(t, string(data), `"createdAt":"2024-03-01T09:20:30.123Z"`)
	require.Contains(t, string(data), `"editCode":"s3cr3t"`)

	var out Entry
	require.NoError(t, out.UnmarshalJSON(data))
	in.Normalize()
	require.Equal(t, in, out)
}

func TestPublicEntryOmitsEditCode(t *testing.T) {
	e := Entry{ID: "abc12", Content: "x", EditCode: "s3cr3t", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	data, err := e.Public().MarshalJSON()
	require.NoError(t, err)
	require.NotContains(t, string(data), "editCode")
	require.NotContains(t, string(data), "s3cr3t")
}

func TestParseTimeAcceptsShortFractions(t *testing.T) {
	got, err := ParseTime("2024-03-01T09:20:30Z")
	require.NoError(t, err)
	require.Equal(t, "2024-03-01T09:20:30.000Z", FormatTime(got))

	_, err = ParseTime("yesterday")
	require.Error(t, err)
}
