// Package storagetest holds the behavioural checks every storage.Store
// implementation must pass.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pagebin/internal/storage"
)

// Factory opens a fresh, uninitialized store. Reopen must return a store over
// the same medium as the most recent Factory call.
type Factory struct {
	Open   func(t *testing.T) storage.Store
	Reopen func(t *testing.T) storage.Store
}

// Run executes the conformance suite.
func Run(t *testing.T, f Factory) {
	t.Helper()
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, f) })
	t.Run("MissingEntry", func(t *testing.T) { testMissing(t, f) })
	t.Run("UpsertReplaces", func(t *testing.T) { testUpsert(t, f) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, f) })
	t.Run("InitIdempotent", func(t *testing.T) { testInitIdempotent(t, f) })
	t.Run("RawTraversalNeverResolves", func(t *testing.T) { testTraversal(t, f) })
	if f.Reopen != nil {
		t.Run("SurvivesReopen", func(t *testing.T) { testReopen(t, f) })
	}
}

// Sample returns a representative entry with odd timestamps that exercise
// normalization.
func Sample(id string) *storage.Entry {
	created := time.Date(2024, 5, 6, 7, 8, 9, 987654321, time.FixedZone("UTC+2", 2*3600))
	return &storage.Entry{
		ID:        id,
		Content:   "<h1>hello</h1>\n  <p>world &amp; friends</p>",
		EditCode:  "s3cr3tcd",
		CreatedAt: created,
		UpdatedAt: created.Add(90 * time.Second),
	}
}

func open(t *testing.T, f Factory) storage.Store {
	t.Helper()
	s := f.Open(t)
	require.NoError(t, s.Init(context.Background()))
	return s
}

func requireSameEntry(t *testing.T, want, got *storage.Entry) {
	t.Helper()
	require.NotNil(t, got)
	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.Content, got.Content)
	require.Equal(t, want.EditCode, got.EditCode)
	require.Equal(t, storage.FormatTime(want.CreatedAt), storage.FormatTime(got.CreatedAt))
	require.Equal(t, storage.FormatTime(want.UpdatedAt), storage.FormatTime(got.UpdatedAt))
	require.True(t, storage.Timestamp(want.CreatedAt).Equal(got.CreatedAt))
	require.True(t, storage.Timestamp(want.UpdatedAt).Equal(got.UpdatedAt))
}

func testRoundTrip(t *testing.T, f Factory) {
	ctx := context.Background()
	s := open(t, f)

	want := Sample("abc12")
	require.NoError(t, s.Save(ctx, Sample("abc12")))

	got, err := s.Get(ctx, "abc12")
	require.NoError(t, err)
	requireSameEntry(t, want, got)
}

func testMissing(t *testing.T, f Factory) {
	s := open(t, f)
	_, err := s.Get(context.Background(), "nothere")
	require.True(t, errors.Is(err, storage.ErrNotFound), "want ErrNotFound, got %v", err)
}

func testUpsert(t *testing.T, f Factory) {
	ctx := context.Background()
	s := open(t, f)

	first := Sample("greet")
	require.NoError(t, s.Save(ctx, first))

	second := Sample("greet")
	second.Content = "world"
	second.EditCode = "newcode1"
	second.UpdatedAt = second.UpdatedAt.Add(time.Hour)
	require.NoError(t, s.Save(ctx, second))

	got, err := s.Get(ctx, "greet")
	require.NoError(t, err)
	want := Sample("greet")
	want.Content = "world"
	want.EditCode = "newcode1"
	want.UpdatedAt = want.UpdatedAt.Add(time.Hour)
	requireSameEntry(t, want, got)
}

func testDelete(t *testing.T, f Factory) {
	ctx := context.Background()
	s := open(t, f)

	require.NoError(t, s.Save(ctx, Sample("doomed")))
	require.NoError(t, s.Delete(ctx, "doomed"))

	_, err := s.Get(ctx, "doomed")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "doomed"), "deleting a missing entry is not an error")
}

func testInitIdempotent(t *testing.T, f Factory) {
	ctx := context.Background()
	s := open(t, f)

	require.NoError(t, s.Save(ctx, Sample("keep1")))
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Init(ctx))

	got, err := s.Get(ctx, "keep1")
	require.NoError(t, err)
	requireSameEntry(t, Sample("keep1"), got)
}

func testTraversal(t *testing.T, f Factory) {
	ctx := context.Background()
	s := open(t, f)

	require.NoError(t, s.Save(ctx, Sample("..etcpasswd")))

	for _, raw := range []string{"../etc/passwd", "..\\etc\\passwd", "../etcpasswd"} {
		_, err := s.Get(ctx, raw)
		require.ErrorIs(t, err, storage.ErrNotFound, "raw id %q must not resolve", raw)
	}

	got, err := s.Get(ctx, "..etcpasswd")
	require.NoError(t, err)
	require.Equal(t, "..etcpasswd", got.ID)
}

func testReopen(t *testing.T, f Factory) {
	ctx := context.Background()
	s := open(t, f)
	require.NoError(t, s.Save(ctx, Sample("durable")))
	require.NoError(t, s.Close())

	again := f.Reopen(t)
	require.NoError(t, again.Init(ctx))
	got, err := again.Get(ctx, "durable")
	require.NoError(t, err)
	requireSameEntry(t, Sample("durable"), got)
}
