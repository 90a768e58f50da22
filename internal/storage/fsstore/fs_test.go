package fsstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pagebin/internal/storage"
	"pagebin/internal/storage/storagetest"
)

func TestConformance(t *testing.T) {
	var dir string
	storagetest.Run(t, storagetest.Factory{
		Open: func(t *testing.T) storage.Store {
			dir = filepath.Join(t.TempDir(), "data")
			s, err := Open(dir)
			require.NoError(t, err)
			return s
		},
		Reopen: func(t *testing.T) storage.Store {
			s, err := Open(dir)
			require.NoError(t, err)
			return s
		},
	})
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	return s
}

func TestFileLayout(t *testing.T) {
	s := newStore(t)
	entry := storagetest.Sample("abc12")
	require.NoError(t, s.Save(context.Background(), entry))

	raw, err := os.ReadFile(filepath.Join(s.Dir(), "abc12.json"))
	require.NoError(t, err)
	text := string(raw)
	require.True(t, strings.HasPrefix(text, "{\n  \"id\": \"abc12\""), "expected 2-space indented record, got %s", text)
	for _, field := range []string{`"content"`, `"editCode": "s3cr3tcd"`, `"createdAt": "2024-05-06T05:08:09.987Z"`, `"updatedAt"`} {
		require.Contains(t, text, field)
	}

	leftovers, err := filepath.Glob(filepath.Join(s.Dir(), tmpPrefix+"*"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func TestReadsRecordsWithoutMilliseconds(t *testing.T) {
	s := newStore(t)
	record := `{"id":"old01","content":"legacy","editCode":"abcdefgh","createdAt":"2023-01-02T03:04:05Z","updatedAt":"2023-01-02T03:04:05.5Z"}`
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "old01.json"), []byte(record), 0o640))

	got, err := s.Get(context.Background(), "old01")
	require.NoError(t, err)
	require.Equal(t, "legacy", got.Content)
	require.Equal(t, "2023-01-02T03:04:05.500Z", storage.FormatTime(got.UpdatedAt))
}

func TestCorruptFileIsAnError(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "broke.json"), []byte(`{"id": "bro`), 0o640))

	_, err := s.Get(context.Background(), "broke")
	require.Error(t, err)
	require.NotErrorIs(t, err, storage.ErrNotFound)
}

func TestSaveRejectsUnsanitizedID(t *testing.T) {
	s := newStore(t)
	err := s.Save(context.Background(), storagetest.Sample("../escape"))
	require.ErrorIs(t, err, ErrInvalidID)

	_, statErr := os.Stat(filepath.Join(filepath.Dir(s.Dir()), "escape.json"))
	require.True(t, os.IsNotExist(statErr))
}

func TestInitFailsWhenPathIsAFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o640))

	s, err := Open(path)
	require.NoError(t, err)
	require.Error(t, s.Init(context.Background()))
}

func TestOpenRequiresDir(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestSweepTemp(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, storagetest.Sample("live1")))

	stale := filepath.Join(s.Dir(), tmpPrefix+"123"+tmpSuffix)
	fresh := filepath.Join(s.Dir(), tmpPrefix+"456"+tmpSuffix)
	require.NoError(t, os.WriteFile(stale, []byte("{"), 0o640))
	require.NoError(t, os.WriteFile(fresh, []byte("{"), 0o640))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	removed, err := s.SweepTemp(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = os.Stat(stale)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	require.NoError(t, err)

	_, err = s.Get(ctx, "live1")
	require.NoError(t, err)
}
