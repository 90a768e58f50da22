package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"pagebin/internal/storage"
	"pagebin/internal/storage/storagetest"
)

var entryColumns = []string{"id", "content", "edit_code", "created_at", "updated_at"}

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func stubMigrations(t *testing.T, fn func(ctx context.Context, db *sql.DB) error) {
	t.Helper()
	prev := runMigrations
	runMigrations = fn
	t.Cleanup(func() { runMigrations = prev })
}

func TestInitRunsMigrationsEveryTime(t *testing.T) {
	s, _ := newStoreWithMock(t)
	calls := 0
	stubMigrations(t, func(ctx context.Context, db *sql.DB) error {
		calls++
		return nil
	})

	require.NoError(t, s.Init(context.Background()))
	require.NoError(t, s.Init(context.Background()))
	require.Equal(t, 2, calls)
}

func TestInitWrapsMigrationError(t *testing.T) {
	s, _ := newStoreWithMock(t)
	stubMigrations(t, func(ctx context.Context, db *sql.DB) error {
		return errors.New("relation already locked")
	})

	err := s.Init(context.Background())
	require.ErrorContains(t, err, "apply migrations")
	require.ErrorContains(t, err, "relation already locked")
}

func TestGetFound(t *testing.T) {
	s, mock := newStoreWithMock(t)
	created := time.Date(2024, 1, 2, 3, 4, 5, 678901000, time.UTC)

	mock.ExpectQuery(`SELECT id, content, edit_code, created_at, updated_at FROM entries WHERE id = \$1`).
		WithArgs("abc12").
		WillReturnRows(sqlmock.NewRows(entryColumns).AddRow("abc12", "hello", "code1234", created, created.Add(time.Minute)))

	got, err := s.Get(context.Background(), "abc12")
	require.NoError(t, err)
	require.Equal(t, "hello", got.Content)
	require.Equal(t, "code1234", got.EditCode)
	require.Equal(t, "2024-01-02T03:04:05.678Z", storage.FormatTime(got.CreatedAt))
	require.Equal(t, "2024-01-02T03:05:05.678Z", storage.FormatTime(got.UpdatedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectQuery(`SELECT .* FROM entries WHERE id = \$1`).
		WithArgs("../etc/passwd").
		WillReturnRows(sqlmock.NewRows(entryColumns))

	_, err := s.Get(context.Background(), "../etc/passwd")
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetQueryError(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectQuery(`SELECT .* FROM entries`).
		WithArgs("abc12").
		WillReturnError(errors.New("connection reset"))

	_, err := s.Get(context.Background(), "abc12")
	require.Error(t, err)
	require.NotErrorIs(t, err, storage.ErrNotFound)
	require.Regexp(t, regexp.MustCompile(`query entry: .*connection reset`), err.Error())
}

func TestSaveUpserts(t *testing.T) {
	s, mock := newStoreWithMock(t)
	entry := storagetest.Sample("greet")

	mock.ExpectExec(`INSERT INTO entries .* ON CONFLICT \(id\) DO UPDATE SET .*content = EXCLUDED\.content.*edit_code = EXCLUDED\.edit_code.*updated_at = EXCLUDED\.updated_at`).
		WithArgs("greet", entry.Content, entry.EditCode, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Save(context.Background(), entry))
	require.Equal(t, time.UTC, entry.CreatedAt.Location())
	require.Zero(t, entry.CreatedAt.Nanosecond()%int(time.Millisecond))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveError(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectExec(`INSERT INTO entries`).WillReturnError(errors.New("db is down"))

	err := s.Save(context.Background(), storagetest.Sample("abc12"))
	require.ErrorContains(t, err, "save entry")
	require.ErrorContains(t, err, "db is down")
}

func TestSaveNil(t *testing.T) {
	s, _ := newStoreWithMock(t)
	require.Error(t, s.Save(context.Background(), nil))
}

func TestDelete(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectExec(`DELETE FROM entries WHERE id = \$1`).
		WithArgs("gone1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Delete(context.Background(), "gone1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteError(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectExec(`DELETE FROM entries`).WillReturnError(errors.New("timeout"))

	require.ErrorContains(t, s.Delete(context.Background(), "abc12"), "timeout")
}

func TestCloseDrainsPool(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	require.NoError(t, New(db).Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open("", Options{})
	require.Error(t, err)
}
