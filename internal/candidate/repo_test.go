package candidate_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentsync/apps/worker/internal/candidate"
)

var columns = []string{"id", "name", "summary", "skills", "experience", "updated_at", "last_indexed_at"}

func newRepo(t *testing.T) (*candidate.PostgresRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return candidate.NewPostgresRepo(db, time.Second), mock
}

func TestPostgresRepo_ListStale(t *testing.T) {
	repo, mock := newRepo(t)
	updated := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	indexed := updated.Add(-time.Hour)

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows(columns).
			AddRow(7, "Ana", "Backend dev", "Go,SQL", "5y", updated, nil).
			AddRow(9, "Bo", "SRE", "K8s", "3y", updated, indexed)

		mock.ExpectQuery(regexp.QuoteMeta("FROM candidates WHERE last_indexed_at IS NULL OR updated_at > last_indexed_at ORDER BY id")).
			WillReturnRows(rows)

		got, err := repo.ListStale(context.Background())
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, int64(7), got[0].ID)
		assert.Nil(t, got[0].IndexedAt)
		assert.Equal(t, "Ana | Backend dev | Skills: Go,SQL | Experience: 5y", got[0].ContextText())
		require.NotNil(t, got[1].IndexedAt)
		assert.True(t, got[1].IndexedAt.Equal(indexed))
	})

	t.Run("Empty", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM candidates WHERE")).
			WillReturnRows(sqlmock.NewRows(columns))

		got, err := repo.ListStale(context.Background())
		assert.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM candidates WHERE")).
			WillReturnError(sqlmock.ErrCancelled)

		_, err := repo.ListStale(context.Background())
		assert.ErrorIs(t, err, sqlmock.ErrCancelled)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Get(t *testing.T) {
	repo, mock := newRepo(t)

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM candidates WHERE id = $1")).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(7, "Ana", "", "", "", time.Now(), nil))

		c, err := repo.Get(context.Background(), 7)
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, "Ana", c.Name)
	})

	t.Run("Absent", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM candidates WHERE id = $1")).
			WithArgs(int64(42)).
			WillReturnError(sql.ErrNoRows)

		c, err := repo.Get(context.Background(), 42)
		assert.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("Error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM candidates WHERE id = $1")).
			WithArgs(int64(1)).
			WillReturnError(sqlmock.ErrCancelled)

		c, err := repo.Get(context.Background(), 1)
		assert.Error(t, err)
		assert.Nil(t, c)
	})
}

func TestPostgresRepo_MarkIndexed(t *testing.T) {
	repo, mock := newRepo(t)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE candidates SET last_indexed_at = NOW() WHERE id = ANY($1)")).
			WithArgs(pq.Array([]int64{7, 9})).
			WillReturnResult(sqlmock.NewResult(0, 2))

		assert.NoError(t, repo.MarkIndexed(context.Background(), []int64{7, 9}))
	})

	t.Run("Empty Is NoOp", func(t *testing.T) {
		assert.NoError(t, repo.MarkIndexed(context.Background(), nil))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_ResetAllIndexed(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE candidates SET last_indexed_at = NULL")).
		WillReturnResult(sqlmock.NewResult(0, 12))

	n, err := repo.ResetAllIndexed(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(12), n)
}

func TestPostgresRepo_CountStale(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM candidates WHERE last_indexed_at IS NULL")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.CountStale(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
}
