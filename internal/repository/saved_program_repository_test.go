package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSavedProgramRepositoryListIDs(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSavedProgramRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT program_id FROM saved_programs WHERE user_id = $1 ORDER BY saved_at ASC, program_id ASC")).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"program_id"}).AddRow("p2").AddRow("p1"))

	ids, err := repo.ListIDs(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p1"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSavedProgramRepositoryAddRemove(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSavedProgramRepository(db)
	now := time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO saved_programs (user_id, program_id, saved_at) VALUES ($1, $2, $3) ON CONFLICT (user_id, program_id) DO NOTHING")).
		WithArgs("u-1", "p1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM saved_programs WHERE user_id = $1 AND program_id = $2")).
		WithArgs("u-1", "p1").
		WillReturnError(errors.New("lock timeout"))

	require.NoError(t, repo.Add(context.Background(), "u-1", "p1"))
	err := repo.Remove(context.Background(), "u-1", "p1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remove saved program")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSavedProgramRepositoryReplaceAll(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSavedProgramRepository(db)
	now := time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	ids := []string{"p3", "p1"}
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM saved_programs WHERE user_id = $1 AND NOT (program_id = ANY($2))")).
		WithArgs("u-1", pq.Array(ids)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO saved_programs (user_id, program_id, saved_at) SELECT $1, ids.program_id, $3::timestamptz + ids.ord * INTERVAL '1 microsecond' FROM unnest($2::text[]) WITH ORDINALITY AS ids(program_id, ord) ON CONFLICT (user_id, program_id) DO UPDATE SET saved_at = EXCLUDED.saved_at")).
		WithArgs("u-1", pq.Array(ids), now).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceAll(context.Background(), "u-1", []string{"p3", "p1", "p3", ""}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSavedProgramRepositoryReplaceAllRollsBack(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSavedProgramRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM saved_programs")).WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	require.Error(t, repo.ReplaceAll(context.Background(), "u-1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
