package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/abroad-api/internal/models"
)

func newSQLMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

var programRowColumns = []string{"id", "name", "country", "field", "university", "duration", "tuition_fee", "scholarship", "deadline", "description", "created_at", "updated_at"}

func TestProgramRepositoryListWithoutFilter(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewProgramRepository(db)

	deadline := time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(programRowColumns).
		AddRow("p1", "Mechanical Engineering MSc", "Germany", "Engineering", "TU Munich", "2 years", 0.0, 1200.0, deadline, "Research master", deadline, deadline).
		AddRow("p4", "Public Health MPH", "USA", "Medicine", nil, nil, nil, 0.0, deadline, "", deadline, deadline)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + programColumns + " FROM programs WHERE 1=1 ORDER BY position ASC")).
		WillReturnRows(rows)

	programs, err := repo.List(context.Background(), models.ProgramFilter{})
	require.NoError(t, err)
	require.Len(t, programs, 2)
	require.NotNil(t, programs[0].University)
	assert.Equal(t, "TU Munich", *programs[0].University)
	require.NotNil(t, programs[0].TuitionFee)
	assert.Equal(t, 0.0, *programs[0].TuitionFee)
	assert.Nil(t, programs[1].University)
	assert.Nil(t, programs[1].TuitionFee)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProgramRepositoryListWithFilter(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewProgramRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM programs WHERE 1=1 AND country = $1 AND field = $2 AND (name ILIKE $3 OR COALESCE(university, '') ILIKE $3 OR description ILIKE $3) ORDER BY position ASC")).
		WithArgs("Germany", "Engineering", `%100\%\_free\_%`).
		WillReturnRows(sqlmock.NewRows(programRowColumns))

	programs, err := repo.List(context.Background(), models.ProgramFilter{Query: " 100%_free_ ", Country: "Germany", Field: "Engineering"})
	require.NoError(t, err)
	assert.Empty(t, programs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProgramRepositoryListError(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewProgramRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM programs").WillReturnError(errors.New("connection reset"))
	_, err := repo.List(context.Background(), models.ProgramFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list programs")
}

func TestProgramRepositoryUpsertMany(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewProgramRepository(db)

	now := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	programs := []models.Program{
		{ID: "p1", Name: "One", Country: "Germany", Field: "Engineering", Deadline: now, CreatedAt: now, UpdatedAt: now},
		{ID: "p2", Name: "Two", Country: "USA", Field: "Medicine", Deadline: now, CreatedAt: now, UpdatedAt: now},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO programs")).
		WithArgs("p1", "One", "Germany", "Engineering", nil, nil, nil, 0.0, now, "", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO programs")).
		WithArgs("p2", "Two", "USA", "Medicine", nil, nil, nil, 0.0, now, "", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpsertMany(context.Background(), programs))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProgramRepositoryUpsertManyRollsBack(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewProgramRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO programs")).WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.UpsertMany(context.Background(), []models.Program{{ID: "p1"}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.NoError(t, repo.UpsertMany(context.Background(), nil))
}
