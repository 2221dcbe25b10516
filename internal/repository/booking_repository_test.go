package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/abroad-api/internal/models"
)

func sampleBooking() *models.Booking {
	return &models.Booking{
		ID:             "b-1",
		ConfirmationID: "ABC123DEF456",
		UserID:         "u-1",
		Service:        models.ServiceVisaGuidance,
		SlotID:         "s1",
		Channel:        models.ChannelVideo,
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Email:          "ada@example.com",
		Country:        "UK",
		CreatedAt:      time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC),
	}
}

func TestBookingRepositoryCreateClaimsSlot(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	startsAt := time.Date(2026, time.November, 3, 10, 0, 0, 0, time.UTC)
	booking := sampleBooking()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE consultation_slots SET available = FALSE WHERE id = $1 AND available = TRUE RETURNING starts_at")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"starts_at"}).AddRow(startsAt))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WithArgs("b-1", "ABC123DEF456", "u-1", models.ServiceVisaGuidance, "s1", startsAt, models.ChannelVideo,
			"Ada", "Lovelace", "ada@example.com", nil, "UK", nil, nil, nil, nil, booking.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), booking))
	assert.Equal(t, startsAt, booking.SlotStartsAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCreateSlotTaken(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE consultation_slots")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"starts_at"}))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), sampleBooking())
	assert.True(t, errors.Is(err, ErrSlotUnavailable))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCreateInsertFailureRollsBack(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE consultation_slots")).
		WillReturnRows(sqlmock.NewRows([]string{"starts_at"}).AddRow(time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), sampleBooking())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSlotUnavailable))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM bookings WHERE id = $1")).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	booking, err := repo.FindByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, booking)
}

func TestBookingRepositorySetReceiptPath(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET receipt_path = $2 WHERE id = $1")).
		WithArgs("b-1", "u-1/b-1.pdf").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET receipt_path = $2 WHERE id = $1")).
		WithArgs("b-2", "u-1/b-2.pdf").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetReceiptPath(context.Background(), "b-1", "u-1/b-1.pdf"))
	assert.ErrorIs(t, repo.SetReceiptPath(context.Background(), "b-2", "u-1/b-2.pdf"), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
