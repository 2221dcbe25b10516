package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/abroad-api/internal/models"
)

// ErrSlotUnavailable is returned when the slot was taken before the booking committed.
var ErrSlotUnavailable = errors.New("consultation slot no longer available")

// BookingRepository persists submitted consultation bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create claims the booking's slot and inserts the booking atomically.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin booking transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const claim = `UPDATE consultation_slots SET available = FALSE WHERE id = $1 AND available = TRUE RETURNING starts_at`
	if err = tx.GetContext(ctx, &booking.SlotStartsAt, claim, booking.SlotID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrSlotUnavailable
			return err
		}
		return fmt.Errorf("claim consultation slot: %w", err)
	}

	const insert = `
INSERT INTO bookings (id, confirmation_id, user_id, service, slot_id, slot_starts_at, channel, first_name, last_name, email, phone, country, destination, level, field, question, created_at)
VALUES (:id, :confirmation_id, :user_id, :service, :slot_id, :slot_starts_at, :channel, :first_name, :last_name, :email, :phone, :country, :destination, :level, :field, :question, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insert, booking); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit booking: %w", err)
	}
	return nil
}

// ListByUser returns the user's bookings, newest first.
func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	const query = `SELECT * FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`
	bookings := make([]models.Booking, 0)
	if err := r.db.SelectContext(ctx, &bookings, query, userID); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// FindByID returns a booking or nil when absent.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	const query = `SELECT * FROM bookings WHERE id = $1`
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return &booking, nil
}

// SetReceiptPath records where the booking receipt was stored.
func (r *BookingRepository) SetReceiptPath(ctx context.Context, id, path string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE bookings SET receipt_path = $2 WHERE id = $1`, id, path)
	if err != nil {
		return fmt.Errorf("update booking receipt: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
