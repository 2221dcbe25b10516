package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/abroad-api/internal/models"
)

// SlotRepository reads consultation time slots.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository constructs the repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// ListBetween returns slots starting in [from, to) ordered by start time.
func (r *SlotRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.TimeSlot, error) {
	const query = `SELECT id, starts_at, ends_at, available FROM consultation_slots WHERE starts_at >= $1 AND starts_at < $2 ORDER BY starts_at ASC, id ASC`
	slots := make([]models.TimeSlot, 0)
	if err := r.db.SelectContext(ctx, &slots, query, from, to); err != nil {
		return nil, fmt.Errorf("list consultation slots: %w", err)
	}
	return slots, nil
}

// FindByID returns the slot or nil when it does not exist.
func (r *SlotRepository) FindByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	const query = `SELECT id, starts_at, ends_at, available FROM consultation_slots WHERE id = $1`
	var slot models.TimeSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get consultation slot: %w", err)
	}
	return &slot, nil
}
