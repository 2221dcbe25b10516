package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/abroad-api/internal/models"
	appErrors "github.com/noah-isme/abroad-api/pkg/errors"
)

type slotRepository interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]models.TimeSlot, error)
	FindByID(ctx context.Context, id string) (*models.TimeSlot, error)
}

// SlotService exposes bookable consultation slots.
type SlotService struct {
	repo      slotRepository
	lookahead time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewSlotService constructs the service. lookahead bounds how far ahead slots are listed.
func NewSlotService(repo slotRepository, lookahead time.Duration, logger *zap.Logger) *SlotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lookahead <= 0 {
		lookahead = 14 * 24 * time.Hour
	}
	return &SlotService{repo: repo, lookahead: lookahead, logger: logger, now: time.Now}
}

// Upcoming lists slots starting between now and the lookahead horizon, available or not.
func (s *SlotService) Upcoming(ctx context.Context) ([]models.TimeSlot, error) {
	now := s.now().UTC()
	slots, err := s.repo.ListBetween(ctx, now, now.Add(s.lookahead))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "failed to list consultation slots")
	}
	return slots, nil
}

// Get returns a slot as currently known to the booking backend. Slots that
// already started are reported unavailable.
func (s *SlotService) Get(ctx context.Context, id string) (*models.TimeSlot, error) {
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "failed to load consultation slot")
	}
	if slot == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "consultation slot not found")
	}
	if !slot.StartsAt.After(s.now()) {
		slot.Available = false
	}
	return slot, nil
}
