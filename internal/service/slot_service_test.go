package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/abroad-api/internal/models"
	appErrors "github.com/noah-isme/abroad-api/pkg/errors"
)

type fakeSlotRepo struct {
	slots    []models.TimeSlot
	err      error
	from, to time.Time
}

func (f *fakeSlotRepo) ListBetween(_ context.Context, from, to time.Time) ([]models.TimeSlot, error) {
	f.from, f.to = from, to
	return f.slots, f.err
}

func (f *fakeSlotRepo) FindByID(_ context.Context, id string) (*models.TimeSlot, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, s := range f.slots {
		if s.ID == id {
			slot := s
			return &slot, nil
		}
	}
	return nil, nil
}

func TestSlotServiceUpcomingWindow(t *testing.T) {
	repo := &fakeSlotRepo{slots: []models.TimeSlot{availableSlot()}}
	svc := NewSlotService(repo, 48*time.Hour, nil)
	svc.now = fixedNow

	slots, err := svc.Upcoming(context.Background())
	require.NoError(t, err)
	assert.Len(t, slots, 1)
	assert.Equal(t, fixedNow(), repo.from)
	assert.Equal(t, fixedNow().Add(48*time.Hour), repo.to)

	repo.err = errors.New("timeout")
	_, err = svc.Upcoming(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrUpstreamUnavailable)
}

func TestSlotServiceGet(t *testing.T) {
	past := models.TimeSlot{ID: "past", StartsAt: fixedNow().Add(-time.Hour), EndsAt: fixedNow(), Available: true}
	repo := &fakeSlotRepo{slots: []models.TimeSlot{availableSlot(), past}}
	svc := NewSlotService(repo, 0, nil)
	svc.now = fixedNow

	slot, err := svc.Get(context.Background(), "slot-1")
	require.NoError(t, err)
	assert.True(t, slot.Available)

	slot, err = svc.Get(context.Background(), "past")
	require.NoError(t, err)
	assert.False(t, slot.Available)

	_, err = svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
