package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/abroad-api/internal/models"
	"github.com/noah-isme/abroad-api/internal/repository"
	appErrors "github.com/noah-isme/abroad-api/pkg/errors"
)

type bookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	ListByUser(ctx context.Context, userID string) ([]models.Booking, error)
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	SetReceiptPath(ctx context.Context, id, path string) error
}

// BookingService is the booking backend the wizard submits to.
type BookingService struct {
	repo      bookingRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewBookingService constructs the booking backend.
func NewBookingService(repo bookingRepository, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &BookingService{repo: repo, validator: validate, logger: logger, now: time.Now}
}

// SubmitBooking persists the draft and returns the stored booking with its confirmation id.
// Partial success is never reported: either the slot is claimed and the booking stored, or neither.
func (s *BookingService) SubmitBooking(ctx context.Context, user models.CurrentUser, draft models.BookingDraft) (*models.Booking, error) {
	if user.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if !draft.Service.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown service type")
	}
	if draft.Slot == nil || draft.Slot.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "time slot is required")
	}
	if !draft.Channel.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown consultation channel")
	}
	if err := s.validator.Struct(draft.Contact); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contact details")
	}

	booking := &models.Booking{
		ID:             uuid.NewString(),
		ConfirmationID: strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12]),
		UserID:         user.UserID,
		Service:        draft.Service,
		SlotID:         draft.Slot.ID,
		SlotStartsAt:   draft.Slot.StartsAt,
		Channel:        draft.Channel,
		FirstName:      draft.Contact.FirstName,
		LastName:       draft.Contact.LastName,
		Email:          draft.Contact.Email,
		Phone:          optionalString(draft.Contact.Phone),
		Country:        draft.Contact.Country,
		Destination:    optionalString(draft.Preferences.Destination),
		Level:          optionalString(draft.Preferences.Level),
		Field:          optionalString(draft.Preferences.Field),
		Question:       optionalString(draft.Question),
		CreatedAt:      s.now().UTC(),
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrSlotUnavailable) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "the selected time slot is no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "failed to submit booking")
	}
	s.logger.Debug("booking stored", zap.String("booking_id", booking.ID), zap.String("slot_id", booking.SlotID))
	return booking, nil
}

// ListForUser returns the user's submitted bookings, newest first.
func (s *BookingService) ListForUser(ctx context.Context, userID string) ([]models.Booking, error) {
	bookings, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	return bookings, nil
}

// Get returns a booking owned by userID.
func (s *BookingService) Get(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if booking == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
	}
	if booking.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "booking belongs to another user")
	}
	return booking, nil
}

// AttachReceipt records the stored receipt path of a booking.
func (s *BookingService) AttachReceipt(ctx context.Context, bookingID, path string) error {
	if err := s.repo.SetReceiptPath(ctx, bookingID, path); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach receipt")
	}
	return nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
