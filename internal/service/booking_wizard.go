package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/abroad-api/internal/models"
	appErrors "github.com/noah-isme/abroad-api/pkg/errors"
	"github.com/noah-isme/abroad-api/pkg/sanitize"
)

// BookingSubmitter hands a finished draft to the booking backend.
type BookingSubmitter interface {
	SubmitBooking(ctx context.Context, user models.CurrentUser, draft models.BookingDraft) (*models.Booking, error)
}

// BookingWizard is the linear consultation booking state machine:
// selecting_service -> selecting_schedule -> entering_details -> confirming -> completed.
// Each setter only applies in the step that owns its field and reports whether it did.
// It is not safe for concurrent use; Session serialises access.
type BookingWizard struct {
	step         models.BookingStep
	draft        models.BookingDraft
	user         models.CurrentUser
	confirmation *models.BookingConfirmation
	lastErr      error
	validator    *validator.Validate
}

// NewBookingWizard mounts a wizard with an empty draft pre-filled from the current user.
func NewBookingWizard(user models.CurrentUser, validate *validator.Validate) *BookingWizard {
	if validate == nil {
		validate = validator.New()
	}
	w := &BookingWizard{user: user, validator: validate}
	w.reset()
	return w
}

// Step returns the current state.
func (w *BookingWizard) Step() models.BookingStep {
	return w.step
}

// Draft returns a copy of the draft.
func (w *BookingWizard) Draft() models.BookingDraft {
	d := w.draft
	if w.draft.Slot != nil {
		slot := *w.draft.Slot
		d.Slot = &slot
	}
	return d
}

// Confirmation returns the booking backend acknowledgement once completed.
func (w *BookingWizard) Confirmation() *models.BookingConfirmation {
	if w.confirmation == nil {
		return nil
	}
	c := *w.confirmation
	return &c
}

// View snapshots the wizard for presentation.
func (w *BookingWizard) View() models.BookingView {
	view := models.BookingView{
		Step:         w.step,
		Draft:        w.Draft(),
		CanAdvance:   w.CanAdvance(),
		CanGoBack:    w.canGoBack(),
		Confirmation: w.Confirmation(),
	}
	if w.lastErr != nil {
		view.LastError = appErrors.FromError(w.lastErr).Message
	}
	return view
}

// SelectService sets the service while selecting one. Unknown types are ignored.
func (w *BookingWizard) SelectService(t models.ServiceType) bool {
	if w.step != models.StepSelectingService || !t.Valid() {
		return false
	}
	w.draft.Service = t
	return true
}

// SelectSlot sets the time slot while scheduling. Unavailable slots are not selectable.
func (w *BookingWizard) SelectSlot(slot models.TimeSlot) bool {
	if w.step != models.StepSelectingSchedule || slot.ID == "" || !slot.Available {
		return false
	}
	w.draft.Slot = &slot
	return true
}

// SetChannel changes the consultation channel while scheduling or entering details.
func (w *BookingWizard) SetChannel(ch models.Channel) bool {
	if (w.step != models.StepSelectingSchedule && w.step != models.StepEnteringDetails) || !ch.Valid() {
		return false
	}
	w.draft.Channel = ch
	return true
}

// SetContact replaces the contact details while entering details.
func (w *BookingWizard) SetContact(c models.ContactDetails) bool {
	if w.step != models.StepEnteringDetails {
		return false
	}
	w.draft.Contact = models.ContactDetails{
		FirstName: strings.TrimSpace(c.FirstName),
		LastName:  strings.TrimSpace(c.LastName),
		Email:     strings.TrimSpace(c.Email),
		Phone:     strings.TrimSpace(c.Phone),
		Country:   strings.TrimSpace(c.Country),
	}
	return true
}

// SetPreferences replaces the optional study preferences while entering details.
func (w *BookingWizard) SetPreferences(p models.StudyPreferences) bool {
	if w.step != models.StepEnteringDetails {
		return false
	}
	w.draft.Preferences = models.StudyPreferences{
		Destination: strings.TrimSpace(p.Destination),
		Level:       strings.TrimSpace(p.Level),
		Field:       strings.TrimSpace(p.Field),
	}
	return true
}

// SetQuestion replaces the free-text question while entering details. Markup is stripped.
func (w *BookingWizard) SetQuestion(q string) bool {
	if w.step != models.StepEnteringDetails {
		return false
	}
	w.draft.Question = sanitize.Text(q)
	return true
}

// CanAdvance evaluates the guard of the forward transition from the current step.
// Confirming advances only through Submit.
func (w *BookingWizard) CanAdvance() bool {
	switch w.step {
	case models.StepSelectingService:
		return w.draft.Service.Valid()
	case models.StepSelectingSchedule:
		return w.draft.Slot != nil && w.draft.Slot.Available
	case models.StepEnteringDetails:
		return w.ContactError() == nil
	default:
		return false
	}
}

// ContactError explains why the contact details do not pass the details gate.
func (w *BookingWizard) ContactError() error {
	if err := w.validator.Struct(w.draft.Contact); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "first name, last name, a valid email and country are required")
	}
	return nil
}

// Advance moves to the next step when its guard holds. A failed guard is a no-op.
func (w *BookingWizard) Advance() bool {
	if !w.CanAdvance() {
		return false
	}
	switch w.step {
	case models.StepSelectingService:
		w.step = models.StepSelectingSchedule
	case models.StepSelectingSchedule:
		w.step = models.StepEnteringDetails
	case models.StepEnteringDetails:
		w.step = models.StepConfirming
	}
	return true
}

// Back returns to the immediate predecessor keeping every entered field.
func (w *BookingWizard) Back() bool {
	if !w.canGoBack() {
		return false
	}
	switch w.step {
	case models.StepSelectingSchedule:
		w.step = models.StepSelectingService
	case models.StepEnteringDetails:
		w.step = models.StepSelectingSchedule
	case models.StepConfirming:
		w.step = models.StepEnteringDetails
	}
	w.lastErr = nil
	return true
}

func (w *BookingWizard) canGoBack() bool {
	return w.step != models.StepSelectingService && w.step != models.StepCompleted
}

// Submit hands the draft to the booking backend and completes the wizard.
// Outside confirming it returns ErrPreconditionFailed. When the backend fails
// the wizard stays in confirming so the user may retry.
func (w *BookingWizard) Submit(ctx context.Context, submitter BookingSubmitter) (*models.BookingConfirmation, error) {
	if w.step != models.StepConfirming {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "booking is not awaiting confirmation")
	}
	if submitter == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "booking backend not configured")
	}
	draft := w.Draft()
	booking, err := submitter.SubmitBooking(ctx, w.user, draft)
	if err != nil {
		w.lastErr = err
		return nil, err
	}
	if booking == nil || booking.ConfirmationID == "" {
		err := appErrors.Clone(appErrors.ErrUpstreamUnavailable, "booking backend returned no confirmation")
		w.lastErr = err
		return nil, err
	}

	w.confirmation = &models.BookingConfirmation{
		ConfirmationID: booking.ConfirmationID,
		BookingID:      booking.ID,
		Draft:          draft,
		Summary:        SummarizeBooking(booking.ConfirmationID, draft),
		SubmittedAt:    booking.CreatedAt,
	}
	w.step = models.StepCompleted
	w.lastErr = nil
	return w.Confirmation(), nil
}

// Restart begins another booking after completion with a fresh pre-filled draft.
func (w *BookingWizard) Restart() bool {
	if w.step != models.StepCompleted {
		return false
	}
	w.reset()
	return true
}

func (w *BookingWizard) reset() {
	w.step = models.StepSelectingService
	w.draft = models.BookingDraft{Channel: models.ChannelVideo, Contact: prefillContact(w.user)}
	w.confirmation = nil
	w.lastErr = nil
}

// SummarizeBooking renders the human-readable recap of a submitted draft.
func SummarizeBooking(confirmationID string, draft models.BookingDraft) models.BookingSummary {
	summary := models.BookingSummary{
		ConfirmationID: confirmationID,
		Channel:        draft.Channel,
		ContactName:    strings.TrimSpace(draft.Contact.FirstName + " " + draft.Contact.LastName),
		ContactEmail:   draft.Contact.Email,
	}
	if info, ok := models.LookupService(draft.Service); ok {
		summary.ServiceTitle = info.Title
		summary.DurationMin = info.DurationMin
	}
	if draft.Slot != nil {
		summary.StartsAt = draft.Slot.StartsAt
	}
	return summary
}

func prefillContact(user models.CurrentUser) models.ContactDetails {
	contact := models.ContactDetails{Email: strings.TrimSpace(user.Email)}
	name := strings.Fields(user.DisplayName)
	if len(name) > 0 {
		contact.FirstName = name[0]
		contact.LastName = strings.Join(name[1:], " ")
	}
	return contact
}
