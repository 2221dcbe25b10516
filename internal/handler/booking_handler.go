package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/abroad-api/internal/dto"
	"github.com/noah-isme/abroad-api/internal/models"
	"github.com/noah-isme/abroad-api/internal/service"
	appErrors "github.com/noah-isme/abroad-api/pkg/errors"
	"github.com/noah-isme/abroad-api/pkg/response"
)

type bookingSessions interface {
	SelectSlot(ctx context.Context, sess *service.Session, slotID string) (bool, models.BookingView, error)
	SubmitBooking(ctx context.Context, sess *service.Session) (*models.BookingConfirmation, models.BookingView, error)
}

type slotLister interface {
	Upcoming(ctx context.Context) ([]models.TimeSlot, error)
}

type bookingLister interface {
	ListForUser(ctx context.Context, userID string) ([]models.Booking, error)
}

type receiptLinker interface {
	Link(ctx context.Context, userID, bookingID string) (*models.ReceiptLink, error)
	Open(token string) (*os.File, string, error)
}

// BookingHandler drives the consultation booking wizard of the session.
type BookingHandler struct {
	sessions bookingSessions
	slots    slotLister
	bookings bookingLister
	receipts receiptLinker
}

// NewBookingHandler builds a booking handler.
func NewBookingHandler(sessions bookingSessions, slots slotLister, bookings bookingLister, receipts receiptLinker) *BookingHandler {
	return &BookingHandler{sessions: sessions, slots: slots, bookings: bookings, receipts: receipts}
}

// View godoc
// @Summary Current wizard state and draft
// @Tags Booking
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /booking [get]
func (h *BookingHandler) View(c *gin.Context) {
	h.apply(c, func(*service.BookingWizard) (bool, string) { return true, "" })
}

// Services godoc
// @Summary Consultation services
// @Tags Booking
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /booking/services [get]
func (h *BookingHandler) Services(c *gin.Context) {
	response.JSON(c, http.StatusOK, models.Services(), nil)
}

// Slots godoc
// @Summary Upcoming consultation slots
// @Tags Booking
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /booking/slots [get]
func (h *BookingHandler) Slots(c *gin.Context) {
	slots, err := h.slots.Upcoming(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// SelectService godoc
// @Summary Select the consultation service
// @Tags Booking
// @Accept json
// @Produce json
// @Param payload body dto.SelectServiceRequest true "Service"
// @Success 200 {object} response.Envelope
// @Router /booking/service [post]
func (h *BookingHandler) SelectService(c *gin.Context) {
	var req dto.SelectServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid service payload"))
		return
	}
	if !req.Service.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown service type"))
		return
	}
	h.apply(c, func(w *service.BookingWizard) (bool, string) {
		return w.SelectService(req.Service), notInStep(w)
	})
}

// SelectSlot godoc
// @Summary Select a consultation slot
// @Description Unavailable slots are not selectable; the response then reports applied=false.
// @Tags Booking
// @Accept json
// @Produce json
// @Param payload body dto.SelectSlotRequest true "Slot"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /booking/slot [post]
func (h *BookingHandler) SelectSlot(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.SelectSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}
	accepted, view, err := h.sessions.SelectSlot(c.Request.Context(), sess, req.SlotID)
	if err != nil {
		response.Error(c, err)
		return
	}
	resp := dto.WizardActionResponse{Applied: accepted, View: view}
	if !accepted {
		resp.Reason = "slot is unavailable or the schedule step is not active"
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// SetChannel godoc
// @Summary Change the consultation channel
// @Tags Booking
// @Accept json
// @Produce json
// @Param payload body dto.SetChannelRequest true "Channel"
// @Success 200 {object} response.Envelope
// @Router /booking/channel [post]
func (h *BookingHandler) SetChannel(c *gin.Context) {
	var req dto.SetChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid channel payload"))
		return
	}
	if !req.Channel.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "channel must be video, phone or chat"))
		return
	}
	h.apply(c, func(w *service.BookingWizard) (bool, string) {
		return w.SetChannel(req.Channel), notInStep(w)
	})
}

// SetDetails godoc
// @Summary Fill contact details, study preferences and question
// @Tags Booking
// @Accept json
// @Produce json
// @Param payload body dto.DetailsRequest true "Details"
// @Success 200 {object} response.Envelope
// @Router /booking/details [post]
func (h *BookingHandler) SetDetails(c *gin.Context) {
	var req dto.DetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid details payload"))
		return
	}
	if req.Channel != nil && !req.Channel.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "channel must be video, phone or chat"))
		return
	}
	h.apply(c, func(w *service.BookingWizard) (bool, string) {
		if w.Step() != models.StepEnteringDetails {
			return false, notInStep(w)
		}
		if req.Contact != nil {
			w.SetContact(*req.Contact)
		}
		if req.Preferences != nil {
			w.SetPreferences(*req.Preferences)
		}
		if req.Question != nil {
			w.SetQuestion(*req.Question)
		}
		if req.Channel != nil {
			w.SetChannel(*req.Channel)
		}
		return true, ""
	})
}

// Next godoc
// @Summary Advance to the next step when its guard holds
// @Tags Booking
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /booking/next [post]
func (h *BookingHandler) Next(c *gin.Context) {
	h.apply(c, func(w *service.BookingWizard) (bool, string) {
		if w.Advance() {
			return true, ""
		}
		return false, guardReason(w)
	})
}

// Back godoc
// @Summary Return to the previous step keeping entered data
// @Tags Booking
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /booking/back [post]
func (h *BookingHandler) Back(c *gin.Context) {
	h.apply(c, func(w *service.BookingWizard) (bool, string) {
		return w.Back(), "no previous step"
	})
}

// Restart godoc
// @Summary Start another booking after completion
// @Tags Booking
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /booking/restart [post]
func (h *BookingHandler) Restart(c *gin.Context) {
	h.apply(c, func(w *service.BookingWizard) (bool, string) {
		return w.Restart(), "booking is not completed"
	})
}

// Submit godoc
// @Summary Submit the confirmed booking
// @Description Outside the confirming step nothing is submitted and submitted=false is returned. Backend failures keep the wizard in confirming.
// @Tags Booking
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /booking/submit [post]
func (h *BookingHandler) Submit(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	confirmation, view, err := h.sessions.SubmitBooking(c.Request.Context(), sess)
	if err != nil {
		if errors.Is(err, appErrors.ErrPreconditionFailed) {
			response.JSON(c, http.StatusOK, dto.SubmitResponse{Submitted: false, View: view}, nil)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.SubmitResponse{Submitted: true, Confirmation: confirmation, View: view}, nil)
}

// Receipt godoc
// @Summary Signed download link of a booking receipt
// @Tags Booking
// @Produce json
// @Param booking_id query string false "Booking ID, defaults to the latest booking of the session"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /booking/receipt [get]
func (h *BookingHandler) Receipt(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	bookingID := c.Query("booking_id")
	if bookingID == "" {
		_ = sess.Do(func(st *service.SessionState) error {
			if n := len(st.Completed); n > 0 {
				bookingID = st.Completed[n-1].BookingID
			}
			return nil
		})
	}
	if bookingID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "no completed booking in this session"))
		return
	}
	link, err := h.receipts.Link(c.Request.Context(), sess.User().UserID, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// DownloadReceipt godoc
// @Summary Download a receipt through a signed token
// @Tags Booking
// @Produce application/pdf
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /receipts/{token} [get]
func (h *BookingHandler) DownloadReceipt(c *gin.Context) {
	file, filename, err := h.receipts.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read receipt"))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), "application/pdf", file, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, filename),
		"Cache-Control":       "no-store",
	})
}

// History godoc
// @Summary Submitted bookings of the current user
// @Tags Booking
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /bookings [get]
func (h *BookingHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	bookings, err := h.bookings.ListForUser(c.Request.Context(), claims.CurrentUser().UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, nil)
}

// apply runs a wizard action under the session lock and renders the resulting view.
func (h *BookingHandler) apply(c *gin.Context, action func(*service.BookingWizard) (bool, string)) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var resp dto.WizardActionResponse
	_ = sess.Do(func(st *service.SessionState) error {
		applied, reason := action(st.Booking)
		resp.Applied = applied
		if !applied {
			resp.Reason = reason
		}
		resp.View = st.Booking.View()
		return nil
	})
	response.JSON(c, http.StatusOK, resp, nil)
}

func notInStep(w *service.BookingWizard) string {
	return fmt.Sprintf("not available while %s", w.Step())
}

func guardReason(w *service.BookingWizard) string {
	switch w.Step() {
	case models.StepSelectingService:
		return "select a service first"
	case models.StepSelectingSchedule:
		return "select an available time slot first"
	case models.StepEnteringDetails:
		if err := w.ContactError(); err != nil {
			return appErrors.FromError(err).Message
		}
	case models.StepConfirming:
		return "submit the booking to complete it"
	}
	return "booking is completed"
}
