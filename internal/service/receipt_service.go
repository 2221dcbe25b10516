package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/abroad-api/internal/models"
	appErrors "github.com/noah-isme/abroad-api/pkg/errors"
	"github.com/noah-isme/abroad-api/pkg/export"
	"github.com/noah-isme/abroad-api/pkg/jobs"
	"github.com/noah-isme/abroad-api/pkg/storage"
)

// ReceiptJobType identifies receipt render jobs on the queue.
const ReceiptJobType = "booking_receipt"

type receiptStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
}

type receiptBookings interface {
	Get(ctx context.Context, userID, bookingID string) (*models.Booking, error)
	AttachReceipt(ctx context.Context, bookingID, path string) error
}

type receiptJob struct {
	User         models.CurrentUser
	Confirmation models.BookingConfirmation
}

// ReceiptService renders PDF receipts for completed bookings in the background
// and hands out signed download links for them.
type ReceiptService struct {
	queue      *jobs.Queue
	renderer   *export.PDFExporter
	storage    receiptStorage
	signer     *storage.SignedURLSigner
	bookings   receiptBookings
	metrics    *MetricsService
	logger     *zap.Logger
	linkPrefix string
}

// NewReceiptService constructs the service and registers its job handler on queue.
func NewReceiptService(queue *jobs.Queue, store receiptStorage, signer *storage.SignedURLSigner, bookings receiptBookings, metrics *MetricsService, logger *zap.Logger, linkPrefix string) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReceiptService{
		queue:      queue,
		renderer:   export.NewPDFExporter(),
		storage:    store,
		signer:     signer,
		bookings:   bookings,
		metrics:    metrics,
		logger:     logger,
		linkPrefix: strings.TrimRight(linkPrefix, "/"),
	}
	queue.Handle(ReceiptJobType, s.process)
	return s
}

// Schedule queues the receipt render of a completed booking.
func (s *ReceiptService) Schedule(_ context.Context, user models.CurrentUser, confirmation models.BookingConfirmation) error {
	jobID, err := s.queue.Enqueue(jobs.Job{
		ID:      confirmation.BookingID,
		Type:    ReceiptJobType,
		Payload: receiptJob{User: user, Confirmation: confirmation},
	})
	if err != nil {
		return fmt.Errorf("enqueue receipt: %w", err)
	}
	s.logger.Debug("receipt scheduled", zap.String("job_id", jobID))
	return nil
}

// Render lays out the receipt document of a confirmation.
func (s *ReceiptService) Render(confirmation models.BookingConfirmation) ([]byte, error) {
	summary := confirmation.Summary
	draft := confirmation.Draft
	fields := []export.Field{
		{Label: "Confirmation", Value: summary.ConfirmationID},
		{Label: "Service", Value: summary.ServiceTitle},
		{Label: "Starts at", Value: summary.StartsAt.UTC().Format("Mon, 02 Jan 2006 15:04 MST")},
		{Label: "Duration", Value: fmt.Sprintf("%d minutes", summary.DurationMin)},
		{Label: "Channel", Value: string(summary.Channel)},
		{Label: "Name", Value: summary.ContactName},
		{Label: "Email", Value: summary.ContactEmail},
		{Label: "Country", Value: draft.Contact.Country},
	}
	if draft.Contact.Phone != "" {
		fields = append(fields, export.Field{Label: "Phone", Value: draft.Contact.Phone})
	}
	if draft.Preferences.Destination != "" {
		fields = append(fields, export.Field{Label: "Destination", Value: draft.Preferences.Destination})
	}
	if draft.Preferences.Level != "" {
		fields = append(fields, export.Field{Label: "Level", Value: draft.Preferences.Level})
	}
	if draft.Preferences.Field != "" {
		fields = append(fields, export.Field{Label: "Field of study", Value: draft.Preferences.Field})
	}
	if draft.Question != "" {
		fields = append(fields, export.Field{Label: "Question", Value: draft.Question})
	}
	return s.renderer.Render(export.Document{
		Title:    "Consultation booking receipt",
		Subtitle: "Submitted " + confirmation.SubmittedAt.UTC().Format(time.RFC1123),
		Fields:   fields,
		Footer:   "Keep this confirmation number for any change or cancellation request.",
	})
}

// Link returns a signed download link for the booking's receipt.
func (s *ReceiptService) Link(ctx context.Context, userID, bookingID string) (*models.ReceiptLink, error) {
	booking, err := s.bookings.Get(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.ReceiptPath == nil || *booking.ReceiptPath == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "receipt is not ready yet")
	}
	token, expiresAt, err := s.signer.Generate(booking.ID, *booking.ReceiptPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign receipt link")
	}
	return &models.ReceiptLink{
		BookingID: booking.ID,
		URL:       s.linkPrefix + "/receipts/" + token,
		ExpiresAt: expiresAt,
	}, nil
}

// Open resolves a signed token to the stored receipt file.
func (s *ReceiptService) Open(token string) (*os.File, string, error) {
	parsed, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired receipt link")
	}
	file, err := s.storage.Open(parsed.Path)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "receipt not found")
	}
	return file, "receipt-" + parsed.Subject + ".pdf", nil
}

func (s *ReceiptService) process(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(receiptJob)
	if !ok {
		s.metrics.RecordReceipt("invalid")
		return nil
	}
	data, err := s.Render(payload.Confirmation)
	if err != nil {
		s.metrics.RecordReceipt("failure")
		return err
	}
	name := path.Join(payload.User.UserID, payload.Confirmation.BookingID+".pdf")
	if _, err := s.storage.Save(name, data); err != nil {
		s.metrics.RecordReceipt("failure")
		return err
	}
	if err := s.bookings.AttachReceipt(ctx, payload.Confirmation.BookingID, name); err != nil {
		s.metrics.RecordReceipt("failure")
		return err
	}
	s.metrics.RecordReceipt("success")
	s.logger.Info("receipt rendered", zap.String("booking_id", payload.Confirmation.BookingID), zap.String("path", name))
	return nil
}
