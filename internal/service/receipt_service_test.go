package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/abroad-api/internal/models"
	appErrors "github.com/noah-isme/abroad-api/pkg/errors"
	"github.com/noah-isme/abroad-api/pkg/jobs"
	"github.com/noah-isme/abroad-api/pkg/storage"
)

func sampleConfirmation() models.BookingConfirmation {
	draft := completeDraft()
	return models.BookingConfirmation{
		ConfirmationID: "ABC123DEF456",
		BookingID:      "b-1",
		Draft:          draft,
		Summary:        SummarizeBooking("ABC123DEF456", draft),
		SubmittedAt:    fixedNow(),
	}
}

func newReceiptFixture(t *testing.T) (*ReceiptService, *jobs.Queue, *fakeBookingRepo, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)

	repo := newFakeBookingRepo()
	repo.bookings["b-1"] = &models.Booking{ID: "b-1", UserID: testUser.UserID}
	bookings := NewBookingService(repo, nil, nil)

	queue := jobs.NewQueue("receipts", jobs.QueueConfig{Workers: 1, RetryDelay: 10 * time.Millisecond, Logger: zap.NewNop()})
	signer := storage.NewSignedURLSigner("receipt-secret", time.Hour)
	svc := NewReceiptService(queue, store, signer, bookings, NewMetricsService(), nil, "/api/v1/")
	return svc, queue, repo, dir
}

func TestReceiptServiceRender(t *testing.T) {
	svc, _, _, _ := newReceiptFixture(t)
	data, err := svc.Render(sampleConfirmation())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestReceiptServiceScheduleRendersAndLinks(t *testing.T) {
	svc, queue, repo, dir := newReceiptFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)
	defer queue.Stop()

	_, err := svc.Link(context.Background(), testUser.UserID, "b-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	require.NoError(t, svc.Schedule(context.Background(), testUser, sampleConfirmation()))
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, testUser.UserID, "b-1.pdf"))
		return err == nil && repo.receiptFor("b-1") != ""
	}, 5*time.Second, 10*time.Millisecond)

	link, err := svc.Link(context.Background(), testUser.UserID, "b-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link.URL, "/api/v1/receipts/"))

	token := strings.TrimPrefix(link.URL, "/api/v1/receipts/")
	file, name, err := svc.Open(token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, "receipt-b-1.pdf", name)
	head := make([]byte, 4)
	_, err = io.ReadFull(file, head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(head))

	_, err = svc.Link(context.Background(), "intruder", "b-1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestReceiptServiceOpenRejectsBadToken(t *testing.T) {
	svc, _, _, _ := newReceiptFixture(t)
	_, _, err := svc.Open("garbage")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestReceiptServiceScheduleRequiresRunningQueue(t *testing.T) {
	svc, _, _, _ := newReceiptFixture(t)
	assert.Error(t, svc.Schedule(context.Background(), testUser, sampleConfirmation()))
}
