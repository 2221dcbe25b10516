package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/abroad-api/internal/models"
	appErrors "github.com/noah-isme/abroad-api/pkg/errors"
)

type savedProgramStore interface {
	ListIDs(ctx context.Context, userID string) ([]string, error)
	Add(ctx context.Context, userID, programID string) error
	Remove(ctx context.Context, userID, programID string) error
	ReplaceAll(ctx context.Context, userID string, programIDs []string) error
}

type slotLookup interface {
	Get(ctx context.Context, id string) (*models.TimeSlot, error)
}

type receiptScheduler interface {
	Schedule(ctx context.Context, user models.CurrentUser, confirmation models.BookingConfirmation) error
}

// SessionConfig tunes the session registry.
type SessionConfig struct {
	IdleTTL          time.Duration
	PageSize         int
	UrgentWindowDays int
	FetchTimeout     time.Duration
}

// SessionService owns one Session per authenticated user and routes engine
// operations that need collaborators (catalog source, booking backend,
// saved-items persistence, slot lookup).
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	catalog   CatalogLoader
	saved     savedProgramStore
	slots     slotLookup
	bookings  BookingSubmitter
	receipts  receiptScheduler
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SessionConfig
	now       func() time.Time
}

// NewSessionService constructs the registry.
func NewSessionService(
	catalog CatalogLoader,
	saved savedProgramStore,
	slots slotLookup,
	bookings BookingSubmitter,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg SessionConfig,
) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 2 * time.Hour
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.UrgentWindowDays <= 0 {
		cfg.UrgentWindowDays = DefaultUrgentWindowDays
	}
	return &SessionService{
		sessions:  make(map[string]*Session),
		catalog:   catalog,
		saved:     saved,
		slots:     slots,
		bookings:  bookings,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithReceipts attaches the receipt scheduler run after each completed booking.
func (s *SessionService) WithReceipts(receipts receiptScheduler) *SessionService {
	s.receipts = receipts
	return s
}

// PageSize is the configured catalog page size.
func (s *SessionService) PageSize() int {
	return s.cfg.PageSize
}

// UrgentWindowDays is the configured urgent deadline window.
func (s *SessionService) UrgentWindowDays() int {
	return s.cfg.UrgentWindowDays
}

// Now returns the reference time used for deadline derivation.
func (s *SessionService) Now() time.Time {
	return s.now()
}

// Open returns the user's session, creating it on first use. A new session
// is seeded from the persisted saved-items snapshot before other requests can
// reach it, then loads the catalog; collaborator failures there leave the
// session usable and are only logged.
func (s *SessionService) Open(ctx context.Context, user models.CurrentUser) (*Session, error) {
	if user.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if sess, ok := s.lookup(user.UserID); ok {
		return sess, nil
	}

	sess := NewSession(user, s.validator, s.now)
	if s.saved != nil {
		ids, err := s.saved.ListIDs(ctx, user.UserID)
		if err != nil {
			s.logger.Warn("failed to load saved programs snapshot", zap.String("user_id", user.UserID), zap.Error(err))
		} else {
			_ = sess.Do(func(st *SessionState) error {
				st.Saved.Replace(ids)
				return nil
			})
		}
	}

	s.mu.Lock()
	if existing, ok := s.sessions[user.UserID]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.sessions[user.UserID] = sess
	active := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetActiveSessions(active)
	s.logger.Info("session opened", zap.String("user_id", user.UserID))

	if _, err := s.RefreshCatalog(ctx, sess); err != nil {
		s.logger.Warn("initial catalog load failed", zap.String("user_id", user.UserID), zap.Error(err))
	}
	return sess, nil
}

func (s *SessionService) lookup(userID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// Close signs the user out and discards the session state.
func (s *SessionService) Close(userID string) bool {
	s.mu.Lock()
	_, ok := s.sessions[userID]
	delete(s.sessions, userID)
	active := len(s.sessions)
	s.mu.Unlock()
	if ok {
		s.metrics.SetActiveSessions(active)
		s.logger.Info("session closed", zap.String("user_id", userID))
	}
	return ok
}

// Count returns the number of live sessions.
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep evicts sessions idle for longer than the configured TTL.
func (s *SessionService) Sweep(now time.Time) int {
	cutoff := now.Add(-s.cfg.IdleTTL)
	s.mu.Lock()
	evicted := 0
	for id, sess := range s.sessions {
		if sess.LastSeen().Before(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	active := len(s.sessions)
	s.mu.Unlock()
	if evicted > 0 {
		s.metrics.SetActiveSessions(active)
		s.logger.Info("idle sessions evicted", zap.Int("count", evicted), zap.Int("active", active))
	}
	return evicted
}

// Run sweeps idle sessions every interval until ctx is cancelled.
func (s *SessionService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.now())
		}
	}
}

// RefreshCatalog reloads the session catalog from the catalog source.
func (s *SessionService) RefreshCatalog(ctx context.Context, sess *Session) (models.CatalogStatus, error) {
	if s.catalog == nil {
		return sess.CatalogStatus(), appErrors.Clone(appErrors.ErrUpstreamUnavailable, "catalog source not configured")
	}
	if s.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
		defer cancel()
	}
	start := time.Now()
	status, err := sess.RefreshCatalog(ctx, s.catalog)
	switch {
	case err == nil:
		s.metrics.RecordCatalogLoad("success", time.Since(start))
	case errors.Is(err, appErrors.ErrStaleResponse):
		s.metrics.RecordCatalogLoad("stale", time.Since(start))
		s.logger.Debug("discarded stale catalog load", zap.String("user_id", sess.User().UserID))
	default:
		s.metrics.RecordCatalogLoad("failure", time.Since(start))
		s.logger.Warn("catalog load failed", zap.String("user_id", sess.User().UserID), zap.Error(err))
	}
	return status, err
}

// ToggleSaved flips the bookmark of programID. The in-memory set is
// authoritative; a persistence failure is logged and does not undo the toggle.
func (s *SessionService) ToggleSaved(ctx context.Context, sess *Session, programID string) (bool, error) {
	if programID == "" {
		return false, appErrors.Clone(appErrors.ErrValidation, "program id is required")
	}
	var saved bool
	err := sess.Do(func(st *SessionState) error {
		saved = st.Saved.Toggle(programID)
		if s.saved == nil {
			return nil
		}
		var persistErr error
		if saved {
			persistErr = s.saved.Add(ctx, st.User.UserID, programID)
		} else {
			persistErr = s.saved.Remove(ctx, st.User.UserID, programID)
		}
		if persistErr != nil {
			s.logger.Warn("failed to persist saved program", zap.String("user_id", st.User.UserID), zap.String("program_id", programID), zap.Error(persistErr))
		}
		return nil
	})
	return saved, err
}

// ReplaceSaved overwrites the saved set with ids, keeping their order and
// dropping duplicates, and returns the resulting ids. Persistence follows the
// same rule as ToggleSaved.
func (s *SessionService) ReplaceSaved(ctx context.Context, sess *Session, ids []string) ([]string, error) {
	var result []string
	err := sess.Do(func(st *SessionState) error {
		st.Saved.Replace(ids)
		result = st.Saved.IDs()
		if s.saved == nil {
			return nil
		}
		if err := s.saved.ReplaceAll(ctx, st.User.UserID, result); err != nil {
			s.logger.Warn("failed to persist saved programs", zap.String("user_id", st.User.UserID), zap.Error(err))
		}
		return nil
	})
	return result, err
}

// SelectSlot looks the slot up at the booking backend and offers it to the
// wizard. It reports whether the wizard accepted it.
func (s *SessionService) SelectSlot(ctx context.Context, sess *Session, slotID string) (bool, models.BookingView, error) {
	if slotID == "" {
		return false, models.BookingView{}, appErrors.Clone(appErrors.ErrValidation, "slot id is required")
	}
	if s.slots == nil {
		return false, models.BookingView{}, appErrors.Clone(appErrors.ErrUpstreamUnavailable, "slot source not configured")
	}
	slot, err := s.slots.Get(ctx, slotID)
	if err != nil {
		return false, models.BookingView{}, err
	}
	var (
		accepted bool
		view     models.BookingView
	)
	_ = sess.Do(func(st *SessionState) error {
		accepted = st.Booking.SelectSlot(*slot)
		view = st.Booking.View()
		return nil
	})
	return accepted, view, nil
}

// SubmitBooking completes the wizard through the booking backend. On success
// the confirmation is appended to the session history and a receipt is scheduled.
func (s *SessionService) SubmitBooking(ctx context.Context, sess *Session) (*models.BookingConfirmation, models.BookingView, error) {
	var (
		confirmation *models.BookingConfirmation
		view         models.BookingView
		user         models.CurrentUser
	)
	err := sess.Do(func(st *SessionState) error {
		var submitErr error
		confirmation, submitErr = st.Booking.Submit(ctx, s.bookings)
		view = st.Booking.View()
		user = st.User
		if submitErr != nil {
			return submitErr
		}
		st.Completed = append(st.Completed, *confirmation)
		return nil
	})
	if err != nil {
		if errors.Is(err, appErrors.ErrPreconditionFailed) {
			return nil, view, err
		}
		s.metrics.RecordBookingSubmission("failure")
		s.logger.Warn("booking submission failed", zap.String("user_id", user.UserID), zap.Error(err))
		return nil, view, err
	}
	s.metrics.RecordBookingSubmission("success")
	s.logger.Info("booking submitted",
		zap.String("user_id", user.UserID),
		zap.String("confirmation_id", confirmation.ConfirmationID),
		zap.String("service", string(confirmation.Draft.Service)),
	)
	if s.receipts != nil {
		if err := s.receipts.Schedule(ctx, user, *confirmation); err != nil {
			s.logger.Warn("failed to schedule booking receipt", zap.String("booking_id", confirmation.BookingID), zap.Error(err))
		}
	}
	return confirmation, view, nil
}
