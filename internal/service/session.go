package service

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/abroad-api/internal/models"
	appErrors "github.com/noah-isme/abroad-api/pkg/errors"
)

// CatalogLoader fetches programs from the catalog source. A nil criteria
// requests the full catalog.
type CatalogLoader interface {
	FetchPrograms(ctx context.Context, criteria *models.ProgramCriteria) ([]models.Program, error)
}

// SessionState groups the state objects owned by one user session.
type SessionState struct {
	User      models.CurrentUser
	Programs  *ProgramStore
	Saved     *SavedPrograms
	Booking   *BookingWizard
	Completed []models.BookingConfirmation
}

// Session serialises every mutation of a user's engine state behind one mutex.
// Catalog loading is the only operation that runs outside the lock.
type Session struct {
	mu    sync.Mutex
	state SessionState

	catalogState models.CatalogState
	generation   uint64
	loadErr      error
	loadedAt     *time.Time

	lastSeen time.Time
	now      func() time.Time
}

// NewSession creates an idle session with an empty catalog.
func NewSession(user models.CurrentUser, validate *validator.Validate, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	programs, _ := NewProgramStore(nil)
	return &Session{
		state: SessionState{
			User:     user,
			Programs: programs,
			Saved:    NewSavedPrograms(),
			Booking:  NewBookingWizard(user, validate),
		},
		catalogState: models.CatalogIdle,
		lastSeen:     now(),
		now:          now,
	}
}

// User returns the identity owning the session.
func (s *Session) User() models.CurrentUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.User
}

// Do runs fn with exclusive access to the session state.
func (s *Session) Do(fn func(*SessionState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.now()
	return fn(&s.state)
}

// LastSeen reports when the session was last used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// CatalogStatus reports the outcome of the latest catalog load.
func (s *Session) CatalogStatus() models.CatalogStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalogStatusLocked()
}

func (s *Session) catalogStatusLocked() models.CatalogStatus {
	status := models.CatalogStatus{
		State:    s.catalogState,
		Version:  s.state.Programs.Version(),
		Programs: len(s.state.Programs.catalog),
	}
	if s.loadedAt != nil {
		t := *s.loadedAt
		status.LoadedAt = &t
	}
	if s.loadErr != nil {
		status.Error = appErrors.FromError(s.loadErr).Message
	}
	return status
}

// RefreshCatalog loads the full catalog from loader and replaces the session
// catalog on success. While a load is in flight the status is pending. A load
// that has been superseded by a newer one is discarded and reported with
// ErrStaleResponse. A failed load keeps the previous catalog.
func (s *Session) RefreshCatalog(ctx context.Context, loader CatalogLoader) (models.CatalogStatus, error) {
	s.mu.Lock()
	s.generation++
	generation := s.generation
	s.catalogState = models.CatalogPending
	s.lastSeen = s.now()
	s.mu.Unlock()

	programs, fetchErr := loader.FetchPrograms(ctx, nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		return s.catalogStatusLocked(), appErrors.Clone(appErrors.ErrStaleResponse, "catalog load superseded by a newer request")
	}
	if fetchErr == nil {
		fetchErr = s.state.Programs.ReplaceCatalog(programs)
	}
	if fetchErr != nil {
		s.catalogState = models.CatalogFailed
		s.loadErr = fetchErr
		return s.catalogStatusLocked(), fetchErr
	}
	loadedAt := s.now()
	s.catalogState = models.CatalogReady
	s.loadErr = nil
	s.loadedAt = &loadedAt
	return s.catalogStatusLocked(), nil
}
