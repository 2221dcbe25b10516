package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/abroad-api/internal/models"
)

type bookingHistory interface {
	ListForUser(ctx context.Context, userID string) ([]models.Booking, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	UrgentWindowDays int
	UpcomingLimit    int
}

// DashboardService composes the student dashboard from a session.
type DashboardService struct {
	history bookingHistory
	logger  *zap.Logger
	cfg     DashboardServiceConfig
	now     func() time.Time
}

// NewDashboardService constructs the service.
func NewDashboardService(history bookingHistory, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UrgentWindowDays <= 0 {
		cfg.UrgentWindowDays = DefaultUrgentWindowDays
	}
	if cfg.UpcomingLimit <= 0 {
		cfg.UpcomingLimit = 5
	}
	return &DashboardService{history: history, logger: logger, cfg: cfg, now: time.Now}
}

// Build derives the dashboard of the session. Booking history failures
// degrade to the session's own bookings.
func (s *DashboardService) Build(ctx context.Context, sess *Session) (*models.Dashboard, error) {
	now := s.now()
	dashboard := &models.Dashboard{GeneratedAt: now.UTC(), Catalog: sess.CatalogStatus()}
	_ = sess.Do(func(st *SessionState) error {
		dashboard.User = st.User
		dashboard.SavedCount = st.Saved.Len()
		saved, _ := st.Saved.Resolve(st.Programs.Catalog())
		dashboard.SavedDeadlines = UpcomingDeadlines(saved, now, s.cfg.UrgentWindowDays, 0)
		dashboard.UpcomingDeadlines = UpcomingDeadlines(st.Programs.Catalog(), now, s.cfg.UrgentWindowDays, s.cfg.UpcomingLimit)
		dashboard.SessionBookings = make([]models.BookingSummary, 0, len(st.Completed))
		for _, c := range st.Completed {
			dashboard.SessionBookings = append(dashboard.SessionBookings, c.Summary)
		}
		return nil
	})
	for _, item := range dashboard.SavedDeadlines {
		if item.Urgency == models.UrgencyUrgent {
			dashboard.UrgentCount++
		}
	}

	dashboard.TotalBookings = len(dashboard.SessionBookings)
	if s.history != nil {
		bookings, err := s.history.ListForUser(ctx, dashboard.User.UserID)
		if err != nil {
			s.logger.Warn("failed to load booking history", zap.String("user_id", dashboard.User.UserID), zap.Error(err))
		} else if len(bookings) > dashboard.TotalBookings {
			dashboard.TotalBookings = len(bookings)
		}
	}
	return dashboard, nil
}
