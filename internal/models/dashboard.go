package models

import "time"

// Dashboard is the student's overview of saved programs, deadlines and bookings.
type Dashboard struct {
	User              CurrentUser      `json:"user"`
	SavedCount        int              `json:"saved_count"`
	SavedDeadlines    []DeadlineItem   `json:"saved_deadlines"`
	UpcomingDeadlines []DeadlineItem   `json:"upcoming_deadlines"`
	UrgentCount       int              `json:"urgent_count"`
	SessionBookings   []BookingSummary `json:"session_bookings"`
	TotalBookings     int              `json:"total_bookings"`
	Catalog           CatalogStatus    `json:"catalog"`
	GeneratedAt       time.Time        `json:"generated_at"`
}
