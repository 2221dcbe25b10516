package service

import (
	"sort"
	"time"

	"github.com/noah-isme/abroad-api/internal/models"
)

// DefaultUrgentWindowDays bounds the "urgent" classification.
const DefaultUrgentWindowDays = 30

const deadlineLayout = "2006-01-02"

// DaysUntil returns the calendar-day difference deadline minus now. Each
// instant is reduced to its calendar date in its own location first.
// The result is negative once the deadline has passed.
func DaysUntil(deadline, now time.Time) int {
	d := calendarDate(deadline)
	n := calendarDate(now)
	return int(d.Sub(n).Hours() / 24)
}

// ClassifyUrgency maps days-remaining to an urgency label using window as the urgent bound.
func ClassifyUrgency(daysLeft, window int) models.Urgency {
	if window <= 0 {
		window = DefaultUrgentWindowDays
	}
	switch {
	case daysLeft <= 0:
		return models.UrgencyPassed
	case daysLeft <= window:
		return models.UrgencyUrgent
	default:
		return models.UrgencyUpcoming
	}
}

// DeadlineFor builds the deadline view of a single program.
func DeadlineFor(p models.Program, now time.Time, window int) models.DeadlineItem {
	days := DaysUntil(p.Deadline, now)
	return models.DeadlineItem{
		ProgramID:   p.ID,
		ProgramName: p.Name,
		University:  p.UniversityName(),
		Country:     p.Country,
		Deadline:    calendarDate(p.Deadline).Format(deadlineLayout),
		DaysLeft:    days,
		Urgency:     ClassifyUrgency(days, window),
	}
}

// UpcomingDeadlines keeps programs whose deadline is still ahead, soonest
// first with ties broken by program identifier. limit <= 0 means no limit.
func UpcomingDeadlines(programs []models.Program, now time.Time, window, limit int) []models.DeadlineItem {
	items := make([]models.DeadlineItem, 0, len(programs))
	for _, p := range programs {
		item := DeadlineFor(p, now, window)
		if item.DaysLeft > 0 {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].DaysLeft != items[j].DaysLeft {
			return items[i].DaysLeft < items[j].DaysLeft
		}
		return items[i].ProgramID < items[j].ProgramID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
