package models

// Urgency classifies how close an application deadline is.
type Urgency string

const (
	UrgencyUrgent   Urgency = "urgent"
	UrgencyUpcoming Urgency = "upcoming"
	UrgencyPassed   Urgency = "passed"
)

// DeadlineItem pairs a program with its days-remaining and urgency.
type DeadlineItem struct {
	ProgramID   string  `json:"program_id"`
	ProgramName string  `json:"program_name"`
	University  string  `json:"university,omitempty"`
	Country     string  `json:"country"`
	Deadline    string  `json:"deadline"`
	DaysLeft    int     `json:"days_left"`
	Urgency     Urgency `json:"urgency"`
}
