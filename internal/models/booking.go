package models

import "time"

// ServiceType identifies a consultation service offered by the booking wizard.
type ServiceType string

const (
	ServiceUniversitySelection ServiceType = "university-selection"
	ServiceApplicationReview   ServiceType = "application-review"
	ServiceScholarshipGuidance ServiceType = "scholarship-guidance"
	ServiceVisaGuidance        ServiceType = "visa-guidance"
	ServiceCareerCounseling    ServiceType = "career-counseling"
)

// ServiceInfo is the static display metadata for a service type.
type ServiceInfo struct {
	Type        ServiceType   `json:"type"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Duration    time.Duration `json:"-"`
	DurationMin int           `json:"duration_minutes"`
	Icon        string        `json:"icon"`
	Free        bool          `json:"free"`
}

var serviceOrder = []ServiceType{
	ServiceUniversitySelection,
	ServiceApplicationReview,
	ServiceScholarshipGuidance,
	ServiceVisaGuidance,
	ServiceCareerCounseling,
}

var serviceCatalog = map[ServiceType]ServiceInfo{
	ServiceUniversitySelection: {
		Title:       "University Selection",
		Description: "Shortlist universities and programs that match your profile and budget.",
		Duration:    45 * time.Minute,
		Icon:        "graduation-cap",
		Free:        true,
	},
	ServiceApplicationReview: {
		Title:       "Application Review",
		Description: "Review of statements of purpose, CVs and recommendation letters.",
		Duration:    60 * time.Minute,
		Icon:        "file-text",
	},
	ServiceScholarshipGuidance: {
		Title:       "Scholarship Guidance",
		Description: "Identify scholarships you are eligible for and plan the applications.",
		Duration:    30 * time.Minute,
		Icon:        "award",
	},
	ServiceVisaGuidance: {
		Title:       "Visa Guidance",
		Description: "Walk through the student visa requirements of your destination.",
		Duration:    30 * time.Minute,
		Icon:        "passport",
	},
	ServiceCareerCounseling: {
		Title:       "Career Counseling",
		Description: "Align your study plans with career goals and job markets abroad.",
		Duration:    45 * time.Minute,
		Icon:        "briefcase",
	},
}

// Valid reports whether the service type belongs to the closed set.
func (t ServiceType) Valid() bool {
	_, ok := serviceCatalog[t]
	return ok
}

// LookupService returns the display metadata for a service type.
func LookupService(t ServiceType) (ServiceInfo, bool) {
	info, ok := serviceCatalog[t]
	if !ok {
		return ServiceInfo{}, false
	}
	info.Type = t
	info.DurationMin = int(info.Duration / time.Minute)
	return info, true
}

// Services lists every service in display order.
func Services() []ServiceInfo {
	out := make([]ServiceInfo, 0, len(serviceOrder))
	for _, t := range serviceOrder {
		info, _ := LookupService(t)
		out = append(out, info)
	}
	return out
}

// Channel is how the consultation is held.
type Channel string

const (
	ChannelVideo Channel = "video"
	ChannelPhone Channel = "phone"
	ChannelChat  Channel = "chat"
)

// Valid reports whether the channel is supported.
func (c Channel) Valid() bool {
	switch c {
	case ChannelVideo, ChannelPhone, ChannelChat:
		return true
	}
	return false
}

// TimeSlot is a bookable consultation window.
type TimeSlot struct {
	ID        string    `db:"id" json:"id"`
	StartsAt  time.Time `db:"starts_at" json:"starts_at"`
	EndsAt    time.Time `db:"ends_at" json:"ends_at"`
	Available bool      `db:"available" json:"available"`
}

// ContactDetails are the personal details required before confirmation.
type ContactDetails struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone,omitempty"`
	Country   string `json:"country" validate:"required"`
}

// StudyPreferences are optional hints for the consultant.
type StudyPreferences struct {
	Destination string `json:"destination,omitempty"`
	Level       string `json:"level,omitempty"`
	Field       string `json:"field,omitempty"`
}

// BookingDraft is the in-progress consultation request.
type BookingDraft struct {
	Service     ServiceType      `json:"service,omitempty"`
	Slot        *TimeSlot        `json:"slot,omitempty"`
	Channel     Channel          `json:"channel"`
	Contact     ContactDetails   `json:"contact"`
	Preferences StudyPreferences `json:"preferences"`
	Question    string           `json:"question,omitempty"`
}

// Booking is a submitted consultation request as persisted by the booking backend.
type Booking struct {
	ID             string      `db:"id" json:"id"`
	ConfirmationID string      `db:"confirmation_id" json:"confirmation_id"`
	UserID         string      `db:"user_id" json:"user_id"`
	Service        ServiceType `db:"service" json:"service"`
	SlotID         string      `db:"slot_id" json:"slot_id"`
	SlotStartsAt   time.Time   `db:"slot_starts_at" json:"slot_starts_at"`
	Channel        Channel     `db:"channel" json:"channel"`
	FirstName      string      `db:"first_name" json:"first_name"`
	LastName       string      `db:"last_name" json:"last_name"`
	Email          string      `db:"email" json:"email"`
	Phone          *string     `db:"phone" json:"phone,omitempty"`
	Country        string      `db:"country" json:"country"`
	Destination    *string     `db:"destination" json:"destination,omitempty"`
	Level          *string     `db:"level" json:"level,omitempty"`
	Field          *string     `db:"field" json:"field,omitempty"`
	Question       *string     `db:"question" json:"question,omitempty"`
	ReceiptPath    *string     `db:"receipt_path" json:"-"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
}

// BookingSummary is the human-readable recap shown after completion.
type BookingSummary struct {
	ConfirmationID string    `json:"confirmation_id"`
	ServiceTitle   string    `json:"service_title"`
	StartsAt       time.Time `json:"starts_at"`
	DurationMin    int       `json:"duration_minutes"`
	Channel        Channel   `json:"channel"`
	ContactName    string    `json:"contact_name"`
	ContactEmail   string    `json:"contact_email"`
}

// BookingConfirmation is the booking backend's acknowledgement of a submitted draft.
type BookingConfirmation struct {
	ConfirmationID string         `json:"confirmation_id"`
	BookingID      string         `json:"booking_id"`
	Draft          BookingDraft   `json:"draft"`
	Summary        BookingSummary `json:"summary"`
	SubmittedAt    time.Time      `json:"submitted_at"`
}

// BookingStep is a state of the booking wizard.
type BookingStep string

const (
	StepSelectingService  BookingStep = "selecting_service"
	StepSelectingSchedule BookingStep = "selecting_schedule"
	StepEnteringDetails   BookingStep = "entering_details"
	StepConfirming        BookingStep = "confirming"
	StepCompleted         BookingStep = "completed"
)

// BookingView is the read model of a wizard.
type BookingView struct {
	Step         BookingStep          `json:"step"`
	Draft        BookingDraft         `json:"draft"`
	CanAdvance   bool                 `json:"can_advance"`
	CanGoBack    bool                 `json:"can_go_back"`
	Confirmation *BookingConfirmation `json:"confirmation,omitempty"`
	LastError    string               `json:"last_error,omitempty"`
}

// ReceiptLink is a time-limited download link for a booking receipt.
type ReceiptLink struct {
	BookingID string    `json:"booking_id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
