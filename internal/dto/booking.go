package dto

import "github.com/noah-isme/abroad-api/internal/models"

// SelectServiceRequest picks the consultation service.
type SelectServiceRequest struct {
	Service models.ServiceType `json:"service" binding:"required"`
}

// SelectSlotRequest picks a consultation slot by identifier.
type SelectSlotRequest struct {
	SlotID string `json:"slot_id" binding:"required"`
}

// SetChannelRequest changes the consultation channel.
type SetChannelRequest struct {
	Channel models.Channel `json:"channel" binding:"required"`
}

// DetailsRequest fills the details step. Nil sections are left untouched.
type DetailsRequest struct {
	Contact     *models.ContactDetails   `json:"contact"`
	Preferences *models.StudyPreferences `json:"preferences"`
	Question    *string                  `json:"question"`
	Channel     *models.Channel          `json:"channel"`
}

// WizardActionResponse is returned by every wizard mutation. Applied is false
// when the action was not available in the current step or its guard failed.
type WizardActionResponse struct {
	Applied bool               `json:"applied"`
	Reason  string             `json:"reason,omitempty"`
	View    models.BookingView `json:"booking"`
}

// SubmitResponse is the outcome of a booking submission.
type SubmitResponse struct {
	Submitted    bool                        `json:"submitted"`
	Confirmation *models.BookingConfirmation `json:"confirmation,omitempty"`
	View         models.BookingView          `json:"booking"`
}
