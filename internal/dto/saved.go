package dto

// ToggleSavedResponse reports the membership of a program after a toggle.
type ToggleSavedResponse struct {
	ProgramID string `json:"program_id"`
	Saved     bool   `json:"saved"`
	Count     int    `json:"count"`
}

// ReplaceSavedRequest overwrites the saved set with a remote snapshot.
type ReplaceSavedRequest struct {
	ProgramIDs []string `json:"program_ids"`
}
