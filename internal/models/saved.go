package models

// SavedView lists the user's bookmarks resolved against the live catalog.
type SavedView struct {
	IDs      []string  `json:"ids"`
	Programs []Program `json:"programs"`
	Orphans  int       `json:"orphans"`
}
