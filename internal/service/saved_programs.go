package service

import "github.com/noah-isme/abroad-api/internal/models"

// SavedPrograms is the identifier set of bookmarked programs for one session.
// Identifiers need not exist in the catalog; Resolve drops orphans.
type SavedPrograms struct {
	order []string
	set   map[string]int
}

// NewSavedPrograms builds an empty set.
func NewSavedPrograms() *SavedPrograms {
	return &SavedPrograms{set: make(map[string]int)}
}

// Toggle adds id when absent and removes it when present. It returns the new membership.
func (s *SavedPrograms) Toggle(id string) bool {
	if _, ok := s.set[id]; ok {
		s.remove(id)
		return false
	}
	s.set[id] = len(s.order)
	s.order = append(s.order, id)
	return true
}

// IsSaved reports membership in constant time.
func (s *SavedPrograms) IsSaved(id string) bool {
	_, ok := s.set[id]
	return ok
}

// Len returns the number of saved identifiers, orphans included.
func (s *SavedPrograms) Len() int {
	return len(s.order)
}

// IDs returns the saved identifiers in the order they were saved.
func (s *SavedPrograms) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Replace reconciles the set with a remote snapshot. The snapshot wins;
// duplicates in it are collapsed.
func (s *SavedPrograms) Replace(ids []string) {
	s.order = s.order[:0]
	s.set = make(map[string]int, len(ids))
	for _, id := range ids {
		if _, dup := s.set[id]; dup || id == "" {
			continue
		}
		s.set[id] = len(s.order)
		s.order = append(s.order, id)
	}
}

// Clear empties the set.
func (s *SavedPrograms) Clear() {
	s.Replace(nil)
}

// Resolve cross-references the set against a live catalog, returning the
// saved programs in catalog order and the number of orphan identifiers.
func (s *SavedPrograms) Resolve(catalog []models.Program) ([]models.Program, int) {
	out := make([]models.Program, 0, len(s.order))
	for _, p := range catalog {
		if s.IsSaved(p.ID) {
			out = append(out, p)
		}
	}
	return out, len(s.order) - len(out)
}

func (s *SavedPrograms) remove(id string) {
	i := s.set[id]
	delete(s.set, id)
	s.order = append(s.order[:i], s.order[i+1:]...)
	for j := i; j < len(s.order); j++ {
		s.set[s.order[j]] = j
	}
}
