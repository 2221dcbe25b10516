package service

import (
	"sort"
	"strings"

	"github.com/noah-isme/abroad-api/internal/models"
	appErrors "github.com/noah-isme/abroad-api/pkg/errors"
)

// ProgramStore owns a session's catalog, filter criteria and requested page.
// It is not safe for concurrent use; Session serialises access.
type ProgramStore struct {
	catalog  []models.Program
	index    map[string]int
	version  uint64
	criteria models.ProgramCriteria
	page     int

	memoValid   bool
	memoVersion uint64
	memoKey     string
	memo        []models.Program
}

// NewProgramStore builds a store with empty criteria over the given catalog.
func NewProgramStore(catalog []models.Program) (*ProgramStore, error) {
	s := &ProgramStore{page: 1}
	if err := s.ReplaceCatalog(catalog); err != nil {
		return nil, err
	}
	return s, nil
}

// ReplaceCatalog swaps the catalog wholesale. An invalid catalog is rejected
// and the previous one kept.
func (s *ProgramStore) ReplaceCatalog(programs []models.Program) error {
	if err := models.ValidateCatalog(programs); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid catalog")
	}
	catalog := make([]models.Program, len(programs))
	copy(catalog, programs)
	index := make(map[string]int, len(catalog))
	for i, p := range catalog {
		index[p.ID] = i
	}
	s.catalog = catalog
	s.index = index
	s.version++
	return nil
}

// Version increases on every catalog replacement.
func (s *ProgramStore) Version() uint64 {
	return s.version
}

// Catalog returns a copy of the full catalog in insertion order.
func (s *ProgramStore) Catalog() []models.Program {
	out := make([]models.Program, len(s.catalog))
	copy(out, s.catalog)
	return out
}

// Lookup finds a program by identifier.
func (s *ProgramStore) Lookup(id string) (models.Program, bool) {
	i, ok := s.index[id]
	if !ok {
		return models.Program{}, false
	}
	return s.catalog[i], true
}

// Criteria returns a copy of the active criteria.
func (s *ProgramStore) Criteria() models.ProgramCriteria {
	out := models.ProgramCriteria{Query: s.criteria.Query}
	if s.criteria.Country != nil {
		v := *s.criteria.Country
		out.Country = &v
	}
	if s.criteria.Field != nil {
		v := *s.criteria.Field
		out.Field = &v
	}
	if s.criteria.Budget != nil {
		v := *s.criteria.Budget
		out.Budget = &v
	}
	return out
}

// SetQuery replaces the free-text query.
func (s *ProgramStore) SetQuery(text string) {
	s.criteria.Query = text
	s.page = 1
}

// SetCountry replaces the country criterion; nil or blank means any.
func (s *ProgramStore) SetCountry(country *string) {
	s.criteria.Country = normalizeChoice(country)
	s.page = 1
}

// SetField replaces the field-of-study criterion; nil or blank means any.
func (s *ProgramStore) SetField(field *string) {
	s.criteria.Field = normalizeChoice(field)
	s.page = 1
}

// SetBudgetRange replaces the tuition range; nil means any. A range with
// Min > Max is rejected and the previous range kept.
func (s *ProgramStore) SetBudgetRange(budget *models.BudgetRange) error {
	if budget == nil {
		s.criteria.Budget = nil
		s.page = 1
		return nil
	}
	if !budget.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "budget range requires 0 <= min <= max")
	}
	b := *budget
	s.criteria.Budget = &b
	s.page = 1
	return nil
}

// ApplyCriteria replaces every criterion at once. Validation happens before
// any field is touched.
func (s *ProgramStore) ApplyCriteria(c models.ProgramCriteria) error {
	if c.Budget != nil && !c.Budget.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "budget range requires 0 <= min <= max")
	}
	s.criteria = models.ProgramCriteria{Query: c.Query, Country: normalizeChoice(c.Country), Field: normalizeChoice(c.Field)}
	if c.Budget != nil {
		b := *c.Budget
		s.criteria.Budget = &b
	}
	s.page = 1
	return nil
}

// ClearCriteria restores the empty criteria.
func (s *ProgramStore) ClearCriteria() {
	s.criteria = models.ProgramCriteria{}
	s.page = 1
}

// FilteredPrograms returns the catalog subset matching the active criteria in
// catalog order. Results are memoised per catalog version and criteria key.
func (s *ProgramStore) FilteredPrograms() []models.Program {
	key := s.criteria.Key()
	if !s.memoValid || s.memoVersion != s.version || s.memoKey != key {
		s.memo = filterPrograms(s.catalog, s.criteria)
		s.memoVersion = s.version
		s.memoKey = key
		s.memoValid = true
	}
	out := make([]models.Program, len(s.memo))
	copy(out, s.memo)
	return out
}

// Page returns the requested page number.
func (s *ProgramStore) Page() int {
	return s.page
}

// SetPage records the requested page; pages are 1-indexed.
func (s *ProgramStore) SetPage(page int) error {
	if page < 1 {
		return appErrors.Clone(appErrors.ErrValidation, "page must be >= 1")
	}
	s.page = page
	return nil
}

// CurrentPage slices the derived result set at the requested page.
func (s *ProgramStore) CurrentPage(size int) models.Page {
	return Paginate(s.FilteredPrograms(), s.page, size)
}

// Facets summarises the distinct countries and fields of the catalog and its tuition span.
func (s *ProgramStore) Facets() models.ProgramFacets {
	facets := models.ProgramFacets{Countries: []string{}, Fields: []string{}, Total: len(s.catalog)}
	countries := make(map[string]struct{})
	fields := make(map[string]struct{})
	for _, p := range s.catalog {
		if _, ok := countries[p.Country]; !ok {
			countries[p.Country] = struct{}{}
			facets.Countries = append(facets.Countries, p.Country)
		}
		if _, ok := fields[p.Field]; !ok {
			fields[p.Field] = struct{}{}
			facets.Fields = append(facets.Fields, p.Field)
		}
		if p.TuitionFee == nil {
			continue
		}
		fee := *p.TuitionFee
		if facets.MinTuition == nil || fee < *facets.MinTuition {
			facets.MinTuition = &fee
		}
		if facets.MaxTuition == nil || fee > *facets.MaxTuition {
			v := fee
			facets.MaxTuition = &v
		}
	}
	sort.Strings(facets.Countries)
	sort.Strings(facets.Fields)
	return facets
}

// SortPrograms returns a sorted copy of programs. An empty sort key keeps the input order.
// Programs without a tuition fee sort last regardless of direction.
func SortPrograms(programs []models.Program, by models.ProgramSort) ([]models.Program, error) {
	out := make([]models.Program, len(programs))
	copy(out, programs)
	if by.By == "" {
		return out, nil
	}
	desc := false
	switch strings.ToLower(by.Order) {
	case "", "asc":
	case "desc":
		desc = true
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "order must be asc or desc")
	}

	var less func(a, b models.Program) bool
	switch by.By {
	case models.SortByName:
		less = func(a, b models.Program) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case models.SortByDeadline:
		less = func(a, b models.Program) bool { return a.Deadline.Before(b.Deadline) }
	case models.SortByScholarship:
		less = func(a, b models.Program) bool { return a.Scholarship < b.Scholarship }
	case models.SortByTuition:
		less = func(a, b models.Program) bool { return *a.TuitionFee < *b.TuitionFee }
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported sort field")
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if by.By == models.SortByTuition && (a.TuitionFee == nil || b.TuitionFee == nil) {
			return a.TuitionFee != nil && b.TuitionFee == nil
		}
		if desc {
			return less(b, a)
		}
		return less(a, b)
	})
	return out, nil
}

func filterPrograms(catalog []models.Program, criteria models.ProgramCriteria) []models.Program {
	out := make([]models.Program, 0, len(catalog))
	for _, p := range catalog {
		if criteria.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

func normalizeChoice(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
