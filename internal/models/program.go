package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Program represents one study-abroad opportunity in the catalog.
type Program struct {
	ID          string    `db:"id" json:"id" validate:"required"`
	Name        string    `db:"name" json:"name" validate:"required"`
	Country     string    `db:"country" json:"country" validate:"required"`
	Field       string    `db:"field" json:"field" validate:"required"`
	University  *string   `db:"university" json:"university,omitempty"`
	Duration    *string   `db:"duration" json:"duration,omitempty"`
	TuitionFee  *float64  `db:"tuition_fee" json:"tuition_fee,omitempty" validate:"omitempty,gte=0"`
	Scholarship float64   `db:"scholarship" json:"scholarship" validate:"gte=0"`
	Deadline    time.Time `db:"deadline" json:"deadline" validate:"required"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// UniversityName returns the university or an empty string when unknown.
func (p Program) UniversityName() string {
	if p.University == nil {
		return ""
	}
	return *p.University
}

// BudgetRange is a closed tuition interval [Min, Max].
type BudgetRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Valid reports whether the range satisfies Min <= Max with non-negative bounds.
func (r BudgetRange) Valid() bool {
	return r.Min >= 0 && r.Min <= r.Max
}

// Contains reports whether value lies within the closed interval.
func (r BudgetRange) Contains(value float64) bool {
	return value >= r.Min && value <= r.Max
}

// ProgramCriteria captures the user's current search intent.
type ProgramCriteria struct {
	Query   string       `json:"query"`
	Country *string      `json:"country,omitempty"`
	Field   *string      `json:"field,omitempty"`
	Budget  *BudgetRange `json:"budget,omitempty"`
}

// NormalizedQuery lowercases and trims the free-text query.
func (c ProgramCriteria) NormalizedQuery() string {
	return strings.ToLower(strings.TrimSpace(c.Query))
}

// IsEmpty reports whether no criterion is active.
func (c ProgramCriteria) IsEmpty() bool {
	return c.NormalizedQuery() == "" && c.Country == nil && c.Field == nil && c.Budget == nil
}

// Key returns a stable identity for the criteria, suitable for memoisation and
// cache keys. Text values are quoted so distinct criteria never share a key.
func (c ProgramCriteria) Key() string {
	parts := []string{"q=" + strconv.Quote(c.NormalizedQuery())}
	if c.Country != nil {
		parts = append(parts, "country="+strconv.Quote(*c.Country))
	}
	if c.Field != nil {
		parts = append(parts, "field="+strconv.Quote(*c.Field))
	}
	if c.Budget != nil {
		parts = append(parts, fmt.Sprintf("budget=%s-%s",
			strconv.FormatFloat(c.Budget.Min, 'f', -1, 64),
			strconv.FormatFloat(c.Budget.Max, 'f', -1, 64)))
	}
	return strings.Join(parts, "|")
}

// Matches applies the derived-result matching rule to a single program.
func (c ProgramCriteria) Matches(p Program) bool {
	if q := c.NormalizedQuery(); q != "" {
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.UniversityName()), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	if c.Country != nil && p.Country != *c.Country {
		return false
	}
	if c.Field != nil && p.Field != *c.Field {
		return false
	}
	if c.Budget != nil {
		if p.TuitionFee == nil || !c.Budget.Contains(*p.TuitionFee) {
			return false
		}
	}
	return true
}

// ProgramFilter narrows catalog fetches at the data source.
type ProgramFilter struct {
	Query   string
	Country string
	Field   string
}

// FilterFromCriteria derives the server-side subset of criteria a catalog source can apply.
func FilterFromCriteria(c *ProgramCriteria) ProgramFilter {
	if c == nil {
		return ProgramFilter{}
	}
	filter := ProgramFilter{Query: strings.TrimSpace(c.Query)}
	if c.Country != nil {
		filter.Country = *c.Country
	}
	if c.Field != nil {
		filter.Field = *c.Field
	}
	return filter
}

// ProgramSort describes an explicit ordering requested by a view.
type ProgramSort struct {
	By    string
	Order string
}

// Supported sort keys.
const (
	SortByName        = "name"
	SortByDeadline    = "deadline"
	SortByTuition     = "tuition"
	SortByScholarship = "scholarship"
)

// ProgramFacets summarises the catalog for filter controls.
type ProgramFacets struct {
	Countries  []string `json:"countries"`
	Fields     []string `json:"fields"`
	MinTuition *float64 `json:"min_tuition,omitempty"`
	MaxTuition *float64 `json:"max_tuition,omitempty"`
	Total      int      `json:"total"`
}

// ValidateCatalog enforces catalog-wide invariants: unique identifiers and non-negative amounts.
func ValidateCatalog(programs []Program) error {
	seen := make(map[string]struct{}, len(programs))
	for _, p := range programs {
		if p.ID == "" {
			return fmt.Errorf("program without identifier")
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate program identifier %q", p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.Scholarship < 0 {
			return fmt.Errorf("program %q has negative scholarship", p.ID)
		}
		if p.TuitionFee != nil && *p.TuitionFee < 0 {
			return fmt.Errorf("program %q has negative tuition fee", p.ID)
		}
	}
	return nil
}

// CatalogState is the observable outcome of the latest catalog load.
type CatalogState string

const (
	CatalogIdle    CatalogState = "idle"
	CatalogPending CatalogState = "pending"
	CatalogReady   CatalogState = "ready"
	CatalogFailed  CatalogState = "failed"
)

// CatalogStatus describes a session's catalog and its most recent load.
type CatalogStatus struct {
	State    CatalogState `json:"state"`
	Version  uint64       `json:"version"`
	Programs int          `json:"programs"`
	LoadedAt *time.Time   `json:"loaded_at,omitempty"`
	Error    string       `json:"error,omitempty"`
}
