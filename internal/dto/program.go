package dto

import "github.com/noah-isme/abroad-api/internal/models"

// CriteriaRequest replaces every filter criterion at once. Omitted fields mean "any".
type CriteriaRequest struct {
	Query   string              `json:"query"`
	Country *string             `json:"country"`
	Field   *string             `json:"field"`
	Budget  *models.BudgetRange `json:"budget"`
}

// Criteria converts the request into engine criteria.
func (r CriteriaRequest) Criteria() models.ProgramCriteria {
	return models.ProgramCriteria{Query: r.Query, Country: r.Country, Field: r.Field, Budget: r.Budget}
}

// ProgramCard is a program as rendered in catalog listings.
type ProgramCard struct {
	models.Program
	Saved    bool           `json:"saved"`
	DaysLeft int            `json:"days_left"`
	Urgency  models.Urgency `json:"urgency"`
}

// ProgramPageResponse is one page of the derived result set.
type ProgramPageResponse struct {
	Items     []ProgramCard          `json:"items"`
	Criteria  models.ProgramCriteria `json:"criteria"`
	NoResults bool                   `json:"no_results"`
	Catalog   models.CatalogStatus   `json:"catalog"`
}

// ImportProgramsRequest carries a catalog batch for upsert.
type ImportProgramsRequest struct {
	Programs []models.Program `json:"programs" binding:"required,min=1"`
}

// ImportProgramsResponse reports how many programs were upserted.
type ImportProgramsResponse struct {
	Imported int `json:"imported"`
}
