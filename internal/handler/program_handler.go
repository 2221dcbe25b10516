package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/abroad-api/internal/dto"
	"github.com/noah-isme/abroad-api/internal/models"
	"github.com/noah-isme/abroad-api/internal/service"
	appErrors "github.com/noah-isme/abroad-api/pkg/errors"
	"github.com/noah-isme/abroad-api/pkg/response"
)

type engineSettings interface {
	PageSize() int
	UrgentWindowDays() int
	Now() time.Time
}

// ProgramHandler exposes the session's filter criteria store and pagination view.
type ProgramHandler struct {
	settings engineSettings
}

// NewProgramHandler builds a program handler.
func NewProgramHandler(settings engineSettings) *ProgramHandler {
	return &ProgramHandler{settings: settings}
}

// List godoc
// @Summary List the derived program set
// @Description Query parameters, when present, replace the session criteria before the page is derived.
// @Tags Programs
// @Produce json
// @Param q query string false "Free-text query"
// @Param country query string false "Country"
// @Param field query string false "Field of study"
// @Param min_budget query number false "Minimum tuition"
// @Param max_budget query number false "Maximum tuition"
// @Param page query int false "Page number"
// @Param sort query string false "Sort key (name, deadline, tuition, scholarship)"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /programs [get]
func (h *ProgramHandler) List(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	criteria, hasCriteria, err := criteriaFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if criteria.Budget != nil && !criteria.Budget.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "budget range requires 0 <= min <= max"))
		return
	}
	page := 0
	if raw := c.Query("page"); raw != "" {
		if page, err = strconv.Atoi(raw); err != nil || page < 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "page must be a number >= 1"))
			return
		}
	}
	sortBy := models.ProgramSort{By: c.Query("sort"), Order: c.Query("order")}
	if _, err := service.SortPrograms(nil, sortBy); err != nil {
		response.Error(c, err)
		return
	}

	var (
		payload    dto.ProgramPageResponse
		pagination *models.Pagination
	)
	err = sess.Do(func(st *service.SessionState) error {
		if hasCriteria {
			if err := st.Programs.ApplyCriteria(criteria); err != nil {
				return err
			}
		}
		if page > 0 {
			if err := st.Programs.SetPage(page); err != nil {
				return err
			}
		}
		sorted, err := service.SortPrograms(st.Programs.FilteredPrograms(), sortBy)
		if err != nil {
			return err
		}
		payload, pagination = h.pageResponse(st, service.Paginate(sorted, st.Programs.Page(), h.settings.PageSize()))
		return nil
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	payload.Catalog = sess.CatalogStatus()
	response.JSON(c, http.StatusOK, payload, pagination)
}

// ApplyCriteria godoc
// @Summary Replace the filter criteria
// @Tags Programs
// @Accept json
// @Produce json
// @Param payload body dto.CriteriaRequest true "Criteria"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /programs/criteria [put]
func (h *ProgramHandler) ApplyCriteria(c *gin.Context) {
	var req dto.CriteriaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid criteria payload"))
		return
	}
	h.mutateAndRender(c, func(store *service.ProgramStore) error {
		return store.ApplyCriteria(req.Criteria())
	})
}

// ClearCriteria godoc
// @Summary Clear every filter criterion
// @Tags Programs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /programs/criteria [delete]
func (h *ProgramHandler) ClearCriteria(c *gin.Context) {
	h.mutateAndRender(c, func(store *service.ProgramStore) error {
		store.ClearCriteria()
		return nil
	})
}

// Page godoc
// @Summary Get a page of the derived program set
// @Tags Programs
// @Produce json
// @Param page path int true "Page number (1-indexed)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /programs/page/{page} [get]
func (h *ProgramHandler) Page(c *gin.Context) {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "page must be a number"))
		return
	}
	h.mutateAndRender(c, func(store *service.ProgramStore) error {
		return store.SetPage(page)
	})
}

// Facets godoc
// @Summary Distinct countries and fields of the catalog
// @Tags Programs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /programs/facets [get]
func (h *ProgramHandler) Facets(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var facets models.ProgramFacets
	_ = sess.Do(func(st *service.SessionState) error {
		facets = st.Programs.Facets()
		return nil
	})
	response.JSON(c, http.StatusOK, facets, nil)
}

// Get godoc
// @Summary Get a program of the session catalog
// @Tags Programs
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /programs/{id} [get]
func (h *ProgramHandler) Get(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var (
		card  dto.ProgramCard
		found bool
	)
	_ = sess.Do(func(st *service.SessionState) error {
		program, ok := st.Programs.Lookup(c.Param("id"))
		if ok {
			card = h.card(st, program)
			found = true
		}
		return nil
	})
	if !found {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "program not found"))
		return
	}
	response.JSON(c, http.StatusOK, card, nil)
}

func (h *ProgramHandler) mutateAndRender(c *gin.Context, mutate func(*service.ProgramStore) error) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var (
		payload    dto.ProgramPageResponse
		pagination *models.Pagination
	)
	err := sess.Do(func(st *service.SessionState) error {
		if err := mutate(st.Programs); err != nil {
			return err
		}
		payload, pagination = h.pageResponse(st, st.Programs.CurrentPage(h.settings.PageSize()))
		return nil
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	payload.Catalog = sess.CatalogStatus()
	response.JSON(c, http.StatusOK, payload, pagination)
}

func (h *ProgramHandler) pageResponse(st *service.SessionState, page models.Page) (dto.ProgramPageResponse, *models.Pagination) {
	items := make([]dto.ProgramCard, 0, len(page.Items))
	for _, p := range page.Items {
		items = append(items, h.card(st, p))
	}
	return dto.ProgramPageResponse{
		Items:     items,
		Criteria:  st.Programs.Criteria(),
		NoResults: page.NoResults,
	}, page.Pagination()
}

func (h *ProgramHandler) card(st *service.SessionState, p models.Program) dto.ProgramCard {
	deadline := service.DeadlineFor(p, h.settings.Now(), h.settings.UrgentWindowDays())
	return dto.ProgramCard{
		Program:  p,
		Saved:    st.Saved.IsSaved(p.ID),
		DaysLeft: deadline.DaysLeft,
		Urgency:  deadline.Urgency,
	}
}

// criteriaFromQuery reports whether any filter parameter was supplied.
func criteriaFromQuery(c *gin.Context) (models.ProgramCriteria, bool, error) {
	var criteria models.ProgramCriteria
	present := false
	if q, ok := c.GetQuery("q"); ok {
		criteria.Query = q
		present = true
	}
	if country, ok := c.GetQuery("country"); ok {
		criteria.Country = &country
		present = true
	}
	if field, ok := c.GetQuery("field"); ok {
		criteria.Field = &field
		present = true
	}
	minRaw, hasMin := c.GetQuery("min_budget")
	maxRaw, hasMax := c.GetQuery("max_budget")
	if hasMin || hasMax {
		present = true
		budget := models.BudgetRange{}
		if strings.TrimSpace(minRaw) != "" {
			v, err := strconv.ParseFloat(minRaw, 64)
			if err != nil {
				return criteria, true, appErrors.Clone(appErrors.ErrValidation, "min_budget must be a number")
			}
			budget.Min = v
		}
		if strings.TrimSpace(maxRaw) == "" {
			return criteria, true, appErrors.Clone(appErrors.ErrValidation, "max_budget is required with a budget range")
		}
		v, err := strconv.ParseFloat(maxRaw, 64)
		if err != nil {
			return criteria, true, appErrors.Clone(appErrors.ErrValidation, "max_budget must be a number")
		}
		budget.Max = v
		criteria.Budget = &budget
	}
	return criteria, present, nil
}
