package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/abroad-api/internal/dto"
	"github.com/noah-isme/abroad-api/internal/middleware"
	"github.com/noah-isme/abroad-api/internal/models"
	"github.com/noah-isme/abroad-api/internal/service"
	appErrors "github.com/noah-isme/abroad-api/pkg/errors"
	"github.com/noah-isme/abroad-api/pkg/response"
)

type catalogRefresher interface {
	RefreshCatalog(ctx context.Context, sess *service.Session) (models.CatalogStatus, error)
}

type catalogSource interface {
	FetchPrograms(ctx context.Context, criteria *models.ProgramCriteria) ([]models.Program, error)
	ImportPrograms(ctx context.Context, programs []models.Program) (int, error)
}

// CatalogHandler exposes catalog loading, stateless search and import.
type CatalogHandler struct {
	sessions catalogRefresher
	catalog  catalogSource
}

// NewCatalogHandler builds a catalog handler.
func NewCatalogHandler(sessions catalogRefresher, catalog catalogSource) *CatalogHandler {
	return &CatalogHandler{sessions: sessions, catalog: catalog}
}

// Refresh godoc
// @Summary Reload the session catalog
// @Description A failed load keeps the previously loaded catalog browsable. A load superseded by a newer one answers 409.
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /catalog/refresh [post]
func (h *CatalogHandler) Refresh(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	status, err := h.sessions.RefreshCatalog(c.Request.Context(), sess)
	if err != nil {
		if errors.Is(err, appErrors.ErrStaleResponse) {
			response.Error(c, err)
			return
		}
		appErr := appErrors.FromError(err)
		_ = c.Error(err)
		c.JSON(appErr.Status, response.Envelope{Data: status, Error: appErr})
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Status godoc
// @Summary Outcome of the latest catalog load
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/status [get]
func (h *CatalogHandler) Status(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, sess.CatalogStatus(), nil)
}

// Search godoc
// @Summary Search the catalog source without touching session state
// @Tags Catalog
// @Produce json
// @Param q query string false "Free-text query"
// @Param country query string false "Country"
// @Param field query string false "Field of study"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /catalog/programs [get]
func (h *CatalogHandler) Search(c *gin.Context) {
	criteria := &models.ProgramCriteria{Query: c.Query("q")}
	if country := strings.TrimSpace(c.Query("country")); country != "" {
		criteria.Country = &country
	}
	if field := strings.TrimSpace(c.Query("field")); field != "" {
		criteria.Field = &field
	}
	programs, err := h.catalog.FetchPrograms(c.Request.Context(), criteria)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(programs))
	response.JSON(c, http.StatusOK, programs, nil, middleware.ResponseMeta(c))
}

// Import godoc
// @Summary Bulk upsert catalog programs
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.ImportProgramsRequest true "Programs"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/programs [post]
func (h *CatalogHandler) Import(c *gin.Context) {
	var req dto.ImportProgramsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid import payload"))
		return
	}
	count, err := h.catalog.ImportPrograms(c.Request.Context(), req.Programs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ImportProgramsResponse{Imported: count})
}
