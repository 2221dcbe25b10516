package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/abroad-api/internal/middleware"
	"github.com/noah-isme/abroad-api/internal/models"
	"github.com/noah-isme/abroad-api/internal/service"
	appErrors "github.com/noah-isme/abroad-api/pkg/errors"
	"github.com/noah-isme/abroad-api/pkg/response"
)

type dashboardBuilder interface {
	Build(ctx context.Context, sess *service.Session) (*models.Dashboard, error)
}

// DashboardHandler wires the dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardBuilder
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardBuilder) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Get godoc
// @Summary Session dashboard
// @Description Saved programs, upcoming deadlines with urgency and completed bookings of the session.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	start := time.Now()
	summary, err := h.service.Build(c.Request.Context(), sess)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "processing_time_ms", time.Since(start).Milliseconds())
	response.JSON(c, http.StatusOK, summary, nil, middleware.ResponseMeta(c))
}
