package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/abroad-api/internal/dto"
	"github.com/noah-isme/abroad-api/internal/models"
	"github.com/noah-isme/abroad-api/internal/service"
	appErrors "github.com/noah-isme/abroad-api/pkg/errors"
	"github.com/noah-isme/abroad-api/pkg/response"
)

type savedSessions interface {
	ToggleSaved(ctx context.Context, sess *service.Session, programID string) (bool, error)
	ReplaceSaved(ctx context.Context, sess *service.Session, ids []string) ([]string, error)
}

type shortlistExporter interface {
	Shortlist(programs []models.Program) ([]byte, string, error)
}

// SavedHandler exposes the saved items store.
type SavedHandler struct {
	sessions savedSessions
	exporter shortlistExporter
}

// NewSavedHandler builds a saved items handler.
func NewSavedHandler(sessions savedSessions, exporter shortlistExporter) *SavedHandler {
	return &SavedHandler{sessions: sessions, exporter: exporter}
}

// List godoc
// @Summary Saved programs resolved against the session catalog
// @Tags Saved
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /saved [get]
func (h *SavedHandler) List(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, savedView(sess), nil)
}

// Toggle godoc
// @Summary Toggle the bookmark of a program
// @Tags Saved
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /saved/{id}/toggle [post]
func (h *SavedHandler) Toggle(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	programID := c.Param("id")
	saved, err := h.sessions.ToggleSaved(c.Request.Context(), sess, programID)
	if err != nil {
		response.Error(c, err)
		return
	}
	var count int
	_ = sess.Do(func(st *service.SessionState) error {
		count = st.Saved.Len()
		return nil
	})
	response.JSON(c, http.StatusOK, dto.ToggleSavedResponse{ProgramID: programID, Saved: saved, Count: count}, nil)
}

// Replace godoc
// @Summary Replace the saved set with a snapshot
// @Tags Saved
// @Accept json
// @Produce json
// @Param payload body dto.ReplaceSavedRequest true "Program IDs"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /saved [put]
func (h *SavedHandler) Replace(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.ReplaceSavedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid saved programs payload"))
		return
	}
	if _, err := h.sessions.ReplaceSaved(c.Request.Context(), sess, req.ProgramIDs); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, savedView(sess), nil)
}

// Export godoc
// @Summary Download the saved shortlist as CSV
// @Tags Saved
// @Produce text/csv
// @Success 200 {file} file
// @Router /saved/export.csv [get]
func (h *SavedHandler) Export(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	view := savedView(sess)
	data, filename, err := h.exporter.Shortlist(view.Programs)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export shortlist"))
		return
	}
	response.Attachment(c, filename, "text/csv; charset=utf-8", data)
}

func savedView(sess *service.Session) models.SavedView {
	var view models.SavedView
	_ = sess.Do(func(st *service.SessionState) error {
		view.IDs = st.Saved.IDs()
		view.Programs, view.Orphans = st.Saved.Resolve(st.Programs.Catalog())
		return nil
	})
	return view
}
