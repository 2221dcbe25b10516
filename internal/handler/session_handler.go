package handler

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/abroad-api/pkg/errors"
	"github.com/noah-isme/abroad-api/pkg/response"
)

type sessionCloser interface {
	Close(userID string) bool
}

// SessionHandler ends user sessions.
type SessionHandler struct {
	sessions sessionCloser
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(sessions sessionCloser) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// SignOut godoc
// @Summary Sign out
// @Description Discards the session state: criteria, saved set, wizard progress and catalog snapshot.
// @Tags Session
// @Success 204
// @Failure 401 {object} response.Envelope
// @Router /session [delete]
func (h *SessionHandler) SignOut(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	h.sessions.Close(claims.CurrentUser().UserID)
	response.NoContent(c)
}
