package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/abroad-api/internal/models"
	appErrors "github.com/noah-isme/abroad-api/pkg/errors"
	"github.com/noah-isme/abroad-api/pkg/response"
)

type tokenIssuer interface {
	IssueToken(user models.CurrentUser) (string, time.Time, error)
}

// DevTokenRequest is the identity a development token is minted for.
type DevTokenRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email" binding:"omitempty,email"`
	Admin       bool   `json:"admin"`
}

// AuthHandler exposes the authenticated identity. Tokens are normally issued
// by the identity provider; DevToken only exists outside production.
type AuthHandler struct {
	issuer tokenIssuer
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(issuer tokenIssuer) *AuthHandler {
	return &AuthHandler{issuer: issuer}
}

// Me godoc
// @Summary Current user
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, claims.CurrentUser(), nil)
}

// DevToken godoc
// @Summary Mint an access token for local development
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body DevTokenRequest true "Identity"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/dev-token [post]
func (h *AuthHandler) DevToken(c *gin.Context) {
	var req DevTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid token payload"))
		return
	}
	user := models.CurrentUser{
		UserID:      strings.TrimSpace(req.UserID),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Email:       strings.TrimSpace(req.Email),
		Admin:       req.Admin,
	}
	token, expiresAt, err := h.issuer.IssueToken(user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_at":   expiresAt,
	}, nil)
}
