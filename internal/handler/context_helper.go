package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/abroad-api/internal/middleware"
	"github.com/noah-isme/abroad-api/internal/models"
	"github.com/noah-isme/abroad-api/internal/service"
	appErrors "github.com/noah-isme/abroad-api/pkg/errors"
	"github.com/noah-isme/abroad-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil
	}
	return claims
}

// sessionFromContext writes an unauthorized response when no session is attached.
func sessionFromContext(c *gin.Context) (*service.Session, bool) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "no active session"))
		return nil, false
	}
	return sess, true
}
