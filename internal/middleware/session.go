package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/abroad-api/internal/service"
	appErrors "github.com/noah-isme/abroad-api/pkg/errors"
	"github.com/noah-isme/abroad-api/pkg/response"
)

// ContextSessionKey is the gin context key storing the user's engine session.
const ContextSessionKey = "engineSession"

// Session resolves the authenticated user's engine session, opening it on first use. It must run after JWT.
func Session(sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		sess, err := sessions.Open(c.Request.Context(), claims.CurrentUser())
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextSessionKey, sess)
		c.Next()
	}
}

// CurrentSession returns the session attached by Session.
func CurrentSession(c *gin.Context) (*service.Session, bool) {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil, false
	}
	sess, ok := value.(*service.Session)
	return sess, ok && sess != nil
}
