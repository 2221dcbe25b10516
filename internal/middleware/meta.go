package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/abroad-api/pkg/middleware/requestid"
)

const responseMetaKey = "response_meta"

// WithResponseMeta attaches the response metadata map to each request, seeded
// with the request id when requestid.Middleware ran first.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := map[string]interface{}{}
		if id := requestid.Value(c); id != "" {
			meta["request_id"] = id
		}
		c.Set(responseMetaKey, meta)
		c.Next()
	}
}

// SetMeta records a metadata entry for the current response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	if c == nil {
		return
	}
	ResponseMeta(c)[key] = value
}

// ResponseMeta returns the metadata map of the request, creating it when absent.
func ResponseMeta(c *gin.Context) map[string]interface{} {
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
