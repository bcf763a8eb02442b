package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/courseforge/internal/http/response"
	"github.com/yungbote/courseforge/internal/platform/ctxutil"
)

const headerUserID = "X-User-Id"

// AttachCaller copies the identity asserted by the upstream identity proxy
// into the request context. Authentication itself happens upstream.
func AttachCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(headerUserID)); id != "" {
			c.Request = c.Request.WithContext(ctxutil.WithCaller(c.Request.Context(), id))
		}
		c.Next()
	}
}

func RequireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ctxutil.Caller(c.Request.Context()) == "" {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// LimitBody caps request bodies. Zero disables the limit.
func LimitBody(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if max > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}
