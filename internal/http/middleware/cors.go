package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS is open to any origin. Preflights are answered with 200 and no body.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins:           true,
		AllowMethods:              []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:              []string{"Authorization", "Content-Type", "X-Requested-With", "X-User-Id", "X-Request-Id", "X-Trace-Id"},
		ExposeHeaders:             []string{"X-Request-Id", "X-Trace-Id"},
		OptionsResponseStatusCode: http.StatusOK,
		MaxAge:                    12 * time.Hour,
	})
}
