package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"papershare-backend/internal/shared/telemetry"
)

// Logging emits a structured log per request. Handlers can add "itemId" and
// "kind" to the gin context to have them logged.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"user_id":     UserIDFromContext(c),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if itemID := c.GetString("itemId"); itemID != "" {
			fields["item_id"] = itemID
		}
		if kind := c.GetString("kind"); kind != "" {
			fields["kind"] = kind
		}
		telemetry.Info("request.complete", fields)
	}
}
