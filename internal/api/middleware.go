// internal/api/middleware.go
package api

import (
	"net/http"
	"time"

	"github.com/Corphon/Diplomat/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

const (
	corsAllowHeaders = "Content-Type"
	corsAllowMethods = "POST, OPTIONS"
)

// browserCORS answers preflights that carry an Origin header.
func browserCORS() gin.HandlerFunc {
	handler := cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{corsAllowHeaders},
		MaxAge:          12 * time.Hour,
	})
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Writer = &preflightWriter{ResponseWriter: c.Writer}
		}
		handler(c)
	}
}

// preflightWriter pins Access-Control-Allow-Methods to the same value on every OPTIONS answer.
// cors joins the methods without a space.
type preflightWriter struct {
	gin.ResponseWriter
}

func (w *preflightWriter) WriteHeader(code int) {
	w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
	w.ResponseWriter.WriteHeader(code)
}

// corsMiddleware sets the permissive headers on every response and ends any OPTIONS request with 204.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)

		if c.Request.Method == http.MethodOptions {
			c.Writer.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware tags each request with an id, reusing an incoming X-Request-ID.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

func getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get(requestIDKey); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}

// loggerMiddleware writes one line per request and records API metrics.
func loggerMiddleware(metrics *utils.APIMetrics) gin.HandlerFunc {
	logger := utils.GetLogger()
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.RecordAPIRequest(endpoint, c.Request.Method, status, latency)

		logger.Info("request", map[string]interface{}{
			"request_id": getRequestID(c),
			"method":     c.Request.Method,
			"path":       path,
			"status":     status,
			"latency_ms": latency.Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
	}
}

// recoveryMiddleware turns a panic into the standard 500 envelope.
func recoveryMiddleware(helper *ResponseHelper) gin.HandlerFunc {
	logger := utils.GetLogger()
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("panic recovered", map[string]interface{}{
			"request_id": getRequestID(c),
			"panic":      recovered,
		})
		helper.ErrorMessage(c, http.StatusInternalServerError, MessageServerError)
	})
}
