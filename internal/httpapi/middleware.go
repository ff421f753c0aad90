// Package httpapi is the gin HTTP shell around the ask pipeline.
package httpapi

import (
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nolia/nolia/internal/apperr"
	"go.uber.org/zap"
)

const requestIDKey = "requestID"

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,200}$`)

// errorEnvelope is the uniform JSON error body
type errorEnvelope struct {
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

// RequestID accepts a well-formed X-Request-Id header or assigns a fresh
// one, echoing it on the response
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// GetRequestID returns the request's correlation ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// AccessLog emits one JSON line per API request
func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("requestId", GetRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("durationMs", time.Since(start).Milliseconds()),
		)
	}
}

// abortError renders err through the error taxonomy. Unclassified errors
// become 500 and hide their message in production.
func (s *Server) abortError(c *gin.Context, err error) {
	appErr := apperr.From(err)
	message := appErr.Message
	if appErr.Status == http.StatusInternalServerError {
		s.log.Error("internal error",
			zap.String("requestId", GetRequestID(c)),
			zap.Error(err))
		if s.cfg.Server.IsProduction() {
			message = "Internal Server Error"
		}
	}
	if appErr.Kind == apperr.KindRateLimited {
		message = "Too Many Requests, please try again later"
	}
	c.AbortWithStatusJSON(appErr.Status, errorEnvelope{
		Message:   message,
		RequestID: GetRequestID(c),
	})
}
