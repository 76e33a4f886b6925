package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/princinho/moviebackend/apperr"
	"go.uber.org/zap"
)

const (
	requestIDKey    = "requestID"
	RequestIDHeader = "X-Request-ID"
)

// RequestLogger tags each request with an id (reusing a well-formed
// X-Request-ID from the caller) and logs one line when it completes.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()

		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", routePath(c)),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", id),
		)
	}
}

func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Recovery turns a panic into a 500 response. The stack is always logged
// and only returned to the caller in development.
func Recovery(logger *zap.Logger, development bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			stack := string(debug.Stack())
			logger.Error("panic recovered",
				zap.Any("panic", rec),
				zap.String("path", routePath(c)),
				zap.String("request_id", RequestID(c)),
				zap.String("stack", stack),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			body := gin.H{"error": apperr.ErrInternal.Message, "code": apperr.ErrInternal.Code}
			if development {
				body["stack"] = stack
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()
		c.Next()
	}
}
