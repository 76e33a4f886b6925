package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princinho/moviebackend/apperr"
	"go.uber.org/zap"
)

// StatusClientClosedRequest is recorded when the caller goes away before
// the response is ready. Nothing is written to the connection.
const StatusClientClosedRequest = 499

// Fail records err on the context and stops the handler chain. The
// response is written by ErrorHandler.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorHandler renders the last error recorded by Fail as
// {"error", "code", "details"}. In development, 5xx bodies also carry the
// underlying error under "debug".
func ErrorHandler(logger *zap.Logger, development bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		if errors.Is(err, context.Canceled) {
			logger.Info("request canceled by client",
				zap.String("path", routePath(c)),
				zap.String("request_id", RequestID(c)),
			)
			c.Status(StatusClientClosedRequest)
			return
		}

		ae := apperr.From(err)
		body := gin.H{"error": ae.Message, "code": ae.Code}
		if ae.Details != nil {
			body["details"] = ae.Details
		}

		fields := []zap.Field{
			zap.String("code", ae.Code),
			zap.Int("status", ae.Status),
			zap.String("path", routePath(c)),
			zap.String("request_id", RequestID(c)),
			zap.Error(err),
		}
		if ae.Status >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
			if development {
				body["debug"] = err.Error()
			}
		} else {
			logger.Debug("request rejected", fields...)
		}

		c.JSON(ae.Status, body)
	}
}

// NotFound answers unknown routes.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": apperr.ErrRouteNotFound.Message,
			"code":  apperr.ErrRouteNotFound.Code,
			"path":  c.Request.URL.Path,
		})
	}
}

// routePath prefers the route template so path tokens stay out of logs.
func routePath(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}
