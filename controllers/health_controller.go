package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const ServiceName = "movie-recommendation-api"

// GET /api/health
func Health(environment string, started time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"service":     ServiceName,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"uptime":      time.Since(started).Seconds(),
			"environment": environment,
		})
	}
}

// GET /ping
func Ping() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	}
}
