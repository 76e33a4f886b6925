package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/princinho/moviebackend/apperr"
	"github.com/princinho/moviebackend/models"
)

const userKey = "user"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware resolves the bearer token to an active, unlocked user and
// stores it on the context for handlers.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			Fail(c, apperr.ErrTokenMissing)
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			Fail(c, err)
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// RequireAdmin must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || !user.IsAdmin() {
			Fail(c, apperr.ErrInsufficientPermissions)
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user set by AuthMiddleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}
