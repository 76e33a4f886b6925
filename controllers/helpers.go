package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/princinho/moviebackend/apperr"
	"github.com/princinho/moviebackend/dto"
	"github.com/princinho/moviebackend/middleware"
	"github.com/princinho/moviebackend/models"
	"github.com/princinho/moviebackend/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// bindJSON decodes the body into obj and reports binding failures. It
// returns false when the handler should stop.
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		middleware.Fail(c, bindError(err))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		middleware.Fail(c, bindError(err))
		return false
	}
	return true
}

func bindError(err error) error {
	if details, ok := dto.ValidationDetails(err); ok {
		return apperr.ErrValidation.WithDetails(details)
	}
	return apperr.ErrBadRequest
}

// currentUser is only nil when a route was registered without
// AuthMiddleware.
func currentUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.Fail(c, apperr.ErrTokenMissing)
		return nil, false
	}
	return user, true
}

func userIDParam(c *gin.Context) (bson.ObjectID, bool) {
	id, ok := utils.ParseObjectID(c.Param("userId"))
	if !ok {
		middleware.Fail(c, apperr.ErrValidation.WithDetails([]dto.FieldError{
			{Field: "userId", Message: "Invalid user ID format"},
		}))
		return bson.NilObjectID, false
	}
	return id, true
}
