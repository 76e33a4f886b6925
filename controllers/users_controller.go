package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princinho/moviebackend/dto"
	"github.com/princinho/moviebackend/middleware"
	"github.com/princinho/moviebackend/models"
	"github.com/princinho/moviebackend/services"
)

// GET /api/users?page=&limit=&search=
func GetUsers(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentUser(c)
		if !ok {
			return
		}
		var q dto.PageQuery
		if !bindQuery(c, &q) {
			return
		}

		page, err := users.List(c.Request.Context(), actor, q.Search, q.Page, q.Limit)
		if err != nil {
			middleware.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"users":       page.Users,
			"totalPages":  page.TotalPages,
			"currentPage": page.CurrentPage,
			"total":       page.Total,
		})
	}
}

// GET /api/users/:userId
func GetUser(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := userIDParam(c)
		if !ok {
			return
		}

		user, err := users.Get(c.Request.Context(), actor, id)
		if err != nil {
			middleware.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// PUT /api/users/:userId (admin, never on self)
func UpdateUser(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := userIDParam(c)
		if !ok {
			return
		}
		var body dto.UpdateUserDTO
		if !bindJSON(c, &body) {
			return
		}

		in := services.AccountInput{IsActive: body.IsActive}
		if body.Role != nil {
			role := models.Role(*body.Role)
			in.Role = &role
		}
		user, err := users.UpdateAccount(c.Request.Context(), actor, id, in)
		if err != nil {
			middleware.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User updated successfully", "user": user})
	}
}

// DELETE /api/users/:userId
func DeleteUser(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := userIDParam(c)
		if !ok {
			return
		}

		if err := users.Delete(c.Request.Context(), actor, id); err != nil {
			middleware.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
	}
}

// GET /api/users/:userId/history
func GetUserHistory(ledger *services.HistoryLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := userIDParam(c)
		if !ok {
			return
		}
		renderHistory(c, ledger, actor, id)
	}
}
