package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princinho/moviebackend/dto"
	"github.com/princinho/moviebackend/middleware"
	"github.com/princinho/moviebackend/models"
	"github.com/princinho/moviebackend/services"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// POST /api/recommendations
func Recommend(broker *services.RecommendationBroker) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		var body dto.RecommendDTO
		if !bindJSON(c, &body) {
			return
		}

		results, err := broker.Recommend(c.Request.Context(), user, services.RecommendParams{
			MovieName:     body.MovieName,
			MovieLanguage: body.MovieLanguage,
			YearGap:       body.YearGap,
			K:             body.K,
		})
		if err != nil {
			middleware.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, results)
	}
}

// POST /api/recommendations/discover
func Discover(broker *services.RecommendationBroker) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		var body dto.DiscoverDTO
		if !bindJSON(c, &body) {
			return
		}

		results, err := broker.Discover(c.Request.Context(), user, services.DiscoverParams{
			Genres:    body.Genres,
			Languages: body.Languages,
			K:         body.K,
		})
		if err != nil {
			middleware.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, results)
	}
}

// GET /api/recommendations/history
func GetHistory(ledger *services.HistoryLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		renderHistory(c, ledger, user, user.ID)
	}
}

func renderHistory(c *gin.Context, ledger *services.HistoryLedger, actor *models.User, target bson.ObjectID) {
	var q dto.PageQuery
	if !bindQuery(c, &q) {
		return
	}
	history, err := ledger.List(c.Request.Context(), actor, target, q.Page, q.Limit)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}
