// Package server wires the HTTP routes and middleware.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/princinho/moviebackend/config"
	"github.com/princinho/moviebackend/controllers"
	"github.com/princinho/moviebackend/dto"
	"github.com/princinho/moviebackend/middleware"
	"github.com/princinho/moviebackend/services"
	"go.uber.org/zap"
)

type Deps struct {
	Auth            *services.AuthService
	Users           *services.UserService
	Recommendations *services.RecommendationBroker
	History         *services.HistoryLedger
}

func NewRouter(cfg *config.Config, deps Deps, logger *zap.Logger) (*gin.Engine, error) {
	if err := dto.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recovery(logger, cfg.IsDevelopment()))
	r.Use(newCORS(cfg.AllowedOrigins, logger))
	r.Use(middleware.ErrorHandler(logger, cfg.IsDevelopment()))
	r.NoRoute(middleware.NotFound())

	started := time.Now()
	r.GET("/ping", controllers.Ping())

	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow).Handler()
	requireUser := middleware.AuthMiddleware(deps.Auth)

	api := r.Group("/api")
	api.GET("/health", controllers.Health(cfg.Environment, started))
	api.Use(middleware.NewRateLimiter(cfg.APIRateLimit, cfg.APIRateWindow).Handler())

	auth := api.Group("/auth")
	{
		auth.POST("/register", authLimiter, controllers.Register(deps.Auth))
		auth.POST("/login", authLimiter, controllers.Login(deps.Auth))
		auth.GET("/verify-email/:token", controllers.VerifyEmail(deps.Auth))
		auth.POST("/forgot-password", authLimiter, controllers.ForgotPassword(deps.Auth))
		auth.POST("/reset-password/:token", authLimiter, controllers.ResetPassword(deps.Auth))

		auth.PUT("/change-password", requireUser, controllers.ChangePassword(deps.Auth))
		auth.GET("/me", requireUser, controllers.Me())
		auth.PUT("/profile", requireUser, controllers.UpdateProfile(deps.Users))
		auth.PUT("/preferences", requireUser, controllers.UpdatePreferences(deps.Users))
		auth.POST("/logout", requireUser, controllers.Logout())
	}

	recs := api.Group("/recommendations")
	recs.Use(requireUser)
	{
		recs.POST("", controllers.Recommend(deps.Recommendations))
		recs.POST("/discover", controllers.Discover(deps.Recommendations))
		recs.GET("/history", controllers.GetHistory(deps.History))
	}

	users := api.Group("/users")
	users.Use(requireUser)
	{
		users.GET("", middleware.RequireAdmin(), controllers.GetUsers(deps.Users))
		users.GET("/:userId", controllers.GetUser(deps.Users))
		users.PUT("/:userId", middleware.RequireAdmin(), controllers.UpdateUser(deps.Users))
		users.DELETE("/:userId", controllers.DeleteUser(deps.Users))
		users.GET("/:userId/history", controllers.GetUserHistory(deps.History))
	}

	return r, nil
}

func newCORS(origins []string, logger *zap.Logger) gin.HandlerFunc {
	allowedOrigins := map[string]bool{}
	for _, origin := range origins {
		allowedOrigins[origin] = true
	}
	logger.Info("cors configured", zap.Strings("allowed_origins", origins))

	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowedOrigins[origin]
		},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
