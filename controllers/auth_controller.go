package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princinho/moviebackend/dto"
	"github.com/princinho/moviebackend/middleware"
	"github.com/princinho/moviebackend/services"
)

const forgotPasswordMessage = "If an account with that email exists, a password reset link has been sent."

// POST /api/auth/register
func Register(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.RegisterDTO
		if !bindJSON(c, &body) {
			return
		}

		res, err := auth.Register(c.Request.Context(), body.Name, body.Email, body.Password)
		if err != nil {
			middleware.Fail(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "User registered successfully. Please check your email for verification.",
			"token":   res.Token,
			"user":    res.User,
		})
	}
}

// POST /api/auth/login
func Login(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.LoginDTO
		if !bindJSON(c, &body) {
			return
		}

		res, err := auth.Login(c.Request.Context(), body.Email, body.Password)
		if err != nil {
			middleware.Fail(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Login successful",
			"token":   res.Token,
			"user":    res.User,
		})
	}
}

// GET /api/auth/verify-email/:token
func VerifyEmail(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := auth.VerifyEmail(c.Request.Context(), c.Param("token")); err != nil {
			middleware.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully"})
	}
}

// POST /api/auth/forgot-password
//
// The response is the same whether or not the address is registered.
func ForgotPassword(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.ForgotPasswordDTO
		if !bindJSON(c, &body) {
			return
		}
		auth.ForgotPassword(c.Request.Context(), body.Email)
		c.JSON(http.StatusOK, gin.H{"message": forgotPasswordMessage})
	}
}

// POST /api/auth/reset-password/:token
func ResetPassword(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.ResetPasswordDTO
		if !bindJSON(c, &body) {
			return
		}
		if err := auth.ResetPassword(c.Request.Context(), c.Param("token"), body.NewPassword); err != nil {
			middleware.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
	}
}

// PUT /api/auth/change-password
func ChangePassword(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		var body dto.ChangePasswordDTO
		if !bindJSON(c, &body) {
			return
		}
		if err := auth.ChangePassword(c.Request.Context(), user, body.CurrentPassword, body.NewPassword); err != nil {
			middleware.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
	}
}

// GET /api/auth/me
func Me() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// PUT /api/auth/profile
func UpdateProfile(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		var body dto.UpdateProfileDTO
		if !bindJSON(c, &body) {
			return
		}

		updated, err := users.UpdateProfile(c.Request.Context(), user, user.ID, services.ProfileInput{
			Name:        body.Name,
			Bio:         body.Bio,
			Location:    body.Location,
			DateOfBirth: body.DateOfBirth,
		})
		if err != nil {
			middleware.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": updated})
	}
}

// PUT /api/auth/preferences
func UpdatePreferences(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		var body dto.UpdatePreferencesDTO
		if !bindJSON(c, &body) {
			return
		}

		updated, err := users.UpdatePreferences(c.Request.Context(), user, user.ID, body.Preferences)
		if err != nil {
			middleware.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Preferences updated successfully", "preferences": updated.Preferences})
	}
}

// POST /api/auth/logout
//
// Tokens are stateless; the client discards its copy.
func Logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
	}
}
