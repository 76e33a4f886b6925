package dto

type ChangePasswordDTO struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,strongpassword"`
	// optional; when present it must match NewPassword
	ConfirmPassword string `json:"confirmPassword" binding:"omitempty,eqfield=NewPassword"`
}

type ForgotPasswordDTO struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordDTO struct {
	NewPassword string `json:"newPassword" binding:"required,strongpassword"`
}
