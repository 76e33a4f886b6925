package dto

import "time"

type RegisterDTO struct {
	Name     string `json:"name" binding:"required,personname"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,strongpassword"`
}

type LoginDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileDTO fields are optional pointers. Email, role and
// password cannot be changed through it.
type UpdateProfileDTO struct {
	Name        *string    `json:"name" binding:"omitempty,personname"`
	Bio         *string    `json:"bio" binding:"omitempty,max=500"`
	Location    *string    `json:"location" binding:"omitempty,max=100"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
}

type UpdatePreferencesDTO struct {
	Preferences map[string]any `json:"preferences" binding:"required"`
}
