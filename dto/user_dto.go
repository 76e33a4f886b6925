package dto

// UpdateUserDTO is the admin-only account update.
type UpdateUserDTO struct {
	Role     *string `json:"role" binding:"omitempty,oneof=user moderator admin"`
	IsActive *bool   `json:"isActive"`
}

type PageQuery struct {
	Page   int    `form:"page" binding:"omitempty,min=1,max=10000"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Search string `form:"search" binding:"omitempty,max=100"`
}
