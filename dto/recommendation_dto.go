package dto

type RecommendDTO struct {
	MovieName     string `json:"movieName" binding:"required,max=200"`
	MovieLanguage string `json:"movieLanguage" binding:"omitempty,max=50"`
	YearGap       string `json:"yearGap" binding:"omitempty,yeargap"`
	K             int    `json:"k" binding:"omitempty,min=1,max=50"`
}

type DiscoverDTO struct {
	Genres    []string `json:"genres" binding:"omitempty,max=20,dive,max=50"`
	Languages []string `json:"languages" binding:"omitempty,max=20,dive,max=50"`
	K         int      `json:"k" binding:"omitempty,min=1,max=50"`
}
