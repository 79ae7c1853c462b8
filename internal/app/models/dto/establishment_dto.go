package dto

// CreateEstablishmentRequest represents establishment creation data
type CreateEstablishmentRequest struct {
	Name         string  `json:"name" binding:"required,max=200" example:"Institut Lumière"`
	Slug         string  `json:"slug" binding:"omitempty,max=100,slug" example:"institut-lumiere"`
	ContactEmail *string `json:"contactEmail" binding:"omitempty,email" example:"contact@lumiere.fr"`
}

// UpdateEstablishmentRequest represents a partial establishment update
type UpdateEstablishmentRequest struct {
	Name         *string `json:"name" binding:"omitempty,max=200"`
	Slug         *string `json:"slug" binding:"omitempty,max=100,slug"`
	ContactEmail *string `json:"contactEmail" binding:"omitempty,email"`
	IsActive     *bool   `json:"isActive"`
}
