package dto

// CreateUserRequest represents user creation data. EstablishmentID is only
// honoured for SUPER_ADMIN callers; admins always create in their own tenant.
type CreateUserRequest struct {
	EstablishmentID *int64 `json:"establishmentId" binding:"omitempty,gt=0" example:"1"`
	Email           string `json:"email" binding:"required,email,max=255" example:"student@lumiere.fr"`
	FirstName       string `json:"firstName" binding:"required,max=100" example:"Léa"`
	LastName        string `json:"lastName" binding:"required,max=100" example:"Bernard"`
	Role            string `json:"role" binding:"required,oneof=ADMIN TRAINER STUDENT" example:"STUDENT"`
}

// UpdateUserRequest represents a partial user update
type UpdateUserRequest struct {
	FirstName *string `json:"firstName" binding:"omitempty,max=100"`
	LastName  *string `json:"lastName" binding:"omitempty,max=100"`
	Role      *string `json:"role" binding:"omitempty,oneof=ADMIN TRAINER STUDENT"`
	IsActive  *bool   `json:"isActive"`
}

// UserListQuery filters the user listing
type UserListQuery struct {
	PageQuery
	EstablishmentID *int64 `form:"establishmentId" binding:"omitempty,gt=0"`
	Role            string `form:"role" binding:"omitempty,oneof=ADMIN TRAINER STUDENT"`
	Search          string `form:"search" binding:"omitempty,max=100"`
	ActiveOnly      bool   `form:"active"`
}
