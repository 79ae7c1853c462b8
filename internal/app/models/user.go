package models

import (
	"time"
)

// User defines the user model based on the 'users' table
type User struct {
	ID              int64     `json:"id" db:"id" example:"1"`
	EstablishmentID *int64    `json:"establishmentId,omitempty" db:"establishment_id" example:"1"` // nil for SUPER_ADMIN
	Email           string    `json:"email" db:"email" example:"trainer@lumiere.fr"`
	FirstName       string    `json:"firstName" db:"first_name" example:"Claire"`
	LastName        string    `json:"lastName" db:"last_name" example:"Martin"`
	Role            Role      `json:"role" db:"role" example:"TRAINER"`
	IsActive        bool      `json:"isActive" db:"is_active" example:"true"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

// FullName returns "First Last"
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// UserFilter narrows user listings
type UserFilter struct {
	EstablishmentID *int64
	Role            *Role
	Search          string
	ActiveOnly      bool
	Page            int
	PageSize        int
}
