package models

import "time"

// Establishment is a tenant: a school or training organization
type Establishment struct {
	ID           int64     `json:"id" db:"id" example:"1"`
	Name         string    `json:"name" db:"name" example:"Institut Lumière"`
	Slug         string    `json:"slug" db:"slug" example:"institut-lumiere"`
	ContactEmail *string   `json:"contactEmail,omitempty" db:"contact_email" example:"contact@lumiere.fr"`
	IsActive     bool      `json:"isActive" db:"is_active" example:"true"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
