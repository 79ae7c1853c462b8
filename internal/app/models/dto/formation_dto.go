package dto

import "time"

// CreateFormationRequest represents formation creation data
type CreateFormationRequest struct {
	EstablishmentID *int64     `json:"establishmentId" binding:"omitempty,gt=0"`
	Title           string     `json:"title" binding:"required,max=200" example:"Développement Web"`
	Description     *string    `json:"description"`
	StartDate       *time.Time `json:"startDate" example:"2025-09-01T00:00:00Z"`
	EndDate         *time.Time `json:"endDate" example:"2026-06-30T00:00:00Z"`
	Status          string     `json:"status" binding:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED" example:"DRAFT"`
}

// UpdateFormationRequest represents a partial formation update
type UpdateFormationRequest struct {
	Title       *string    `json:"title" binding:"omitempty,max=200"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	Status      *string    `json:"status" binding:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
}

// FormationListQuery filters the formation listing
type FormationListQuery struct {
	PageQuery
	EstablishmentID *int64 `form:"establishmentId" binding:"omitempty,gt=0"`
	Status          string `form:"status" binding:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
	Search          string `form:"search" binding:"omitempty,max=100"`
	Mine            bool   `form:"mine"`
}

// CreateModuleRequest represents module creation data
type CreateModuleRequest struct {
	Title           string  `json:"title" binding:"required,max=200" example:"HTML & CSS"`
	Description     *string `json:"description"`
	DurationMinutes int     `json:"durationMinutes" binding:"omitempty,min=0" example:"180"`
}

// UpdateModuleRequest represents a partial module update
type UpdateModuleRequest struct {
	Title           *string `json:"title" binding:"omitempty,max=200"`
	Description     *string `json:"description"`
	DurationMinutes *int    `json:"durationMinutes" binding:"omitempty,min=0"`
}

// ReorderModulesRequest lists every module ID of a formation in its new order
type ReorderModulesRequest struct {
	ModuleIDs []int64 `json:"moduleIds" binding:"required,min=1,dive,gt=0"`
}

// EnrollRequest adds a user to a formation
type EnrollRequest struct {
	UserID int64  `json:"userId" binding:"required,gt=0" example:"42"`
	Role   string `json:"role" binding:"omitempty,oneof=STUDENT TRAINER" example:"STUDENT"`
}
