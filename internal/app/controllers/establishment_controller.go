package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/formatrack/internal/app/models/dto"
	"github.com/yigit/formatrack/internal/app/services"
	"github.com/yigit/formatrack/internal/middleware"
)

// EstablishmentController handles tenant management
type EstablishmentController struct {
	establishmentService services.EstablishmentService
}

// NewEstablishmentController creates a new EstablishmentController
func NewEstablishmentController(establishmentService services.EstablishmentService) *EstablishmentController {
	return &EstablishmentController{
		establishmentService: establishmentService,
	}
}

type establishmentListQuery struct {
	dto.PageQuery
	ActiveOnly bool `form:"active"`
}

// CreateEstablishment handles establishment creation
// @Summary Create an establishment
// @Description Creates a new tenant. The slug is derived from the name when omitted. SUPER_ADMIN only.
// @Tags establishments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateEstablishmentRequest true "Establishment information"
// @Success 201 {object} dto.APIResponse{data=models.Establishment} "Establishment created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 409 {object} dto.ErrorResponse "Slug already exists"
// @Router /establishments [post]
func (c *EstablishmentController) CreateEstablishment(ctx *gin.Context) {
	var req dto.CreateEstablishmentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	establishment, err := c.establishmentService.CreateEstablishment(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondCreated(ctx, establishment)
}

// GetEstablishment retrieves an establishment by ID
// @Summary Get an establishment
// @Tags establishments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Establishment ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=models.Establishment}
// @Failure 404 {object} dto.ErrorResponse "Establishment not found"
// @Router /establishments/{id} [get]
func (c *EstablishmentController) GetEstablishment(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Establishment")
	if !ok {
		return
	}

	establishment, err := c.establishmentService.GetEstablishment(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, establishment)
}

// GetOwnEstablishment returns the caller's establishment
// @Summary Get my establishment
// @Tags establishments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.Establishment}
// @Router /establishments/me [get]
func (c *EstablishmentController) GetOwnEstablishment(ctx *gin.Context) {
	establishment, err := c.establishmentService.GetOwnEstablishment(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, establishment)
}

// ListEstablishments lists tenants
// @Summary List establishments
// @Tags establishments
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Param active query bool false "Only active establishments"
// @Success 200 {object} dto.APIResponse{data=dto.PageResponse[models.Establishment]}
// @Router /establishments [get]
func (c *EstablishmentController) ListEstablishments(ctx *gin.Context) {
	var q establishmentListQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}

	page, err := c.establishmentService.ListEstablishments(ctx.Request.Context(), q.ActiveOnly, q.PageQuery)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, page)
}

// UpdateEstablishment updates an establishment
// @Summary Update an establishment
// @Tags establishments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Establishment ID" Format(int64) minimum(1)
// @Param request body dto.UpdateEstablishmentRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.Establishment}
// @Failure 409 {object} dto.ErrorResponse "Slug already exists"
// @Router /establishments/{id} [patch]
func (c *EstablishmentController) UpdateEstablishment(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Establishment")
	if !ok {
		return
	}
	var req dto.UpdateEstablishmentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	establishment, err := c.establishmentService.UpdateEstablishment(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, establishment)
}

// DeactivateEstablishment deactivates an establishment
// @Summary Deactivate an establishment
// @Tags establishments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Establishment ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Router /establishments/{id} [delete]
func (c *EstablishmentController) DeactivateEstablishment(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Establishment")
	if !ok {
		return
	}

	if err := c.establishmentService.DeactivateEstablishment(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondMessage(ctx, "Establishment deactivated")
}
