package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/formatrack/internal/app/models/dto"
	"github.com/yigit/formatrack/internal/app/services"
	"github.com/yigit/formatrack/internal/middleware"
)

// FormationController handles formations, their modules and participants
type FormationController struct {
	formationService services.FormationService
}

// NewFormationController creates a new FormationController
func NewFormationController(formationService services.FormationService) *FormationController {
	return &FormationController{
		formationService: formationService,
	}
}

// CreateFormation handles formation creation
// @Summary Create a formation
// @Description Trainers and admins create formations in their establishment. A trainer is enrolled in the formation they create.
// @Tags formations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateFormationRequest true "Formation information"
// @Success 201 {object} dto.APIResponse{data=models.Formation} "Formation created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Router /formations [post]
func (c *FormationController) CreateFormation(ctx *gin.Context) {
	var req dto.CreateFormationRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	formation, err := c.formationService.CreateFormation(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondCreated(ctx, formation)
}

// GetFormation retrieves a formation by ID
// @Summary Get a formation
// @Tags formations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Formation ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=models.Formation}
// @Failure 404 {object} dto.ErrorResponse "Formation not found"
// @Router /formations/{id} [get]
func (c *FormationController) GetFormation(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Formation")
	if !ok {
		return
	}

	formation, err := c.formationService.GetFormation(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, formation)
}

// ListFormations lists formations
// @Summary List formations
// @Description Students only see the formations they are enrolled in; mine=true applies the same filter for everyone.
// @Tags formations
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Param status query string false "Status" Enums(DRAFT, PUBLISHED, ARCHIVED)
// @Param search query string false "Title search"
// @Param mine query bool false "Only my formations"
// @Param establishmentId query int false "Establishment (SUPER_ADMIN only)"
// @Success 200 {object} dto.APIResponse{data=dto.PageResponse[models.Formation]}
// @Router /formations [get]
func (c *FormationController) ListFormations(ctx *gin.Context) {
	var q dto.FormationListQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}

	page, err := c.formationService.ListFormations(ctx.Request.Context(), q)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, page)
}

// UpdateFormation updates a formation
// @Summary Update a formation
// @Tags formations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Formation ID" Format(int64) minimum(1)
// @Param request body dto.UpdateFormationRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.Formation}
// @Router /formations/{id} [patch]
func (c *FormationController) UpdateFormation(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Formation")
	if !ok {
		return
	}
	var req dto.UpdateFormationRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	formation, err := c.formationService.UpdateFormation(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, formation)
}

// DeleteFormation deletes a formation
// @Summary Delete a formation
// @Tags formations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Formation ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Router /formations/{id} [delete]
func (c *FormationController) DeleteFormation(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Formation")
	if !ok {
		return
	}

	if err := c.formationService.DeleteFormation(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondMessage(ctx, "Formation deleted")
}

// AddModule appends a module to a formation
// @Summary Add a module
// @Tags modules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Formation ID" Format(int64) minimum(1)
// @Param request body dto.CreateModuleRequest true "Module information"
// @Success 201 {object} dto.APIResponse{data=models.FormationModule}
// @Router /formations/{id}/modules [post]
func (c *FormationController) AddModule(ctx *gin.Context) {
	formationID, ok := parseIDParam(ctx, "id", "Formation")
	if !ok {
		return
	}
	var req dto.CreateModuleRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	module, err := c.formationService.AddModule(ctx.Request.Context(), formationID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondCreated(ctx, module)
}

// ListModules lists the modules of a formation in order
// @Summary List modules
// @Tags modules
// @Produce json
// @Security BearerAuth
// @Param id path int true "Formation ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=[]models.FormationModule}
// @Router /formations/{id}/modules [get]
func (c *FormationController) ListModules(ctx *gin.Context) {
	formationID, ok := parseIDParam(ctx, "id", "Formation")
	if !ok {
		return
	}

	modules, err := c.formationService.ListModules(ctx.Request.Context(), formationID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, modules)
}

// ReorderModules sets module positions 1..n
// @Summary Reorder modules
// @Tags modules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Formation ID" Format(int64) minimum(1)
// @Param request body dto.ReorderModulesRequest true "Every module ID in its new order"
// @Success 200 {object} dto.APIResponse{data=[]models.FormationModule}
// @Router /formations/{id}/modules/order [put]
func (c *FormationController) ReorderModules(ctx *gin.Context) {
	formationID, ok := parseIDParam(ctx, "id", "Formation")
	if !ok {
		return
	}
	var req dto.ReorderModulesRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	modules, err := c.formationService.ReorderModules(ctx.Request.Context(), formationID, req.ModuleIDs)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, modules)
}

// UpdateModule updates a module
// @Summary Update a module
// @Tags modules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param moduleId path int true "Module ID" Format(int64) minimum(1)
// @Param request body dto.UpdateModuleRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.FormationModule}
// @Router /modules/{moduleId} [patch]
func (c *FormationController) UpdateModule(ctx *gin.Context) {
	moduleID, ok := parseIDParam(ctx, "moduleId", "Module")
	if !ok {
		return
	}
	var req dto.UpdateModuleRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	module, err := c.formationService.UpdateModule(ctx.Request.Context(), moduleID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, module)
}

// DeleteModule removes a module
// @Summary Delete a module
// @Tags modules
// @Produce json
// @Security BearerAuth
// @Param moduleId path int true "Module ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Router /modules/{moduleId} [delete]
func (c *FormationController) DeleteModule(ctx *gin.Context) {
	moduleID, ok := parseIDParam(ctx, "moduleId", "Module")
	if !ok {
		return
	}

	if err := c.formationService.DeleteModule(ctx.Request.Context(), moduleID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondMessage(ctx, "Module deleted")
}

// Enroll adds a participant to a formation
// @Summary Enroll a user
// @Tags participants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Formation ID" Format(int64) minimum(1)
// @Param request body dto.EnrollRequest true "User and role in the formation"
// @Success 201 {object} dto.APIResponse{data=models.FormationParticipant}
// @Failure 403 {object} dto.ErrorResponse "User belongs to another establishment"
// @Failure 409 {object} dto.ErrorResponse "Already enrolled"
// @Router /formations/{id}/participants [post]
func (c *FormationController) Enroll(ctx *gin.Context) {
	formationID, ok := parseIDParam(ctx, "id", "Formation")
	if !ok {
		return
	}
	var req dto.EnrollRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	participant, err := c.formationService.Enroll(ctx.Request.Context(), formationID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondCreated(ctx, participant)
}

// ListParticipants lists the participants of a formation
// @Summary List participants
// @Tags participants
// @Produce json
// @Security BearerAuth
// @Param id path int true "Formation ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=[]models.FormationParticipant}
// @Router /formations/{id}/participants [get]
func (c *FormationController) ListParticipants(ctx *gin.Context) {
	formationID, ok := parseIDParam(ctx, "id", "Formation")
	if !ok {
		return
	}

	participants, err := c.formationService.ListParticipants(ctx.Request.Context(), formationID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, participants)
}

// Unenroll removes a participant
// @Summary Unenroll a user
// @Tags participants
// @Produce json
// @Security BearerAuth
// @Param id path int true "Formation ID" Format(int64) minimum(1)
// @Param userId path int true "User ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Router /formations/{id}/participants/{userId} [delete]
func (c *FormationController) Unenroll(ctx *gin.Context) {
	formationID, ok := parseIDParam(ctx, "id", "Formation")
	if !ok {
		return
	}
	userID, ok := parseIDParam(ctx, "userId", "User")
	if !ok {
		return
	}

	if err := c.formationService.Unenroll(ctx.Request.Context(), formationID, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondMessage(ctx, "Participant removed")
}
