package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/formatrack/internal/app/models/dto"
	"github.com/yigit/formatrack/internal/app/services"
	"github.com/yigit/formatrack/internal/middleware"
)

// ScheduleController handles schedules and their slots
type ScheduleController struct {
	scheduleService services.ScheduleService
}

// NewScheduleController creates a new ScheduleController
func NewScheduleController(scheduleService services.ScheduleService) *ScheduleController {
	return &ScheduleController{
		scheduleService: scheduleService,
	}
}

// CreateSchedule handles schedule creation
// @Summary Create a schedule
// @Tags schedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateScheduleRequest true "Schedule information"
// @Success 201 {object} dto.APIResponse{data=models.Schedule}
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Formation not found"
// @Router /schedules [post]
func (c *ScheduleController) CreateSchedule(ctx *gin.Context) {
	var req dto.CreateScheduleRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	schedule, err := c.scheduleService.CreateSchedule(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondCreated(ctx, schedule)
}

// GetSchedule retrieves a schedule
// @Summary Get a schedule
// @Tags schedules
// @Produce json
// @Security BearerAuth
// @Param id path int true "Schedule ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=models.Schedule}
// @Failure 404 {object} dto.ErrorResponse "Schedule not found"
// @Router /schedules/{id} [get]
func (c *ScheduleController) GetSchedule(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Schedule")
	if !ok {
		return
	}

	schedule, err := c.scheduleService.GetSchedule(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, schedule)
}

// ListSchedules lists the schedules of a formation
// @Summary List schedules of a formation
// @Tags schedules
// @Produce json
// @Security BearerAuth
// @Param id path int true "Formation ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=[]models.Schedule}
// @Router /formations/{id}/schedules [get]
func (c *ScheduleController) ListSchedules(ctx *gin.Context) {
	formationID, ok := parseIDParam(ctx, "id", "Formation")
	if !ok {
		return
	}

	schedules, err := c.scheduleService.ListSchedules(ctx.Request.Context(), formationID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, schedules)
}

// DeleteSchedule deletes a schedule and its slots
// @Summary Delete a schedule
// @Tags schedules
// @Produce json
// @Security BearerAuth
// @Param id path int true "Schedule ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Router /schedules/{id} [delete]
func (c *ScheduleController) DeleteSchedule(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Schedule")
	if !ok {
		return
	}

	if err := c.scheduleService.DeleteSchedule(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondMessage(ctx, "Schedule deleted")
}

// AddSlot adds a slot to a schedule
// @Summary Add a slot
// @Description Slots of one schedule must not overlap; touching slots are allowed.
// @Tags schedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Schedule ID" Format(int64) minimum(1)
// @Param request body dto.CreateSlotRequest true "Slot information"
// @Success 201 {object} dto.APIResponse{data=models.ScheduleSlot}
// @Failure 400 {object} dto.ErrorResponse "End is not after start"
// @Failure 409 {object} dto.ErrorResponse "Slot overlaps an existing slot"
// @Router /schedules/{id}/slots [post]
func (c *ScheduleController) AddSlot(ctx *gin.Context) {
	scheduleID, ok := parseIDParam(ctx, "id", "Schedule")
	if !ok {
		return
	}
	var req dto.CreateSlotRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	slot, err := c.scheduleService.AddSlot(ctx.Request.Context(), scheduleID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondCreated(ctx, slot)
}

// ListSlots lists the slots of a schedule
// @Summary List slots of a schedule
// @Tags schedules
// @Produce json
// @Security BearerAuth
// @Param id path int true "Schedule ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=[]models.ScheduleSlot}
// @Router /schedules/{id}/slots [get]
func (c *ScheduleController) ListSlots(ctx *gin.Context) {
	scheduleID, ok := parseIDParam(ctx, "id", "Schedule")
	if !ok {
		return
	}

	slots, err := c.scheduleService.ListSlots(ctx.Request.Context(), scheduleID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, slots)
}

// UpdateSlot updates a slot
// @Summary Update a slot
// @Tags schedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param slotId path int true "Slot ID" Format(int64) minimum(1)
// @Param request body dto.UpdateSlotRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.ScheduleSlot}
// @Failure 409 {object} dto.ErrorResponse "Slot overlaps an existing slot"
// @Router /slots/{slotId} [patch]
func (c *ScheduleController) UpdateSlot(ctx *gin.Context) {
	slotID, ok := parseIDParam(ctx, "slotId", "Slot")
	if !ok {
		return
	}
	var req dto.UpdateSlotRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	slot, err := c.scheduleService.UpdateSlot(ctx.Request.Context(), slotID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, slot)
}

// DeleteSlot deletes a slot
// @Summary Delete a slot
// @Tags schedules
// @Produce json
// @Security BearerAuth
// @Param slotId path int true "Slot ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Router /slots/{slotId} [delete]
func (c *ScheduleController) DeleteSlot(ctx *gin.Context) {
	slotID, ok := parseIDParam(ctx, "slotId", "Slot")
	if !ok {
		return
	}

	if err := c.scheduleService.DeleteSlot(ctx.Request.Context(), slotID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondMessage(ctx, "Slot deleted")
}

// FormationSlots lists the slots of a formation inside a time window
// @Summary Formation timetable
// @Tags schedules
// @Produce json
// @Security BearerAuth
// @Param id path int true "Formation ID" Format(int64) minimum(1)
// @Param from query string true "Window start (RFC 3339)"
// @Param to query string true "Window end (RFC 3339)"
// @Success 200 {object} dto.APIResponse{data=[]models.ScheduleSlot}
// @Router /formations/{id}/slots [get]
func (c *ScheduleController) FormationSlots(ctx *gin.Context) {
	formationID, ok := parseIDParam(ctx, "id", "Formation")
	if !ok {
		return
	}
	var q dto.SlotWindowQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}

	slots, err := c.scheduleService.FormationSlots(ctx.Request.Context(), formationID, q)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, slots)
}

// MySlots lists the caller's slots inside a time window
// @Summary My timetable
// @Description Slots of the formations the caller takes part in, plus slots the caller teaches.
// @Tags schedules
// @Produce json
// @Security BearerAuth
// @Param from query string true "Window start (RFC 3339)"
// @Param to query string true "Window end (RFC 3339)"
// @Success 200 {object} dto.APIResponse{data=[]models.ScheduleSlot}
// @Router /me/slots [get]
func (c *ScheduleController) MySlots(ctx *gin.Context) {
	var q dto.SlotWindowQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}

	slots, err := c.scheduleService.MySlots(ctx.Request.Context(), q)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, slots)
}
