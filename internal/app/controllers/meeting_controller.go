package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/formatrack/internal/app/models/dto"
	"github.com/yigit/formatrack/internal/app/services"
	"github.com/yigit/formatrack/internal/middleware"
)

// MeetingController handles meetings
type MeetingController struct {
	meetingService services.MeetingService
}

// NewMeetingController creates a new MeetingController
func NewMeetingController(meetingService services.MeetingService) *MeetingController {
	return &MeetingController{
		meetingService: meetingService,
	}
}

// CreateMeeting handles meeting creation
// @Summary Create a meeting
// @Tags meetings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateMeetingRequest true "Meeting information"
// @Success 201 {object} dto.APIResponse{data=models.Meeting}
// @Router /meetings [post]
func (c *MeetingController) CreateMeeting(ctx *gin.Context) {
	var req dto.CreateMeetingRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	meeting, err := c.meetingService.CreateMeeting(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondCreated(ctx, meeting)
}

// GetMeeting retrieves a meeting
// @Summary Get a meeting
// @Tags meetings
// @Produce json
// @Security BearerAuth
// @Param id path int true "Meeting ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=models.Meeting}
// @Failure 404 {object} dto.ErrorResponse "Meeting not found"
// @Router /meetings/{id} [get]
func (c *MeetingController) GetMeeting(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Meeting")
	if !ok {
		return
	}

	meeting, err := c.meetingService.GetMeeting(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, meeting)
}

// ListMeetings lists meetings
// @Summary List meetings
// @Tags meetings
// @Produce json
// @Security BearerAuth
// @Param formationId query int false "Formation"
// @Param from query string false "Window start (RFC 3339)"
// @Param to query string false "Window end (RFC 3339)"
// @Param establishmentId query int false "Establishment (SUPER_ADMIN only)"
// @Success 200 {object} dto.APIResponse{data=[]models.Meeting}
// @Router /meetings [get]
func (c *MeetingController) ListMeetings(ctx *gin.Context) {
	var q dto.MeetingListQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}

	meetings, err := c.meetingService.ListMeetings(ctx.Request.Context(), q)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, meetings)
}

// UpdateMeeting updates a meeting
// @Summary Update a meeting
// @Tags meetings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Meeting ID" Format(int64) minimum(1)
// @Param request body dto.UpdateMeetingRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.Meeting}
// @Router /meetings/{id} [patch]
func (c *MeetingController) UpdateMeeting(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Meeting")
	if !ok {
		return
	}
	var req dto.UpdateMeetingRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	meeting, err := c.meetingService.UpdateMeeting(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, meeting)
}

// DeleteMeeting deletes a meeting
// @Summary Delete a meeting
// @Tags meetings
// @Produce json
// @Security BearerAuth
// @Param id path int true "Meeting ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Router /meetings/{id} [delete]
func (c *MeetingController) DeleteMeeting(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Meeting")
	if !ok {
		return
	}

	if err := c.meetingService.DeleteMeeting(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondMessage(ctx, "Meeting deleted")
}
