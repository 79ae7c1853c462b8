package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/formatrack/internal/app/models/dto"
	"github.com/yigit/formatrack/internal/app/services"
	"github.com/yigit/formatrack/internal/middleware"
)

// VirtualClassController handles video rooms and the signaling relay of their peers
type VirtualClassController struct {
	classService     services.VirtualClassService
	signalingService services.SignalingService
}

// NewVirtualClassController creates a new VirtualClassController
func NewVirtualClassController(classService services.VirtualClassService, signalingService services.SignalingService) *VirtualClassController {
	return &VirtualClassController{
		classService:     classService,
		signalingService: signalingService,
	}
}

// CreateVirtualClass provisions a room for a formation
// @Summary Create a virtual class
// @Description Provisions a room with the configured video provider and notifies the formation's participants.
// @Tags virtual-classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateVirtualClassRequest true "Virtual class information"
// @Success 201 {object} dto.APIResponse{data=models.VirtualClass}
// @Failure 502 {object} dto.ErrorResponse "Video provider unavailable"
// @Router /virtual-classes [post]
func (c *VirtualClassController) CreateVirtualClass(ctx *gin.Context) {
	var req dto.CreateVirtualClassRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	class, err := c.classService.CreateVirtualClass(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondCreated(ctx, class)
}

// GetVirtualClass retrieves a virtual class
// @Summary Get a virtual class
// @Tags virtual-classes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Virtual class ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=models.VirtualClass}
// @Failure 404 {object} dto.ErrorResponse "Virtual class not found"
// @Router /virtual-classes/{id} [get]
func (c *VirtualClassController) GetVirtualClass(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Virtual class")
	if !ok {
		return
	}

	class, err := c.classService.GetVirtualClass(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, class)
}

// ListVirtualClasses lists the virtual classes of a formation
// @Summary List virtual classes of a formation
// @Tags virtual-classes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Formation ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=[]models.VirtualClass}
// @Router /formations/{id}/virtual-classes [get]
func (c *VirtualClassController) ListVirtualClasses(ctx *gin.Context) {
	formationID, ok := parseIDParam(ctx, "id", "Formation")
	if !ok {
		return
	}

	classes, err := c.classService.ListVirtualClasses(ctx.Request.Context(), formationID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, classes)
}

// DeleteVirtualClass deletes a virtual class and releases its room
// @Summary Delete a virtual class
// @Tags virtual-classes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Virtual class ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Router /virtual-classes/{id} [delete]
func (c *VirtualClassController) DeleteVirtualClass(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Virtual class")
	if !ok {
		return
	}

	if err := c.classService.DeleteVirtualClass(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondMessage(ctx, "Virtual class deleted")
}

// JoinVirtualClass enters the room
// @Summary Join a virtual class
// @Description Checks the access code, marks the caller online and returns the room URL with the peers already present.
// @Tags virtual-classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Virtual class ID" Format(int64) minimum(1)
// @Param request body dto.JoinVirtualClassRequest false "Access code"
// @Success 200 {object} dto.APIResponse{data=dto.JoinVirtualClassResponse}
// @Failure 403 {object} dto.ErrorResponse "Invalid access code or not a participant"
// @Router /virtual-classes/{id}/join [post]
func (c *VirtualClassController) JoinVirtualClass(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Virtual class")
	if !ok {
		return
	}
	var req dto.JoinVirtualClassRequest
	if ctx.Request.ContentLength > 0 && !middleware.BindJSON(ctx, &req) {
		return
	}

	joined, err := c.classService.Join(ctx.Request.Context(), id, req.AccessCode)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, joined)
}

// LeaveVirtualClass marks the caller offline
// @Summary Leave a virtual class
// @Tags signaling
// @Produce json
// @Security BearerAuth
// @Param id path int true "Virtual class ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Router /virtual-classes/{id}/leave [post]
func (c *VirtualClassController) LeaveVirtualClass(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Virtual class")
	if !ok {
		return
	}

	if err := c.signalingService.Leave(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondMessage(ctx, "Left the class")
}

// Heartbeat refreshes the caller's presence
// @Summary Presence heartbeat
// @Tags signaling
// @Produce json
// @Security BearerAuth
// @Param id path int true "Virtual class ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 409 {object} dto.ErrorResponse "Caller is not online in the class"
// @Router /virtual-classes/{id}/heartbeat [post]
func (c *VirtualClassController) Heartbeat(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Virtual class")
	if !ok {
		return
	}

	if err := c.signalingService.Heartbeat(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondMessage(ctx, "Presence refreshed")
}

// ListPeers lists the online peers of a class
// @Summary Online peers
// @Tags signaling
// @Produce json
// @Security BearerAuth
// @Param id path int true "Virtual class ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=[]models.Peer}
// @Router /virtual-classes/{id}/peers [get]
func (c *VirtualClassController) ListPeers(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Virtual class")
	if !ok {
		return
	}

	peers, err := c.signalingService.Peers(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, peers)
}

// SendSignal relays a WebRTC payload to another peer
// @Summary Send a signal
// @Description Both peers must be online in the class. Only the receiver gets the realtime event.
// @Tags signaling
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Virtual class ID" Format(int64) minimum(1)
// @Param request body dto.SendSignalRequest true "Signal"
// @Success 201 {object} dto.APIResponse{data=models.Signal}
// @Failure 409 {object} dto.ErrorResponse "A peer is not online"
// @Router /virtual-classes/{id}/signals [post]
func (c *VirtualClassController) SendSignal(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Virtual class")
	if !ok {
		return
	}
	var req dto.SendSignalRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	signal, err := c.signalingService.Send(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondCreated(ctx, signal)
}

// PendingSignals returns the signals addressed to the caller
// @Summary Poll signals
// @Tags signaling
// @Produce json
// @Security BearerAuth
// @Param id path int true "Virtual class ID" Format(int64) minimum(1)
// @Param since query string false "Only signals after this instant (RFC 3339)"
// @Success 200 {object} dto.APIResponse{data=[]models.Signal}
// @Router /virtual-classes/{id}/signals [get]
func (c *VirtualClassController) PendingSignals(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Virtual class")
	if !ok {
		return
	}
	var q dto.PendingSignalsQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}

	signals, err := c.signalingService.Pending(ctx.Request.Context(), id, q)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, signals)
}
