package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/formatrack/internal/app/models/dto"
	"github.com/yigit/formatrack/internal/app/services"
	"github.com/yigit/formatrack/internal/middleware"
)

// MessageController handles messaging and the inbox
type MessageController struct {
	messagingService services.MessagingService
}

// NewMessageController creates a new MessageController
func NewMessageController(messagingService services.MessagingService) *MessageController {
	return &MessageController{
		messagingService: messagingService,
	}
}

// SendMessage sends or schedules a message
// @Summary Send a message
// @Description Recipients are a descriptor: {type: users, userIds}, {type: formation, formationId, role?} or {type: role, role}. A scheduledAt in the future stores the message as PENDING for the dispatcher.
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SendMessageRequest true "Message"
// @Success 201 {object} dto.APIResponse{data=models.Message}
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 422 {object} dto.ErrorResponse "Descriptor resolved to no recipients"
// @Router /messages [post]
func (c *MessageController) SendMessage(ctx *gin.Context) {
	var req dto.SendMessageRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	message, err := c.messagingService.Send(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondCreated(ctx, message)
}

// Inbox lists the caller's received messages
// @Summary Inbox
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Param unread query bool false "Only unread messages"
// @Success 200 {object} dto.APIResponse{data=dto.PageResponse[models.InboxItem]}
// @Router /messages/inbox [get]
func (c *MessageController) Inbox(ctx *gin.Context) {
	var q dto.InboxQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}

	page, err := c.messagingService.Inbox(ctx.Request.Context(), q)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, page)
}

// Sent lists the messages the caller sent or scheduled
// @Summary Sent messages
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.PageResponse[models.Message]}
// @Router /messages/sent [get]
func (c *MessageController) Sent(ctx *gin.Context) {
	var q dto.PageQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}

	page, err := c.messagingService.Sent(ctx.Request.Context(), q)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, page)
}

// UnreadCount returns the number of unread messages
// @Summary Unread count
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UnreadCountResponse}
// @Router /messages/unread-count [get]
func (c *MessageController) UnreadCount(ctx *gin.Context) {
	count, err := c.messagingService.UnreadCount(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, dto.UnreadCountResponse{Count: count})
}

// GetMessage returns one message to its sender or one of its recipients
// @Summary Get a message
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=models.InboxItem}
// @Failure 404 {object} dto.ErrorResponse "Message not found"
// @Router /messages/{id} [get]
func (c *MessageController) GetMessage(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Message")
	if !ok {
		return
	}

	message, err := c.messagingService.GetMessage(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, message)
}

// MarkRead marks a received message as read
// @Summary Mark a message read
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Router /messages/{id}/read [post]
func (c *MessageController) MarkRead(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Message")
	if !ok {
		return
	}

	if err := c.messagingService.MarkRead(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondMessage(ctx, "Message marked as read")
}

// CancelMessage cancels a scheduled message
// @Summary Cancel a scheduled message
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 409 {object} dto.ErrorResponse "Message already dispatched"
// @Router /messages/{id} [delete]
func (c *MessageController) CancelMessage(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Message")
	if !ok {
		return
	}

	if err := c.messagingService.Cancel(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondMessage(ctx, "Message cancelled")
}
