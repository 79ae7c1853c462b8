package dto

import (
	"time"

	"github.com/yigit/formatrack/internal/app/models"
)

// SendMessageRequest creates a message. A future ScheduledAt defers delivery to the dispatcher.
type SendMessageRequest struct {
	Subject     string               `json:"subject" binding:"required,max=255" example:"Changement de salle"`
	Body        string               `json:"body" binding:"required" example:"Le cours de demain aura lieu en salle B12."`
	Recipients  models.RecipientSpec `json:"recipients" binding:"required"`
	ScheduledAt *time.Time           `json:"scheduledAt" example:"2025-09-01T07:00:00Z"`
}

// InboxQuery filters the inbox
type InboxQuery struct {
	PageQuery
	Unread bool `form:"unread"`
}

// UnreadCountResponse is the number of unread messages of the caller
type UnreadCountResponse struct {
	Count int64 `json:"count" example:"3"`
}
