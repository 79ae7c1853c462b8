package dto

import (
	"encoding/json"
	"time"

	"github.com/yigit/formatrack/internal/app/models"
)

// CreateVirtualClassRequest provisions a video room for a formation
type CreateVirtualClassRequest struct {
	FormationID int64      `json:"formationId" binding:"required,gt=0" example:"12"`
	Title       string     `json:"title" binding:"required,max=200" example:"Classe virtuelle JS"`
	AccessCode  *string    `json:"accessCode" binding:"omitempty,min=4,max=64"`
	StartsAt    *time.Time `json:"startsAt"`
	EndsAt      *time.Time `json:"endsAt"`
}

// JoinVirtualClassRequest carries the optional access code
type JoinVirtualClassRequest struct {
	AccessCode string `json:"accessCode"`
}

// JoinVirtualClassResponse is what a peer needs to enter the room
type JoinVirtualClassResponse struct {
	Class   *models.VirtualClass `json:"class"`
	RoomURL string               `json:"roomUrl"`
	Peers   []models.Peer        `json:"peers"`
}

// SendSignalRequest relays a WebRTC payload to another peer
type SendSignalRequest struct {
	ReceiverID int64           `json:"receiverId" binding:"required,gt=0" example:"42"`
	Type       string          `json:"type" binding:"required,oneof=offer answer ice-candidate renegotiate" example:"offer"`
	Payload    json.RawMessage `json:"payload" binding:"required" swaggertype:"object"`
}

// PendingSignalsQuery selects signals newer than Since
type PendingSignalsQuery struct {
	Since *time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
}
