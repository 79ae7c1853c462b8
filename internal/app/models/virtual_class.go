package models

import (
	"encoding/json"
	"time"
)

// VirtualClass is a video room attached to a formation
type VirtualClass struct {
	ID              int64      `json:"id" db:"id"`
	EstablishmentID int64      `json:"establishmentId" db:"establishment_id"`
	FormationID     int64      `json:"formationId" db:"formation_id"`
	Title           string     `json:"title" db:"title"`
	Provider        string     `json:"provider" db:"provider"`
	RoomName        string     `json:"roomName" db:"room_name"`
	RoomURL         string     `json:"roomUrl" db:"room_url"`
	AccessCodeHash  *string    `json:"-" db:"access_code_hash"`
	StartsAt        *time.Time `json:"startsAt,omitempty" db:"starts_at"`
	EndsAt          *time.Time `json:"endsAt,omitempty" db:"ends_at"`
	CreatedBy       *int64     `json:"createdBy,omitempty" db:"created_by"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
}

// HasAccessCode reports whether joining requires a code
func (v *VirtualClass) HasAccessCode() bool {
	return v.AccessCodeHash != nil && *v.AccessCodeHash != ""
}

// Peer is a user's presence in a virtual class
type Peer struct {
	ClassID  int64      `json:"classId" db:"class_id"`
	UserID   int64      `json:"userId" db:"user_id"`
	Status   PeerStatus `json:"status" db:"status"`
	JoinedAt time.Time  `json:"joinedAt" db:"joined_at"`
	LastSeen time.Time  `json:"lastSeen" db:"last_seen"`
}

// Signal is a WebRTC signaling message relayed between two peers
type Signal struct {
	ID         int64           `json:"id" db:"id"`
	ClassID    int64           `json:"classId" db:"class_id"`
	SenderID   int64           `json:"senderId" db:"sender_id"`
	ReceiverID int64           `json:"receiverId" db:"receiver_id"`
	Type       SignalType      `json:"type" db:"signal_type"`
	Payload    json.RawMessage `json:"payload" db:"payload" swaggertype:"object"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`
}
