package models

import (
	"time"
)

// RecipientType selects how a message audience is described
type RecipientType string

const (
	RecipientUsers     RecipientType = "users"
	RecipientFormation RecipientType = "formation"
	RecipientRole      RecipientType = "role"
)

// RecipientSpec describes who receives a message. It is stored as JSONB and
// expanded to concrete users at send time.
type RecipientSpec struct {
	Type        RecipientType `json:"type" example:"formation"`
	UserIDs     []int64       `json:"userIds,omitempty"`
	FormationID *int64        `json:"formationId,omitempty" example:"12"`
	Role        *Role         `json:"role,omitempty" example:"STUDENT"`
}

// Message is a message written by a user to a recipient set
type Message struct {
	ID              int64         `json:"id" db:"id"`
	EstablishmentID int64         `json:"establishmentId" db:"establishment_id"`
	SenderID        int64         `json:"senderId" db:"sender_id"`
	Subject         string        `json:"subject" db:"subject"`
	Body            string        `json:"body" db:"body"`
	Recipients      RecipientSpec `json:"recipients" db:"recipient_spec"`
	Status          MessageStatus `json:"status" db:"status"`
	ScheduledAt     *time.Time    `json:"scheduledAt,omitempty" db:"scheduled_at"`
	SentAt          *time.Time    `json:"sentAt,omitempty" db:"sent_at"`
	ErrorMessage    *string       `json:"errorMessage,omitempty" db:"error_message"`
	RecipientCount  int           `json:"recipientCount" db:"recipient_count"`
	CreatedAt       time.Time     `json:"createdAt" db:"created_at"`
}

// InboxItem is a message as seen by one recipient
type InboxItem struct {
	Message
	ReadAt     *time.Time `json:"readAt,omitempty" db:"read_at"`
	SenderName string     `json:"senderName" db:"sender_name"`
}

// InboxFilter narrows inbox listings
type InboxFilter struct {
	UserID     int64
	UnreadOnly bool
	Page       int
	PageSize   int
}
