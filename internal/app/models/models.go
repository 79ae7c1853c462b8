package models

// Role is a user's role inside the platform
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN" // cross-tenant
	RoleAdmin      Role = "ADMIN"       // establishment administrator
	RoleTrainer    Role = "TRAINER"
	RoleStudent    Role = "STUDENT"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleTrainer, RoleStudent:
		return true
	}
	return false
}

// FormationStatus is the publication state of a formation
type FormationStatus string

const (
	FormationDraft     FormationStatus = "DRAFT"
	FormationPublished FormationStatus = "PUBLISHED"
	FormationArchived  FormationStatus = "ARCHIVED"
)

// ParticipantRole is the role a user holds inside one formation
type ParticipantRole string

const (
	ParticipantStudent ParticipantRole = "STUDENT"
	ParticipantTrainer ParticipantRole = "TRAINER"
)

// MessageStatus is the delivery state of a message
type MessageStatus string

const (
	MessagePending    MessageStatus = "PENDING"
	MessageProcessing MessageStatus = "PROCESSING" // claimed by a dispatcher pass
	MessageSent       MessageStatus = "SENT"
	MessageFailed     MessageStatus = "FAILED"
	MessageCancelled  MessageStatus = "CANCELLED"
)

// PeerStatus is the presence of a user in a virtual class
type PeerStatus string

const (
	PeerOnline  PeerStatus = "ONLINE"
	PeerOffline PeerStatus = "OFFLINE"
)

// SignalType is the kind of WebRTC signaling payload
type SignalType string

const (
	SignalOffer        SignalType = "offer"
	SignalAnswer       SignalType = "answer"
	SignalICECandidate SignalType = "ice-candidate"
	SignalRenegotiate  SignalType = "renegotiate"
)

// Valid reports whether t is a known signal type
func (t SignalType) Valid() bool {
	switch t {
	case SignalOffer, SignalAnswer, SignalICECandidate, SignalRenegotiate:
		return true
	}
	return false
}
