// Package realtime pushes events to connected websocket clients. Events are
// addressed to a single user; a Broker fans them out across API instances and
// the Hub delivers them to that user's local connections.
package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	EventMessageNew       = "message.new"
	EventPeerJoined       = "peer.joined"
	EventPeerLeft         = "peer.left"
	EventSignal           = "signal"
	EventSubmissionGraded = "submission.graded"
)

// Event is what a websocket client receives
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Payload   json.RawMessage `json:"payload,omitempty" swaggertype:"object"`
	Timestamp time.Time       `json:"timestamp"`
}

// UserTopic is the topic of events addressed to userID
func UserTopic(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

// NewEvent builds an event for userID with payload encoded as JSON
func NewEvent(eventType string, userID int64, payload interface{}) (Event, error) {
	ev := Event{
		Type:      eventType,
		Topic:     UserTopic(userID),
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("error encoding %s payload: %w", eventType, err)
		}
		ev.Payload = data
	}
	return ev, nil
}
