package hub

import (
	"encoding/json"
	"fmt"
)

// Message types and constants of the hub websocket protocol.
const (
	TypeAuth            = "auth"
	TypeSubscribeEvents = "subscribe_events"
	TypeEvent           = "event"

	EventStateChanged = "state_changed"

	// SubscribeID is the fixed request id of the subscription.
	SubscribeID = 1

	// StateOn is the entity state that means motion is active.
	StateOn = "on"
)

// AuthMessage carries the long-lived access token.
type AuthMessage struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token"`
}

// SubscribeMessage requests a stream of events of one type.
type SubscribeMessage struct {
	ID        int    `json:"id"`
	Type      string `json:"type"`
	EventType string `json:"event_type"`
}

// NewAuth returns the auth message for token.
func NewAuth(token string) AuthMessage {
	return AuthMessage{Type: TypeAuth, AccessToken: token}
}

// NewSubscribe returns the state_changed subscription request.
func NewSubscribe() SubscribeMessage {
	return SubscribeMessage{ID: SubscribeID, Type: TypeSubscribeEvents, EventType: EventStateChanged}
}

// Message is an inbound message. Only the fields used for motion tracking
// are decoded.
type Message struct {
	Type  string `json:"type"`
	Event *Event `json:"event,omitempty"`
}

// Event is the body of an event message.
type Event struct {
	EventType string    `json:"event_type,omitempty"`
	Data      EventData `json:"data"`
}

// EventData identifies the entity that changed and its new state.
type EventData struct {
	EntityID string       `json:"entity_id"`
	NewState *EntityState `json:"new_state"`
}

// EntityState is the state of an entity after a change.
type EntityState struct {
	State string `json:"state"`
}

// ParseMessage decodes one inbound frame.
func ParseMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("parse message: %w", err)
	}
	if m.Type == "" {
		return Message{}, fmt.Errorf("parse message: missing type")
	}
	return m, nil
}

// MotionFor reports the motion state carried by m for entity.
// ok is false when m is not a state_changed event for that entity.
// A removed entity (null new_state) reads as inactive.
func (m Message) MotionFor(entity string) (active, ok bool) {
	if m.Type != TypeEvent || m.Event == nil {
		return false, false
	}
	if m.Event.EventType != "" && m.Event.EventType != EventStateChanged {
		return false, false
	}
	if m.Event.Data.EntityID != entity {
		return false, false
	}
	if m.Event.Data.NewState == nil {
		return false, true
	}
	return m.Event.Data.NewState.State == StateOn, true
}
