// Package mqtt publishes motion transitions and daemon lifecycle events
// to an MQTT broker, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sweeney/motion-timelapse/internal/logic"
)

// DefaultTopicPrefix is the topic root used when none is configured.
const DefaultTopicPrefix = "timelapse/camera"

// System event names.
const (
	EventStartup         = "STARTUP"
	EventShutdown        = "SHUTDOWN"
	EventHeartbeat       = "HEARTBEAT"
	EventDayComplete     = "DAY_COMPLETE"
	EventHubConnected    = "HUB_CONNECTED"
	EventHubDisconnected = "HUB_DISCONNECTED"
	EventOffline         = "OFFLINE"
)

// Topics names the two topics a publisher writes to.
type Topics struct {
	Events string // motion transitions
	System string // lifecycle events
}

// NewTopics derives the topics from prefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{
		Events: prefix + "/events",
		System: prefix + "/system",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishMotion sends a motion transition to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishMotion(event logic.MotionEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "DAY_COMPLETE"
	Reason     string // e.g., "SIGTERM", a disconnect cause, a rendered day
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a motion transition.
type Payload struct {
	Motion MotionPayload `json:"motion"`
}

// MotionPayload contains the motion event details.
type MotionPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Entity    string `json:"entity"`
	State     string `json:"state"`
}

// FormatPayload creates the JSON payload for a motion event.
func FormatPayload(event logic.MotionEvent) ([]byte, error) {
	state := "OFF"
	if event.Type == logic.EventMotionOn {
		state = "ON"
	}
	payload := Payload{
		Motion: MotionPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Entity:    event.Entity,
			State:     state,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, hub connection changes) that don't carry a
// full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Event:  event.Event,
			Reason: event.Reason,
		},
	}
	if !event.Timestamp.IsZero() {
		payload.System.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(payload)
}

// WillPayload is the last-will message the broker publishes if the daemon
// drops off without a SHUTDOWN.
func WillPayload() []byte {
	data, _ := FormatSystemPayload(SystemEvent{Event: EventOffline, Reason: "connection lost"})
	return data
}
