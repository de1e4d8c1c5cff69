// Package mqtt provides MQTT telemetry publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/linebot/internal/logic"
)

// TopicEvents is the MQTT topic for a robot's mission events.
func TopicEvents(robot string) string {
	return "linebot/" + robot + "/events"
}

// TopicSystem is the MQTT topic for a robot's lifecycle events.
func TopicSystem(robot string) string {
	return "linebot/" + robot + "/system"
}

// Identity names the publishing robot and the current run.
type Identity struct {
	Robot string
	RunID string
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a mission event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// System event names.
const (
	SystemStartup     = "STARTUP"
	SystemShutdown    = "SHUTDOWN"
	SystemHeartbeat   = "HEARTBEAT"
	SystemReconnected = "RECONNECTED"
	SystemOffline     = "OFFLINE"
)

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Robot RobotPayload `json:"robot"`
}

// RobotPayload contains the mission event details.
type RobotPayload struct {
	Name           string `json:"name"`
	RunID          string `json:"run_id"`
	Timestamp      string `json:"timestamp"`
	Event          string `json:"event"`
	From           string `json:"from,omitempty"`
	State          string `json:"state"`
	MissionMillis  int64  `json:"mission_ms"`
	ObstacleMillis int64  `json:"obstacle_ms"`
	Crossings      int    `json:"crossings"`
}

// FormatPayload creates the JSON payload for a mission event.
func FormatPayload(id Identity, event logic.Event) ([]byte, error) {
	payload := Payload{
		Robot: RobotPayload{
			Name:           id.Robot,
			RunID:          id.RunID,
			Timestamp:      event.Timestamp.UTC().Format(time.RFC3339Nano),
			Event:          string(event.Type),
			From:           string(event.From),
			State:          string(event.To),
			MissionMillis:  event.MissionTime.Milliseconds(),
			ObstacleMillis: event.ObstacleTime.Milliseconds(),
			Crossings:      event.Crossings,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
	Robot     string `json:"robot,omitempty"`
	RunID     string `json:"run_id,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(id Identity, event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
			Robot:     id.Robot,
			RunID:     id.RunID,
		},
	}
	return json.Marshal(payload)
}
