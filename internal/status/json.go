package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Robot         string     `json:"robot"`
	RunID         string     `json:"run_id"`
	State         string     `json:"state"`
	PreviousState string     `json:"previous_state,omitempty"`
	Started       bool       `json:"started"`
	MissionMillis int64      `json:"mission_ms"`
	RemainingMs   int64      `json:"remaining_ms"`
	ObstacleMs    int64      `json:"obstacle_ms"`
	Avoiding      bool       `json:"avoiding"`
	Crossings     int        `json:"crossings"`
	ZoneArmed     bool       `json:"zone_armed"`
	Wheels        WheelsJSON `json:"wheels"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"event_counts"`
	Config        ConfigJSON `json:"config"`
}

// WheelsJSON reports the last motor values.
type WheelsJSON struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	StateChanges      int `json:"state_changes"`
	Crossings         int `json:"crossings"`
	ObstaclesDetected int `json:"obstacles_detected"`
	ObstaclesCleared  int `json:"obstacles_cleared"`
	EndMarkers        int `json:"end_markers"`
	Deadlines         int `json:"deadlines"`
	StartTriggers     int `json:"start_triggers"`
	ZoneArms          int `json:"zone_arms"`
	AvoidanceLimits   int `json:"avoidance_limits"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	StopMs      int64  `json:"stop_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	Profile     string `json:"profile"`
	DebugSerial string `json:"debug_serial,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.Robot.State)
	if state == "" {
		state = "UNKNOWN"
	}
	c := snap.Robot.Counts

	return StatusInner{
		Robot:         snap.Name,
		RunID:         snap.RunID,
		State:         state,
		PreviousState: string(snap.Robot.PreviousState),
		Started:       snap.Robot.Started,
		MissionMillis: snap.Robot.MissionTime.Milliseconds(),
		RemainingMs:   snap.Remaining().Milliseconds(),
		ObstacleMs:    snap.Robot.ObstacleTime.Milliseconds(),
		Avoiding:      snap.Robot.Avoiding,
		Crossings:     snap.Robot.Crossings,
		ZoneArmed:     snap.Robot.ZoneArmed,
		Wheels:        WheelsJSON{Left: snap.Robot.Wheels.Left, Right: snap.Robot.Wheels.Right},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			StateChanges:      c.StateChanges,
			Crossings:         c.Crossings,
			ObstaclesDetected: c.ObstaclesDetected,
			ObstaclesCleared:  c.ObstaclesCleared,
			EndMarkers:        c.EndMarkers,
			Deadlines:         c.Deadlines,
			StartTriggers:     c.StartTriggers,
			ZoneArms:          c.ZoneArms,
			AvoidanceLimits:   c.AvoidanceLimitHits,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			StopMs:      snap.StopTime.Milliseconds(),
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			Profile:     snap.Config.Profile,
			DebugSerial: snap.Config.DebugSerial,
		},
	}
}

// FormatJSON returns the indented JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatCompactJSON returns the JSON status on one line, for the live feed.
func FormatCompactJSON(snap Snapshot) []byte {
	data, _ := json.Marshal(StatusJSON{Status: buildInner(snap)})
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
