// Package status provides a thread-safe status tracker for the linebot daemon.
// The poll loop writes it once per tick; HTTP and websocket handlers read it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/linebot/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	Profile     string
	DebugSerial string // empty = disabled
}

// Wheels holds the last values written to the motors.
type Wheels struct {
	Left  int
	Right int
}

// Robot is the per-tick view of the state machine.
type Robot struct {
	State         logic.State
	PreviousState logic.State
	Started       bool
	MissionTime   time.Duration
	ObstacleTime  time.Duration
	Avoiding      bool
	Crossings     int
	ZoneArmed     bool
	Counts        logic.EventCounts
	Wheels        Wheels
}

// Observe copies the machine's observable state.
func Observe(m *logic.Machine, left, right int) Robot {
	return Robot{
		State:         m.State(),
		PreviousState: m.PreviousState(),
		Started:       m.Started(),
		MissionTime:   m.MissionTime(),
		ObstacleTime:  m.ObstacleTime(),
		Avoiding:      m.Avoiding(),
		Crossings:     m.Crossings(),
		ZoneArmed:     m.ZoneArmed(),
		Counts:        m.EventCountsSnapshot(),
		Wheels:        Wheels{Left: left, Right: right},
	}
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Name          string
	RunID         string
	Robot         Robot
	StopTime      time.Duration
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Remaining returns the mission time left before the deadline.
func (s Snapshot) Remaining() time.Duration {
	if !s.Robot.Started {
		return s.StopTime
	}
	if r := s.StopTime - s.Robot.MissionTime; r > 0 {
		return r
	}
	return 0
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker for one run of the named robot.
func NewTracker(startTime time.Time, name, runID string, stopTime time.Duration, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Name:      name,
			RunID:     runID,
			StopTime:  stopTime,
			StartTime: startTime,
			Config:    cfg,
			Robot:     Robot{State: logic.StateInit},
		},
	}
}

// Update replaces the robot view. Called from runLoop on every tick.
func (t *Tracker) Update(r Robot) {
	t.mu.Lock()
	t.snap.Robot = r
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
