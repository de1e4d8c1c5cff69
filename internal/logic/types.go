// Package logic contains the pure control logic of a line-following contest robot.
// This package has NO external dependencies (no GPIO, motors, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters and sensor values arrive
// as immutable per-tick samples.
package logic

import "time"

// State is one state of the robot state machine.
type State string

const (
	StateInit          State = "INIT"
	StateWait          State = "WAIT"
	StateCheckObstacle State = "CHECK_OBSTACLE"
	StateAvoidObstacle State = "AVOID_OBSTACLE"
	StateFollowLine    State = "FOLLOW_LINE"
	StateEnterZone     State = "ENTER_ZONE"
	StateCenterZone    State = "CENTER_ZONE"
	StateStop          State = "STOP"
	StateCelebrate     State = "CELEBRATE"
)

// Action is a differential-drive motion primitive.
type Action string

const (
	ActionForward     Action = "FORWARD"
	ActionBackward    Action = "BACKWARD"
	ActionRotateLeft  Action = "ROTATE_LEFT"
	ActionRotateRight Action = "ROTATE_RIGHT"
	ActionStop        Action = "STOP"
)

// Side names the left or right half of the robot or the arena.
type Side string

const (
	SideLeft  Side = "LEFT"
	SideRight Side = "RIGHT"
)

// Rotate returns the rotation action toward the side.
func (s Side) Rotate() Action {
	if s == SideLeft {
		return ActionRotateLeft
	}
	return ActionRotateRight
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

// StartLine identifies which physical start line the robot was placed on.
type StartLine string

const (
	StartLineTop    StartLine = "TOP"
	StartLineBottom StartLine = "BOTTOM"
)

// Polarity maps a raw line sensor level to "on the line".
type Polarity string

const (
	// PolarityLineHigh: raw true = dark line under the sensor.
	PolarityLineHigh Polarity = "LINE_HIGH"
	// PolarityLineLow: raw true = light background under the sensor.
	PolarityLineLow Polarity = "LINE_LOW"
)

// OnLine converts a raw sensor level to "sensor is over the line".
func (p Polarity) OnLine(raw bool) bool {
	if p == PolarityLineLow {
		return !raw
	}
	return raw
}

// CrossingMode decides how a held crossing pattern is counted.
type CrossingMode string

const (
	// CountOnEdge counts once per transition into the crossing pattern.
	CountOnEdge CrossingMode = "EDGE"
	// CountEveryTick counts every tick the crossing pattern is seen.
	CountEveryTick CrossingMode = "TICK"
)

// Clearance is the result of an obstacle check.
type Clearance string

const (
	Clear      Clearance = "CLEAR"
	Obstructed Clearance = "OBSTRUCTED"
)

// LineReading holds raw line sensor levels for one tick.
// Two-sensor robots leave Center unused.
type LineReading struct {
	Left   bool
	Center bool
	Right  bool
}

// RangeReading holds range sensor distances in centimeters for one tick.
// Single-sensor robots report their sensor in Left.
type RangeReading struct {
	Left  uint
	Right uint
}

// Input represents a single sample of every sensor.
type Input struct {
	Time        time.Time
	Line        LineReading
	Range       RangeReading
	StartSwitch bool // raw level of the magnetic start switch
}

// Command is a motion request for the drive layer.
type Command struct {
	Action Action
	// Ratio overrides the rotation speed ratio for this command; 0 keeps the
	// drive's configured ratio.
	Ratio float64
}

// Cosmetic is a request for the celebration LED and servo.
type Cosmetic struct {
	LED        bool
	ServoAngle int
}

// Output is everything the machine asks of the outside world for one tick.
type Output struct {
	Command  *Command  // nil leaves the motors as they are
	Cosmetic *Cosmetic // nil leaves LED and servo as they are
	Events   []Event
}

// EventType represents a notable occurrence during a tick.
type EventType string

const (
	EventStateChange      EventType = "STATE_CHANGE"
	EventStartTriggered   EventType = "START_TRIGGERED"
	EventCrossing         EventType = "CROSSING"
	EventZoneArmed        EventType = "ZONE_ARMED"
	EventObstacleDetected EventType = "OBSTACLE_DETECTED"
	EventObstacleCleared  EventType = "OBSTACLE_CLEARED"
	EventEndMarker        EventType = "END_MARKER"
	EventDeadline         EventType = "DEADLINE"
	EventAvoidanceLimit   EventType = "AVOIDANCE_LIMIT"
)

// Event represents something to be logged and published.
type Event struct {
	Timestamp    time.Time
	Type         EventType
	From         State // set for STATE_CHANGE
	To           State
	MissionTime  time.Duration
	ObstacleTime time.Duration // cumulative, net of the current tick
	Crossings    int
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	StateChanges       int
	Crossings          int
	ObstaclesDetected  int
	ObstaclesCleared   int
	EndMarkers         int
	Deadlines          int
	StartTriggers      int
	ZoneArms           int
	AvoidanceLimitHits int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp    time.Time
	Uptime       time.Duration
	State        State
	MissionTime  time.Duration
	ObstacleTime time.Duration
	Counts       EventCounts
}
