package logic

import (
	"fmt"
	"time"
)

// maxHandoffs bounds how many handlers may run within a single tick.
const maxHandoffs = 6

// Machine is the robot state machine. It is driven by Process, one call per
// poll tick, and is not safe for concurrent use.
type Machine struct {
	cfg         RobotConfig
	follower    LineFollower
	guard       ObstacleGuard
	zone        *ZoneEntry
	avoid       *avoidance
	celebration *Celebration
	start       *StartSwitch
	clock       MissionClock

	state     State
	prev      State
	crossings int

	startTime     time.Time
	lastHeartbeat time.Time
	eventCounts   EventCounts

	// per-tick scratch
	in      Input
	out     Output
	guarded bool
}

// NewMachine validates cfg and creates a machine in INIT.
// The startTime is used for calculating uptime in heartbeat events.
func NewMachine(cfg RobotConfig, startTime time.Time) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("robot %q: %w", cfg.Name, err)
	}
	return &Machine{
		cfg:           cfg,
		follower:      NewLineFollower(cfg),
		guard:         NewObstacleGuard(cfg),
		zone:          NewZoneEntry(cfg),
		avoid:         newAvoidance(cfg.Avoidance),
		celebration:   NewCelebration(cfg.Celebration),
		start:         NewStartSwitch(cfg.TriggerLevel, cfg.TriggerDebounce),
		state:         StateInit,
		prev:          StateInit,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}, nil
}

// Process takes a new input sample and returns the commands and events for
// this tick. The mission deadline is checked before any state handler runs.
func (m *Machine) Process(in Input) Output {
	m.in = in
	m.out = Output{}
	m.guarded = false
	m.clock.Tick(in.Time)

	if m.clock.Started() && m.clock.Current() >= m.cfg.StopTime &&
		m.state != StateStop && m.state != StateCelebrate {
		if m.clock.Avoiding() {
			m.clock.EndAvoidance()
		}
		m.emit(EventDeadline)
		m.transition(StateStop)
	}

	for i := 0; i < maxHandoffs; i++ {
		if !m.dispatch() {
			break
		}
	}
	return m.out
}

// dispatch runs the handler for the current state. It returns true when the
// handler handed control to another state that must run within this tick.
func (m *Machine) dispatch() bool {
	switch m.state {
	case StateInit:
		return m.handleInit()
	case StateWait:
		return m.handleWait()
	case StateCheckObstacle:
		return m.handleCheckObstacle()
	case StateAvoidObstacle:
		return m.handleAvoidObstacle()
	case StateFollowLine:
		return m.handleFollowLine()
	case StateEnterZone, StateCenterZone:
		return m.handleZone()
	case StateStop:
		return m.handleStop()
	case StateCelebrate:
		m.handleCelebrate()
	}
	return false
}

func (m *Machine) handleInit() bool {
	m.command(Command{Action: ActionStop})
	if !m.cfg.UseStartTrigger {
		m.clock.Start(m.in.Time)
		m.clock.Tick(m.in.Time)
	}
	m.transition(StateWait)
	return true
}

func (m *Machine) handleWait() bool {
	if !m.clock.Started() {
		if !m.start.Process(m.in.StartSwitch, m.in.Time) {
			return false
		}
		m.clock.Start(m.start.FiredAt())
		m.clock.Tick(m.in.Time)
		m.emit(EventStartTriggered)
	}
	if m.clock.Current() < m.cfg.StartDelay {
		return false
	}
	m.transition(StateCheckObstacle)
	return true
}

// handleCheckObstacle decides between avoidance and navigation.
func (m *Machine) handleCheckObstacle() bool {
	if m.obstructed() {
		return m.beginAvoidance()
	}
	m.transition(m.navigationState())
	return true
}

// navigationState is where a clear path leads: the zone maneuver once armed,
// line following otherwise.
func (m *Machine) navigationState() State {
	switch {
	case m.zone.Centering():
		return StateCenterZone
	case m.zone.Armed():
		return StateEnterZone
	default:
		return StateFollowLine
	}
}

// obstructed evaluates the guard once per tick.
func (m *Machine) obstructed() bool {
	if m.guarded {
		return false
	}
	m.guarded = true
	return m.checkRange() == Obstructed
}

func (m *Machine) checkRange() Clearance {
	preZone := m.cfg.PreZoneWindow.Contains(m.clock.Current())
	return m.guard.Check(m.in.Range, preZone)
}

func (m *Machine) beginAvoidance() bool {
	// HOLD never moves the robot; a maneuver leaves the pattern it was on.
	m.follower.Reset(m.cfg.Avoidance.Mode == AvoidManeuver)
	if m.avoid.begin(&m.clock) {
		m.emit(EventAvoidanceLimit)
		m.transition(StateStop)
		return true
	}
	m.clock.BeginAvoidance()
	m.emit(EventObstacleDetected)
	m.transition(StateAvoidObstacle)
	return true
}

func (m *Machine) handleAvoidObstacle() bool {
	cmd, done := m.avoid.step(&m.clock)
	if !done {
		m.command(cmd)
		return false
	}

	if m.checkRange() == Obstructed {
		m.avoid.restart(&m.clock)
		cmd, _ = m.avoid.step(&m.clock)
		m.command(cmd)
		return false
	}

	m.clock.EndAvoidance()
	m.guarded = true
	m.emit(EventObstacleCleared)
	m.transition(StateCheckObstacle)
	return true
}

func (m *Machine) handleFollowLine() bool {
	if m.obstructed() {
		return m.beginAvoidance()
	}

	res := m.follower.Follow(m.in.Line, m.clock.Current())
	if res.EndMarker {
		m.emit(EventEndMarker)
		m.transition(StateStop)
		return true
	}

	m.command(Command{Action: res.Action})

	if res.Crossing {
		m.crossings++
		m.emit(EventCrossing)
		if m.cfg.ZoneNumber > 0 && m.crossings == m.cfg.ZoneNumber {
			m.zone.Arm(m.clock.Mark())
			m.emit(EventZoneArmed)
			// Zone entry starts from a fresh obstacle check on the next tick.
			m.transition(StateCheckObstacle)
		}
	}
	return false
}

func (m *Machine) handleZone() bool {
	if m.obstructed() {
		return m.beginAvoidance()
	}

	cmd, done := m.zone.Step(&m.clock, func() Command {
		return Command{Action: m.follower.Follow(m.in.Line, m.clock.Current()).Action}
	})
	if done {
		m.transition(StateStop)
		return true
	}
	m.command(cmd)
	m.transition(m.navigationState())
	return false
}

func (m *Machine) handleStop() bool {
	m.command(Command{Action: ActionStop})
	if m.clock.Current() < m.cfg.StopTime {
		return false
	}
	m.transition(StateCelebrate)
	return true
}

func (m *Machine) handleCelebrate() {
	if c := m.celebration.Step(m.clock.Current()); c != nil {
		m.out.Cosmetic = c
	}
}

func (m *Machine) command(c Command) {
	m.out.Command = &c
}

func (m *Machine) transition(next State) {
	if next == m.state {
		return
	}
	from := m.state
	m.prev = from
	m.state = next
	m.out.Events = append(m.out.Events, Event{
		Timestamp:    m.in.Time,
		Type:         EventStateChange,
		From:         from,
		To:           next,
		MissionTime:  m.clock.Current(),
		ObstacleTime: m.clock.TotalObstacleTime(),
		Crossings:    m.crossings,
	})
	m.eventCounts.StateChanges++
}

func (m *Machine) emit(t EventType) {
	m.out.Events = append(m.out.Events, Event{
		Timestamp:    m.in.Time,
		Type:         t,
		To:           m.state,
		MissionTime:  m.clock.Current(),
		ObstacleTime: m.clock.TotalObstacleTime(),
		Crossings:    m.crossings,
	})

	switch t {
	case EventCrossing:
		m.eventCounts.Crossings++
	case EventObstacleDetected:
		m.eventCounts.ObstaclesDetected++
	case EventObstacleCleared:
		m.eventCounts.ObstaclesCleared++
	case EventEndMarker:
		m.eventCounts.EndMarkers++
	case EventDeadline:
		m.eventCounts.Deadlines++
	case EventStartTriggered:
		m.eventCounts.StartTriggers++
	case EventZoneArmed:
		m.eventCounts.ZoneArms++
	case EventAvoidanceLimit:
		m.eventCounts.AvoidanceLimitHits++
	}
}

// Config returns the robot configuration.
func (m *Machine) Config() RobotConfig {
	return m.cfg
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// PreviousState returns the state before the last transition.
func (m *Machine) PreviousState() State {
	return m.prev
}

// Started reports whether the mission clock is running.
func (m *Machine) Started() bool {
	return m.clock.Started()
}

// MissionTime returns the elapsed mission time.
func (m *Machine) MissionTime() time.Duration {
	return m.clock.Current()
}

// ObstacleTime returns the total time spent in completed avoidance episodes.
func (m *Machine) ObstacleTime() time.Duration {
	return m.clock.TotalObstacleTime()
}

// Avoiding reports whether an avoidance episode is open.
func (m *Machine) Avoiding() bool {
	return m.clock.Avoiding()
}

// Crossings returns the number of crossings counted so far.
func (m *Machine) Crossings() int {
	return m.crossings
}

// ZoneArmed reports whether zone entry has been armed.
func (m *Machine) ZoneArmed() bool {
	return m.zone.Armed()
}

// EventCountsSnapshot returns a copy of the current event counts.
func (m *Machine) EventCountsSnapshot() EventCounts {
	return m.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (m *Machine) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(m.lastHeartbeat) < interval {
		return nil
	}

	m.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp:    now,
		Uptime:       now.Sub(m.startTime),
		State:        m.state,
		MissionTime:  m.clock.Current(),
		ObstacleTime: m.clock.TotalObstacleTime(),
		Counts:       m.eventCounts,
	}
}
