package logic

import "time"

type zonePhase int

const (
	zoneIdle zonePhase = iota
	zoneApproach
	zoneTurning
	zoneCentering
	zoneDone
)

// ZoneEntry is the time-boxed turn into the target zone. It is armed when the
// crossing counter reaches the zone number; from then on it owns navigation.
type ZoneEntry struct {
	delay      time.Duration // net mission time before the turn may start
	side       Side
	turn       ZoneTurn
	centerTime time.Duration

	phase      zonePhase
	armedAt    Mark
	phaseStart Mark
}

// NewZoneEntry builds the controller from the robot configuration.
func NewZoneEntry(cfg RobotConfig) *ZoneEntry {
	turn, _ := cfg.ZoneTurn()
	return &ZoneEntry{
		delay:      cfg.TurnZoneDelay,
		side:       cfg.StartSide,
		turn:       turn,
		centerTime: cfg.CenterTime,
	}
}

// Arm records the arming point. Arming twice is a no-op.
func (z *ZoneEntry) Arm(at Mark) {
	if z.phase != zoneIdle {
		return
	}
	z.phase = zoneApproach
	z.armedAt = at
}

// Armed reports whether zone entry has been armed.
func (z *ZoneEntry) Armed() bool {
	return z.phase != zoneIdle
}

// ArmedAt returns the mission time at which the controller was armed.
func (z *ZoneEntry) ArmedAt() time.Duration {
	return z.armedAt.at
}

// Turning reports whether the rotation into the zone is running.
func (z *ZoneEntry) Turning() bool {
	return z.phase == zoneTurning
}

// Centering reports whether the forward centering move is running.
func (z *ZoneEntry) Centering() bool {
	return z.phase == zoneCentering
}

// Done reports whether the maneuver has finished.
func (z *ZoneEntry) Done() bool {
	return z.phase == zoneDone
}

// Step advances the maneuver. approach supplies the command used while the
// turn delay has not yet elapsed. The returned bool is true once the maneuver
// has finished and the robot should stop.
func (z *ZoneEntry) Step(c *MissionClock, approach func() Command) (Command, bool) {
	switch z.phase {
	case zoneApproach:
		if !c.ElapsedSince(Mark{}, z.delay) {
			return approach(), false
		}
		z.phase = zoneTurning
		z.phaseStart = c.Mark()
		fallthrough
	case zoneTurning:
		if !c.ElapsedSince(z.phaseStart, z.turn.Time) {
			return Command{Action: z.side.Rotate(), Ratio: z.turn.Ratio}, false
		}
		if z.centerTime <= 0 {
			z.phase = zoneDone
			return Command{Action: ActionStop}, true
		}
		z.phase = zoneCentering
		z.phaseStart = c.Mark()
		fallthrough
	case zoneCentering:
		if !c.ElapsedSince(z.phaseStart, z.centerTime) {
			return Command{Action: ActionForward}, false
		}
		z.phase = zoneDone
		return Command{Action: ActionStop}, true
	default:
		return Command{Action: ActionStop}, true
	}
}
