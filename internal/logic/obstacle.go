package logic

// ObstacleGuard decides whether the path ahead is blocked.
type ObstacleGuard interface {
	// Check evaluates one range reading. preZone is true while the robot is
	// inside its configured pre-zone window.
	Check(r RangeReading, preZone bool) Clearance
}

// NewObstacleGuard returns the guard for the configured range sensor count.
func NewObstacleGuard(cfg RobotConfig) ObstacleGuard {
	if cfg.RangeSensors == 2 {
		return DualRangeGuard{Threshold: cfg.ObstacleThreshold, PreZoneSide: cfg.PreZoneSide}
	}
	return SingleRangeGuard{Threshold: cfg.ObstacleThreshold}
}

// SingleRangeGuard watches one forward range sensor (RangeReading.Left).
type SingleRangeGuard struct {
	Threshold uint
}

// Check implements ObstacleGuard.
func (g SingleRangeGuard) Check(r RangeReading, _ bool) Clearance {
	if r.Left < g.Threshold {
		return Obstructed
	}
	return Clear
}

// DualRangeGuard watches a left and a right range sensor. Either sensor below
// the threshold obstructs. Inside the pre-zone window only the PreZoneSide
// sensor counts, so the zone's own boundary does not stop the robot.
type DualRangeGuard struct {
	Threshold   uint
	PreZoneSide Side
}

// Check implements ObstacleGuard.
func (g DualRangeGuard) Check(r RangeReading, preZone bool) Clearance {
	left := r.Left < g.Threshold
	right := r.Right < g.Threshold
	if preZone {
		if g.PreZoneSide == SideLeft {
			right = false
		} else {
			left = false
		}
	}
	if left || right {
		return Obstructed
	}
	return Clear
}

// avoidPhase is a step of the avoidance maneuver.
type avoidPhase int

const (
	avoidHolding avoidPhase = iota
	avoidReversing
	avoidRotating
)

// avoidance runs one avoidance episode as polled phases. Phase durations are
// gross mission time: the episode itself is what gets subtracted elsewhere.
type avoidance struct {
	cfg        AvoidanceConfig
	phase      avoidPhase
	phaseStart Mark
	side       Side
	episodes   int
}

func newAvoidance(cfg AvoidanceConfig) *avoidance {
	return &avoidance{cfg: cfg, side: cfg.RotateSide}
}

// begin starts a new episode and reports whether the episode limit is exceeded.
func (a *avoidance) begin(c *MissionClock) bool {
	a.episodes++
	if a.cfg.Alternate && a.episodes > 1 {
		a.side = a.side.Opposite()
	}
	a.restart(c)
	return a.cfg.MaxEpisodes > 0 && a.episodes > a.cfg.MaxEpisodes
}

// restart begins the maneuver from its first phase.
func (a *avoidance) restart(c *MissionClock) {
	a.phaseStart = Mark{at: c.Current()}
	switch {
	case a.cfg.Mode != AvoidManeuver:
		a.phase = avoidHolding
	case a.cfg.ReverseTime > 0:
		a.phase = avoidReversing
	default:
		a.phase = avoidRotating
	}
}

// step returns the command for this tick and whether the maneuver is done
// and the path may be re-checked.
func (a *avoidance) step(c *MissionClock) (Command, bool) {
	elapsed := c.Current() - a.phaseStart.at
	switch a.phase {
	case avoidReversing:
		if elapsed < a.cfg.ReverseTime {
			return Command{Action: ActionBackward}, false
		}
		if a.cfg.RotateTime <= 0 {
			return Command{Action: ActionStop}, true
		}
		a.phase = avoidRotating
		a.phaseStart = Mark{at: c.Current()}
		return Command{Action: a.side.Rotate()}, false
	case avoidRotating:
		if elapsed < a.cfg.RotateTime {
			return Command{Action: a.side.Rotate()}, false
		}
		return Command{Action: ActionStop}, true
	default:
		return Command{Action: ActionStop}, true
	}
}
