package logic

import (
	"errors"
	"fmt"
	"time"
)

// AvoidMode selects how the robot behaves while an obstacle is in front of it.
type AvoidMode string

const (
	// AvoidHold stops and re-checks every tick until the path is clear.
	AvoidHold AvoidMode = "HOLD"
	// AvoidManeuver reverses, rotates, then re-checks.
	AvoidManeuver AvoidMode = "MANEUVER"
)

// Window is a span of mission time. The zero Window is never active.
type Window struct {
	From time.Duration `yaml:"from"`
	To   time.Duration `yaml:"to"`
}

// Contains reports whether t falls inside [From, To).
func (w Window) Contains(t time.Duration) bool {
	return w.To > w.From && t >= w.From && t < w.To
}

// ZoneTurn is the rotation into the target zone.
type ZoneTurn struct {
	Time  time.Duration `yaml:"time"`
	Ratio float64       `yaml:"ratio"`
}

// AvoidanceConfig configures the obstacle avoidance maneuver.
type AvoidanceConfig struct {
	Mode        AvoidMode     `yaml:"mode"`
	ReverseTime time.Duration `yaml:"reverse_time"`
	RotateTime  time.Duration `yaml:"rotate_time"`
	RotateSide  Side          `yaml:"rotate_side"`
	Alternate   bool          `yaml:"alternate"`    // flip RotateSide every episode
	MaxEpisodes int           `yaml:"max_episodes"` // 0 = unlimited
}

// CelebrationConfig configures the end-of-mission LED and servo toggling.
type CelebrationConfig struct {
	Interval time.Duration `yaml:"interval"`
	Angle    int           `yaml:"angle"`
}

// MotionConfig configures the drive mixer. The logic package only carries it.
type MotionConfig struct {
	BaseSpeed     int     `yaml:"base_speed"`
	RotationRatio float64 `yaml:"rotation_ratio"`
	LeftTrim      int     `yaml:"left_trim"`
	RightTrim     int     `yaml:"right_trim"`
}

// RobotConfig is the complete, immutable description of one robot's mission.
type RobotConfig struct {
	Name string `yaml:"name"`

	ZoneNumber int       `yaml:"zone_number"`
	StartSide  Side      `yaml:"start_side"`
	StartLine  StartLine `yaml:"start_line"`

	StartDelay      time.Duration `yaml:"start_delay"`
	StopTime        time.Duration `yaml:"stop_time"`
	UseStartTrigger bool          `yaml:"use_start_trigger"`
	TriggerLevel    bool          `yaml:"trigger_level"` // raw switch level meaning "cord pulled"
	TriggerDebounce time.Duration `yaml:"trigger_debounce"`

	ObstacleThreshold uint   `yaml:"obstacle_threshold"`
	RangeSensors      int    `yaml:"range_sensors"`
	PreZoneWindow     Window `yaml:"pre_zone_window"`
	PreZoneSide       Side   `yaml:"pre_zone_side"`

	TurnZoneDelay time.Duration          `yaml:"turn_zone_delay"`
	ZoneTurns     map[StartLine]ZoneTurn `yaml:"zone_turns"`
	CenterTime    time.Duration          `yaml:"center_time"`

	LineSensors    int           `yaml:"line_sensors"`
	Polarity       Polarity      `yaml:"polarity"`
	CrossingMode   CrossingMode  `yaml:"crossing_mode"`
	EndMarkerDwell time.Duration `yaml:"end_marker_dwell"`

	Avoidance   AvoidanceConfig   `yaml:"avoidance"`
	Celebration CelebrationConfig `yaml:"celebration"`
	Motion      MotionConfig      `yaml:"motion"`
}

// ZoneTurn returns the zone turn for the configured start line.
// An unset StartLine selects the TOP entry.
func (c RobotConfig) ZoneTurn() (ZoneTurn, bool) {
	line := c.StartLine
	if line == "" {
		line = StartLineTop
	}
	t, ok := c.ZoneTurns[line]
	return t, ok
}

// Validate reports the first inconsistency in the configuration.
func (c RobotConfig) Validate() error {
	if c.StopTime <= 0 {
		return errors.New("stop time must be positive")
	}
	if c.StartDelay < 0 || c.StartDelay >= c.StopTime {
		return fmt.Errorf("start delay %v must be in [0, %v)", c.StartDelay, c.StopTime)
	}
	if c.StartSide != SideLeft && c.StartSide != SideRight {
		return fmt.Errorf("invalid start side %q", c.StartSide)
	}
	switch c.StartLine {
	case "", StartLineTop, StartLineBottom:
	default:
		return fmt.Errorf("invalid start line %q", c.StartLine)
	}
	switch c.LineSensors {
	case 0, 2, 3:
	default:
		return fmt.Errorf("unsupported line sensor count %d", c.LineSensors)
	}
	if c.LineSensors > 0 && c.Polarity != PolarityLineHigh && c.Polarity != PolarityLineLow {
		return fmt.Errorf("invalid line polarity %q", c.Polarity)
	}
	if c.LineSensors > 0 && c.CrossingMode != CountOnEdge && c.CrossingMode != CountEveryTick {
		return fmt.Errorf("invalid crossing mode %q", c.CrossingMode)
	}
	if c.RangeSensors != 1 && c.RangeSensors != 2 {
		return fmt.Errorf("unsupported range sensor count %d", c.RangeSensors)
	}
	if c.RangeSensors == 2 && c.PreZoneWindow.To > c.PreZoneWindow.From &&
		c.PreZoneSide != SideLeft && c.PreZoneSide != SideRight {
		return fmt.Errorf("invalid pre-zone side %q", c.PreZoneSide)
	}
	if c.ZoneNumber < 0 {
		return fmt.Errorf("zone number %d must not be negative", c.ZoneNumber)
	}
	if c.ZoneNumber > 0 {
		if c.LineSensors == 0 {
			return errors.New("zone entry needs line sensors to count crossings")
		}
		turn, ok := c.ZoneTurn()
		if !ok {
			return fmt.Errorf("no zone turn configured for start line %q", c.StartLine)
		}
		if turn.Time <= 0 {
			return errors.New("zone turn time must be positive")
		}
		if turn.Ratio < 0 || turn.Ratio > 1 {
			return fmt.Errorf("zone turn ratio %v must be in [0, 1]", turn.Ratio)
		}
	}
	switch c.Avoidance.Mode {
	case AvoidHold:
	case AvoidManeuver:
		if c.Avoidance.ReverseTime <= 0 && c.Avoidance.RotateTime <= 0 {
			return errors.New("avoidance maneuver needs a reverse or rotate time")
		}
		if c.Avoidance.RotateTime > 0 && c.Avoidance.RotateSide != SideLeft && c.Avoidance.RotateSide != SideRight {
			return fmt.Errorf("invalid avoidance rotate side %q", c.Avoidance.RotateSide)
		}
	default:
		return fmt.Errorf("invalid avoidance mode %q", c.Avoidance.Mode)
	}
	if c.Celebration.Interval <= 0 {
		return errors.New("celebration interval must be positive")
	}
	return nil
}
