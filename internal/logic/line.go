package logic

import "time"

// LineResult is what a line follower decides for one reading.
type LineResult struct {
	Action    Action
	Crossing  bool // a crossing is counted on this tick
	EndMarker bool // the end-of-course marker has been held long enough
}

// LineFollower maps line sensor readings to motion.
type LineFollower interface {
	// Follow decides the motion for one reading taken at mission time now.
	Follow(r LineReading, now time.Duration) LineResult

	// Reset is called when line following is interrupted. It always
	// forgets the end-marker dwell. The crossing edge is forgotten only when
	// moved is true: a robot that held still is still on the same pattern.
	Reset(moved bool)
}

// NewLineFollower returns the follower for the configured sensor count.
func NewLineFollower(cfg RobotConfig) LineFollower {
	switch cfg.LineSensors {
	case 2:
		return &TwoSensorFollower{Polarity: cfg.Polarity, Mode: cfg.CrossingMode}
	case 3:
		return &ThreeSensorFollower{Polarity: cfg.Polarity, Mode: cfg.CrossingMode, Dwell: cfg.EndMarkerDwell}
	default:
		return BlindFollower{}
	}
}

// crossingCounter applies a CrossingMode to a per-tick "pattern seen" signal.
type crossingCounter struct {
	mode CrossingMode
	held bool
}

func (c *crossingCounter) observe(seen bool) bool {
	count := seen && (c.mode == CountEveryTick || !c.held)
	c.held = seen
	return count
}

// TwoSensorFollower follows a line with a left and a right sensor.
//
//	left  right  action
//	line  line   FORWARD
//	off   line   ROTATE_LEFT
//	line  off    ROTATE_RIGHT
//	off   off    FORWARD, crossing
type TwoSensorFollower struct {
	Polarity Polarity
	Mode     CrossingMode

	crossing crossingCounter
}

// Follow implements LineFollower.
func (f *TwoSensorFollower) Follow(r LineReading, _ time.Duration) LineResult {
	f.crossing.mode = f.Mode
	left := f.Polarity.OnLine(r.Left)
	right := f.Polarity.OnLine(r.Right)

	var res LineResult
	switch {
	case left && right:
		res.Action = ActionForward
	case !left && right:
		res.Action = ActionRotateLeft
	case left && !right:
		res.Action = ActionRotateRight
	default:
		res.Action = ActionForward
	}
	res.Crossing = f.crossing.observe(!left && !right)
	return res
}

// Reset implements LineFollower.
func (f *TwoSensorFollower) Reset(moved bool) {
	if moved {
		f.crossing.held = false
	}
}

// ThreeSensorFollower follows a line with left, center and right sensors.
// All three on the line is a crossing; held for Dwell it is the end marker.
type ThreeSensorFollower struct {
	Polarity Polarity
	Mode     CrossingMode
	Dwell    time.Duration // 0 disables end-marker detection

	crossing      crossingCounter
	checkingBlack bool
	blackStart    time.Duration
}

// Follow implements LineFollower.
func (f *ThreeSensorFollower) Follow(r LineReading, now time.Duration) LineResult {
	f.crossing.mode = f.Mode
	left := f.Polarity.OnLine(r.Left)
	center := f.Polarity.OnLine(r.Center)
	right := f.Polarity.OnLine(r.Right)
	all := left && center && right

	var res LineResult
	if all {
		if !f.checkingBlack {
			f.checkingBlack = true
			f.blackStart = now
		} else if f.Dwell > 0 && now-f.blackStart >= f.Dwell {
			res.EndMarker = true
		}
	} else {
		f.checkingBlack = false
	}

	switch {
	case all:
		res.Action = ActionForward
	case left && !center:
		res.Action = ActionRotateRight
	case right && !center:
		res.Action = ActionRotateLeft
	default:
		res.Action = ActionForward
	}
	res.Crossing = f.crossing.observe(all)
	return res
}

// Reset implements LineFollower.
func (f *ThreeSensorFollower) Reset(moved bool) {
	if moved {
		f.crossing.held = false
	}
	f.checkingBlack = false
}

// BlindFollower drives straight ahead. It serves robots without line sensors.
type BlindFollower struct{}

// Follow implements LineFollower.
func (BlindFollower) Follow(LineReading, time.Duration) LineResult {
	return LineResult{Action: ActionForward}
}

// Reset implements LineFollower.
func (BlindFollower) Reset(bool) {}
