package logic

import "time"

// Celebration toggles the LED and swings the servo between +Angle and -Angle
// every Interval. It never blocks.
type Celebration struct {
	interval time.Duration
	angle    int
	led      bool
	last     time.Duration
	started  bool
}

// NewCelebration creates a celebration that starts at +angle.
func NewCelebration(cfg CelebrationConfig) *Celebration {
	return &Celebration{interval: cfg.Interval, angle: cfg.Angle}
}

// Step returns the cosmetic command due at mission time now, or nil.
// The first call always toggles.
func (c *Celebration) Step(now time.Duration) *Cosmetic {
	if c.started && now-c.last < c.interval {
		return nil
	}
	c.started = true
	c.last = now
	c.led = !c.led
	cmd := &Cosmetic{LED: c.led, ServoAngle: c.angle}
	c.angle = -c.angle
	return cmd
}
