package logic

import "time"

// Mark is a point on the mission clock together with the obstacle time
// accumulated at that point.
type Mark struct {
	at       time.Duration
	obstacle time.Duration
}

// At returns the mission time of the mark.
func (m Mark) At() time.Duration {
	return m.at
}

// MissionClock tracks elapsed mission time and the time lost to obstacle
// avoidance. Every zone deadline is evaluated net of avoidance time.
type MissionClock struct {
	origin        time.Time
	started       bool
	current       time.Duration
	avoiding      bool
	obstacleStart time.Duration
	totalObstacle time.Duration
}

// Start fixes the mission origin. Later calls are ignored.
func (c *MissionClock) Start(origin time.Time) {
	if c.started {
		return
	}
	c.origin = origin
	c.started = true
}

// Started reports whether the mission origin is set.
func (c *MissionClock) Started() bool {
	return c.started
}

// Tick advances the clock to now. Before Start the mission time stays zero;
// a clock that steps backwards does not move mission time back.
func (c *MissionClock) Tick(now time.Time) {
	if !c.started {
		return
	}
	if d := now.Sub(c.origin); d > c.current {
		c.current = d
	}
}

// Current returns the mission time of the last tick.
func (c *MissionClock) Current() time.Duration {
	return c.current
}

// Net returns the mission time minus all completed avoidance episodes.
func (c *MissionClock) Net() time.Duration {
	return c.current - c.totalObstacle
}

// TotalObstacleTime returns the time spent in completed avoidance episodes.
func (c *MissionClock) TotalObstacleTime() time.Duration {
	return c.totalObstacle
}

// Avoiding reports whether an avoidance episode is open.
func (c *MissionClock) Avoiding() bool {
	return c.avoiding
}

// Mark captures the current point for a later ElapsedSince.
func (c *MissionClock) Mark() Mark {
	return Mark{at: c.current, obstacle: c.totalObstacle}
}

// Since returns the time elapsed since m, net of avoidance that completed after m.
func (c *MissionClock) Since(m Mark) time.Duration {
	return c.current - m.at - (c.totalObstacle - m.obstacle)
}

// ElapsedSince reports whether deadline has elapsed since m, net of avoidance.
// For the zero Mark this is current - totalObstacleTime >= deadline.
func (c *MissionClock) ElapsedSince(m Mark, deadline time.Duration) bool {
	return c.Since(m) >= deadline
}

// BeginAvoidance opens an avoidance episode at the current time. It returns
// false and changes nothing when an episode is already open.
func (c *MissionClock) BeginAvoidance() bool {
	if c.avoiding {
		return false
	}
	c.avoiding = true
	c.obstacleStart = c.current
	return true
}

// EndAvoidance closes the open episode, adds its length to the obstacle total
// and returns it. It returns zero when no episode is open.
func (c *MissionClock) EndAvoidance() time.Duration {
	if !c.avoiding {
		return 0
	}
	c.avoiding = false
	d := c.current - c.obstacleStart
	c.totalObstacle += d
	return d
}
