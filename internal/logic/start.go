package logic

import "time"

// StartSwitch debounces the magnetic pull-cord start switch. The cord counts
// as pulled once the raw level has equalled the trigger level for the debounce
// duration; the mission origin is when that level was first seen.
type StartSwitch struct {
	level    bool
	debounce time.Duration

	pending      bool
	pendingSince time.Time
	fired        bool
	firedAt      time.Time
}

// NewStartSwitch creates a debouncer that fires on the given raw level.
func NewStartSwitch(level bool, debounce time.Duration) *StartSwitch {
	return &StartSwitch{level: level, debounce: debounce}
}

// Process takes a raw sample and reports whether the trigger fired on this
// sample. Once fired it never fires again.
func (s *StartSwitch) Process(raw bool, now time.Time) bool {
	if s.fired {
		return false
	}

	if raw != s.level {
		// Bounce or cord still in place, restart
		s.pending = false
		return false
	}

	if !s.pending {
		s.pending = true
		s.pendingSince = now
	}

	if now.Sub(s.pendingSince) >= s.debounce {
		s.fired = true
		s.firedAt = s.pendingSince
		return true
	}
	return false
}

// Fired reports whether the trigger has fired.
func (s *StartSwitch) Fired() bool {
	return s.fired
}

// FiredAt returns the time the triggering level was first observed.
func (s *StartSwitch) FiredAt() time.Time {
	return s.firedAt
}
