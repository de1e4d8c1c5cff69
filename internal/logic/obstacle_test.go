package logic

import (
	"testing"
	"time"
)

func TestSingleRangeGuard(t *testing.T) {
	g := SingleRangeGuard{Threshold: 10}

	tests := []struct {
		dist uint
		want Clearance
	}{
		{0, Obstructed},
		{9, Obstructed},
		{10, Clear},
		{400, Clear},
	}
	for _, tt := range tests {
		if got := g.Check(RangeReading{Left: tt.dist}, false); got != tt.want {
			t.Errorf("distance %d: expected %s, got %s", tt.dist, tt.want, got)
		}
	}
}

func TestDualRangeGuardEitherSensor(t *testing.T) {
	g := DualRangeGuard{Threshold: 10, PreZoneSide: SideLeft}

	if g.Check(RangeReading{Left: 5, Right: 100}, false) != Obstructed {
		t.Error("expected left sensor to obstruct")
	}
	if g.Check(RangeReading{Left: 100, Right: 5}, false) != Obstructed {
		t.Error("expected right sensor to obstruct")
	}
	if g.Check(RangeReading{Left: 100, Right: 100}, false) != Clear {
		t.Error("expected clear")
	}
}

func TestDualRangeGuardPreZoneIgnoresOtherSide(t *testing.T) {
	g := DualRangeGuard{Threshold: 10, PreZoneSide: SideLeft}

	if g.Check(RangeReading{Left: 100, Right: 5}, true) != Clear {
		t.Error("right sensor must be ignored in the pre-zone window")
	}
	if g.Check(RangeReading{Left: 5, Right: 100}, true) != Obstructed {
		t.Error("left sensor still counts in the pre-zone window")
	}

	g.PreZoneSide = SideRight
	if g.Check(RangeReading{Left: 5, Right: 100}, true) != Clear {
		t.Error("left sensor must be ignored when pre-zone side is right")
	}
}

func TestNewObstacleGuardBySensorCount(t *testing.T) {
	cfg := testConfig()
	if _, ok := NewObstacleGuard(cfg).(SingleRangeGuard); !ok {
		t.Error("expected SingleRangeGuard")
	}
	cfg.RangeSensors = 2
	if _, ok := NewObstacleGuard(cfg).(DualRangeGuard); !ok {
		t.Error("expected DualRangeGuard")
	}
}

func TestAvoidanceHoldIsDoneImmediately(t *testing.T) {
	var c MissionClock
	c.Start(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	a := newAvoidance(AvoidanceConfig{Mode: AvoidHold})
	if a.begin(&c) {
		t.Fatal("unexpected limit")
	}
	cmd, done := a.step(&c)
	if cmd.Action != ActionStop || !done {
		t.Errorf("expected STOP done, got %s done=%v", cmd.Action, done)
	}
}

func TestAvoidanceManeuverPhases(t *testing.T) {
	origin := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var c MissionClock
	c.Start(origin)

	a := newAvoidance(AvoidanceConfig{
		Mode:        AvoidManeuver,
		ReverseTime: 300 * time.Millisecond,
		RotateTime:  200 * time.Millisecond,
		RotateSide:  SideRight,
	})
	a.begin(&c)

	steps := []struct {
		at     time.Duration
		action Action
		done   bool
	}{
		{0, ActionBackward, false},
		{200 * time.Millisecond, ActionBackward, false},
		{300 * time.Millisecond, ActionRotateRight, false},
		{400 * time.Millisecond, ActionRotateRight, false},
		{500 * time.Millisecond, ActionStop, true},
	}
	for _, s := range steps {
		c.Tick(origin.Add(s.at))
		cmd, done := a.step(&c)
		if cmd.Action != s.action || done != s.done {
			t.Errorf("at %v: expected %s done=%v, got %s done=%v", s.at, s.action, s.done, cmd.Action, done)
		}
	}
}

func TestAvoidanceAlternatesSide(t *testing.T) {
	origin := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var c MissionClock
	c.Start(origin)

	a := newAvoidance(AvoidanceConfig{
		Mode:       AvoidManeuver,
		RotateTime: 200 * time.Millisecond,
		RotateSide: SideLeft,
		Alternate:  true,
	})

	want := []Action{ActionRotateLeft, ActionRotateRight, ActionRotateLeft}
	for i, w := range want {
		a.begin(&c)
		cmd, _ := a.step(&c)
		if cmd.Action != w {
			t.Errorf("episode %d: expected %s, got %s", i+1, w, cmd.Action)
		}
	}
}

func TestAvoidanceEpisodeLimit(t *testing.T) {
	var c MissionClock
	a := newAvoidance(AvoidanceConfig{Mode: AvoidHold, MaxEpisodes: 2})

	if a.begin(&c) || a.begin(&c) {
		t.Fatal("first two episodes must be within the limit")
	}
	if !a.begin(&c) {
		t.Error("third episode must exceed the limit")
	}
}
