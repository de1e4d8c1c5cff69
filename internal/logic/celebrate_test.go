package logic

import (
	"testing"
	"time"
)

func TestCelebrationToggles(t *testing.T) {
	c := NewCelebration(CelebrationConfig{Interval: 500 * time.Millisecond, Angle: 35})

	first := c.Step(10 * time.Second)
	if first == nil || !first.LED || first.ServoAngle != 35 {
		t.Fatalf("expected LED on at +35, got %+v", first)
	}

	if c.Step(10*time.Second+499*time.Millisecond) != nil {
		t.Error("expected nothing before the interval")
	}

	second := c.Step(10*time.Second + 500*time.Millisecond)
	if second == nil || second.LED || second.ServoAngle != -35 {
		t.Fatalf("expected LED off at -35, got %+v", second)
	}

	third := c.Step(11 * time.Second)
	if third == nil || !third.LED || third.ServoAngle != 35 {
		t.Fatalf("expected LED on at +35, got %+v", third)
	}
}
