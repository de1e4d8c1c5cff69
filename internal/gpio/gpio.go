// Package gpio provides sensor reading with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/linebot/internal/logic"
)

// MaxRangeCm is reported when a range sensor sees no echo in time.
const MaxRangeCm = 400

// Sample is one raw reading of every sensor.
type Sample struct {
	Left   bool // raw line sensor levels
	Center bool
	Right  bool

	RangeLeft  uint // centimeters
	RangeRight uint

	Start bool // raw start switch level
}

// Input converts the sample into the state machine's per-tick input.
func (s Sample) Input(now time.Time) logic.Input {
	return logic.Input{
		Time:        now,
		Line:        logic.LineReading{Left: s.Left, Center: s.Center, Right: s.Right},
		Range:       logic.RangeReading{Left: s.RangeLeft, Right: s.RangeRight},
		StartSwitch: s.Start,
	}
}

// Reader reads all robot sensors.
type Reader interface {
	// Read returns one sample of every configured sensor. Sensors that are
	// not fitted read as false / zero.
	Read() (Sample, error)

	// Close releases GPIO resources.
	Close() error
}

// Sonar is an HC-SR04 trigger/echo pin pair.
type Sonar struct {
	Trig int
	Echo int
}

// Pins is the BCM pin assignment. A negative pin means not fitted.
type Pins struct {
	LineLeft   int
	LineCenter int
	LineRight  int
	Sonars     []Sonar // left first
	Start      int
}

// Default pin assignments (BCM numbering)
const (
	PinLineLeft   = 17
	PinLineCenter = 27
	PinLineRight  = 22
	PinTrigLeft   = 23
	PinEchoLeft   = 24
	PinTrigRight  = 5
	PinEchoRight  = 6
	PinStart      = 4
)

// DefaultPins returns the standard wiring for the given sensor counts.
func DefaultPins(lineSensors, rangeSensors int, startSwitch bool) Pins {
	p := Pins{LineLeft: -1, LineCenter: -1, LineRight: -1, Start: -1}
	if lineSensors >= 2 {
		p.LineLeft, p.LineRight = PinLineLeft, PinLineRight
	}
	if lineSensors == 3 {
		p.LineCenter = PinLineCenter
	}
	p.Sonars = []Sonar{{Trig: PinTrigLeft, Echo: PinEchoLeft}}
	if rangeSensors == 2 {
		p.Sonars = append(p.Sonars, Sonar{Trig: PinTrigRight, Echo: PinEchoRight})
	}
	if startSwitch {
		p.Start = PinStart
	}
	return p
}

// ParseLinePins parses "left,right" or "left,center,right".
func ParseLinePins(s string) (left, center, right int, err error) {
	parts := strings.Split(s, ",")
	nums := make([]int, len(parts))
	for i, p := range parts {
		nums[i], err = strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, 0, 0, fmt.Errorf("line pins %q: %w", s, err)
		}
	}
	switch len(nums) {
	case 2:
		return nums[0], -1, nums[1], nil
	case 3:
		return nums[0], nums[1], nums[2], nil
	default:
		return 0, 0, 0, fmt.Errorf("line pins %q: need 2 or 3 pins", s)
	}
}

// ParseSonarPins parses "trig:echo[,trig:echo]".
func ParseSonarPins(s string) ([]Sonar, error) {
	var sonars []Sonar
	for _, pair := range strings.Split(s, ",") {
		trig, echo, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			return nil, fmt.Errorf("sonar pins %q: want trig:echo", pair)
		}
		t, err := strconv.Atoi(trig)
		if err != nil {
			return nil, fmt.Errorf("sonar trig pin %q: %w", trig, err)
		}
		e, err := strconv.Atoi(echo)
		if err != nil {
			return nil, fmt.Errorf("sonar echo pin %q: %w", echo, err)
		}
		sonars = append(sonars, Sonar{Trig: t, Echo: e})
	}
	if len(sonars) > 2 {
		return nil, fmt.Errorf("sonar pins %q: at most 2 sensors", s)
	}
	return sonars, nil
}

// EchoToCm converts an HC-SR04 echo pulse width to centimeters, capped at
// MaxRangeCm. Sound covers 0.0343 cm/µs and the pulse spans the round trip.
func EchoToCm(pulse time.Duration) uint {
	if pulse <= 0 {
		return MaxRangeCm
	}
	cm := float64(pulse.Microseconds()) / 2 * 0.0343
	if cm >= MaxRangeCm {
		return MaxRangeCm
	}
	return uint(cm)
}
