// Package sim replays scripted sensor scenarios against a robot profile on a
// virtual clock, so a mission can be checked without a chassis.
package sim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/linebot/internal/gpio"
	"github.com/sweeney/linebot/internal/logic"
)

// DefaultTick matches the daemon's default poll interval.
const DefaultTick = 10 * time.Millisecond

// Segment sets sensor values from At (mission-independent scenario time)
// until the next segment. Unset fields carry over from the previous segment.
type Segment struct {
	At time.Duration `yaml:"at"`

	// Line is three characters, left/center/right, 'X' over the line and
	// '-' off it. Two-sensor robots ignore the center.
	Line string `yaml:"line"`

	Range      *uint `yaml:"range"` // both sensors
	RangeLeft  *uint `yaml:"range_left"`
	RangeRight *uint `yaml:"range_right"`

	// Pulled reports the start cord as pulled.
	Pulled *bool `yaml:"pulled"`
}

// Scenario is a timed script of sensor values.
type Scenario struct {
	Name     string        `yaml:"name"`
	Profile  string        `yaml:"profile"`
	Tick     time.Duration `yaml:"tick"`
	Duration time.Duration `yaml:"duration"`
	Segments []Segment     `yaml:"segments"`
}

// Load reads a YAML scenario.
func Load(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML scenario.
func Parse(data []byte) (Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil && !errors.Is(err, io.EOF) {
		return Scenario{}, fmt.Errorf("parse scenario: %w", err)
	}
	if sc.Tick == 0 {
		sc.Tick = DefaultTick
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}
	return sc, nil
}

// Validate reports the first problem with the scenario.
func (sc Scenario) Validate() error {
	if sc.Tick <= 0 {
		return fmt.Errorf("tick %v must be positive", sc.Tick)
	}
	if sc.Duration <= 0 {
		return errors.New("duration must be positive")
	}
	var last time.Duration
	for i, seg := range sc.Segments {
		if seg.At < last {
			return fmt.Errorf("segment %d at %v is before %v", i, seg.At, last)
		}
		last = seg.At
		if seg.Line != "" {
			if _, err := parseLine(seg.Line); err != nil {
				return fmt.Errorf("segment %d: %w", i, err)
			}
		}
	}
	return nil
}

// Samples renders the scenario as one raw sensor sample per tick, encoded for
// cfg's line polarity and trigger level.
func (sc Scenario) Samples(cfg logic.RobotConfig) []gpio.Sample {
	n := int(sc.Duration/sc.Tick) + 1
	samples := make([]gpio.Sample, 0, n)

	cur := world{
		rangeLeft:  gpio.MaxRangeCm,
		rangeRight: gpio.MaxRangeCm,
	}
	next := 0
	for i := 0; i < n; i++ {
		at := time.Duration(i) * sc.Tick
		for next < len(sc.Segments) && sc.Segments[next].At <= at {
			cur.apply(sc.Segments[next])
			next++
		}
		samples = append(samples, cur.sample(cfg))
	}
	return samples
}

// world is the logical sensor state between segments.
type world struct {
	line       [3]bool
	rangeLeft  uint
	rangeRight uint
	pulled     bool
}

func (w *world) apply(seg Segment) {
	if seg.Line != "" {
		w.line, _ = parseLine(seg.Line)
	}
	if seg.Range != nil {
		w.rangeLeft, w.rangeRight = *seg.Range, *seg.Range
	}
	if seg.RangeLeft != nil {
		w.rangeLeft = *seg.RangeLeft
	}
	if seg.RangeRight != nil {
		w.rangeRight = *seg.RangeRight
	}
	if seg.Pulled != nil {
		w.pulled = *seg.Pulled
	}
}

func (w world) sample(cfg logic.RobotConfig) gpio.Sample {
	// Polarity.OnLine is its own inverse, so it also maps logical to raw.
	start := !cfg.TriggerLevel
	if w.pulled {
		start = cfg.TriggerLevel
	}
	return gpio.Sample{
		Left:       cfg.Polarity.OnLine(w.line[0]),
		Center:     cfg.Polarity.OnLine(w.line[1]),
		Right:      cfg.Polarity.OnLine(w.line[2]),
		RangeLeft:  w.rangeLeft,
		RangeRight: w.rangeRight,
		Start:      start,
	}
}

func parseLine(s string) ([3]bool, error) {
	var out [3]bool
	if len(s) != 3 {
		return out, fmt.Errorf("line %q must be three characters", s)
	}
	for i := 0; i < 3; i++ {
		switch s[i] {
		case 'X', 'x':
			out[i] = true
		case '-':
		default:
			return out, fmt.Errorf("line %q: want 'X' or '-', got %q", s, s[i])
		}
	}
	return out, nil
}
