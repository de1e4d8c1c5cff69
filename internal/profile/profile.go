// Package profile holds the built-in robot presets and loads YAML overrides
// on top of them.
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/linebot/internal/logic"
)

// Default is the preset used when none is named.
const Default = "groupie"

var presets = map[string]func() logic.RobotConfig{
	"groupie": groupie,
	"star":    star,
	"dev":     dev,
	"bigbot":  bigbot,
}

// Names returns the preset names in sorted order.
func Names() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Preset returns a fresh copy of the named preset.
func Preset(name string) (logic.RobotConfig, error) {
	p, ok := presets[name]
	if !ok {
		return logic.RobotConfig{}, fmt.Errorf("unknown profile %q (have %v)", name, Names())
	}
	return p(), nil
}

// file is the on-disk profile: a base preset plus any RobotConfig fields.
type file struct {
	Base              string `yaml:"base"`
	logic.RobotConfig `yaml:",inline"`
}

// Load reads a YAML profile. The file's base: preset (Default when empty)
// supplies every field the file leaves out. The result is validated.
func Load(path string) (logic.RobotConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return logic.RobotConfig{}, fmt.Errorf("read profile: %w", err)
	}
	return Parse(data)
}

// Parse is Load for in-memory YAML.
func Parse(data []byte) (logic.RobotConfig, error) {
	var head struct {
		Base string `yaml:"base"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return logic.RobotConfig{}, fmt.Errorf("parse profile: %w", err)
	}
	if head.Base == "" {
		head.Base = Default
	}

	base, err := Preset(head.Base)
	if err != nil {
		return logic.RobotConfig{}, err
	}

	f := file{Base: head.Base, RobotConfig: base}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return logic.RobotConfig{}, fmt.Errorf("parse profile: %w", err)
	}

	if err := f.RobotConfig.Validate(); err != nil {
		return logic.RobotConfig{}, fmt.Errorf("profile %q: %w", f.Name, err)
	}
	return f.RobotConfig, nil
}

// Marshal renders cfg as a loadable YAML profile.
func Marshal(base string, cfg logic.RobotConfig) ([]byte, error) {
	return yaml.Marshal(file{Base: base, RobotConfig: cfg})
}

func celebration() logic.CelebrationConfig {
	return logic.CelebrationConfig{Interval: 500 * time.Millisecond, Angle: 35}
}

// groupie counts crossings with three inverted sensors, turns into its target
// zone and centers itself inside it.
func groupie() logic.RobotConfig {
	return logic.RobotConfig{
		Name:              "groupie",
		ZoneNumber:        2,
		StartSide:         logic.SideLeft,
		StartLine:         logic.StartLineTop,
		StartDelay:        85 * time.Second,
		StopTime:          100 * time.Second,
		UseStartTrigger:   true,
		TriggerLevel:      true,
		TriggerDebounce:   50 * time.Millisecond,
		ObstacleThreshold: 10,
		RangeSensors:      1,
		TurnZoneDelay:     88 * time.Second,
		ZoneTurns: map[logic.StartLine]logic.ZoneTurn{
			logic.StartLineTop:    {Time: 2 * time.Second, Ratio: 0.5},
			logic.StartLineBottom: {Time: 1200 * time.Millisecond, Ratio: 0.5},
		},
		CenterTime:   1500 * time.Millisecond,
		LineSensors:  3,
		Polarity:     logic.PolarityLineLow,
		CrossingMode: logic.CountOnEdge,
		Avoidance:    logic.AvoidanceConfig{Mode: logic.AvoidHold},
		Celebration:  celebration(),
		Motion:       logic.MotionConfig{BaseSpeed: 85, RotationRatio: 0.5},
	}
}

// star follows the line to the end-of-course marker and stops there.
func star() logic.RobotConfig {
	return logic.RobotConfig{
		Name:              "star",
		StartSide:         logic.SideLeft,
		StopTime:          100 * time.Second,
		UseStartTrigger:   true,
		TriggerLevel:      true,
		TriggerDebounce:   50 * time.Millisecond,
		ObstacleThreshold: 10,
		RangeSensors:      1,
		LineSensors:       3,
		Polarity:          logic.PolarityLineHigh,
		CrossingMode:      logic.CountOnEdge,
		EndMarkerDwell:    750 * time.Millisecond,
		Avoidance:         logic.AvoidanceConfig{Mode: logic.AvoidHold},
		Celebration:       celebration(),
		Motion:            logic.MotionConfig{BaseSpeed: 85, RotationRatio: 0.5},
	}
}

// dev drives blind and dodges up to five obstacles by rotating alternately.
func dev() logic.RobotConfig {
	return logic.RobotConfig{
		Name:              "dev",
		StartSide:         logic.SideRight,
		StopTime:          30 * time.Second,
		ObstacleThreshold: 10,
		RangeSensors:      1,
		Avoidance: logic.AvoidanceConfig{
			Mode:        logic.AvoidManeuver,
			RotateTime:  2500 * time.Millisecond,
			RotateSide:  logic.SideRight,
			Alternate:   true,
			MaxEpisodes: 5,
		},
		Celebration: celebration(),
		Motion:      logic.MotionConfig{BaseSpeed: 85, RotationRatio: 0.5},
	}
}

// bigbot is the heavier two-sonar chassis. Near the zone only its right sonar
// is watched so the zone wall does not read as an obstacle.
func bigbot() logic.RobotConfig {
	return logic.RobotConfig{
		Name:              "bigbot",
		ZoneNumber:        3,
		StartSide:         logic.SideRight,
		StartLine:         logic.StartLineBottom,
		StopTime:          100 * time.Second,
		UseStartTrigger:   true,
		TriggerLevel:      true,
		TriggerDebounce:   50 * time.Millisecond,
		ObstacleThreshold: 15,
		RangeSensors:      2,
		PreZoneWindow:     logic.Window{From: 80 * time.Second, To: 100 * time.Second},
		PreZoneSide:       logic.SideRight,
		TurnZoneDelay:     90 * time.Second,
		ZoneTurns: map[logic.StartLine]logic.ZoneTurn{
			logic.StartLineTop:    {Time: 1500 * time.Millisecond, Ratio: 0.3},
			logic.StartLineBottom: {Time: 2500 * time.Millisecond, Ratio: 0.3},
		},
		LineSensors:  2,
		Polarity:     logic.PolarityLineHigh,
		CrossingMode: logic.CountEveryTick,
		Avoidance: logic.AvoidanceConfig{
			Mode:        logic.AvoidManeuver,
			ReverseTime: 500 * time.Millisecond,
			RotateTime:  700 * time.Millisecond,
			RotateSide:  logic.SideLeft,
		},
		Celebration: celebration(),
		Motion:      logic.MotionConfig{BaseSpeed: 120, RotationRatio: 0.4, LeftTrim: 4},
	}
}
