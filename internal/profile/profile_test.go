package profile

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/linebot/internal/logic"
)

func TestPresetsValidate(t *testing.T) {
	for _, name := range Names() {
		cfg, err := Preset(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("%s: invalid preset: %v", name, err)
		}
		if cfg.Name != name {
			t.Errorf("%s: preset named %q", name, cfg.Name)
		}
	}
}

func TestNamesSorted(t *testing.T) {
	want := []string{"bigbot", "dev", "groupie", "star"}
	if got := Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestPresetUnknown(t *testing.T) {
	_, err := Preset("nope")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "groupie") {
		t.Errorf("expected known names in error, got %v", err)
	}
}

func TestPresetReturnsFreshCopy(t *testing.T) {
	a, _ := Preset("groupie")
	a.ZoneTurns[logic.StartLineTop] = logic.ZoneTurn{Time: time.Hour, Ratio: 1}

	b, _ := Preset("groupie")
	if b.ZoneTurns[logic.StartLineTop].Time == time.Hour {
		t.Error("modifying one preset copy leaked into another")
	}
}

func TestParseOverridesBase(t *testing.T) {
	cfg, err := Parse([]byte(`
base: star
name: star-practice
stop_time: 15s
end_marker_dwell: 500ms
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Name != "star-practice" {
		t.Errorf("expected name override, got %q", cfg.Name)
	}
	if cfg.StopTime != 15*time.Second {
		t.Errorf("expected 15s stop time, got %v", cfg.StopTime)
	}
	if cfg.EndMarkerDwell != 500*time.Millisecond {
		t.Errorf("expected 500ms dwell, got %v", cfg.EndMarkerDwell)
	}
	// Untouched fields come from the base
	if cfg.LineSensors != 3 || cfg.Polarity != logic.PolarityLineHigh {
		t.Errorf("expected star line sensors, got %d/%s", cfg.LineSensors, cfg.Polarity)
	}
}

func TestParseDefaultsToGroupie(t *testing.T) {
	cfg, err := Parse([]byte("start_line: BOTTOM\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Name != "groupie" {
		t.Errorf("expected groupie base, got %q", cfg.Name)
	}
	turn, ok := cfg.ZoneTurn()
	if !ok || turn.Time != 1200*time.Millisecond {
		t.Errorf("expected bottom-line turn, got %+v", turn)
	}
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := Preset(Default)
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("expected default preset, got %+v", cfg)
	}
}

func TestParseNestedOverride(t *testing.T) {
	cfg, err := Parse([]byte(`
base: dev
avoidance:
  mode: MANEUVER
  reverse_time: 300ms
  rotate_time: 1s
  rotate_side: LEFT
  max_episodes: 2
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Avoidance.ReverseTime != 300*time.Millisecond || cfg.Avoidance.MaxEpisodes != 2 {
		t.Errorf("unexpected avoidance %+v", cfg.Avoidance)
	}
	if cfg.Avoidance.RotateSide != logic.SideLeft {
		t.Errorf("expected LEFT, got %s", cfg.Avoidance.RotateSide)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown base", "base: rover\n", "unknown profile"},
		{"unknown field", "base: star\nwheels: 6\n", "wheels"},
		{"invalid result", "base: star\nline_sensors: 1\n", "line sensor"},
		{"bad duration", "base: star\nstop_time: soon\n", "parse profile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robot.yaml")
	if err := os.WriteFile(path, []byte("base: bigbot\nzone_number: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ZoneNumber != 4 {
		t.Errorf("expected zone 4, got %d", cfg.ZoneNumber)
	}
	if cfg.RangeSensors != 2 {
		t.Errorf("expected bigbot range sensors, got %d", cfg.RangeSensors)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read profile") {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestMarshalLoadsBack(t *testing.T) {
	want, _ := Preset("bigbot")
	data, err := Marshal("bigbot", want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v\n%s", err, data)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch\nwant %+v\ngot  %+v", want, got)
	}
}
