package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/linebot/internal/logic"
	"github.com/sweeney/linebot/internal/profile"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestNewTracker(t *testing.T) {
	cfg := Config{PollMs: 10, Broker: "tcp://localhost:1883", HTTPAddr: ":80", Profile: "groupie"}
	tr := NewTracker(t0, "groupie", "run-1", 100*time.Second, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(t0) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, t0)
	}
	if snap.Name != "groupie" || snap.RunID != "run-1" {
		t.Errorf("identity: got %q/%q", snap.Name, snap.RunID)
	}
	if snap.Robot.State != logic.StateInit {
		t.Errorf("State: got %q, want INIT", snap.Robot.State)
	}
	if snap.Config.HTTPAddr != ":80" {
		t.Errorf("Config.HTTPAddr: got %q, want %q", snap.Config.HTTPAddr, ":80")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(t0, "star", "r", 100*time.Second, Config{})

	tr.Update(Robot{
		State:       logic.StateFollowLine,
		Started:     true,
		MissionTime: 12 * time.Second,
		Crossings:   2,
		Counts:      logic.EventCounts{Crossings: 2},
		Wheels:      Wheels{Left: 85, Right: 42},
	})

	snap := tr.Snapshot()
	if snap.Robot.State != logic.StateFollowLine {
		t.Errorf("State: got %q, want FOLLOW_LINE", snap.Robot.State)
	}
	if snap.Robot.Crossings != 2 || snap.Robot.Counts.Crossings != 2 {
		t.Errorf("Crossings: got %d/%d, want 2", snap.Robot.Crossings, snap.Robot.Counts.Crossings)
	}
	if snap.Robot.Wheels != (Wheels{Left: 85, Right: 42}) {
		t.Errorf("Wheels: got %+v", snap.Robot.Wheels)
	}
}

func TestObserve(t *testing.T) {
	cfg, err := profile.Preset("dev")
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	m, err := logic.NewMachine(cfg, t0)
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}

	r := Observe(m, 0, 0)
	if r.State != logic.StateInit || r.Started {
		t.Errorf("fresh machine: got %s started=%v", r.State, r.Started)
	}

	m.Process(logic.Input{Time: t0, Range: logic.RangeReading{Left: 100}})
	r = Observe(m, 85, 85)
	if !r.Started {
		t.Error("expected mission started without a trigger")
	}
	if r.State == logic.StateInit {
		t.Error("expected machine to leave INIT")
	}
	if r.Counts.StateChanges == 0 {
		t.Error("expected counts to be copied")
	}
	if r.Wheels != (Wheels{Left: 85, Right: 85}) {
		t.Errorf("Wheels: got %+v", r.Wheels)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(t0, "dev", "r", time.Second, Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSnapshotUptime(t *testing.T) {
	snap := Snapshot{
		StartTime: t0,
		Now:       t0.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotRemaining(t *testing.T) {
	tests := []struct {
		name  string
		robot Robot
		want  time.Duration
	}{
		{"not started", Robot{}, 100 * time.Second},
		{"running", Robot{Started: true, MissionTime: 30 * time.Second}, 70 * time.Second},
		{"past deadline", Robot{Started: true, MissionTime: 101 * time.Second}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Snapshot{StopTime: 100 * time.Second, Robot: tt.robot}
			if got := snap.Remaining(); got != tt.want {
				t.Errorf("Remaining: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(t0, "dev", "r", time.Second, Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(t0, "dev", "r", time.Second, Config{})
	tr.Update(Robot{State: logic.StateFollowLine, Crossings: 1})

	snap1 := tr.Snapshot()

	tr.Update(Robot{State: logic.StateStop, Crossings: 3})

	if snap1.Robot.State != logic.StateFollowLine {
		t.Error("snapshot should be a copy; State was modified")
	}
	if snap1.Robot.Crossings != 1 {
		t.Error("snapshot should be a copy; Crossings was modified")
	}
}

func testSnapshot() Snapshot {
	return Snapshot{
		Name:     "groupie",
		RunID:    "run-7",
		StopTime: 100 * time.Second,
		Robot: Robot{
			State:         logic.StateAvoidObstacle,
			PreviousState: logic.StateFollowLine,
			Started:       true,
			MissionTime:   42500 * time.Millisecond,
			ObstacleTime:  1200 * time.Millisecond,
			Avoiding:      true,
			Crossings:     1,
			Counts:        logic.EventCounts{StateChanges: 5, Crossings: 1, ObstaclesDetected: 2, ObstaclesCleared: 1},
			Wheels:        Wheels{Left: 0, Right: 0},
		},
		StartTime:     t0,
		Now:           t0.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{PollMs: 10, HeartbeatMs: 60000, Broker: "tcp://localhost:1883", HTTPAddr: ":80", Profile: "groupie"},
	}
}

func TestFormatJSON(t *testing.T) {
	data := FormatJSON(testSnapshot())

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.State != "AVOID_OBSTACLE" || s.PreviousState != "FOLLOW_LINE" {
		t.Errorf("State: got %q from %q", s.State, s.PreviousState)
	}
	if s.MissionMillis != 42500 || s.RemainingMs != 57500 || s.ObstacleMs != 1200 {
		t.Errorf("times: got %d/%d/%d", s.MissionMillis, s.RemainingMs, s.ObstacleMs)
	}
	if !s.Avoiding {
		t.Error("expected Avoiding=true")
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if s.Counts.ObstaclesDetected != 2 || s.Counts.StateChanges != 5 {
		t.Errorf("Counts: got %+v", s.Counts)
	}
	if s.Config.StopMs != 100000 || s.Config.Profile != "groupie" {
		t.Errorf("Config: got %+v", s.Config)
	}
	if s.Event != "" || s.Reason != "" {
		t.Error("web JSON should carry no event or reason")
	}
}

func TestFormatJSONUnknownState(t *testing.T) {
	data := FormatJSON(Snapshot{StartTime: t0, Now: t0})

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)
	if parsed.Status.State != "UNKNOWN" {
		t.Errorf("State: got %q, want UNKNOWN", parsed.Status.State)
	}
}

func TestFormatCompactJSONIsSingleLine(t *testing.T) {
	data := FormatCompactJSON(testSnapshot())
	for _, b := range data {
		if b == '\n' {
			t.Fatal("compact JSON should not contain newlines")
		}
	}

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.RunID != "run-7" {
		t.Errorf("RunID: got %q", parsed.Status.RunID)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	data := FormatStatusEvent(testSnapshot(), "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
	if parsed.Status.Robot != "groupie" {
		t.Errorf("Robot: got %q", parsed.Status.Robot)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{StartTime: t0, Now: t0.Add(time.Second)}

	data := FormatStatusEvent(snap, "STARTUP", "")

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), "dev", "r", time.Second, Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(Robot{State: logic.StateFollowLine, Crossings: i})
			tr.SetMQTTConnected(i%2 == 0)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = FormatCompactJSON(snap)
		}
	}()

	wg.Wait()
}
