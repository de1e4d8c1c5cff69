package sim

import (
	"fmt"
	"io"
	"time"

	"github.com/sweeney/linebot/internal/drive"
	"github.com/sweeney/linebot/internal/gpio"
	"github.com/sweeney/linebot/internal/logic"
)

// Epoch is the virtual wall-clock time of scenario time zero.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// DriveChange is a wheel write that reached the motors.
type DriveChange struct {
	At     time.Duration
	Action logic.Action
	Left   int
	Right  int
}

// Result is the outcome of a simulated run.
type Result struct {
	Robot        string
	Ticks        int
	Events       []logic.Event
	Drives       []DriveChange
	Cosmetics    int
	FinalState   logic.State
	MissionTime  time.Duration
	ObstacleTime time.Duration
	Crossings    int
	Counts       logic.EventCounts
}

// Run plays the scenario against cfg.
func Run(sc Scenario, cfg logic.RobotConfig) (Result, error) {
	samples := sc.Samples(cfg)
	return run(gpio.NewFakeReader(samples), len(samples), sc.Tick, cfg)
}

// run drives the machine the way the daemon's poll loop does, one sample per
// tick, with fake motors behind the real mixer and driver.
func run(reader gpio.Reader, ticks int, tick time.Duration, cfg logic.RobotConfig) (Result, error) {
	res := Result{Robot: cfg.Name}

	m, err := logic.NewMachine(cfg, Epoch)
	if err != nil {
		return res, err
	}
	motors := &drive.FakeMotors{}
	driver := drive.NewDriver(drive.NewMixer(cfg.Motion), motors)
	celebrator := &drive.FakeCelebrator{}
	defer reader.Close()

	for i := 0; i < ticks; i++ {
		at := time.Duration(i) * tick
		sample, err := reader.Read()
		if err != nil {
			return res, fmt.Errorf("read at %v: %w", at, err)
		}

		out := m.Process(sample.Input(Epoch.Add(at)))
		res.Ticks++
		res.Events = append(res.Events, out.Events...)

		if out.Command != nil {
			writes := len(motors.Calls)
			if err := driver.Apply(*out.Command); err != nil {
				return res, err
			}
			if len(motors.Calls) > writes {
				left, right := driver.Wheels()
				res.Drives = append(res.Drives, DriveChange{At: at, Action: out.Command.Action, Left: left, Right: right})
			}
		}
		if out.Cosmetic != nil {
			if err := drive.ApplyCosmetic(celebrator, *out.Cosmetic); err != nil {
				return res, err
			}
			res.Cosmetics++
		}
	}

	res.FinalState = m.State()
	res.MissionTime = m.MissionTime()
	res.ObstacleTime = m.ObstacleTime()
	res.Crossings = m.Crossings()
	res.Counts = m.EventCountsSnapshot()
	return res, nil
}

// WriteTrace prints events and motor writes in time order, then a summary.
func WriteTrace(w io.Writer, res Result) error {
	ei, di := 0, 0
	for ei < len(res.Events) || di < len(res.Drives) {
		if di >= len(res.Drives) || (ei < len(res.Events) && res.Events[ei].Timestamp.Sub(Epoch) <= res.Drives[di].At) {
			if _, err := fmt.Fprintln(w, formatEvent(res.Events[ei])); err != nil {
				return err
			}
			ei++
			continue
		}
		d := res.Drives[di]
		if _, err := fmt.Fprintf(w, "%9s  %-18s %s %d/%d\n", seconds(d.At), "DRIVE", d.Action, d.Left, d.Right); err != nil {
			return err
		}
		di++
	}

	_, err := fmt.Fprintf(w, "%s: %s after %d ticks, mission=%s obstacle=%s crossings=%d cosmetics=%d\n",
		res.Robot, res.FinalState, res.Ticks, seconds(res.MissionTime), seconds(res.ObstacleTime), res.Crossings, res.Cosmetics)
	return err
}

func formatEvent(e logic.Event) string {
	what := string(e.To)
	if e.Type == logic.EventStateChange {
		what = fmt.Sprintf("%s -> %s", e.From, e.To)
	}
	return fmt.Sprintf("%9s  %-18s %s mission=%s obstacle=%s crossings=%d",
		seconds(e.Timestamp.Sub(Epoch)), e.Type, what, seconds(e.MissionTime), seconds(e.ObstacleTime), e.Crossings)
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}
