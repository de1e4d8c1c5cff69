// Command linebot runs a line-following contest robot: it polls the sensors,
// drives the motors from the mission state machine and publishes telemetry
// to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/linebot/internal/debuglink"
	"github.com/sweeney/linebot/internal/drive"
	"github.com/sweeney/linebot/internal/gpio"
	"github.com/sweeney/linebot/internal/logic"
	"github.com/sweeney/linebot/internal/mqtt"
	"github.com/sweeney/linebot/internal/profile"
	"github.com/sweeney/linebot/internal/status"
	"github.com/sweeney/linebot/internal/web"
)

type options struct {
	poll        time.Duration
	heartbeat   time.Duration
	broker      string
	httpAddr    string
	profileName string
	profileFile string
	linePins    string
	sonarPins   string
	startPin    int
	debugSerial string
	debugBaud   int
	printState  bool
	dumpProfile bool
}

func main() {
	var opts options
	flag.DurationVar(&opts.poll, "poll", 10*time.Millisecond, "Sensor polling interval")
	flag.DurationVar(&opts.heartbeat, "heartbeat", time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&opts.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable)")
	flag.StringVar(&opts.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.StringVar(&opts.profileName, "profile", profile.Default, fmt.Sprintf("Built-in robot profile %v", profile.Names()))
	flag.StringVar(&opts.profileFile, "profile-file", "", "YAML profile file (overrides -profile)")
	flag.StringVar(&opts.linePins, "line-pins", "", `BCM line sensor pins "left,right" or "left,center,right" (default from profile)`)
	flag.StringVar(&opts.sonarPins, "sonar-pins", "", `BCM range sensor pins "trig:echo[,trig:echo]" (default from profile)`)
	flag.IntVar(&opts.startPin, "start-pin", -1, "BCM start switch pin (default from profile)")
	flag.StringVar(&opts.debugSerial, "debug-serial", "", "Serial device for the Bluetooth debug link (empty to disable)")
	flag.IntVar(&opts.debugBaud, "debug-baud", debuglink.DefaultBaud, "Debug link baud rate")
	flag.BoolVar(&opts.printState, "print-state", false, "Print one sensor sample and exit")
	flag.BoolVar(&opts.dumpProfile, "dump-profile", false, "Print the resolved profile as YAML and exit")

	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(opts options) error {
	cfg, err := loadProfile(opts.profileName, opts.profileFile)
	if err != nil {
		return err
	}

	if opts.dumpProfile {
		data, err := profile.Marshal(opts.profileName, cfg)
		if err != nil {
			return fmt.Errorf("marshal profile: %w", err)
		}
		os.Stdout.Write(data)
		return nil
	}

	if opts.debugSerial != "" {
		link, err := debuglink.Open(opts.debugSerial, opts.debugBaud)
		if err != nil {
			return err
		}
		log.SetOutput(io.MultiWriter(os.Stderr, link))
		defer func() {
			log.SetOutput(os.Stderr)
			if n := link.Dropped(); n > 0 {
				log.Printf("debug link dropped %d lines", n)
			}
			link.Close()
		}()
	}

	pins, err := resolvePins(cfg, opts.linePins, opts.sonarPins, opts.startPin)
	if err != nil {
		return err
	}

	// Initialize GPIO
	sensors, err := gpio.NewRealReader(pins)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer sensors.Close()

	// Print state mode
	if opts.printState {
		s, err := sensors.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Println(formatSample(s))
		return nil
	}

	// Initialize motors and celebration hardware
	board, err := drive.NewBoard()
	if err != nil {
		return fmt.Errorf("init board: %w", err)
	}
	defer board.Close()
	motors := board.Motors(drive.DefaultLeftMotor, drive.DefaultRightMotor)
	defer motors.Close()
	celebrator := board.Celebrator(drive.DefaultLEDPin, drive.DefaultServoPin)
	defer celebrator.Close()

	driver := drive.NewDriver(drive.NewMixer(cfg.Motion), motors)
	if err := driver.Stop(); err != nil {
		return err
	}

	runID := uuid.NewString()
	id := mqtt.Identity{Robot: cfg.Name, RunID: runID}

	// Initialize MQTT
	var publisher mqtt.Publisher = noPublisher{}
	var mqttStatus mqtt.ConnectionStatus
	if opts.broker != "" {
		p, err := mqtt.NewRealPublisher(opts.broker, id)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher, mqttStatus = p, p
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), cfg.Name, runID, cfg.StopTime, status.Config{
		PollMs:      opts.poll.Milliseconds(),
		HeartbeatMs: opts.heartbeat.Milliseconds(),
		Broker:      opts.broker,
		HTTPAddr:    opts.httpAddr,
		Profile:     profileLabel(opts.profileName, opts.profileFile),
		DebugSerial: opts.debugSerial,
	})
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.SystemStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.SystemStartup, ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", opts.httpAddr)
	}

	log.Printf("started: robot=%s run=%s poll=%v stop=%v broker=%s heartbeat=%v",
		cfg.Name, runID, opts.poll, cfg.StopTime, opts.broker, opts.heartbeat)

	ticker := time.NewTicker(opts.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	hw := hardware{sensors: sensors, driver: driver, celebrator: celebrator}
	return runLoop(cfg, hw, publisher, mqttStatus, tracker, opts.heartbeat, time.Now, ticker.C, sigCh)
}

// hardware is everything the poll loop reads from or writes to.
type hardware struct {
	sensors    gpio.Reader
	driver     *drive.Driver
	celebrator drive.Celebrator
}

func runLoop(cfg logic.RobotConfig, hw hardware, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	machine, err := logic.NewMachine(cfg, now())
	if err != nil {
		return err
	}

	var (
		last    gpio.Sample
		haveOne bool
	)

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			if err := hw.driver.Stop(); err != nil {
				log.Printf("failed to stop motors: %v", err)
			}

			signalName := signalName(s)
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     mqtt.SystemShutdown,
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				updateTracker(tracker, machine, hw.driver, mqttStatus)
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, mqtt.SystemShutdown, signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			sample, err := hw.sensors.Read()
			if err != nil {
				log.Printf("gpio read error: %v", err)
				if !haveOne {
					continue
				}
				// Keep the clock and the deadline running on the last good sample.
				sample = last
			}
			last, haveOne = sample, true

			out := machine.Process(sample.Input(t))

			for _, event := range out.Events {
				log.Printf("event: %s", formatEvent(event))
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			if out.Command != nil {
				if err := hw.driver.Apply(*out.Command); err != nil {
					log.Printf("motor error: %v", err)
				}
			}
			if out.Cosmetic != nil {
				if err := drive.ApplyCosmetic(hw.celebrator, *out.Cosmetic); err != nil {
					log.Printf("celebration error: %v", err)
				}
			}

			// Check for heartbeat
			if hbData := machine.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v state=%s mission=%v obstacle=%v crossings=%d",
					hbData.Uptime, hbData.State, hbData.MissionTime, hbData.ObstacleTime, hbData.Counts.Crossings)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     mqtt.SystemHeartbeat,
				}
				if tracker != nil {
					updateTracker(tracker, machine, hw.driver, mqttStatus)
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, mqtt.SystemHeartbeat, "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				updateTracker(tracker, machine, hw.driver, mqttStatus)
			}
		}
	}
}

func updateTracker(tracker *status.Tracker, m *logic.Machine, d *drive.Driver, mqttStatus mqtt.ConnectionStatus) {
	left, right := d.Wheels()
	tracker.Update(status.Observe(m, left, right))
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
}

func loadProfile(name, file string) (logic.RobotConfig, error) {
	if file != "" {
		return profile.Load(file)
	}
	return profile.Preset(name)
}

func profileLabel(name, file string) string {
	if file != "" {
		return file
	}
	return name
}

// resolvePins starts from the standard wiring for the profile's sensors and
// applies any pin flags.
func resolvePins(cfg logic.RobotConfig, linePins, sonarPins string, startPin int) (gpio.Pins, error) {
	pins := gpio.DefaultPins(cfg.LineSensors, cfg.RangeSensors, cfg.UseStartTrigger)

	if linePins != "" {
		l, c, r, err := gpio.ParseLinePins(linePins)
		if err != nil {
			return pins, err
		}
		pins.LineLeft, pins.LineCenter, pins.LineRight = l, c, r
	}
	if sonarPins != "" {
		sonars, err := gpio.ParseSonarPins(sonarPins)
		if err != nil {
			return pins, err
		}
		pins.Sonars = sonars
	}
	if startPin >= 0 {
		pins.Start = startPin
	}

	if cfg.LineSensors > 0 && (cfg.LineSensors == 3) != (pins.LineCenter >= 0) {
		return pins, fmt.Errorf("profile %s has %d line sensors, pins do not match", cfg.Name, cfg.LineSensors)
	}
	if len(pins.Sonars) < cfg.RangeSensors {
		return pins, fmt.Errorf("profile %s has %d range sensors, only %d wired", cfg.Name, cfg.RangeSensors, len(pins.Sonars))
	}
	return pins, nil
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

func formatEvent(e logic.Event) string {
	what := string(e.To)
	if e.Type == logic.EventStateChange {
		what = fmt.Sprintf("%s -> %s", e.From, e.To)
	}
	return fmt.Sprintf("%s %s (mission=%v obstacle=%v crossings=%d)",
		e.Type, what, e.MissionTime, e.ObstacleTime, e.Crossings)
}

func formatSample(s gpio.Sample) string {
	return fmt.Sprintf("line: L=%s C=%s R=%s range: L=%dcm R=%dcm start: %s",
		level(s.Left), level(s.Center), level(s.Right), s.RangeLeft, s.RangeRight, level(s.Start))
}

func level(b bool) string {
	if b {
		return "HIGH"
	}
	return "LOW"
}

// noPublisher is used when telemetry is disabled.
type noPublisher struct{}

func (noPublisher) Publish(logic.Event) error            { return nil }
func (noPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (noPublisher) Close() error                         { return nil }
