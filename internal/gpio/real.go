//go:build linux

package gpio

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// echoTimeout bounds one range measurement. An echo of MaxRangeCm takes
// about 23ms.
const echoTimeout = 30 * time.Millisecond

// sonar is one HC-SR04. Echo edges arrive on a channel from the line's event
// handler and are timed with the kernel timestamps.
type sonar struct {
	trig   *gpiocdev.Line
	echo   *gpiocdev.Line
	events chan gpiocdev.LineEvent
}

// RealReader reads sensors from actual hardware using Linux GPIO character device.
type RealReader struct {
	chip   *gpiocdev.Chip
	left   *gpiocdev.Line
	center *gpiocdev.Line
	right  *gpiocdev.Line
	sonars []*sonar
	start  *gpiocdev.Line

	startLevel atomic.Bool
}

// NewRealReader creates a sensor reader for actual Raspberry Pi hardware.
func NewRealReader(pins Pins) (*RealReader, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	r := &RealReader{chip: chip}

	for _, l := range []struct {
		pin  int
		line **gpiocdev.Line
		name string
	}{
		{pins.LineLeft, &r.left, "left line"},
		{pins.LineCenter, &r.center, "center line"},
		{pins.LineRight, &r.right, "right line"},
	} {
		if l.pin < 0 {
			continue
		}
		line, err := chip.RequestLine(l.pin, gpiocdev.AsInput, gpiocdev.WithPullDown)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", l.name, l.pin, err)
		}
		*l.line = line
	}

	for _, sp := range pins.Sonars {
		s, err := r.requestSonar(sp)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.sonars = append(r.sonars, s)
	}

	if pins.Start >= 0 {
		// The switch level is kept up to date by edge events rather than
		// polled, so a short pull between ticks is not lost.
		line, err := chip.RequestLine(pins.Start,
			gpiocdev.AsInput,
			gpiocdev.WithPullUp,
			gpiocdev.WithBothEdges,
			gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
				r.startLevel.Store(evt.Type == gpiocdev.LineEventRisingEdge)
			}))
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request start pin %d: %w", pins.Start, err)
		}
		r.start = line
		v, err := line.Value()
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("read start pin %d: %w", pins.Start, err)
		}
		r.startLevel.Store(v == 1)
	}

	return r, nil
}

func (r *RealReader) requestSonar(p Sonar) (*sonar, error) {
	s := &sonar{events: make(chan gpiocdev.LineEvent, 8)}

	trig, err := r.chip.RequestLine(p.Trig, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request sonar trig pin %d: %w", p.Trig, err)
	}
	s.trig = trig

	echo, err := r.chip.RequestLine(p.Echo,
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			select {
			case s.events <- evt:
			default:
			}
		}))
	if err != nil {
		trig.Close()
		return nil, fmt.Errorf("request sonar echo pin %d: %w", p.Echo, err)
	}
	s.echo = echo
	return s, nil
}

// measure fires one ping and returns the distance in centimeters.
// A missing echo reads as MaxRangeCm.
func (s *sonar) measure() (uint, error) {
	for len(s.events) > 0 {
		<-s.events
	}

	if err := s.trig.SetValue(1); err != nil {
		return 0, fmt.Errorf("sonar trigger: %w", err)
	}
	time.Sleep(10 * time.Microsecond)
	if err := s.trig.SetValue(0); err != nil {
		return 0, fmt.Errorf("sonar trigger: %w", err)
	}

	timeout := time.After(echoTimeout)
	var rise time.Duration
	rose := false
	for {
		select {
		case evt := <-s.events:
			switch {
			case evt.Type == gpiocdev.LineEventRisingEdge:
				rise = evt.Timestamp
				rose = true
			case rose:
				return EchoToCm(evt.Timestamp - rise), nil
			}
		case <-timeout:
			return MaxRangeCm, nil
		}
	}
}

func readLine(l *gpiocdev.Line, name string) (bool, error) {
	if l == nil {
		return false, nil
	}
	v, err := l.Value()
	if err != nil {
		return false, fmt.Errorf("read %s pin: %w", name, err)
	}
	return v == 1, nil
}

// Read samples every configured sensor.
func (r *RealReader) Read() (Sample, error) {
	var s Sample
	var err error

	if s.Left, err = readLine(r.left, "left line"); err != nil {
		return Sample{}, err
	}
	if s.Center, err = readLine(r.center, "center line"); err != nil {
		return Sample{}, err
	}
	if s.Right, err = readLine(r.right, "right line"); err != nil {
		return Sample{}, err
	}

	for i, sn := range r.sonars {
		cm, err := sn.measure()
		if err != nil {
			return Sample{}, err
		}
		if i == 0 {
			s.RangeLeft = cm
		} else {
			s.RangeRight = cm
		}
	}

	s.Start = r.startLevel.Load()
	return s, nil
}

// Close releases GPIO resources.
// Reconfigures lines to input with pull-down (matching Pi boot defaults) before
// closing to ensure clean state for system shutdown/reboot.
func (r *RealReader) Close() error {
	var errs []error

	release := func(l *gpiocdev.Line, name string) {
		if l == nil {
			return
		}
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", name, err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}

	release(r.left, "left line")
	release(r.center, "center line")
	release(r.right, "right line")
	for _, s := range r.sonars {
		release(s.trig, "sonar trig")
		if s.echo != nil {
			if err := s.echo.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close sonar echo pin: %w", err))
			}
		}
	}
	if r.start != nil {
		if err := r.start.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close start pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
