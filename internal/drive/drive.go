// Package drive turns motion commands into wheel speeds and applies them to
// the motors, plus the LED and servo used for the end-of-mission celebration.
package drive

import (
	"fmt"

	"github.com/sweeney/linebot/internal/logic"
)

// MaxSpeed is the largest wheel value the motor drivers accept.
const MaxSpeed = 255

// Motors drives the two wheels. Values are in [-MaxSpeed, MaxSpeed];
// negative runs the wheel backwards, zero releases it.
type Motors interface {
	SetDrive(left, right int) error
	Close() error
}

// Celebrator controls the celebration LED and servo.
type Celebrator interface {
	SetLED(on bool) error
	SetServo(angle int) error // degrees from center
	Close() error
}

// Mixer converts a logic.Command into left/right wheel values.
//
//	FORWARD       base, base
//	BACKWARD      -base/2, -base/2
//	ROTATE_LEFT   base*ratio, base
//	ROTATE_RIGHT  base, base*ratio
//	STOP          0, 0
//
// Trims are added to the magnitude of a running wheel, halved when reversing.
type Mixer struct {
	cfg logic.MotionConfig
}

// NewMixer creates a mixer for the motion configuration.
func NewMixer(cfg logic.MotionConfig) Mixer {
	return Mixer{cfg: cfg}
}

// Mix returns the wheel values for c.
func (m Mixer) Mix(c logic.Command) (left, right int) {
	base := m.cfg.BaseSpeed
	ratio := m.cfg.RotationRatio
	if c.Ratio > 0 {
		ratio = c.Ratio
	}
	slow := int(float64(base) * ratio)

	switch c.Action {
	case logic.ActionForward:
		left, right = base, base
	case logic.ActionBackward:
		// Reversing runs at half speed, trims included.
		return trim(-base/2, m.cfg.LeftTrim/2), trim(-base/2, m.cfg.RightTrim/2)
	case logic.ActionRotateLeft:
		left, right = slow, base
	case logic.ActionRotateRight:
		left, right = base, slow
	default:
		return 0, 0
	}
	return trim(left, m.cfg.LeftTrim), trim(right, m.cfg.RightTrim)
}

func trim(v, t int) int {
	switch {
	case v > 0:
		v += t
		if v < 0 {
			v = 0
		}
	case v < 0:
		v -= t
		if v > 0 {
			v = 0
		}
	}
	return clamp(v)
}

func clamp(v int) int {
	if v > MaxSpeed {
		return MaxSpeed
	}
	if v < -MaxSpeed {
		return -MaxSpeed
	}
	return v
}

// Driver applies commands to Motors, skipping commands whose wheel values
// are already in effect.
type Driver struct {
	mixer  Mixer
	motors Motors

	applied     bool
	left, right int
}

// NewDriver creates a driver.
func NewDriver(mixer Mixer, motors Motors) *Driver {
	return &Driver{mixer: mixer, motors: motors}
}

// Apply mixes c and writes it to the motors if it changes the wheel values.
func (d *Driver) Apply(c logic.Command) error {
	left, right := d.mixer.Mix(c)
	if d.applied && left == d.left && right == d.right {
		return nil
	}
	if err := d.motors.SetDrive(left, right); err != nil {
		return fmt.Errorf("drive %s: %w", c.Action, err)
	}
	d.applied = true
	d.left, d.right = left, right
	return nil
}

// Stop releases both wheels unconditionally.
func (d *Driver) Stop() error {
	if err := d.motors.SetDrive(0, 0); err != nil {
		return fmt.Errorf("stop motors: %w", err)
	}
	d.applied = true
	d.left, d.right = 0, 0
	return nil
}

// Wheels returns the last applied wheel values.
func (d *Driver) Wheels() (left, right int) {
	return d.left, d.right
}

// ApplyCosmetic writes a celebration step to c.
func ApplyCosmetic(c Celebrator, cos logic.Cosmetic) error {
	if err := c.SetLED(cos.LED); err != nil {
		return fmt.Errorf("celebration led: %w", err)
	}
	if err := c.SetServo(cos.ServoAngle); err != nil {
		return fmt.Errorf("celebration servo: %w", err)
	}
	return nil
}
