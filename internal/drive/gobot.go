package drive

import (
	"errors"
	"fmt"

	"gobot.io/x/gobot/drivers/gpio"
	"gobot.io/x/gobot/platforms/raspi"
)

// servoCenter is the servo position for angle 0.
const servoCenter = 90

// MotorPins are the header pins of one H-bridge channel.
type MotorPins struct {
	Speed    string // PWM enable
	Forward  string
	Backward string
}

// Default wiring (physical header pins).
var (
	DefaultLeftMotor  = MotorPins{Speed: "32", Forward: "29", Backward: "31"}
	DefaultRightMotor = MotorPins{Speed: "33", Forward: "36", Backward: "38"}
)

const (
	DefaultLEDPin   = "40"
	DefaultServoPin = "12"
)

// Board is a connected Raspberry Pi adaptor shared by the motors and the
// celebration hardware.
type Board struct {
	adaptor *raspi.Adaptor
}

// NewBoard connects to the Raspberry Pi.
func NewBoard() (*Board, error) {
	a := raspi.NewAdaptor()
	if err := a.Connect(); err != nil {
		return nil, fmt.Errorf("connect raspi: %w", err)
	}
	return &Board{adaptor: a}, nil
}

// Close releases the adaptor.
func (b *Board) Close() error {
	return b.adaptor.Finalize()
}

// GobotMotors drives two gobot MotorDrivers.
type GobotMotors struct {
	left  *gpio.MotorDriver
	right *gpio.MotorDriver
}

// Motors creates the wheel drivers on the board.
func (b *Board) Motors(left, right MotorPins) *GobotMotors {
	return &GobotMotors{
		left:  newMotor(b.adaptor, left),
		right: newMotor(b.adaptor, right),
	}
}

func newMotor(a *raspi.Adaptor, p MotorPins) *gpio.MotorDriver {
	m := gpio.NewMotorDriver(a, p.Speed)
	m.ForwardPin = p.Forward
	m.BackwardPin = p.Backward
	return m
}

func setMotor(m *gpio.MotorDriver, v int) error {
	switch {
	case v > 0:
		return m.Forward(byte(clamp(v)))
	case v < 0:
		return m.Backward(byte(clamp(-v)))
	default:
		return m.Off()
	}
}

// SetDrive implements Motors.
func (g *GobotMotors) SetDrive(left, right int) error {
	if err := setMotor(g.left, left); err != nil {
		return fmt.Errorf("left motor: %w", err)
	}
	if err := setMotor(g.right, right); err != nil {
		return fmt.Errorf("right motor: %w", err)
	}
	return nil
}

// Close releases both wheels.
func (g *GobotMotors) Close() error {
	return errors.Join(g.left.Off(), g.right.Off())
}

// GobotCelebrator drives the LED and servo through gobot.
type GobotCelebrator struct {
	led   *gpio.LedDriver
	servo *gpio.ServoDriver
}

// Celebrator creates the LED and servo drivers on the board.
func (b *Board) Celebrator(ledPin, servoPin string) *GobotCelebrator {
	return &GobotCelebrator{
		led:   gpio.NewLedDriver(b.adaptor, ledPin),
		servo: gpio.NewServoDriver(b.adaptor, servoPin),
	}
}

// SetLED implements Celebrator.
func (g *GobotCelebrator) SetLED(on bool) error {
	if on {
		return g.led.On()
	}
	return g.led.Off()
}

// SetServo implements Celebrator.
func (g *GobotCelebrator) SetServo(angle int) error {
	pos := servoCenter + angle
	if pos < 0 {
		pos = 0
	}
	if pos > 180 {
		pos = 180
	}
	return g.servo.Move(uint8(pos))
}

// Close turns the LED off and centers the servo.
func (g *GobotCelebrator) Close() error {
	return errors.Join(g.led.Off(), g.servo.Move(servoCenter))
}
