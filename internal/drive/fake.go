package drive

// Wheels is one recorded SetDrive call.
type Wheels struct {
	Left, Right int
}

// FakeMotors records wheel values.
type FakeMotors struct {
	Calls    []Wheels
	Closed   bool
	SetError error
}

// SetDrive implements Motors.
func (f *FakeMotors) SetDrive(left, right int) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Calls = append(f.Calls, Wheels{Left: left, Right: right})
	return nil
}

// Close implements Motors.
func (f *FakeMotors) Close() error {
	f.Closed = true
	return nil
}

// Last returns the most recent wheel values, or zero if none.
func (f *FakeMotors) Last() Wheels {
	if len(f.Calls) == 0 {
		return Wheels{}
	}
	return f.Calls[len(f.Calls)-1]
}

// FakeCelebrator records LED and servo writes.
type FakeCelebrator struct {
	LEDs   []bool
	Angles []int
	Closed bool
}

// SetLED implements Celebrator.
func (f *FakeCelebrator) SetLED(on bool) error {
	f.LEDs = append(f.LEDs, on)
	return nil
}

// SetServo implements Celebrator.
func (f *FakeCelebrator) SetServo(angle int) error {
	f.Angles = append(f.Angles, angle)
	return nil
}

// Close implements Celebrator.
func (f *FakeCelebrator) Close() error {
	f.Closed = true
	return nil
}
