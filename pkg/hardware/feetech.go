package hardware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

const (
	// DefaultTimeout bounds every bus transaction made through the Motor interface.
	DefaultTimeout = 50 * time.Millisecond
	// DefaultMaxVelocity is the servo speed, in steps per second, at full power.
	DefaultMaxVelocity = 3000
	// DefaultResolution is the number of raw steps in one servo turn.
	DefaultResolution = 4096

	stepSignBit = 1 << 15
)

// ServoMode is a bus servo operating mode.
type ServoMode int

const (
	// ServoPosition moves to an absolute goal within one turn.
	ServoPosition ServoMode = iota
	// ServoWheel turns continuously at the goal velocity.
	ServoWheel
	// ServoStep moves by a signed number of steps from the present position.
	ServoStep
)

func (m ServoMode) String() string {
	switch m {
	case ServoPosition:
		return "position"
	case ServoWheel:
		return "wheel"
	case ServoStep:
		return "step"
	}
	return "unknown"
}

// ServoDriver is the subset of a serial bus servo the adapters need.
type ServoDriver interface {
	Position(ctx context.Context) (int, error)
	SetPosition(ctx context.Context, pos int) error
	// SetPositionWithSpeed writes the goal together with a speed in steps per second.
	SetPositionWithSpeed(ctx context.Context, pos, speed int) error
	SetVelocity(ctx context.Context, velocity int) error
	SetMode(ctx context.Context, mode ServoMode) error
}

// FeetechDriver adapts a feetech.Servo to ServoDriver.
type FeetechDriver struct {
	Servo *feetech.Servo
}

var _ ServoDriver = FeetechDriver{}

// NewFeetechDriver creates a driver for servo id on bus.
func NewFeetechDriver(bus *feetech.Bus, id int) FeetechDriver {
	return FeetechDriver{Servo: feetech.NewServo(bus, id, nil)}
}

// Position implements ServoDriver.
func (d FeetechDriver) Position(ctx context.Context) (int, error) {
	return d.Servo.Position(ctx)
}

// SetPosition implements ServoDriver.
func (d FeetechDriver) SetPosition(ctx context.Context, pos int) error {
	return d.Servo.SetPosition(ctx, pos)
}

// SetPositionWithSpeed implements ServoDriver.
func (d FeetechDriver) SetPositionWithSpeed(ctx context.Context, pos, speed int) error {
	return d.Servo.SetPositionWithSpeed(ctx, pos, speed)
}

// SetVelocity implements ServoDriver.
func (d FeetechDriver) SetVelocity(ctx context.Context, velocity int) error {
	return d.Servo.SetVelocity(ctx, velocity)
}

// SetMode implements ServoDriver. Torque is disabled while the mode changes.
func (d FeetechDriver) SetMode(ctx context.Context, mode ServoMode) error {
	var op int
	switch mode {
	case ServoPosition:
		op = feetech.ModePosition
	case ServoWheel:
		op = feetech.ModeVelocity
	case ServoStep:
		op = feetech.ModeStep
	default:
		return fmt.Errorf("unknown servo mode %d", mode)
	}

	if err := d.Servo.Disable(ctx); err != nil {
		return fmt.Errorf("disable torque: %w", err)
	}
	if err := d.Servo.SetOperatingMode(ctx, op); err != nil {
		return fmt.Errorf("set operating mode: %w", err)
	}
	if err := d.Servo.Enable(ctx); err != nil {
		return fmt.Errorf("enable torque: %w", err)
	}
	return nil
}

// FeetechMotor exposes a bus servo as a Motor.
//
// In run-to-position mode the power sets the servo speed. A zero power leaves
// the servo's own speed profile in charge. A continuous motor runs in step
// mode: its readings are unwrapped across the turn boundary and every goal is
// sent as the signed distance from the present position, so targets below
// zero or beyond one turn are reached the short way.
//
// Bus errors cannot travel through the Motor interface. They are recorded and
// available through Err and Failures; reads fall back to the last good value.
type FeetechMotor struct {
	name        string
	driver      ServoDriver
	timeout     time.Duration
	maxVelocity int
	resolution  int
	reversed    bool
	continuous  bool

	mu        sync.Mutex
	zero      int
	lastRaw   int
	target    int
	commanded bool
	tolerance int
	power     float64
	mode      RunMode
	servoMode ServoMode
	err       error
	failures  int
}

var _ Motor = (*FeetechMotor)(nil)

// FeetechMotorConfig configures a FeetechMotor.
type FeetechMotorConfig struct {
	Name        string
	Reversed    bool
	Timeout     time.Duration
	MaxVelocity int
	Resolution  int
	// Zero is the raw servo position that reads as tick 0.
	Zero int
	// Continuous marks a motor that may turn past one revolution.
	Continuous bool
}

// NewFeetechMotor wraps driver. The servo is assumed to be in position mode,
// which is how it powers up.
func NewFeetechMotor(driver ServoDriver, cfg FeetechMotorConfig) *FeetechMotor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxVelocity <= 0 {
		cfg.MaxVelocity = DefaultMaxVelocity
	}
	if cfg.Resolution <= 0 {
		cfg.Resolution = DefaultResolution
	}
	return &FeetechMotor{
		name:        cfg.Name,
		driver:      driver,
		timeout:     cfg.Timeout,
		maxVelocity: cfg.MaxVelocity,
		resolution:  cfg.Resolution,
		reversed:    cfg.Reversed,
		continuous:  cfg.Continuous,
		zero:        cfg.Zero,
		lastRaw:     cfg.Zero,
		tolerance:   5,
		mode:        RunToPosition,
		servoMode:   ServoPosition,
	}
}

func (m *FeetechMotor) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.timeout)
}

func (m *FeetechMotor) record(op string, err error) {
	if err == nil {
		return
	}
	m.err = fmt.Errorf("%s %s: %w", m.name, op, err)
	m.failures++
}

// toRaw converts controller ticks to servo ticks.
func (m *FeetechMotor) toRaw(ticks int) int {
	if m.reversed {
		ticks = -ticks
	}
	return ticks + m.zero
}

func (m *FeetechMotor) fromRaw(raw int) int {
	ticks := raw - m.zero
	if m.reversed {
		ticks = -ticks
	}
	return ticks
}

// unwrap places a raw reading on the continuous scale nearest the last one.
func (m *FeetechMotor) unwrap(raw int) int {
	if !m.continuous {
		return raw
	}
	last := m.lastRaw % m.resolution
	if last < 0 {
		last += m.resolution
	}
	d := raw - last
	switch {
	case d > m.resolution/2:
		d -= m.resolution
	case d < -m.resolution/2:
		d += m.resolution
	}
	return m.lastRaw + d
}

// Name implements Motor.
func (m *FeetechMotor) Name() string { return m.name }

// Err returns the most recent bus error, if any.
func (m *FeetechMotor) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Failures returns the number of failed bus transactions.
func (m *FeetechMotor) Failures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

// CurrentPosition implements Motor.
func (m *FeetechMotor) CurrentPosition() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fromRaw(m.readRaw())
}

// readRaw returns the present raw position, unwrapped for a continuous motor.
func (m *FeetechMotor) readRaw() int {
	ctx, cancel := m.ctx()
	defer cancel()

	raw, err := m.driver.Position(ctx)
	if err != nil {
		m.record("read position", err)
		return m.lastRaw
	}
	m.lastRaw = m.unwrap(raw)
	return m.lastRaw
}

// IsBusy implements Motor.
func (m *FeetechMotor) IsBusy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != RunToPosition {
		return false
	}
	return abs(m.fromRaw(m.readRaw())-m.target) > m.tolerance
}

// SetPower implements Motor. In wheel modes the power becomes a velocity. In
// run-to-position mode a changed power resends the goal at the new speed.
func (m *FeetechMotor) SetPower(power float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	power = clamp(power, -1, 1)
	changed := power != m.power
	m.power = power

	switch m.mode {
	case RunWithoutEncoder, RunUsingEncoder:
		m.writeVelocity()
	case RunToPosition:
		if changed && m.commanded {
			m.writeTarget()
		}
	}
}

func (m *FeetechMotor) writeVelocity() {
	ctx, cancel := m.ctx()
	defer cancel()

	v := int(m.power * float64(m.maxVelocity))
	if m.reversed {
		v = -v
	}
	m.record("set velocity", m.driver.SetVelocity(ctx, v))
}

// speed converts the power magnitude to steps per second.
func (m *FeetechMotor) speed() int {
	p := m.power
	if p < 0 {
		p = -p
	}
	return int(p * float64(m.maxVelocity))
}

// Power implements Motor.
func (m *FeetechMotor) Power() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.power
}

// SetTargetPosition implements Motor.
func (m *FeetechMotor) SetTargetPosition(ticks int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.target = ticks
	m.commanded = true
	if m.mode == RunToPosition {
		m.writeTarget()
	}
}

func (m *FeetechMotor) positionMode() ServoMode {
	if m.continuous {
		return ServoStep
	}
	return ServoPosition
}

func (m *FeetechMotor) setServoMode(mode ServoMode) {
	if m.servoMode == mode {
		return
	}
	ctx, cancel := m.ctx()
	defer cancel()
	if err := m.driver.SetMode(ctx, mode); err != nil {
		m.record("set "+mode.String()+" mode", err)
		return
	}
	m.servoMode = mode
}

// goal returns the raw value to write for the current target.
func (m *FeetechMotor) goal() int {
	raw := m.toRaw(m.target)
	if !m.continuous {
		return max(0, min(raw, m.resolution-1))
	}
	return encodeSteps(raw - m.readRaw())
}

// encodeSteps writes a signed step count in sign-magnitude form.
func encodeSteps(steps int) int {
	const limit = stepSignBit - 1
	if steps < 0 {
		return min(-steps, limit) | stepSignBit
	}
	return min(steps, limit)
}

func (m *FeetechMotor) writeTarget() {
	m.setServoMode(m.positionMode())
	goal := m.goal()

	ctx, cancel := m.ctx()
	defer cancel()
	if speed := m.speed(); speed > 0 {
		m.record("set position", m.driver.SetPositionWithSpeed(ctx, goal, speed))
		return
	}
	m.record("set position", m.driver.SetPosition(ctx, goal))
}

// TargetPosition implements Motor.
func (m *FeetechMotor) TargetPosition() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target
}

// SetTolerance implements Motor.
func (m *FeetechMotor) SetTolerance(ticks int) {
	m.mu.Lock()
	m.tolerance = ticks
	m.mu.Unlock()
}

// RunToPosition implements Motor.
func (m *FeetechMotor) RunToPosition() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = RunToPosition
	m.writeTarget()
}

// RunWithoutEncoder implements Motor.
func (m *FeetechMotor) RunWithoutEncoder() { m.runWheel(RunWithoutEncoder) }

// RunUsingEncoder implements Motor.
func (m *FeetechMotor) RunUsingEncoder() { m.runWheel(RunUsingEncoder) }

func (m *FeetechMotor) runWheel(mode RunMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setServoMode(ServoWheel)
	m.mode = mode
	m.writeVelocity()
}

// StopAndReset implements Motor. The servo encoder cannot be zeroed over the
// bus, so the current raw position becomes the new zero offset.
func (m *FeetechMotor) StopAndReset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.power = 0
	if m.mode == RunWithoutEncoder || m.mode == RunUsingEncoder {
		m.writeVelocity()
	}

	m.zero = m.readRaw()
	m.target = 0
	m.commanded = false
	m.mode = StopAndReset
}

// Mode implements Motor.
func (m *FeetechMotor) Mode() RunMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// FeetechServo exposes a bus servo as a normalized Servo. Position 0 maps to
// RangeMin and 1 to RangeMax.
type FeetechServo struct {
	name     string
	driver   ServoDriver
	rangeMin int
	rangeMax int
	timeout  time.Duration

	mu       sync.Mutex
	position float64
	err      error
}

var _ Servo = (*FeetechServo)(nil)

// NewFeetechServo wraps driver with the given raw range.
func NewFeetechServo(name string, driver ServoDriver, rangeMin, rangeMax int) *FeetechServo {
	return &FeetechServo{
		name:     name,
		driver:   driver,
		rangeMin: rangeMin,
		rangeMax: rangeMax,
		timeout:  DefaultTimeout,
	}
}

// Name implements Servo.
func (s *FeetechServo) Name() string { return s.name }

// SetPosition implements Servo.
func (s *FeetechServo) SetPosition(pos float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.position = clamp(pos, 0, 1)
	raw := s.rangeMin + int(s.position*float64(s.rangeMax-s.rangeMin))

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.driver.SetPosition(ctx, raw); err != nil {
		s.err = fmt.Errorf("%s set position: %w", s.name, err)
	}
}

// Position implements Servo. It returns the last commanded position.
func (s *FeetechServo) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Err returns the most recent bus error, if any.
func (s *FeetechServo) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
