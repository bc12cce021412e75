package hardware

import (
	"math"
	"sync"
	"time"
)

// DefaultSimSpeed is the simulated speed at full power, in ticks per second.
const DefaultSimSpeed = 3000

// SimMotor is a simulated motor. It only moves when Step is called, which
// makes it deterministic in tests and easy to drive from a control loop.
type SimMotor struct {
	name  string
	speed float64

	mu        sync.Mutex
	position  float64
	target    int
	tolerance int
	power     float64
	mode      RunMode
	stalled   bool
}

var _ Motor = (*SimMotor)(nil)

// NewSimMotor returns a simulated motor at position 0 moving at most speed
// ticks per second. A non-positive speed uses DefaultSimSpeed.
func NewSimMotor(name string, speed float64) *SimMotor {
	if speed <= 0 {
		speed = DefaultSimSpeed
	}
	return &SimMotor{name: name, speed: speed, tolerance: 5}
}

// Name implements Motor.
func (m *SimMotor) Name() string { return m.name }

// CurrentPosition implements Motor.
func (m *SimMotor) CurrentPosition() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int(math.Round(m.position))
}

// SetPosition teleports the motor, e.g. to start a test off zero.
func (m *SimMotor) SetPosition(ticks int) {
	m.mu.Lock()
	m.position = float64(ticks)
	m.mu.Unlock()
}

// IsBusy implements Motor.
func (m *SimMotor) IsBusy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy()
}

func (m *SimMotor) busy() bool {
	if m.mode != RunToPosition {
		return false
	}
	return abs(int(math.Round(m.position))-m.target) > m.tolerance
}

// SetPower implements Motor.
func (m *SimMotor) SetPower(power float64) {
	m.mu.Lock()
	m.power = clamp(power, -1, 1)
	m.mu.Unlock()
}

// Power implements Motor.
func (m *SimMotor) Power() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.power
}

// SetTargetPosition implements Motor.
func (m *SimMotor) SetTargetPosition(ticks int) {
	m.mu.Lock()
	m.target = ticks
	m.mu.Unlock()
}

// TargetPosition implements Motor.
func (m *SimMotor) TargetPosition() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target
}

// SetTolerance implements Motor.
func (m *SimMotor) SetTolerance(ticks int) {
	m.mu.Lock()
	m.tolerance = ticks
	m.mu.Unlock()
}

// Tolerance returns the arrival tolerance in ticks.
func (m *SimMotor) Tolerance() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tolerance
}

// RunToPosition implements Motor.
func (m *SimMotor) RunToPosition() { m.setMode(RunToPosition) }

// RunWithoutEncoder implements Motor.
func (m *SimMotor) RunWithoutEncoder() { m.setMode(RunWithoutEncoder) }

// RunUsingEncoder implements Motor.
func (m *SimMotor) RunUsingEncoder() { m.setMode(RunUsingEncoder) }

// StopAndReset implements Motor.
func (m *SimMotor) StopAndReset() {
	m.mu.Lock()
	m.mode = StopAndReset
	m.position = 0
	m.target = 0
	m.power = 0
	m.mu.Unlock()
}

func (m *SimMotor) setMode(mode RunMode) {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
}

// Mode implements Motor.
func (m *SimMotor) Mode() RunMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// SetStalled jams the motor: while stalled it does not move at all.
func (m *SimMotor) SetStalled(stalled bool) {
	m.mu.Lock()
	m.stalled = stalled
	m.mu.Unlock()
}

// Step advances the simulation by dt.
func (m *SimMotor) Step(dt time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stalled {
		return
	}

	travel := m.power * m.speed * dt.Seconds()
	switch m.mode {
	case RunWithoutEncoder, RunUsingEncoder:
		m.position += travel
	case RunToPosition:
		// Power magnitude sets speed, the target sets direction.
		remaining := float64(m.target) - m.position
		step := math.Abs(travel)
		if math.Abs(remaining) <= step {
			m.position = float64(m.target)
		} else {
			m.position += math.Copysign(step, remaining)
		}
	}
}

// SimServo is a simulated servo that reaches its commanded position instantly.
type SimServo struct {
	name string

	mu       sync.Mutex
	position float64
	writes   int
}

var _ Servo = (*SimServo)(nil)

// NewSimServo returns a simulated servo.
func NewSimServo(name string) *SimServo {
	return &SimServo{name: name}
}

// Name implements Servo.
func (s *SimServo) Name() string { return s.name }

// SetPosition implements Servo.
func (s *SimServo) SetPosition(pos float64) {
	s.mu.Lock()
	s.position = clamp(pos, 0, 1)
	s.writes++
	s.mu.Unlock()
}

// Position implements Servo.
func (s *SimServo) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Writes returns how many times SetPosition was called.
func (s *SimServo) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Stepper is anything that advances with simulated time.
type Stepper interface {
	Step(dt time.Duration)
}

// SimWorld steps a set of simulated devices together.
type SimWorld []Stepper

// Step advances every device by dt.
func (w SimWorld) Step(dt time.Duration) {
	for _, s := range w {
		s.Step(dt)
	}
}
