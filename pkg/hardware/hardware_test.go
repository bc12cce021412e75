package hardware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSimMotor_RunToPosition(t *testing.T) {
	m := NewSimMotor("lift", 1000)
	m.SetTargetPosition(100)
	m.SetPower(1)

	assert.False(t, m.IsBusy(), "not busy before run-to-position is selected")

	m.RunToPosition()
	assert.True(t, m.IsBusy())

	m.Step(50 * time.Millisecond)
	assert.Equal(t, 50, m.CurrentPosition())
	assert.True(t, m.IsBusy())

	m.Step(time.Second)
	assert.Equal(t, 100, m.CurrentPosition(), "must not overshoot")
	assert.False(t, m.IsBusy())
}

func TestSimMotor_RunToPositionIgnoresPowerSign(t *testing.T) {
	m := NewSimMotor("lift", 1000)
	m.SetPosition(200)
	m.SetTargetPosition(0)
	m.SetPower(0.5)
	m.RunToPosition()

	m.Step(100 * time.Millisecond)
	assert.Equal(t, 150, m.CurrentPosition())
}

func TestSimMotor_Tolerance(t *testing.T) {
	m := NewSimMotor("lift", 1000)
	m.SetTolerance(10)
	m.SetTargetPosition(100)
	m.SetPosition(91)
	m.RunToPosition()
	assert.False(t, m.IsBusy())

	m.SetPosition(89)
	assert.True(t, m.IsBusy())
}

func TestSimMotor_RawPower(t *testing.T) {
	m := NewSimMotor("roller", 1000)
	m.RunWithoutEncoder()
	m.SetPower(-0.5)
	m.Step(time.Second)
	assert.Equal(t, -500, m.CurrentPosition())
	assert.False(t, m.IsBusy())
}

func TestSimMotor_StopAndReset(t *testing.T) {
	m := NewSimMotor("lift", 1000)
	m.SetPosition(400)
	m.SetPower(1)
	m.StopAndReset()

	assert.Equal(t, 0, m.CurrentPosition())
	assert.Equal(t, 0.0, m.Power())
	assert.Equal(t, StopAndReset, m.Mode())
}

func TestSimMotor_Stalled(t *testing.T) {
	m := NewSimMotor("lift", 1000)
	m.SetTargetPosition(100)
	m.SetPower(1)
	m.RunToPosition()
	m.SetStalled(true)

	for i := 0; i < 100; i++ {
		m.Step(10 * time.Millisecond)
	}
	assert.Equal(t, 0, m.CurrentPosition())
	assert.True(t, m.IsBusy(), "a jammed motor stays busy forever")
}

func TestSimWorld_Step(t *testing.T) {
	a := NewSimMotor("a", 1000)
	b := NewSimMotor("b", 1000)
	for _, m := range []*SimMotor{a, b} {
		m.RunWithoutEncoder()
		m.SetPower(1)
	}

	SimWorld{a, b}.Step(10 * time.Millisecond)
	assert.Equal(t, 10, a.CurrentPosition())
	assert.Equal(t, 10, b.CurrentPosition())
}

func TestRunMode_String(t *testing.T) {
	assert.Equal(t, "run_to_position", RunToPosition.String())
	assert.Equal(t, "unknown", RunMode(42).String())
}

// fakeDriver records bus traffic for adapter tests.
type fakeDriver struct {
	pos       int
	positions []int
	speeds    []int
	velocity  []int
	modes     []ServoMode
	readErr   error
}

func (f *fakeDriver) Position(context.Context) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	return f.pos, nil
}

func (f *fakeDriver) SetPosition(_ context.Context, pos int) error {
	f.positions = append(f.positions, pos)
	return nil
}

func (f *fakeDriver) SetPositionWithSpeed(_ context.Context, pos, speed int) error {
	f.positions = append(f.positions, pos)
	f.speeds = append(f.speeds, speed)
	return nil
}

func (f *fakeDriver) SetVelocity(_ context.Context, v int) error {
	f.velocity = append(f.velocity, v)
	return nil
}

func (f *fakeDriver) SetMode(_ context.Context, mode ServoMode) error {
	f.modes = append(f.modes, mode)
	return nil
}

func TestFeetechMotor_PositionMode(t *testing.T) {
	d := &fakeDriver{pos: 2048}
	m := NewFeetechMotor(d, FeetechMotorConfig{Name: "lift"})

	m.StopAndReset()
	assert.Equal(t, 0, m.CurrentPosition())

	m.SetTargetPosition(100)
	m.RunToPosition()
	assert.Empty(t, d.modes, "the servo powers up in position mode")
	assert.Equal(t, []int{2148}, d.positions)
	assert.True(t, m.IsBusy())

	d.pos = 2146
	assert.False(t, m.IsBusy())
	assert.Equal(t, 98, m.CurrentPosition())
}

func TestFeetechMotor_Reversed(t *testing.T) {
	d := &fakeDriver{pos: 1000}
	m := NewFeetechMotor(d, FeetechMotorConfig{Name: "lift_right", Reversed: true})
	m.StopAndReset()

	m.SetTargetPosition(50)
	m.RunToPosition()
	assert.Equal(t, 950, d.positions[len(d.positions)-1])

	d.pos = 900
	assert.Equal(t, 100, m.CurrentPosition())
}

func TestFeetechMotor_WheelMode(t *testing.T) {
	d := &fakeDriver{}
	m := NewFeetechMotor(d, FeetechMotorConfig{Name: "roller", MaxVelocity: 1000})

	m.RunWithoutEncoder()
	m.SetPower(0.5)
	m.RunUsingEncoder()

	assert.Equal(t, []ServoMode{ServoWheel}, d.modes, "mode switch only once between wheel modes")
	assert.Equal(t, []int{0, 500, 500}, d.velocity)
	assert.False(t, m.IsBusy())

	m.SetTargetPosition(10)
	m.RunToPosition()
	assert.Equal(t, []ServoMode{ServoWheel, ServoPosition}, d.modes)
}

func TestFeetechMotor_ReadErrorKeepsLastPosition(t *testing.T) {
	d := &fakeDriver{pos: 300}
	m := NewFeetechMotor(d, FeetechMotorConfig{Name: "lift"})
	assert.Equal(t, 300, m.CurrentPosition())

	d.readErr = errors.New("timeout")
	assert.Equal(t, 300, m.CurrentPosition())
	assert.Equal(t, 1, m.Failures())
	assert.ErrorContains(t, m.Err(), "lift read position")
}

func TestFeetechServo_Range(t *testing.T) {
	d := &fakeDriver{}
	s := NewFeetechServo("claw", d, 1000, 3000)

	s.SetPosition(0.5)
	s.SetPosition(2)
	assert.Equal(t, []int{2000, 3000}, d.positions)
	assert.Equal(t, 1.0, s.Position())
	assert.NoError(t, s.Err())
}

func TestFeetechMotor_ConfiguredZero(t *testing.T) {
	d := &fakeDriver{pos: 1200}
	m := NewFeetechMotor(d, FeetechMotorConfig{Name: "lift", Zero: 1000})
	assert.Equal(t, 200, m.CurrentPosition())

	m.SetTargetPosition(500)
	assert.Equal(t, []int{1500}, d.positions)
}

func TestFeetechMotor_PowerSetsSpeed(t *testing.T) {
	d := &fakeDriver{}
	m := NewFeetechMotor(d, FeetechMotorConfig{Name: "lift", MaxVelocity: 1000})

	m.SetTargetPosition(1500)
	m.RunToPosition()
	for _, p := range []float64{0.9, 0.5, 0.7, 0.7, -0.5} {
		m.SetPower(p)
	}

	assert.Equal(t, []int{1500, 1500, 1500, 1500, 1500, 1500}, d.positions)
	assert.Equal(t, []int{900, 500, 700, 500}, d.speeds, "unchanged power is not resent")
}

func TestFeetechMotor_PowerBeforeTargetDoesNotMove(t *testing.T) {
	d := &fakeDriver{pos: 700}
	m := NewFeetechMotor(d, FeetechMotorConfig{Name: "wrist", Continuous: true})

	m.SetPower(0.7)
	assert.Empty(t, d.positions)
	assert.Empty(t, d.modes)

	m.SetTargetPosition(800)
	assert.Equal(t, []ServoMode{ServoStep}, d.modes)
	assert.Equal(t, []int{100}, d.positions)
	assert.Equal(t, []int{2100}, d.speeds)
}

func TestFeetechMotor_GoalClampedToOneTurn(t *testing.T) {
	d := &fakeDriver{}
	m := NewFeetechMotor(d, FeetechMotorConfig{Name: "lift", Zero: 100})

	m.SetTargetPosition(5000)
	m.SetTargetPosition(-500)
	assert.Equal(t, []int{4095, 0}, d.positions)
}

func TestFeetechMotor_ContinuousStepsAcrossZero(t *testing.T) {
	d := &fakeDriver{pos: 8}
	m := NewFeetechMotor(d, FeetechMotorConfig{Name: "wrist", Continuous: true})
	assert.Equal(t, 8, m.CurrentPosition())

	m.SetTargetPosition(-7)
	assert.Equal(t, []ServoMode{ServoStep}, d.modes)
	assert.Equal(t, []int{15 | 1<<15}, d.positions, "backwards 15 steps, not a wrapped absolute goal")
	assert.True(t, m.IsBusy())

	d.pos = 4094
	assert.Equal(t, -2, m.CurrentPosition())
	assert.False(t, m.IsBusy())

	d.pos = 4089
	assert.Equal(t, -7, m.CurrentPosition())

	m.SetTargetPosition(4100)
	assert.Equal(t, 4107, d.positions[len(d.positions)-1])

	d.pos = 2500
	assert.Equal(t, -1596, m.CurrentPosition())
	d.pos = 4095
	assert.Equal(t, -1, m.CurrentPosition())
	d.pos = 10
	assert.Equal(t, 10, m.CurrentPosition())
	d.pos = 2000
	assert.Equal(t, 2000, m.CurrentPosition())
	d.pos = 4000
	assert.Equal(t, 4000, m.CurrentPosition())
	d.pos = 100
	assert.Equal(t, 4196, m.CurrentPosition(), "readings keep counting past one turn")
}

func TestEncodeSteps(t *testing.T) {
	tests := []struct {
		steps int
		want  int
	}{
		{0, 0},
		{100, 100},
		{-100, 100 | 1<<15},
		{1 << 16, 1<<15 - 1},
		{-(1 << 16), 1<<16 - 1},
	}
	for _, tt := range tests {
		if got := encodeSteps(tt.steps); got != tt.want {
			t.Errorf("encodeSteps(%d) = %d, want %d", tt.steps, got, tt.want)
		}
	}
}
