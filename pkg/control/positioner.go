// Package control implements closed-loop position control for lifts and
// linkages built from one or two motors.
//
// Controllers never block. Every operation returns an action.Action that the
// run loop polls until it reports done. A Positioner owns its motors
// exclusively and its actions must only be polled on its behalf.
package control

import (
	"errors"
	"fmt"

	"github.com/gwillem/actuate/pkg/action"
	"github.com/gwillem/actuate/pkg/hardware"
)

var (
	ErrNoMotors      = errors.New("controller needs at least one motor")
	ErrTooManyMotors = errors.New("controller drives at most two motors")
	ErrBounds        = errors.New("min must not exceed max")
)

// PositionerConfig configures a Positioner. Zero values take defaults.
type PositionerConfig struct {
	Name      string
	Min, Max  int
	Tolerance int
	UpPower   float64
	DownPower float64

	// RequireFullSettle makes the wait in GoToPositionAndWait require every
	// motor to settle. By default a dual-motor axis stops waiting as soon as
	// either motor settles.
	RequireFullSettle bool
}

func (c *PositionerConfig) setDefaults() {
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultTolerance
	}
	if c.UpPower == 0 {
		c.UpPower = DefaultUpPower
	}
	if c.DownPower == 0 {
		c.DownPower = DefaultDownPower
	}
}

// Positioner drives one logical axis of one or two motors in lockstep toward
// a target position using bang-bang power selection.
type Positioner struct {
	name    string
	motors  []hardware.Motor
	bounded bool
	min     int
	max     int
	up      float64
	down    float64
	settle  SettlePolicy

	target    int
	tolerance int
	power     float64

	levels *Levels
}

// NewPositioner returns a bounded controller for motors. Targets are clamped
// to [cfg.Min, cfg.Max].
func NewPositioner(cfg PositionerConfig, motors ...hardware.Motor) (*Positioner, error) {
	if cfg.Min > cfg.Max {
		return nil, fmt.Errorf("%s: %w (%d > %d)", cfg.Name, ErrBounds, cfg.Min, cfg.Max)
	}
	return newPositioner(cfg, true, motors)
}

func newPositioner(cfg PositionerConfig, bounded bool, motors []hardware.Motor) (*Positioner, error) {
	switch {
	case len(motors) == 0:
		return nil, fmt.Errorf("%s: %w", cfg.Name, ErrNoMotors)
	case len(motors) > 2:
		return nil, fmt.Errorf("%s: %w, got %d", cfg.Name, ErrTooManyMotors, len(motors))
	}
	cfg.setDefaults()

	settle := SettleAny
	if cfg.RequireFullSettle {
		settle = SettleAll
	}

	p := &Positioner{
		name:      cfg.Name,
		motors:    motors,
		bounded:   bounded,
		min:       cfg.Min,
		max:       cfg.Max,
		up:        cfg.UpPower,
		down:      cfg.DownPower,
		settle:    settle,
		tolerance: cfg.Tolerance,
		levels:    NewLevels(),
	}
	for _, m := range motors {
		m.SetTolerance(p.tolerance)
	}
	return p, nil
}

// Name returns the controller name used in telemetry.
func (p *Positioner) Name() string { return p.name }

// Bounds returns the inclusive target range and whether it is enforced.
func (p *Positioner) Bounds() (min, max int, bounded bool) {
	return p.min, p.max, p.bounded
}

// Motors returns the number of motors on the axis.
func (p *Positioner) Motors() int { return len(p.motors) }

func (p *Positioner) command(op Op) *Command {
	return &Command{Op: op, Name: p.name, Motors: p.motors, Settle: p.settle}
}

// IsBusy reports whether the axis is still moving. A dual-motor axis is busy
// only while both motors report busy.
func (p *Positioner) IsBusy() bool {
	for _, m := range p.motors {
		if !m.IsBusy() {
			return false
		}
	}
	return true
}

// CurrentPosition returns the axis position in ticks. A dual-motor axis
// reports the truncated mean of both encoders.
func (p *Positioner) CurrentPosition() int {
	if len(p.motors) == 1 {
		return p.motors[0].CurrentPosition()
	}
	return (p.motors[0].CurrentPosition() + p.motors[1].CurrentPosition()) / 2
}

// Target returns the last commanded target in ticks.
func (p *Positioner) Target() int { return p.target }

// Tolerance returns the arrival tolerance in ticks.
func (p *Positioner) Tolerance() int { return p.tolerance }

// Power returns the last commanded power.
func (p *Positioner) Power() float64 { return p.power }

// MotorPower returns the power the first motor currently reports.
func (p *Positioner) MotorPower() float64 { return p.motors[0].Power() }

// SetPower stores power and returns an action writing it to every motor.
func (p *Positioner) SetPower(power float64) action.Action {
	p.power = power
	c := p.command(OpSetPower)
	c.Power = power
	return c
}

// SetTargetPosition stores the target, clamped to the bounds of a bounded
// axis, and returns an action writing it to every motor.
func (p *Positioner) SetTargetPosition(ticks int) action.Action {
	if p.bounded {
		ticks = clamp(ticks, p.min, p.max)
	}
	p.target = ticks
	c := p.command(OpSetTarget)
	c.Ticks = ticks
	return c
}

// SetTolerance stores the tolerance and returns an action writing it to every motor.
func (p *Positioner) SetTolerance(ticks int) action.Action {
	p.tolerance = ticks
	c := p.command(OpSetTolerance)
	c.Ticks = ticks
	return c
}

// RunToPosition returns an action selecting run-to-position mode.
func (p *Positioner) RunToPosition() action.Action { return p.command(OpRunToPosition) }

// RunWithoutEncoder returns an action selecting raw power mode.
func (p *Positioner) RunWithoutEncoder() action.Action { return p.command(OpRunWithoutEncoder) }

// RunUsingEncoder returns an action selecting encoder-regulated power mode.
func (p *Positioner) RunUsingEncoder() action.Action { return p.command(OpRunUsingEncoder) }

// StopAndReset returns an action stopping the motors and zeroing their encoders.
func (p *Positioner) StopAndReset() action.Action { return p.command(OpStopAndReset) }

// UntilPosition returns an action that runs until IsBusy reports false.
func (p *Positioner) UntilPosition() action.Action {
	return action.Until(func() bool { return !p.IsBusy() })
}

// awaitSettled returns the terminal wait of GoToPositionAndWait.
func (p *Positioner) awaitSettled() action.Action { return p.command(OpAwaitSettled) }

// powerSetter picks the bang-bang power for the current position error.
func (p *Positioner) powerSetter() float64 {
	return BangBang(p.CurrentPosition(), p.target, p.tolerance, p.up, p.down)
}

// move builds the standard motion: target and mode in sequence, with the
// power written alongside. power is evaluated after the target is stored.
func (p *Positioner) move(ticks int, power func() float64, wait bool) action.Action {
	steps := []action.Action{p.SetTargetPosition(ticks), p.RunToPosition()}
	if wait {
		steps = append(steps, p.awaitSettled())
	}
	return action.NewParallel(
		action.NewSequential(steps...),
		p.SetPower(power()),
	)
}

// GoToPosition returns an action moving the axis toward ticks. The power is
// chosen once, when the action is built, from the error at that moment.
func (p *Positioner) GoToPosition(ticks int) action.Action {
	return p.move(ticks, p.powerSetter, false)
}

// GoToPositionAndWait is GoToPosition followed by a wait for the axis to settle.
func (p *Positioner) GoToPositionAndWait(ticks int) action.Action {
	return p.move(ticks, p.powerSetter, true)
}

// AddLevel appends a setpoint. It reports false if ticks is already a level.
func (p *Positioner) AddLevel(ticks int) bool { return p.levels.Add(ticks) }

// Levels returns the setpoints in index order.
func (p *Positioner) Levels() []int { return p.levels.All() }

// GoToLevel returns an action moving to the level at index i.
func (p *Positioner) GoToLevel(i int) (action.Action, error) {
	ticks, err := p.levels.At(i)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}
	return p.GoToPosition(ticks), nil
}

// GoToLevelAndWait returns an action moving to level i and waiting to settle.
func (p *Positioner) GoToLevelAndWait(i int) (action.Action, error) {
	ticks, err := p.levels.At(i)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}
	return p.GoToPositionAndWait(ticks), nil
}

// MustGoToLevel is GoToLevel for scripts; it panics on a bad index.
func (p *Positioner) MustGoToLevel(i int) action.Action {
	a, err := p.GoToLevel(i)
	if err != nil {
		panic(err)
	}
	return a
}

// MustGoToLevelAndWait is GoToLevelAndWait for scripts; it panics on a bad index.
func (p *Positioner) MustGoToLevelAndWait(i int) action.Action {
	a, err := p.GoToLevelAndWait(i)
	if err != nil {
		panic(err)
	}
	return a
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
