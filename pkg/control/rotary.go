package control

import (
	"errors"
	"fmt"

	"github.com/gwillem/actuate/pkg/action"
	"github.com/gwillem/actuate/pkg/hardware"
)

// ErrGearRatio is returned when a gear ratio yields no ticks per rotation.
var ErrGearRatio = errors.New("gear ratio must give at least one tick per rotation")

// DefaultRotaryPower is the fixed power of a continuously rotating linkage.
const DefaultRotaryPower = 0.7

// RotaryConfig configures a Rotary.
type RotaryConfig struct {
	Name       string
	GearRatio  float64
	InchRadius float64
	Power      float64
	Tolerance  int
}

// Rotary is a linkage whose motor may turn indefinitely. Positions are angles
// modulo one output revolution and every move takes the short way round.
type Rotary struct {
	axis             *Positioner
	ticksPerRotation int
	inchRadius       float64
	power            float64
	positions        *Levels
}

// NewRotary returns an unbounded controller for motor. The configured power
// is written to the motor immediately.
func NewRotary(cfg RotaryConfig, motor hardware.Motor) (*Rotary, error) {
	tpr := TicksPerRotation(cfg.GearRatio)
	if tpr <= 0 {
		return nil, fmt.Errorf("%s: %w (ratio %g)", cfg.Name, ErrGearRatio, cfg.GearRatio)
	}
	if cfg.Power == 0 {
		cfg.Power = DefaultRotaryPower
	}

	axis, err := newPositioner(PositionerConfig{Name: cfg.Name, Tolerance: cfg.Tolerance}, false, []hardware.Motor{motor})
	if err != nil {
		return nil, err
	}
	axis.power = cfg.Power
	motor.SetPower(cfg.Power)

	return &Rotary{
		axis:             axis,
		ticksPerRotation: tpr,
		inchRadius:       cfg.InchRadius,
		power:            cfg.Power,
		positions:        NewRotaryLevels(tpr),
	}, nil
}

// Axis exposes the underlying controller for mode and tolerance actions.
func (r *Rotary) Axis() *Positioner { return r.axis }

// Name returns the controller name.
func (r *Rotary) Name() string { return r.axis.Name() }

// TicksPerRotation returns the ticks in one output revolution.
func (r *Rotary) TicksPerRotation() int { return r.ticksPerRotation }

// IsBusy reports whether the motor is still moving.
func (r *Rotary) IsBusy() bool { return r.axis.IsBusy() }

// CurrentPosition returns the raw encoder position in ticks.
func (r *Rotary) CurrentPosition() int { return r.axis.CurrentPosition() }

// CurrentDegrees returns the unwrapped shaft angle.
func (r *Rotary) CurrentDegrees() int {
	return TicksToDegrees(r.CurrentPosition(), r.ticksPerRotation)
}

// Target returns the last resolved target in ticks.
func (r *Rotary) Target() int { return r.axis.Target() }

// Travel returns the arc length covered by the linkage tip at the current position.
func (r *Rotary) Travel() float64 {
	return ArcLength(r.CurrentPosition(), r.ticksPerRotation, r.inchRadius)
}

// ResolveDegrees returns the encoder target for the shortest move to degrees.
// The result may be negative or beyond one revolution; it is near the
// current position, not a wrapped absolute angle.
func (r *Rotary) ResolveDegrees(degrees int) int {
	return DegreesToTicks(ClosestTarget(r.CurrentDegrees(), degrees), r.ticksPerRotation)
}

func (r *Rotary) fixedPower() float64 { return r.power }

// GoToDegrees returns an action turning the shortest way to degrees.
func (r *Rotary) GoToDegrees(degrees int) action.Action {
	return r.axis.move(r.ResolveDegrees(degrees), r.fixedPower, false)
}

// GoToDegreesAndWait is GoToDegrees followed by a wait for the motor to settle.
func (r *Rotary) GoToDegreesAndWait(degrees int) action.Action {
	return r.axis.move(r.ResolveDegrees(degrees), r.fixedPower, true)
}

// AddRotationPosition stores a position in ticks. It reports false if a
// stored position already points at the same angle.
func (r *Rotary) AddRotationPosition(ticks int) bool { return r.positions.Add(ticks) }

// RotationPositions returns the stored positions in index order.
func (r *Rotary) RotationPositions() []int { return r.positions.All() }

func (r *Rotary) positionDegrees(i int) (int, error) {
	ticks, err := r.positions.At(i)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", r.Name(), err)
	}
	return NormalizeDegrees(TicksToDegrees(ticks, r.ticksPerRotation)), nil
}

// GoToRotationPosition returns an action turning to stored position i.
func (r *Rotary) GoToRotationPosition(i int) (action.Action, error) {
	deg, err := r.positionDegrees(i)
	if err != nil {
		return nil, err
	}
	return r.GoToDegrees(deg), nil
}

// GoToRotationPositionAndWait turns to stored position i and waits to settle.
func (r *Rotary) GoToRotationPositionAndWait(i int) (action.Action, error) {
	deg, err := r.positionDegrees(i)
	if err != nil {
		return nil, err
	}
	return r.GoToDegreesAndWait(deg), nil
}

// MustGoToRotationPosition is GoToRotationPosition for scripts; it panics on a bad index.
func (r *Rotary) MustGoToRotationPosition(i int) action.Action {
	a, err := r.GoToRotationPosition(i)
	if err != nil {
		panic(err)
	}
	return a
}

// MustGoToRotationPositionAndWait is GoToRotationPositionAndWait for scripts;
// it panics on a bad index.
func (r *Rotary) MustGoToRotationPositionAndWait(i int) action.Action {
	a, err := r.GoToRotationPositionAndWait(i)
	if err != nil {
		panic(err)
	}
	return a
}
