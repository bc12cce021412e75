package control

import (
	"fmt"

	"github.com/gwillem/actuate/pkg/action"
	"github.com/gwillem/actuate/pkg/hardware"
)

// LinkageConfig configures a bounded Linkage.
type LinkageConfig struct {
	PositionerConfig
	GearRatio  float64
	InchRadius float64
}

// Linkage is a single-motor arm with hard limits, commanded in degrees or ticks.
type Linkage struct {
	*Positioner
	ticksPerRotation int
	inchRadius       float64
}

// NewLinkage returns a bounded linkage driven by motor.
func NewLinkage(cfg LinkageConfig, motor hardware.Motor) (*Linkage, error) {
	tpr := TicksPerRotation(cfg.GearRatio)
	if tpr <= 0 {
		return nil, fmt.Errorf("%s: %w (ratio %g)", cfg.Name, ErrGearRatio, cfg.GearRatio)
	}
	p, err := NewPositioner(cfg.PositionerConfig, motor)
	if err != nil {
		return nil, err
	}
	return &Linkage{Positioner: p, ticksPerRotation: tpr, inchRadius: cfg.InchRadius}, nil
}

// TicksPerRotation returns the ticks in one output revolution.
func (l *Linkage) TicksPerRotation() int { return l.ticksPerRotation }

// CurrentDegrees returns the shaft angle.
func (l *Linkage) CurrentDegrees() int {
	return TicksToDegrees(l.CurrentPosition(), l.ticksPerRotation)
}

// Travel returns the arc length covered by the linkage tip at the current position.
func (l *Linkage) Travel() float64 {
	return ArcLength(l.CurrentPosition(), l.ticksPerRotation, l.inchRadius)
}

// GoToDegrees moves to an absolute angle; the converted target is clamped.
func (l *Linkage) GoToDegrees(degrees int) action.Action {
	return l.GoToPosition(DegreesToTicks(degrees, l.ticksPerRotation))
}

// GoToDegreesAndWait is GoToDegrees followed by a wait for the motor to settle.
func (l *Linkage) GoToDegreesAndWait(degrees int) action.Action {
	return l.GoToPositionAndWait(DegreesToTicks(degrees, l.ticksPerRotation))
}
