package effector

import (
	"github.com/gwillem/actuate/pkg/action"
	"github.com/gwillem/actuate/pkg/hardware"
	"github.com/gwillem/actuate/pkg/telemetry"
)

// Direction selects which way a roller spins.
type Direction int

const (
	Disengage Direction = iota
	Forward
	Backward
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "disengage"
	}
}

// RollerConfig configures a Roller.
type RollerConfig struct {
	Name  string
	Speed float64
}

// Roller is a motor spun at raw power, e.g. an intake.
type Roller struct {
	name  string
	motor hardware.Motor
	speed float64
}

// NewRoller returns a roller and switches its motor to raw power mode.
func NewRoller(cfg RollerConfig, motor hardware.Motor) *Roller {
	motor.RunWithoutEncoder()
	return &Roller{name: cfg.Name, motor: motor, speed: cfg.Speed}
}

// Name returns the roller name used in telemetry.
func (r *Roller) Name() string { return r.name }

// SetSpeed changes the power used by actions built afterwards.
func (r *Roller) SetSpeed(speed float64) { r.speed = speed }

// Speed returns the configured roller power.
func (r *Roller) Speed() float64 { return r.speed }

// Roll returns an action spinning the roller in d. It keeps the motor powered
// and reports running until it is replaced by a Disengage action, which stops
// the motor and is done at once.
func (r *Roller) Roll(d Direction) action.Action {
	var power float64
	switch d {
	case Forward:
		power = r.speed
	case Backward:
		power = -r.speed
	}
	return action.Func(func(p *telemetry.Packet) bool {
		r.motor.SetPower(power)
		p.Put(r.name+" direction", d.String())
		return d != Disengage
	})
}
