// Package hardware defines the actuator handles the controllers drive, plus a
// simulator and adapters for Feetech serial bus servos.
package hardware

// RunMode selects how a motor interprets its commands.
type RunMode int

const (
	// RunWithoutEncoder applies power directly.
	RunWithoutEncoder RunMode = iota
	// RunUsingEncoder applies power as a speed request regulated by the encoder.
	RunUsingEncoder
	// RunToPosition drives toward the target position at the commanded power.
	RunToPosition
	// StopAndReset stops the motor and zeroes the encoder.
	StopAndReset
)

func (m RunMode) String() string {
	switch m {
	case RunWithoutEncoder:
		return "run_without_encoder"
	case RunUsingEncoder:
		return "run_using_encoder"
	case RunToPosition:
		return "run_to_position"
	case StopAndReset:
		return "stop_and_reset"
	default:
		return "unknown"
	}
}

// Motor is one physical motor with an encoder. A handle is owned by exactly
// one controller; implementations need not be safe for concurrent use.
type Motor interface {
	Name() string

	// CurrentPosition returns the encoder position in ticks.
	CurrentPosition() int
	// IsBusy reports whether the motor is still travelling toward its target
	// in RunToPosition mode.
	IsBusy() bool

	SetPower(power float64)
	Power() float64
	SetTargetPosition(ticks int)
	TargetPosition() int
	// SetTolerance sets how close to the target counts as arrived.
	SetTolerance(ticks int)

	RunToPosition()
	RunWithoutEncoder()
	RunUsingEncoder()
	StopAndReset()
	Mode() RunMode
}

// Servo is a positional servo commanded in the normalized range [0, 1].
type Servo interface {
	Name() string
	SetPosition(pos float64)
	Position() float64
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
