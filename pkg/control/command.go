package control

import (
	"github.com/gwillem/actuate/pkg/action"
	"github.com/gwillem/actuate/pkg/hardware"
	"github.com/gwillem/actuate/pkg/telemetry"
)

// Op identifies what a Command does to its motors.
type Op int

const (
	OpSetPower Op = iota
	OpSetTarget
	OpSetTolerance
	OpRunToPosition
	OpRunWithoutEncoder
	OpRunUsingEncoder
	OpStopAndReset
	// OpAwaitSettled keeps running until the motors settle per the command's policy.
	OpAwaitSettled
)

func (o Op) String() string {
	switch o {
	case OpSetPower:
		return "set_power"
	case OpSetTarget:
		return "set_target"
	case OpSetTolerance:
		return "set_tolerance"
	case OpRunToPosition:
		return "run_to_position"
	case OpRunWithoutEncoder:
		return "run_without_encoder"
	case OpRunUsingEncoder:
		return "run_using_encoder"
	case OpStopAndReset:
		return "stop_and_reset"
	case OpAwaitSettled:
		return "await_settled"
	default:
		return "unknown"
	}
}

// SettlePolicy decides when a set of motors counts as arrived.
type SettlePolicy int

const (
	// SettleAny is satisfied as soon as one motor reports not busy.
	SettleAny SettlePolicy = iota
	// SettleAll requires every motor to report not busy.
	SettleAll
)

func (s SettlePolicy) settled(motors []hardware.Motor) bool {
	if s == SettleAll {
		for _, m := range motors {
			if m.IsBusy() {
				return false
			}
		}
		return true
	}
	for _, m := range motors {
		if !m.IsBusy() {
			return true
		}
	}
	return len(motors) == 0
}

// Command is a single controller operation with its parameters captured at
// build time. Every op except OpAwaitSettled writes once and is done.
//
// A Command belongs to the controller that built it and writes to that
// controller's motors only.
type Command struct {
	Op     Op
	Name   string
	Motors []hardware.Motor
	Power  float64
	Ticks  int
	Settle SettlePolicy
}

var _ action.Action = (*Command)(nil)

// Run implements action.Action.
func (c *Command) Run(p *telemetry.Packet) bool {
	if c.Op == OpAwaitSettled {
		settled := c.Settle.settled(c.Motors)
		if len(c.Motors) > 0 {
			p.Put(c.Name+" position", c.Motors[0].CurrentPosition())
		}
		return !settled
	}

	for _, m := range c.Motors {
		switch c.Op {
		case OpSetPower:
			m.SetPower(c.Power)
		case OpSetTarget:
			m.SetTargetPosition(c.Ticks)
		case OpSetTolerance:
			m.SetTolerance(c.Ticks)
		case OpRunToPosition:
			m.RunToPosition()
		case OpRunWithoutEncoder:
			m.RunWithoutEncoder()
		case OpRunUsingEncoder:
			m.RunUsingEncoder()
		case OpStopAndReset:
			m.StopAndReset()
		}
	}

	switch c.Op {
	case OpSetPower:
		p.Put(c.Name+" power", c.Power)
	case OpSetTarget:
		p.Put(c.Name+" target", c.Ticks)
	}
	return false
}
