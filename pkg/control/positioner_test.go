package control

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/actuate/pkg/action"
	"github.com/gwillem/actuate/pkg/hardware"
	"github.com/gwillem/actuate/pkg/telemetry"
)

const simStep = 20 * time.Millisecond

// pollSim runs a to completion, stepping the world after every poll, and
// returns the number of polls it took.
func pollSim(t *testing.T, a action.Action, world hardware.SimWorld, limit int) int {
	t.Helper()
	polls := 1
	for a.Run(nil) {
		world.Step(simStep)
		polls++
		require.Less(t, polls, limit, "action did not finish")
	}
	return polls
}

func newLift(t *testing.T, cfg PositionerConfig, motors ...hardware.Motor) *Positioner {
	t.Helper()
	p, err := NewPositioner(cfg, motors...)
	require.NoError(t, err)
	return p
}

func TestNewPositioner_Errors(t *testing.T) {
	m := &fakeMotor{}

	_, err := NewPositioner(PositionerConfig{Name: "lift", Max: 10})
	assert.ErrorIs(t, err, ErrNoMotors)

	_, err = NewPositioner(PositionerConfig{Name: "lift", Max: 10}, m, m, m)
	assert.ErrorIs(t, err, ErrTooManyMotors)

	_, err = NewPositioner(PositionerConfig{Name: "lift", Min: 10, Max: 0}, m)
	assert.ErrorIs(t, err, ErrBounds)
}

func TestNewPositioner_Defaults(t *testing.T) {
	a, b := &fakeMotor{}, &fakeMotor{}
	p := newLift(t, PositionerConfig{Name: "lift", Max: 4200}, a, b)

	assert.Equal(t, DefaultTolerance, p.Tolerance())
	assert.Equal(t, DefaultTolerance, a.tolerance)
	assert.Equal(t, DefaultTolerance, b.tolerance)
	assert.Equal(t, 2, p.Motors())

	lo, hi, bounded := p.Bounds()
	assert.Equal(t, 0, lo)
	assert.Equal(t, 4200, hi)
	assert.True(t, bounded)
}

func TestSetTargetPosition_Clamps(t *testing.T) {
	m := &fakeMotor{}
	p := newLift(t, PositionerConfig{Name: "lift", Min: -100, Max: 4200}, m)

	tests := []struct{ in, want int }{
		{-500, -100},
		{-100, -100},
		{0, 0},
		{4200, 4200},
		{9999, 4200},
	}
	for _, tt := range tests {
		assert.False(t, p.SetTargetPosition(tt.in).Run(nil), "set target is one-shot")
		assert.Equal(t, tt.want, p.Target())
		assert.Equal(t, tt.want, m.target)
	}
}

func TestSetPower_IsOneShot(t *testing.T) {
	a, b := &fakeMotor{}, &fakeMotor{}
	p := newLift(t, PositionerConfig{Name: "lift", Max: 10}, a, b)

	pkt := telemetry.NewPacket()
	assert.False(t, p.SetPower(0.3).Run(pkt))
	assert.Equal(t, 0.3, a.power)
	assert.Equal(t, 0.3, b.power)
	assert.Equal(t, 0.3, p.Power())
	assert.Equal(t, 0.3, p.MotorPower())

	v, ok := pkt.Get("lift power")
	require.True(t, ok)
	assert.Equal(t, 0.3, v)
}

func TestModeActions(t *testing.T) {
	m := &fakeMotor{position: 40}
	p := newLift(t, PositionerConfig{Name: "lift", Max: 10}, m)
	m.calls = nil

	for _, a := range []action.Action{
		p.RunWithoutEncoder(),
		p.RunUsingEncoder(),
		p.RunToPosition(),
		p.SetTolerance(12),
		p.StopAndReset(),
	} {
		assert.False(t, a.Run(nil))
	}
	assert.Equal(t, []string{
		"run_without_encoder", "run_using_encoder", "run_to_position", "tolerance", "stop_and_reset",
	}, m.calls)
	assert.Equal(t, 12, p.Tolerance())
	assert.Equal(t, 12, m.tolerance)
	assert.Zero(t, p.CurrentPosition())
}

func TestCurrentPosition_DualTruncates(t *testing.T) {
	a, b := &fakeMotor{position: 101}, &fakeMotor{position: 100}
	p := newLift(t, PositionerConfig{Name: "lift", Min: -10, Max: 4200}, a, b)
	assert.Equal(t, 100, p.CurrentPosition())

	a.position, b.position = -3, 0
	assert.Equal(t, -1, p.CurrentPosition())
}

func TestGoToPosition_Timing(t *testing.T) {
	m := &fakeMotor{}
	p := newLift(t, PositionerConfig{Name: "lift", Max: 4200}, m)
	m.calls = nil

	a := p.GoToPosition(1500)
	assert.True(t, a.Run(nil), "poll 1")
	assert.True(t, a.Run(nil), "poll 2")
	assert.False(t, a.Run(nil), "poll 3")

	assert.Equal(t, 1500, m.target)
	assert.Equal(t, hardware.RunToPosition, m.mode)
	assert.Equal(t, []string{"target", "power", "run_to_position"}, m.calls)
}

func TestGoToPosition_PowerFixedAtBuild(t *testing.T) {
	m := &fakeMotor{}
	p := newLift(t, PositionerConfig{Name: "lift", Max: 4200}, m)

	up := p.GoToPosition(1500)
	assert.Equal(t, DefaultUpPower, p.Power())

	// The encoder passing the target does not change an action already built.
	m.position = 3000
	for up.Run(nil) {
	}
	assert.Equal(t, DefaultUpPower, m.power)

	down := p.GoToPosition(1500)
	for down.Run(nil) {
	}
	assert.Equal(t, DefaultDownPower, m.power)

	m.position = 1498
	hold := p.GoToPosition(1500)
	for hold.Run(nil) {
	}
	assert.InDelta(t, (DefaultUpPower+DefaultDownPower)/2, m.power, 1e-9)
}

func TestGoToPosition_ClampsBeforeChoosingPower(t *testing.T) {
	m := &fakeMotor{position: 4200}
	p := newLift(t, PositionerConfig{Name: "lift", Max: 4200}, m)

	p.GoToPosition(10000)
	assert.Equal(t, 4200, p.Target())
	assert.InDelta(t, (DefaultUpPower+DefaultDownPower)/2, p.Power(), 1e-9)
}

func TestGoToPositionAndWait_Sim(t *testing.T) {
	m := hardware.NewSimMotor("lift", 0)
	p := newLift(t, PositionerConfig{Name: "lift", Max: 4200}, m)

	a := p.GoToPositionAndWait(1500)
	pollSim(t, a, hardware.SimWorld{m}, 1000)

	assert.InDelta(t, 1500, p.CurrentPosition(), DefaultTolerance)
	assert.False(t, p.IsBusy())
}

func TestGoToPositionAndWait_WaitsForMotor(t *testing.T) {
	m := &fakeMotor{busy: true}
	p := newLift(t, PositionerConfig{Name: "lift", Max: 4200}, m)

	a := p.GoToPositionAndWait(1500)
	for i := 0; i < 10; i++ {
		assert.True(t, a.Run(nil), "poll %d", i+1)
	}
	m.busy = false
	assert.True(t, a.Run(nil), "wait observes the settle")
	assert.False(t, a.Run(nil))
}

func TestDualMotor_SettleQuirk(t *testing.T) {
	a, b := &fakeMotor{busy: true}, &fakeMotor{busy: true}
	p := newLift(t, PositionerConfig{Name: "lift", Max: 4200}, a, b)
	assert.True(t, p.IsBusy())

	act := p.GoToPositionAndWait(4200)
	for i := 0; i < 5; i++ {
		require.True(t, act.Run(nil))
	}

	// One motor arriving is enough for both the busy flag and the wait.
	a.busy = false
	assert.False(t, p.IsBusy())
	assert.True(t, act.Run(nil))
	assert.False(t, act.Run(nil))
}

func TestDualMotor_RequireFullSettle(t *testing.T) {
	a, b := &fakeMotor{busy: true}, &fakeMotor{busy: true}
	p := newLift(t, PositionerConfig{Name: "lift", Max: 4200, RequireFullSettle: true}, a, b)

	act := p.GoToPositionAndWait(4200)
	require.True(t, act.Run(nil))
	require.True(t, act.Run(nil))

	a.busy = false
	for i := 0; i < 5; i++ {
		assert.True(t, act.Run(nil), "still waiting on the second motor")
	}
	b.busy = false
	assert.True(t, act.Run(nil))
	assert.False(t, act.Run(nil))
}

func TestUntilPosition(t *testing.T) {
	m := &fakeMotor{busy: true}
	p := newLift(t, PositionerConfig{Name: "lift", Max: 10}, m)

	u := p.UntilPosition()
	assert.True(t, u.Run(nil))
	m.busy = false
	assert.False(t, u.Run(nil))
}

func TestLevels(t *testing.T) {
	m := &fakeMotor{}
	p := newLift(t, PositionerConfig{Name: "lift", Max: 4200}, m)

	assert.True(t, p.AddLevel(0))
	assert.True(t, p.AddLevel(1500))
	assert.False(t, p.AddLevel(1500), "duplicate level")
	assert.True(t, p.AddLevel(4200))
	assert.Equal(t, []int{0, 1500, 4200}, p.Levels())

	_, err := p.GoToLevel(3)
	assert.ErrorIs(t, err, ErrLevelOutOfRange)
	_, err = p.GoToLevelAndWait(-1)
	assert.ErrorIs(t, err, ErrLevelOutOfRange)
	assert.Panics(t, func() { p.MustGoToLevel(7) })
	assert.Panics(t, func() { p.MustGoToLevelAndWait(7) })

	a, err := p.GoToLevel(1)
	require.NoError(t, err)
	for a.Run(nil) {
	}
	assert.Equal(t, 1500, m.target)
}

func TestLevels_ReturnsCopy(t *testing.T) {
	l := NewLevels()
	l.Add(10)
	all := l.All()
	all[0] = 99
	got, err := l.At(0)
	require.NoError(t, err)
	assert.Equal(t, 10, got)
	assert.Equal(t, 1, l.Len())
}

func TestDualLift_EndToEnd(t *testing.T) {
	left := hardware.NewSimMotor("left", 0)
	right := hardware.NewSimMotor("right", 0)
	lift := newLift(t, PositionerConfig{Name: "lift", Min: 0, Max: 4200}, left, right)
	for _, lvl := range []int{0, 1500, 4200} {
		require.True(t, lift.AddLevel(lvl))
	}

	// The right motor jams; the axis still counts as arrived once the left
	// motor gets there.
	right.SetStalled(true)

	a, err := lift.GoToLevelAndWait(2)
	require.NoError(t, err)
	assert.Equal(t, 4200, lift.Target())
	assert.Equal(t, DefaultUpPower, lift.Power())

	pollSim(t, a, hardware.SimWorld{left, right}, 1000)

	assert.Equal(t, 4200, left.CurrentPosition())
	assert.Equal(t, 0, right.CurrentPosition())
	assert.Equal(t, 4200, right.TargetPosition())
	assert.Equal(t, 2100, lift.CurrentPosition())
	assert.False(t, lift.IsBusy())
}

func TestCommandTelemetry(t *testing.T) {
	m := &fakeMotor{busy: true, position: 7}
	p := newLift(t, PositionerConfig{Name: "lift", Max: 4200}, m)

	pkt := telemetry.NewPacket()
	a := p.GoToPositionAndWait(1500)
	for i := 0; i < 3; i++ {
		a.Run(pkt)
	}
	assert.Equal(t, []string{"lift target", "lift power", "lift position"}, pkt.Keys())
	v, _ := pkt.Get("lift position")
	assert.Equal(t, 7, v)
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "set_power", OpSetPower.String())
	assert.Equal(t, "await_settled", OpAwaitSettled.String())
	assert.Equal(t, "unknown", Op(99).String())
}
