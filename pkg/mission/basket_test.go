package mission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/actuate/pkg/control"
	"github.com/gwillem/actuate/pkg/robot"
	"github.com/gwillem/actuate/pkg/telemetry"
)

const dt = 20 * time.Millisecond

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newRobot(t *testing.T) *robot.Robot {
	t.Helper()
	r, err := robot.NewSim(robot.DefaultConfig(), nil)
	require.NoError(t, err)
	return r
}

func TestInit(t *testing.T) {
	r := newRobot(t)
	a, err := Init(r)
	require.NoError(t, err)

	for polls := 0; a.Run(nil); polls++ {
		r.Step(dt)
		require.Less(t, polls, 100)
	}
	assert.False(t, r.Claw.IsOpen())
	assert.Equal(t, 0, r.Lift.Target())
}

func TestBasket_Sim(t *testing.T) {
	r := newRobot(t)
	clock := &fakeClock{t: time.Unix(0, 0)}

	a, err := Basket(r, BasketConfig{Samples: 2, ScoreLevel: -1, ArmLevel: 2, WristPosition: 1, Now: clock.Now})
	require.NoError(t, err)

	p := telemetry.NewPacket()
	var (
		peak    int
		drops   int
		opened  bool
		rolling bool
	)
	for polls := 0; ; polls++ {
		p.Reset()
		running := a.Run(p)
		r.Step(dt)
		clock.t = clock.t.Add(dt)

		if pos := r.Lift.CurrentPosition(); pos > peak {
			peak = pos
		}
		if v, ok := p.Get("claw"); ok {
			if v == "open" && !opened {
				drops++
				assert.InDelta(t, 4200, r.Lift.CurrentPosition(), 5, "drop happens at the basket")
			}
			opened = v == "open"
		}
		if v, ok := p.Get("intake direction"); ok && v == "forward" {
			rolling = true
		}

		if !running {
			break
		}
		require.Less(t, polls, 5000, "routine did not finish")
	}

	assert.Equal(t, 2, drops)
	assert.True(t, rolling)
	assert.InDelta(t, 4200, peak, 5)
	assert.InDelta(t, 0, r.Lift.CurrentPosition(), 5, "lift ends on the floor")
	assert.InDelta(t, 0, r.Arm.CurrentPosition(), 5)
	assert.Equal(t, 70, r.Wrist.Target())
	assert.True(t, r.Claw.IsOpen())
}

func TestBasket_BadIndex(t *testing.T) {
	r := newRobot(t)

	_, err := Basket(r, BasketConfig{ScoreLevel: 3})
	assert.ErrorIs(t, err, control.ErrLevelOutOfRange)

	_, err = Basket(r, BasketConfig{ArmLevel: 5})
	assert.ErrorIs(t, err, control.ErrLevelOutOfRange)

	_, err = Basket(r, BasketConfig{WristPosition: -1})
	assert.ErrorIs(t, err, control.ErrLevelOutOfRange)
}
