// Package mission holds scripted actuator routines.
package mission

import (
	"fmt"
	"time"

	"github.com/gwillem/actuate/pkg/action"
	"github.com/gwillem/actuate/pkg/control"
	"github.com/gwillem/actuate/pkg/effector"
	"github.com/gwillem/actuate/pkg/robot"
)

// BasketConfig tunes the basket routine. Zero values take defaults.
type BasketConfig struct {
	// Samples is how many grab-and-score cycles to run.
	Samples int
	// ScoreLevel is the lift level of the basket; -1 selects the top level.
	ScoreLevel int
	// ArmLevel and WristPosition form the scoring pose.
	ArmLevel      int
	WristPosition int
	// Pause is how long the claw is given to close or open.
	Pause time.Duration
	// Now is the clock for pauses, time.Now if nil.
	Now func() time.Time
}

func (c *BasketConfig) setDefaults() {
	if c.Samples <= 0 {
		c.Samples = 3
	}
	if c.Pause <= 0 {
		c.Pause = 100 * time.Millisecond
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Init closes the claw around the preloaded sample and lowers the lift.
func Init(r *robot.Robot) (action.Action, error) {
	down, err := r.Lift.GoToLevel(0)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	return action.NewParallel(r.Claw.Close(), down), nil
}

// Basket returns the scoring routine: grab a sample while the intake spins,
// raise the lift into the scoring pose, drop, and return to the floor. Lift
// moves are built when they start so the power matches the real position.
func Basket(r *robot.Robot, cfg BasketConfig) (action.Action, error) {
	cfg.setDefaults()

	if cfg.ScoreLevel < 0 {
		cfg.ScoreLevel = len(r.Lift.Levels()) - 1
	}
	if err := checkIndex("lift level", cfg.ScoreLevel, len(r.Lift.Levels())); err != nil {
		return nil, err
	}
	if err := checkIndex("lift level", 0, len(r.Lift.Levels())); err != nil {
		return nil, err
	}
	if err := checkIndex("arm level", cfg.ArmLevel, len(r.Arm.Levels())); err != nil {
		return nil, err
	}
	if err := checkIndex("wrist position", cfg.WristPosition, len(r.Wrist.RotationPositions())); err != nil {
		return nil, err
	}

	var cycles []action.Action
	for i := 0; i < cfg.Samples; i++ {
		cycles = append(cycles, scoreCycle(r, cfg))
	}
	return action.NewSequential(cycles...), nil
}

func checkIndex(what string, i, n int) error {
	if i < 0 || i >= n {
		return fmt.Errorf("basket %s: %w: index %d, have %d", what, control.ErrLevelOutOfRange, i, n)
	}
	return nil
}

func scoreCycle(r *robot.Robot, cfg BasketConfig) action.Action {
	sleep := func() action.Action { return action.SleepWithClock(cfg.Pause, cfg.Now) }

	return action.NewSequential(
		// grab
		action.NewRace(r.Intake.Roll(effector.Forward), sleep()),
		r.Intake.Roll(effector.Disengage),
		action.Defer(r.Claw.Close),
		sleep(),

		// score
		action.NewParallel(
			liftTo(r, cfg.ScoreLevel),
			action.Defer(func() action.Action { return r.Arm.MustGoToLevelAndWait(cfg.ArmLevel) }),
			action.Defer(func() action.Action { return r.Wrist.MustGoToRotationPositionAndWait(cfg.WristPosition) }),
		),
		action.Defer(r.Claw.Open),
		sleep(),

		// return
		action.NewParallel(
			liftTo(r, 0),
			action.Defer(func() action.Action { return r.Arm.MustGoToLevelAndWait(0) }),
		),
	)
}

// liftTo starts a lift move to level and waits until the lift stops.
func liftTo(r *robot.Robot, level int) action.Action {
	return action.NewSequential(
		action.Defer(func() action.Action { return r.Lift.MustGoToLevel(level) }),
		r.Lift.UntilPosition(),
	)
}
