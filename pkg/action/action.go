// Package action provides polled units of work for a cooperative control loop.
//
// An Action is run once per control cycle. Run reports true while the action
// still has work to do and false once it is done; after that the caller stops
// running it. Nothing in this package blocks: waiting is expressed as an action
// that keeps reporting true.
package action

import (
	"time"

	"github.com/gwillem/actuate/pkg/telemetry"
)

// Action is a polled task.
type Action interface {
	// Run advances the action by one control cycle and reports whether it is
	// still running. p may be nil.
	Run(p *telemetry.Packet) bool
}

// Func adapts a function to the Action interface.
type Func func(p *telemetry.Packet) bool

// Run implements Action.
func (f Func) Run(p *telemetry.Packet) bool { return f(p) }

// Instant returns an action that calls f once and is done.
func Instant(f func()) Action {
	return Func(func(*telemetry.Packet) bool {
		f()
		return false
	})
}

// Until returns an action that keeps running until cond reports true.
// cond is evaluated on every poll, including the first.
func Until(cond func() bool) Action {
	return Func(func(*telemetry.Packet) bool {
		return !cond()
	})
}

// Defer returns an action that calls build on its first poll and then runs
// the action it returned. Controllers fix their parameters when an action is
// built, so Defer is how a script picks them from the state at run time.
func Defer(build func() Action) Action {
	return &deferred{build: build}
}

type deferred struct {
	build func() Action
	a     Action
}

func (d *deferred) Run(p *telemetry.Packet) bool {
	if d.a == nil {
		d.a = d.build()
	}
	return d.a.Run(p)
}

// Sleep returns an action that runs until d has elapsed since its first poll.
func Sleep(d time.Duration) Action {
	return SleepWithClock(d, time.Now)
}

// SleepWithClock is Sleep with an injectable clock.
func SleepWithClock(d time.Duration, now func() time.Time) Action {
	s := &sleep{d: d, now: now}
	return s
}

type sleep struct {
	d     time.Duration
	now   func() time.Time
	start time.Time
}

func (s *sleep) Run(*telemetry.Packet) bool {
	if s.start.IsZero() {
		s.start = s.now()
	}
	return s.now().Sub(s.start) < s.d
}
