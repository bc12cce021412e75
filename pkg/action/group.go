package action

import "github.com/gwillem/actuate/pkg/telemetry"

// Sequential runs its children strictly in order. Each poll runs only the
// current child; the cursor moves on once that child reports done. The group
// reports done on the first poll after its last child finished.
type Sequential struct {
	actions []Action
	cursor  int
}

// NewSequential returns a group running actions one after another.
func NewSequential(actions ...Action) *Sequential {
	return &Sequential{actions: actions}
}

// Run implements Action.
func (s *Sequential) Run(p *telemetry.Packet) bool {
	if s.cursor >= len(s.actions) {
		return false
	}
	if !s.actions[s.cursor].Run(p) {
		s.cursor++
	}
	return true
}

// Len returns the number of children.
func (s *Sequential) Len() int { return len(s.actions) }

// Parallel runs every unfinished child on every poll. Finished children are
// not polled again. The group is done once all children are done.
type Parallel struct {
	actions []Action
	done    []bool
}

// NewParallel returns a group running actions side by side.
func NewParallel(actions ...Action) *Parallel {
	return &Parallel{
		actions: actions,
		done:    make([]bool, len(actions)),
	}
}

// Run implements Action.
func (g *Parallel) Run(p *telemetry.Packet) bool {
	running := false
	for i, a := range g.actions {
		if g.done[i] {
			continue
		}
		if a.Run(p) {
			running = true
		} else {
			g.done[i] = true
		}
	}
	return running
}

// Len returns the number of children.
func (g *Parallel) Len() int { return len(g.actions) }

// Race runs its children side by side and is done as soon as any one of them
// is done. The remaining children are abandoned, not cancelled: whatever they
// last wrote to hardware stays in effect.
type Race struct {
	actions []Action
	done    bool
}

// NewRace returns a group that finishes with its first finished child.
func NewRace(actions ...Action) *Race {
	return &Race{actions: actions}
}

// Run implements Action.
func (r *Race) Run(p *telemetry.Packet) bool {
	if r.done || len(r.actions) == 0 {
		return false
	}
	for _, a := range r.actions {
		if !a.Run(p) {
			r.done = true
		}
	}
	return !r.done
}
