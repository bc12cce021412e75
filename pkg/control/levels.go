package control

import (
	"errors"
	"fmt"
)

// ErrLevelOutOfRange is returned when a level index does not exist.
var ErrLevelOutOfRange = errors.New("level index out of range")

// Levels is an append-only list of named setpoints in ticks. Index order is
// insertion order. Two entries never share the same key.
type Levels struct {
	ticks []int
	key   func(ticks int) int
}

// NewLevels returns a catalog that rejects exact tick duplicates.
func NewLevels() *Levels {
	return &Levels{key: func(t int) int { return t }}
}

// NewRotaryLevels returns a catalog that rejects entries pointing at the same
// normalized angle, so 0 and one full rotation count as the same level.
func NewRotaryLevels(ticksPerRotation int) *Levels {
	return &Levels{key: func(t int) int {
		return NormalizeDegrees(TicksToDegrees(t, ticksPerRotation))
	}}
}

// Add appends ticks. It reports false, leaving the catalog unchanged, if an
// equivalent entry already exists.
func (l *Levels) Add(ticks int) bool {
	k := l.key(ticks)
	for _, existing := range l.ticks {
		if l.key(existing) == k {
			return false
		}
	}
	l.ticks = append(l.ticks, ticks)
	return true
}

// At returns the level at index i.
func (l *Levels) At(i int) (int, error) {
	if i < 0 || i >= len(l.ticks) {
		return 0, fmt.Errorf("%w: index %d, have %d", ErrLevelOutOfRange, i, len(l.ticks))
	}
	return l.ticks[i], nil
}

// Len returns the number of levels.
func (l *Levels) Len() int { return len(l.ticks) }

// All returns a copy of the levels in index order.
func (l *Levels) All() []int {
	out := make([]int, len(l.ticks))
	copy(out, l.ticks)
	return out
}
