package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDegrees(t *testing.T) {
	tests := map[int]int{
		0:    0,
		359:  359,
		360:  0,
		370:  10,
		-10:  350,
		-360: 0,
		-725: 355,
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeDegrees(in), "in=%d", in)
	}
}

func TestClosestTarget(t *testing.T) {
	tests := []struct {
		name            string
		current, target int
		want            int
	}{
		{"across zero upward", 350, 10, 370},
		{"across zero downward", 10, 350, -10},
		{"same angle", 90, 90, 90},
		{"plain forward", 0, 90, 90},
		{"plain backward", 90, 0, 0},
		{"half turn goes clockwise", 0, 180, 180},
		{"unwrapped current", 730, 90, 810},
		{"negative current", -30, 300, -60},
		{"target outside range", 0, 450, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClosestTarget(tt.current, tt.target))
		})
	}
}

func TestClosestTarget_ShortestWay(t *testing.T) {
	for current := -720; current <= 720; current += 7 {
		for target := -360; target < 720; target += 11 {
			r := ClosestTarget(current, target)
			assert.Equal(t, NormalizeDegrees(target), NormalizeDegrees(r))
			d := r - current
			if d < 0 {
				d = -d
			}
			assert.LessOrEqual(t, d, 180, "current=%d target=%d", current, target)
		}
	}
}

func TestTickConversions(t *testing.T) {
	tpr := TicksPerRotation(90)
	assert.Equal(t, 2520, tpr)
	assert.Equal(t, 350, TicksToDegrees(2450, tpr))
	assert.Equal(t, 2590, DegreesToTicks(370, tpr))
	assert.Equal(t, -70, DegreesToTicks(-10, tpr))

	// Truncation toward zero on both sides.
	assert.Equal(t, 0, TicksToDegrees(6, tpr))
	assert.Equal(t, 1, TicksToDegrees(7, tpr))

	assert.InDelta(t, 2*3.14159265, ArcLength(tpr, tpr, 1), 1e-6)
	assert.Zero(t, TicksPerRotation(0.01))
}
