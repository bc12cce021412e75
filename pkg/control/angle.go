package control

import "math"

// TicksPerMotorRevolution is the encoder resolution of the bare motor.
const TicksPerMotorRevolution = 28

// TicksPerRotation returns the output-shaft ticks per revolution for a gear ratio.
func TicksPerRotation(gearRatio float64) int {
	return int(gearRatio * TicksPerMotorRevolution)
}

// NormalizeDegrees maps any angle into [0, 360).
func NormalizeDegrees(degrees int) int {
	degrees %= 360
	if degrees < 0 {
		degrees += 360
	}
	return degrees
}

// ClosestTarget returns the angle equivalent to target that is nearest to
// current, expressed on current's unwrapped scale. The result r satisfies
// NormalizeDegrees(r) == NormalizeDegrees(target) and |r-current| <= 180.
// An exact half turn resolves clockwise (increasing angle).
//
//	ClosestTarget(350, 10)  == 370
//	ClosestTarget(10, 350)  == -10
//	ClosestTarget(730, 90)  == 810
func ClosestTarget(current, target int) int {
	clockwise := NormalizeDegrees(target - current)
	counterClockwise := NormalizeDegrees(current - target)
	if clockwise <= counterClockwise {
		return current + clockwise
	}
	return current - counterClockwise
}

// TicksToDegrees converts encoder ticks to whole degrees, truncating.
func TicksToDegrees(ticks, ticksPerRotation int) int {
	return ticks * 360 / ticksPerRotation
}

// DegreesToTicks converts degrees to encoder ticks, truncating.
func DegreesToTicks(degrees, ticksPerRotation int) int {
	return ticksPerRotation * degrees / 360
}

// ArcLength returns the distance travelled by a point at radius when the
// shaft turns by ticks.
func ArcLength(ticks, ticksPerRotation int, radius float64) float64 {
	return 2 * math.Pi * radius * float64(ticks) / float64(ticksPerRotation)
}
