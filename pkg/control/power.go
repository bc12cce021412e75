package control

const (
	// DefaultUpPower is applied while the axis is below the tolerance band.
	DefaultUpPower = 0.9
	// DefaultDownPower is applied while the axis is above the tolerance band.
	DefaultDownPower = 0.5
	// DefaultTolerance is the arrival band half-width in ticks.
	DefaultTolerance = 5
)

// BangBang picks one of three fixed powers from the position error.
//
// Inside the open band (target-tolerance, target+tolerance) it returns the
// hold power (up+down)/2. Below target-tolerance it returns up, otherwise
// down; both band edges therefore get down power.
func BangBang(current, target, tolerance int, up, down float64) float64 {
	switch {
	case current > target-tolerance && current < target+tolerance:
		return (up + down) / 2
	case current < target-tolerance:
		return up
	default:
		return down
	}
}
