package robot

// MotorCalibration holds calibration data for a single motor.
//
// RangeMin and RangeMax are raw servo positions recorded at the mechanical
// limits. A DriveMode of 1 means the motor is mounted reversed, so its travel
// starts at RangeMax and counts down.
type MotorCalibration struct {
	ID           int `json:"id"`
	DriveMode    int `json:"drive_mode"`
	HomingOffset int `json:"homing_offset"`
	RangeMin     int `json:"range_min"`
	RangeMax     int `json:"range_max"`
}

// Calibration holds calibration data for all motors, keyed by motor name.
type Calibration map[MotorName]MotorCalibration

// Reversed reports whether controller ticks run opposite to raw positions.
func (c MotorCalibration) Reversed() bool { return c.DriveMode == 1 }

// Zero returns the raw position that reads as tick 0.
func (c MotorCalibration) Zero() int {
	if c.Reversed() {
		return c.RangeMax + c.HomingOffset
	}
	return c.RangeMin + c.HomingOffset
}

// Span returns the calibrated travel in ticks.
func (c MotorCalibration) Span() int {
	return c.RangeMax - c.RangeMin
}

// Normalize converts a raw servo position to a normalized value in the range [-100, 100].
func (c MotorCalibration) Normalize(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	return (float64(raw-c.RangeMin)/rangeSize)*200 - 100
}

// MotorIDs returns the servo IDs for all motors in the calibration.
func (c Calibration) MotorIDs() []int {
	ids := make([]int, 0, len(c))
	// Use AllMotors() to ensure consistent ordering
	for _, name := range AllMotors() {
		if mc, ok := c[name]; ok {
			ids = append(ids, mc.ID)
		}
	}
	return ids
}

// ByID returns motor name and calibration for a given servo ID.
func (c Calibration) ByID(id int) (MotorName, MotorCalibration, bool) {
	for name, mc := range c {
		if mc.ID == id {
			return name, mc, true
		}
	}
	return "", MotorCalibration{}, false
}

// Missing returns the motors in AllMotors that have no calibration.
func (c Calibration) Missing() []MotorName {
	var missing []MotorName
	for _, name := range AllMotors() {
		if _, ok := c[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
