// Package robot assembles the actuator subsystem of the robot from a config
// file, either on a Feetech serial bus or in simulation.
package robot

// MotorName identifies a motor or servo on the bus.
type MotorName string

// Motor names for the scoring subsystem.
const (
	LiftLeft  MotorName = "lift_left"
	LiftRight MotorName = "lift_right"
	Arm       MotorName = "arm"
	Wrist     MotorName = "wrist"
	Claw      MotorName = "claw"
	Intake    MotorName = "intake"
)

// AllMotors returns all motor names in order (matching servo IDs 1-6).
func AllMotors() []MotorName {
	return []MotorName{
		LiftLeft,
		LiftRight,
		Arm,
		Wrist,
		Claw,
		Intake,
	}
}
