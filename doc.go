// Package actuate drives the lift, arm, wrist, claw and intake of a
// competition robot built from serial bus servos.
//
// Every mechanism command is a non-blocking action that a fixed-rate
// scheduler polls until it reports done. Actions compose into sequential,
// parallel and racing groups, so routines are plain values built ahead of time.
//
// # Installation
//
//	go install github.com/gwillem/actuate/cmd/actuate@latest
//
// # Usage
//
// First, run setup to find the servo bus and record mechanism ranges:
//
//	actuate setup
//
// Then run the scoring routine, or try it without hardware:
//
//	actuate run
//	actuate run --sim
//
// # Packages
//
//   - cmd/actuate: CLI with setup, run and levels commands
//   - cmd/actuator-info: bus scanner printing raw servo positions
//   - pkg/action: polled actions and their sequential and parallel groups
//   - pkg/control: position controllers, angle wraparound and setpoint levels
//   - pkg/effector: claw and intake roller
//   - pkg/hardware: motor and servo drivers, feetech and simulated
//   - pkg/mission: scoring routines
//   - pkg/robot: mechanism wiring, calibration and configuration
//   - pkg/scheduler: fixed-rate run loop
//   - pkg/telemetry: per-cycle key/value packets
package actuate
