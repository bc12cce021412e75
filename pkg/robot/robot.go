package robot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/actuate/pkg/control"
	"github.com/gwillem/actuate/pkg/effector"
	"github.com/gwillem/actuate/pkg/hardware"
	"github.com/gwillem/actuate/pkg/telemetry"
)

// ErrNotConfigured is returned when the config cannot describe a full robot.
var ErrNotConfigured = errors.New("robot is not configured")

// Robot is the assembled actuator subsystem.
type Robot struct {
	Lift   *control.Positioner
	Arm    *control.Linkage
	Wrist  *control.Rotary
	Claw   *effector.Claw
	Intake *effector.Roller

	motors      map[MotorName]hardware.Motor
	servos      map[MotorName]hardware.Servo
	world       hardware.SimWorld
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	calibration Calibration
	logger      *log.Logger
}

func isServo(name MotorName) bool { return name == Claw }

// Open creates the robot on the serial bus named in cfg.
func Open(cfg *Config, logger *log.Logger) (*Robot, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("%w: no serial port", ErrNotConfigured)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Open serial bus
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	r := newRobot(cfg, logger)
	r.bus = bus
	r.group = feetech.NewServoGroupByIDs(bus, cfg.Calibration.MotorIDs()...)

	for _, name := range AllMotors() {
		mc := cfg.Calibration[name]
		driver := hardware.NewFeetechDriver(bus, mc.ID)
		if isServo(name) {
			r.servos[name] = hardware.NewFeetechServo(string(name), driver, mc.RangeMin, mc.RangeMax)
			continue
		}
		r.motors[name] = hardware.NewFeetechMotor(driver, hardware.FeetechMotorConfig{
			Name:       string(name),
			Reversed:   mc.Reversed(),
			Zero:       mc.Zero(),
			Continuous: name == Wrist,
		})
	}

	if err := r.build(cfg); err != nil {
		bus.Close()
		return nil, err
	}
	r.logger.Info("robot ready", "port", cfg.Port, "motors", len(r.motors), "servos", len(r.servos))
	return r, nil
}

// NewSim creates the robot on simulated hardware. Call Step to advance it.
func NewSim(cfg *Config, logger *log.Logger) (*Robot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := newRobot(cfg, logger)
	for _, name := range AllMotors() {
		if isServo(name) {
			r.servos[name] = hardware.NewSimServo(string(name))
			continue
		}
		// Bus servos power up in position mode; the simulator follows suit.
		m := hardware.NewSimMotor(string(name), 0)
		m.RunToPosition()
		r.motors[name] = m
		r.world = append(r.world, m)
	}

	if err := r.build(cfg); err != nil {
		return nil, err
	}
	r.logger.Info("simulated robot ready", "motors", len(r.motors), "servos", len(r.servos))
	return r, nil
}

func newRobot(cfg *Config, logger *log.Logger) *Robot {
	if logger == nil {
		logger = log.Default().WithPrefix("robot")
	}
	return &Robot{
		motors:      make(map[MotorName]hardware.Motor),
		servos:      make(map[MotorName]hardware.Servo),
		calibration: cfg.Calibration,
		logger:      logger,
	}
}

func (r *Robot) build(cfg *Config) error {
	var err error

	r.Lift, err = control.NewPositioner(control.PositionerConfig{
		Name:              "lift",
		Max:               cfg.Calibration[LiftLeft].Span(),
		Tolerance:         cfg.Lift.Tolerance,
		UpPower:           cfg.Lift.UpPower,
		DownPower:         cfg.Lift.DownPower,
		RequireFullSettle: cfg.Lift.RequireFullSettle,
	}, r.motors[LiftLeft], r.motors[LiftRight])
	if err != nil {
		return fmt.Errorf("build lift: %w", err)
	}
	for _, lvl := range cfg.Lift.Levels {
		if !r.Lift.AddLevel(lvl) {
			r.logger.Warn("duplicate level ignored", "mechanism", "lift", "ticks", lvl)
		}
	}

	r.Arm, err = control.NewLinkage(control.LinkageConfig{
		PositionerConfig: control.PositionerConfig{
			Name:      "arm",
			Max:       cfg.Calibration[Arm].Span(),
			Tolerance: cfg.Arm.Tolerance,
		},
		GearRatio:  cfg.Arm.GearRatio,
		InchRadius: cfg.Arm.InchRadius,
	}, r.motors[Arm])
	if err != nil {
		return fmt.Errorf("build arm: %w", err)
	}
	for _, lvl := range cfg.Arm.Levels {
		if !r.Arm.AddLevel(lvl) {
			r.logger.Warn("duplicate level ignored", "mechanism", "arm", "ticks", lvl)
		}
	}

	r.Wrist, err = control.NewRotary(control.RotaryConfig{
		Name:       "wrist",
		GearRatio:  cfg.Wrist.GearRatio,
		InchRadius: cfg.Wrist.InchRadius,
		Power:      cfg.Wrist.Power,
	}, r.motors[Wrist])
	if err != nil {
		return fmt.Errorf("build wrist: %w", err)
	}
	for _, pos := range cfg.Wrist.Positions {
		if !r.Wrist.AddRotationPosition(pos) {
			r.logger.Warn("duplicate rotation position ignored", "mechanism", "wrist", "ticks", pos)
		}
	}

	r.Claw, err = effector.NewClaw(effector.ClawConfig{
		Name:      "claw",
		OpenPos:   cfg.Claw.Open,
		ClosedPos: cfg.Claw.Closed,
		StartOpen: cfg.Claw.StartOpen,
	}, r.servos[Claw])
	if err != nil {
		return fmt.Errorf("build claw: %w", err)
	}

	r.Intake = effector.NewRoller(effector.RollerConfig{Name: "intake", Speed: cfg.Intake.Speed}, r.motors[Intake])
	return nil
}

// Simulated reports whether the robot runs on simulated hardware.
func (r *Robot) Simulated() bool { return r.bus == nil }

// Calibration returns the calibration the robot was built from.
func (r *Robot) Calibration() Calibration { return r.calibration }

// Step advances simulated hardware by dt. It does nothing on a real bus.
func (r *Robot) Step(dt time.Duration) { r.world.Step(dt) }

// Motor returns the motor handle for name.
func (r *Robot) Motor(name MotorName) (hardware.Motor, bool) {
	m, ok := r.motors[name]
	return m, ok
}

// Close closes the robot's bus connection.
func (r *Robot) Close() error {
	if r.bus == nil {
		return nil
	}
	return r.bus.Close()
}

// Enable enables torque on all servos.
func (r *Robot) Enable(ctx context.Context) error {
	if r.group == nil {
		return nil
	}
	return r.group.EnableAll(ctx)
}

// Disable disables torque on all servos.
func (r *Robot) Disable(ctx context.Context) error {
	if r.group == nil {
		return nil
	}
	return r.group.DisableAll(ctx)
}

// Positions returns the position in ticks of every motor.
func (r *Robot) Positions() map[MotorName]int {
	positions := make(map[MotorName]int, len(r.motors))
	for name, m := range r.motors {
		positions[name] = m.CurrentPosition()
	}
	return positions
}

// Targets returns the commanded target in ticks of every motor.
func (r *Robot) Targets() map[MotorName]int {
	targets := make(map[MotorName]int, len(r.motors))
	for name, m := range r.motors {
		targets[name] = m.TargetPosition()
	}
	return targets
}

// ReadPositions reads current positions from all motors and servos.
// Returns normalized positions in the range [-100, 100].
func (r *Robot) ReadPositions(ctx context.Context) (map[MotorName]float64, error) {
	if r.group == nil {
		return r.simPositions(), nil
	}

	// Read raw positions using sync read
	rawPositions, err := r.group.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	positions := make(map[MotorName]float64, len(rawPositions))
	for id, raw := range rawPositions {
		name, cal, ok := r.calibration.ByID(id)
		if !ok {
			continue
		}
		positions[name] = cal.Normalize(raw)
	}
	return positions, nil
}

func (r *Robot) simPositions() map[MotorName]float64 {
	positions := make(map[MotorName]float64, len(r.motors)+len(r.servos))
	for name, m := range r.motors {
		cal := r.calibration[name]
		ticks := m.CurrentPosition()
		if cal.Reversed() {
			ticks = -ticks
		}
		positions[name] = cal.Normalize(cal.Zero() + ticks)
	}
	for name, s := range r.servos {
		positions[name] = s.Position()*200 - 100
	}
	return positions
}

type errorReporter interface {
	Err() error
}

// Report adds the latest bus error of every device to p.
func (r *Robot) Report(p *telemetry.Packet) {
	for _, name := range AllMotors() {
		var dev any = r.motors[name]
		if isServo(name) {
			dev = r.servos[name]
		}
		if er, ok := dev.(errorReporter); ok {
			if err := er.Err(); err != nil {
				p.Put(string(name)+" error", err.Error())
			}
		}
	}
}
