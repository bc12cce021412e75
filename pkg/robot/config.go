package robot

import (
	"encoding/json"
	"fmt"
	"os"
)

const DefaultConfigFile = "actuate.json"

// Config holds the robot configuration
type Config struct {
	Port        string      `json:"port"`
	Calibration Calibration `json:"calibration,omitempty"`

	Lift   LiftConfig   `json:"lift"`
	Arm    ArmConfig    `json:"arm"`
	Wrist  WristConfig  `json:"wrist"`
	Claw   ClawConfig   `json:"claw"`
	Intake IntakeConfig `json:"intake"`
}

// LiftConfig holds the dual-motor lift settings. Bounds come from the
// calibrated range of the left motor.
type LiftConfig struct {
	Tolerance         int     `json:"tolerance,omitempty"`
	UpPower           float64 `json:"up_power,omitempty"`
	DownPower         float64 `json:"down_power,omitempty"`
	RequireFullSettle bool    `json:"require_full_settle,omitempty"`
	Levels            []int   `json:"levels,omitempty"`
}

// ArmConfig holds the bounded linkage settings.
type ArmConfig struct {
	GearRatio  float64 `json:"gear_ratio"`
	InchRadius float64 `json:"inch_radius,omitempty"`
	Tolerance  int     `json:"tolerance,omitempty"`
	Levels     []int   `json:"levels,omitempty"`
}

// WristConfig holds the continuously rotating linkage settings.
type WristConfig struct {
	GearRatio  float64 `json:"gear_ratio"`
	InchRadius float64 `json:"inch_radius,omitempty"`
	Power      float64 `json:"power,omitempty"`
	Positions  []int   `json:"positions,omitempty"`
}

// ClawConfig holds the servo positions of the claw, in [0, 1].
type ClawConfig struct {
	Open      float64 `json:"open"`
	Closed    float64 `json:"closed"`
	StartOpen bool    `json:"start_open,omitempty"`
}

// IntakeConfig holds the roller power.
type IntakeConfig struct {
	Speed float64 `json:"speed"`
}

// DefaultConfig returns a configuration that runs in simulation out of the box.
func DefaultConfig() *Config {
	return &Config{
		Calibration: Calibration{
			LiftLeft:  MotorCalibration{ID: 1, RangeMin: 0, RangeMax: 4200},
			LiftRight: MotorCalibration{ID: 2, DriveMode: 1, RangeMin: 0, RangeMax: 4200},
			Arm:       MotorCalibration{ID: 3, RangeMin: 0, RangeMax: 1400},
			Wrist:     MotorCalibration{ID: 4, RangeMin: 0, RangeMax: 4095},
			Claw:      MotorCalibration{ID: 5, RangeMin: 1000, RangeMax: 3000},
			Intake:    MotorCalibration{ID: 6, RangeMin: 0, RangeMax: 4095},
		},
		Lift:   LiftConfig{Levels: []int{0, 1500, 4200}},
		Arm:    ArmConfig{GearRatio: 20, InchRadius: 1, Levels: []int{0, 280, 560}},
		Wrist:  WristConfig{GearRatio: 10, Positions: []int{0, 70, 140}},
		Claw:   ClawConfig{Open: 0, Closed: 1},
		Intake: IntakeConfig{Speed: 0.8},
	}
}

// IsCalibrated returns true if every motor has calibration data
func (c *Config) IsCalibrated() bool {
	return len(c.Calibration.Missing()) == 0
}

// Validate checks that the config can build a robot.
func (c *Config) Validate() error {
	if missing := c.Calibration.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: no calibration for %v", ErrNotConfigured, missing)
	}
	seen := make(map[int]MotorName)
	for _, name := range AllMotors() {
		id := c.Calibration[name].ID
		if other, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s and %s share servo id %d", ErrNotConfigured, other, name, id)
		}
		seen[id] = name
	}
	return nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	return ConfigExistsAt(DefaultConfigFile)
}

// ConfigExistsAt returns true if path exists
func ConfigExistsAt(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
