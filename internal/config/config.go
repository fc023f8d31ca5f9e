package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SerialConfig describes the serial device carrying the protocol.
type SerialConfig struct {
	Port string `yaml:"port"` // e.g. /dev/ttyUSB0
	Baud int    `yaml:"baud"` // default 9600
}

// StepperConfig holds the configuration for one geared stepper motor.
type StepperConfig struct {
	StepPin     int     `yaml:"step_pin"`
	DirPin      int     `yaml:"dir_pin"`
	EnablePin   int     `yaml:"enable_pin"`    // A4988 ENABLE pin (BCM). 0 = not used. Active LOW.
	StepsPerRev int     `yaml:"steps_per_rev"` // full steps per motor-shaft revolution
	GearRatio   float64 `yaml:"gear_ratio"`    // output-shaft rev per motor-shaft rev
}

// MicrostepConfig holds the shared A4988 selector lines.
type MicrostepConfig struct {
	MS1Pin     int `yaml:"ms1_pin"`
	MS2Pin     int `yaml:"ms2_pin"`
	MS3Pin     int `yaml:"ms3_pin"`
	Resolution int `yaml:"resolution"` // one of 1,2,4,8,16
}

// DefaultsConfig contains generic runtime parameters.
type DefaultsConfig struct {
	MaxSpeed     float64 `yaml:"max_speed"`    // pan microsteps/s; tilt derived from gearing
	Acceleration float64 `yaml:"acceleration"` // pan microsteps/s²
	DebugLevel   int     `yaml:"debug_level"`  // 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO     bool    `yaml:"mock_gpio"`    // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all head configuration.
type Config struct {
	Serial      SerialConfig    `yaml:"serial"`
	PanStepper  StepperConfig   `yaml:"pan_stepper"`
	TiltStepper StepperConfig   `yaml:"tilt_stepper"`
	Microstep   MicrostepConfig `yaml:"microstep"`
	Defaults    DefaultsConfig  `yaml:"defaults"`
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Basic validation
	if err := validateStepper("pan_stepper", cfg.PanStepper); err != nil {
		return nil, err
	}
	if err := validateStepper("tilt_stepper", cfg.TiltStepper); err != nil {
		return nil, err
	}
	if cfg.Microstep.MS1Pin <= 0 || cfg.Microstep.MS2Pin <= 0 || cfg.Microstep.MS3Pin <= 0 {
		return nil, fmt.Errorf("microstep: ms1_pin, ms2_pin and ms3_pin are required")
	}
	switch cfg.Microstep.Resolution {
	case 0:
		cfg.Microstep.Resolution = 16 // firmware default
	case 1, 2, 4, 8, 16:
	default:
		return nil, fmt.Errorf("microstep.resolution must be one of 1,2,4,8,16, got %d", cfg.Microstep.Resolution)
	}

	// Defaults matching the original head: 9600 baud, 150 µsteps/s, 80 µsteps/s².
	if cfg.Serial.Baud <= 0 {
		cfg.Serial.Baud = 9600
	}
	if cfg.Defaults.MaxSpeed <= 0 {
		cfg.Defaults.MaxSpeed = 150
	}
	if cfg.Defaults.Acceleration <= 0 {
		cfg.Defaults.Acceleration = 80
	}
	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}

	return &cfg, nil
}

func validateStepper(name string, s StepperConfig) error {
	if s.StepPin <= 0 {
		return fmt.Errorf("%s.step_pin is required", name)
	}
	if s.DirPin <= 0 {
		return fmt.Errorf("%s.dir_pin is required", name)
	}
	if s.StepsPerRev <= 0 {
		return fmt.Errorf("%s.steps_per_rev must be > 0, got %d", name, s.StepsPerRev)
	}
	if s.GearRatio <= 0 {
		return fmt.Errorf("%s.gear_ratio must be > 0, got %g", name, s.GearRatio)
	}
	return nil
}
