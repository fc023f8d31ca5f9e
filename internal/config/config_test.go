package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
serial:
  port: /dev/ttyUSB0
  baud: 9600
pan_stepper:
  step_pin: 17
  dir_pin: 27
  enable_pin: 22
  steps_per_rev: 100
  gear_ratio: 11.335
tilt_stepper:
  step_pin: 23
  dir_pin: 24
  enable_pin: 22
  steps_per_rev: 100
  gear_ratio: 46.5
microstep:
  ms1_pin: 5
  ms2_pin: 6
  ms3_pin: 13
  resolution: 16
defaults:
  max_speed: 150.0
  acceleration: 80.0
  debug_level: 1
  mock_gpio: true
`

// writeConfig writes a temp YAML file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Serial.Port != "/dev/ttyUSB0" || cfg.Serial.Baud != 9600 {
		t.Errorf("serial = %+v", cfg.Serial)
	}
	if cfg.PanStepper.GearRatio != 11.335 {
		t.Errorf("pan gear ratio = %g, want 11.335", cfg.PanStepper.GearRatio)
	}
	if cfg.TiltStepper.GearRatio != 46.5 {
		t.Errorf("tilt gear ratio = %g, want 46.5", cfg.TiltStepper.GearRatio)
	}
	if cfg.Microstep.Resolution != 16 {
		t.Errorf("resolution = %d, want 16", cfg.Microstep.Resolution)
	}
	if !cfg.Defaults.MockGPIO {
		t.Error("mock_gpio should be true")
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	minimal := `
pan_stepper:
  step_pin: 17
  dir_pin: 27
  steps_per_rev: 100
  gear_ratio: 11.335
tilt_stepper:
  step_pin: 23
  dir_pin: 24
  steps_per_rev: 100
  gear_ratio: 46.5
microstep:
  ms1_pin: 5
  ms2_pin: 6
  ms3_pin: 13
`
	cfg, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Serial.Baud != 9600 {
		t.Errorf("default baud = %d, want 9600", cfg.Serial.Baud)
	}
	if cfg.Defaults.MaxSpeed != 150 {
		t.Errorf("default max_speed = %g, want 150", cfg.Defaults.MaxSpeed)
	}
	if cfg.Defaults.Acceleration != 80 {
		t.Errorf("default acceleration = %g, want 80", cfg.Defaults.Acceleration)
	}
	if cfg.Microstep.Resolution != 16 {
		t.Errorf("default resolution = %d, want 16", cfg.Microstep.Resolution)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		mangle  func(string) string
		wantErr string
	}{
		{
			"missing_pan_step_pin",
			func(s string) string { return strings.Replace(s, "step_pin: 17", "step_pin: 0", 1) },
			"pan_stepper.step_pin",
		},
		{
			"missing_tilt_dir_pin",
			func(s string) string { return strings.Replace(s, "dir_pin: 24", "dir_pin: 0", 1) },
			"tilt_stepper.dir_pin",
		},
		{
			"zero_steps_per_rev",
			func(s string) string { return strings.Replace(s, "steps_per_rev: 100", "steps_per_rev: 0", 1) },
			"steps_per_rev",
		},
		{
			"negative_gear_ratio",
			func(s string) string { return strings.Replace(s, "gear_ratio: 11.335", "gear_ratio: -2", 1) },
			"gear_ratio",
		},
		{
			"bad_resolution",
			func(s string) string { return strings.Replace(s, "resolution: 16", "resolution: 3", 1) },
			"resolution",
		},
		{
			"missing_ms_pin",
			func(s string) string { return strings.Replace(s, "ms2_pin: 6", "ms2_pin: 0", 1) },
			"microstep",
		},
		{
			"bad_debug_level",
			func(s string) string { return strings.Replace(s, "debug_level: 1", "debug_level: 9", 1) },
			"debug_level",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.mangle(validYAML)))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "pan_stepper: [not a map")); err == nil {
		t.Error("expected error for malformed yaml")
	}
}
