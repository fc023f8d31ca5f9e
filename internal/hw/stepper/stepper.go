package stepper

import (
	"math"
	"time"

	"github.com/cjeanneret/TurnGo/internal/debug"
	"github.com/cjeanneret/TurnGo/internal/hw/gpio"
)

// Config holds the hardware configuration for one geared stepper motor.
type Config struct {
	StepPin   int
	DirPin    int
	EnablePin int // A4988 ENABLE pin (BCM). 0 = not used. Active LOW (LOW=enabled).

	BaseStepsPerRev int64   // full steps per motor-shaft revolution
	GearRatio       float64 // output-shaft revolutions per motor-shaft revolution
}

// GearedStepper drives one axis through an A4988-style step/dir driver
// and understands the gearbox between the motor and the output shaft.
//
// Positions are signed motor microsteps. Pulses are generated under a
// trapezoidal velocity profile bounded by SetMaxSpeed/SetAcceleration;
// Run must be called repeatedly (every scheduler tick) and does a
// bounded, small amount of work per call, so motion never blocks the
// command loop. The ramp math follows David Austin's constant-time
// step interval generation, the same profile the classic AccelStepper
// firmware library uses.
type GearedStepper struct {
	gpio gpio.Driver
	cfg  Config
	sel  *Selector

	currentPos int64
	targetPos  int64

	maxSpeed     float64 // microsteps/s, pulse rate ceiling
	acceleration float64 // microsteps/s²
	speed        float64 // signed current speed, microsteps/s

	// Ramp state: n counts steps along the acceleration curve
	// (negative while decelerating), c0/cn/cmin are step intervals
	// in microseconds (initial, current, at max speed).
	n            int64
	c0           float64
	cn           float64
	cmin         float64
	stepInterval int64 // µs between pulses, 0 = not stepping

	forward    bool // current travel direction, true = positive
	dirLevel   gpio.Level
	dirWritten bool

	lastStepUs int64
	enabled    bool

	micros func() int64
}

// NewGearedStepper creates a stepper bound to the given GPIO driver and
// shared microstep selector. The driver starts disabled (ENABLE high);
// the first Enable re-homes position to zero.
func NewGearedStepper(g gpio.Driver, sel *Selector, cfg Config) *GearedStepper {
	_ = g.SetupPin(cfg.StepPin, gpio.Output)
	_ = g.SetupPin(cfg.DirPin, gpio.Output)

	s := &GearedStepper{
		gpio: g,
		cfg:  cfg,
		sel:  sel,
	}

	start := time.Now()
	s.micros = func() int64 { return time.Since(start).Microseconds() }

	if cfg.EnablePin > 0 {
		_ = g.SetupPin(cfg.EnablePin, gpio.Output)
		_ = g.WritePin(cfg.EnablePin, gpio.High) // A4988 active LOW: start disabled
	}

	s.SetMaxSpeed(1.0)
	s.SetAcceleration(1.0)
	return s
}

// SetClock replaces the microsecond time source. Tests inject a fake
// clock to drive the ramp deterministically.
func (s *GearedStepper) SetClock(micros func() int64) {
	s.micros = micros
}

// SetMaxSpeed sets the pulse rate ceiling in microsteps per second.
// Negative values are taken by magnitude; no further validation is
// done, supplying a sane value is the caller's responsibility.
func (s *GearedStepper) SetMaxSpeed(speed float64) {
	if speed < 0 {
		speed = -speed
	}
	if s.maxSpeed == speed {
		return
	}
	s.maxSpeed = speed
	if speed != 0 {
		s.cmin = 1000000.0 / speed
	}
	// Re-seat the ramp counter so an in-flight move adopts the new
	// ceiling without losing a pulse.
	if s.n != 0 {
		s.n = int64(s.speed * s.speed / (2.0 * s.acceleration))
		s.computeNewSpeed()
	}
}

// SetAcceleration sets the ramp slope in microsteps per second².
// Zero is ignored, negative values are taken by magnitude.
func (s *GearedStepper) SetAcceleration(acceleration float64) {
	if acceleration == 0 {
		return
	}
	if acceleration < 0 {
		acceleration = -acceleration
	}
	if s.acceleration == acceleration {
		return
	}
	// Rescale the ramp counter to the new slope, then recompute the
	// initial interval c0.
	if s.acceleration != 0 {
		s.n = int64(float64(s.n) * (s.acceleration / acceleration))
	}
	s.c0 = 0.676 * math.Sqrt(2.0/acceleration) * 1000000.0
	s.acceleration = acceleration
	s.computeNewSpeed()
}

// MoveTo sets a new absolute target position in motor microsteps.
// It only retargets: pulses are emitted by subsequent Run calls.
func (s *GearedStepper) MoveTo(absolute int64) {
	if s.targetPos != absolute {
		s.targetPos = absolute
		s.computeNewSpeed()
	}
}

// Move sets a new target relative to the current position.
func (s *GearedStepper) Move(relative int64) {
	s.MoveTo(s.currentPos + relative)
}

// Run advances the motor by at most one microstep if one is due under
// the trapezoidal profile. Call it on every scheduler tick; it never
// blocks and does O(1) work. Returns true while the motor still has
// distance to go (or is decelerating).
func (s *GearedStepper) Run() bool {
	if s.runSpeed() {
		s.computeNewSpeed()
	}
	return s.speed != 0 || s.DistanceToGo() != 0
}

// runSpeed emits one pulse when the current step interval has elapsed.
func (s *GearedStepper) runSpeed() bool {
	if s.stepInterval == 0 {
		return false
	}
	now := s.micros()
	if now-s.lastStepUs < s.stepInterval {
		return false
	}
	if s.forward {
		s.currentPos++
	} else {
		s.currentPos--
	}
	s.step()
	s.lastStepUs = now
	return true
}

// Stop decelerates to a halt: the target is pulled in to the position
// reachable from the current speed under the current acceleration.
// Position bookkeeping stays exact, no pulse is lost or double-counted.
func (s *GearedStepper) Stop() {
	if s.speed == 0 {
		return
	}
	stepsToStop := int64(s.speed*s.speed/(2.0*s.acceleration)) + 1
	if s.speed > 0 {
		s.Move(stepsToStop)
	} else {
		s.Move(-stepsToStop)
	}
}

// computeNewSpeed recomputes the next step interval after a pulse,
// a retarget or a profile change.
func (s *GearedStepper) computeNewSpeed() {
	distanceTo := s.DistanceToGo()
	stepsToStop := int64(s.speed * s.speed / (2.0 * s.acceleration))

	if distanceTo == 0 && stepsToStop <= 1 {
		// At target and essentially stopped.
		s.stepInterval = 0
		s.speed = 0
		s.n = 0
		return
	}

	if distanceTo > 0 {
		// Need to go forward from here, maybe decelerate first.
		if s.n > 0 {
			if stepsToStop >= distanceTo || !s.forward {
				s.n = -stepsToStop // start deceleration
			}
		} else if s.n < 0 {
			if stepsToStop < distanceTo && s.forward {
				s.n = -s.n // start acceleration again
			}
		}
	} else if distanceTo < 0 {
		if s.n > 0 {
			if stepsToStop >= -distanceTo || s.forward {
				s.n = -stepsToStop
			}
		} else if s.n < 0 {
			if stepsToStop < -distanceTo && !s.forward {
				s.n = -s.n
			}
		}
	}

	if s.n == 0 {
		// First step from stopped.
		s.cn = s.c0
		s.forward = distanceTo > 0
	} else {
		// Subsequent step (Austin equation 13).
		s.cn = s.cn - (2.0*s.cn)/(4.0*float64(s.n)+1.0)
		if s.cn < s.cmin {
			s.cn = s.cmin
		}
	}
	s.n++
	s.stepInterval = int64(s.cn)
	s.speed = 1000000.0 / s.cn
	if !s.forward {
		s.speed = -s.speed
	}
}

// step writes the DIR line (only on change) and pulses STEP once.
// The A4988 needs the STEP line high for ~1µs; the GPIO write latency
// alone covers that, so no explicit hold delay is inserted.
func (s *GearedStepper) step() {
	level := gpio.Low
	if s.forward {
		level = gpio.High
	}
	if !s.dirWritten || s.dirLevel != level {
		if err := s.gpio.WritePin(s.cfg.DirPin, level); err != nil {
			debug.Error(err)
			return
		}
		s.dirLevel = level
		s.dirWritten = true
	}
	if err := s.gpio.WritePin(s.cfg.StepPin, gpio.High); err != nil {
		debug.Error(err)
	}
	if err := s.gpio.WritePin(s.cfg.StepPin, gpio.Low); err != nil {
		debug.Error(err)
	}
}

// Enable powers the driver (A4988 ENABLE=LOW). Enabling from the
// disabled state re-homes: absolute position is meaningless after a
// disable (the shaft may have been moved by hand), so current and
// target positions reset to zero.
func (s *GearedStepper) Enable() error {
	if !s.enabled {
		s.SetCurrentPosition(0)
		s.enabled = true
	}
	if s.cfg.EnablePin <= 0 {
		return nil
	}
	return s.gpio.WritePin(s.cfg.EnablePin, gpio.Low)
}

// Disable cuts driver power (A4988 ENABLE=HIGH). The motor freewheels
// with no holding torque; position is no longer trustworthy.
func (s *GearedStepper) Disable() error {
	s.enabled = false
	if s.cfg.EnablePin <= 0 {
		return nil
	}
	return s.gpio.WritePin(s.cfg.EnablePin, gpio.High)
}

// Enabled reports whether the driver is powered.
func (s *GearedStepper) Enabled() bool {
	return s.enabled
}

// SetCurrentPosition re-homes: declares the current location to be the
// given position and stops any motion. Only sane to call while stopped.
func (s *GearedStepper) SetCurrentPosition(position int64) {
	s.currentPos = position
	s.targetPos = position
	s.n = 0
	s.stepInterval = 0
	s.speed = 0
}

// CurrentPosition returns the current position in motor microsteps.
func (s *GearedStepper) CurrentPosition() int64 {
	return s.currentPos
}

// TargetPosition returns the target position in motor microsteps.
func (s *GearedStepper) TargetPosition() int64 {
	return s.targetPos
}

// DistanceToGo returns the remaining distance to the target, signed.
func (s *GearedStepper) DistanceToGo() int64 {
	return s.targetPos - s.currentPos
}

// IsRunning reports whether the motor still has pulses to emit.
func (s *GearedStepper) IsRunning() bool {
	return s.speed != 0 || s.DistanceToGo() != 0
}

// MaxSpeed returns the configured speed ceiling in microsteps/s.
func (s *GearedStepper) MaxSpeed() float64 {
	return s.maxSpeed
}

// Acceleration returns the configured ramp slope in microsteps/s².
func (s *GearedStepper) Acceleration() float64 {
	return s.acceleration
}

// GearRatio returns output-shaft revolutions per motor-shaft revolution.
func (s *GearedStepper) GearRatio() float64 {
	return s.cfg.GearRatio
}

// BaseStepsPerRotation returns full steps per motor-shaft revolution.
func (s *GearedStepper) BaseStepsPerRotation() int64 {
	return s.cfg.BaseStepsPerRev
}

// OutputStepsPerRotation returns full steps per output-shaft revolution,
// derived fresh from the gearing (never stored).
func (s *GearedStepper) OutputStepsPerRotation() int64 {
	return int64(math.Round(float64(s.cfg.BaseStepsPerRev) * s.cfg.GearRatio))
}

// MicrostepResolution returns the resolution of the shared selector.
func (s *GearedStepper) MicrostepResolution() int {
	return s.sel.Resolution()
}

// MicrostepsPerOutputRev returns microsteps per full output-shaft
// revolution at the current resolution.
func (s *GearedStepper) MicrostepsPerOutputRev() int64 {
	return s.OutputStepsPerRotation() * int64(s.sel.Resolution())
}

// DegreesToMicrosteps converts output-shaft degrees to motor microsteps
// at the current microstep resolution. This is the single unit
// conversion point; rounding is to nearest (ties away from zero) so
// repeated converted moves do not accumulate drift.
func (s *GearedStepper) DegreesToMicrosteps(degrees float64) int64 {
	return int64(math.Round(degrees / 360.0 * float64(s.MicrostepsPerOutputRev())))
}
