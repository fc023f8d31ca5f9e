package motion

import (
	"github.com/cjeanneret/TurnGo/internal/debug"
	"github.com/cjeanneret/TurnGo/internal/hw/stepper"
)

// Rig owns the two axes of the pan/tilt head plus the microstep
// selector they share. It keeps a single independent speed parameter
// (pan's); tilt speed and acceleration are always derived as
// pan * (tiltGearRatio / panGearRatio), so proportional angular moves
// on the two axes finish in comparable wall-clock time.
type Rig struct {
	pan      *Axis
	tilt     *Axis
	selector *stepper.Selector

	speed        float64 // pan microsteps/s
	acceleration float64 // pan microsteps/s²
}

// NewRig assembles the head and programs the initial speed profile.
func NewRig(pan, tilt *Axis, sel *stepper.Selector, speed, acceleration float64) *Rig {
	r := &Rig{
		pan:      pan,
		tilt:     tilt,
		selector: sel,
	}
	r.SetSpeed(speed, acceleration)
	return r
}

// Pan returns the pan axis.
func (r *Rig) Pan() *Axis { return r.pan }

// Tilt returns the tilt axis.
func (r *Rig) Tilt() *Axis { return r.tilt }

// speedRatio is the factor turning pan pulse rates into tilt pulse
// rates so both axes cover proportional angles together.
func (r *Rig) speedRatio() float64 {
	return r.tilt.Stepper().GearRatio() / r.pan.Stepper().GearRatio()
}

// SetSpeed programs the pan speed profile and derives tilt's.
func (r *Rig) SetSpeed(speed, acceleration float64) {
	r.speed = speed
	r.acceleration = acceleration

	ratio := r.speedRatio()
	r.pan.Stepper().SetMaxSpeed(speed)
	r.pan.Stepper().SetAcceleration(acceleration)
	r.tilt.Stepper().SetMaxSpeed(speed * ratio)
	r.tilt.Stepper().SetAcceleration(acceleration * ratio)

	debug.Info("Speed profile: pan %.1f st/s %.1f st/s², tilt ratio %.3f", speed, acceleration, ratio)
}

// ScaleSpeed multiplies the current speed and acceleration by factor,
// preserving the pan:tilt ratio.
func (r *Rig) ScaleSpeed(factor float64) {
	r.SetSpeed(r.speed*factor, r.acceleration*factor)
}

// Speed returns the current pan speed ceiling in microsteps/s.
func (r *Rig) Speed() float64 { return r.speed }

// Acceleration returns the current pan acceleration in microsteps/s².
func (r *Rig) Acceleration() float64 { return r.acceleration }

// MoveDegrees powers both drivers and starts relative moves of the
// given output-shaft angles. Conversion to microsteps happens per axis
// at the current shared resolution. The call returns as soon as the
// targets are set; pulses flow from subsequent Tick calls.
func (r *Rig) MoveDegrees(panDeg, tiltDeg float64) error {
	if err := r.EnableAll(); err != nil {
		return err
	}
	panSteps := r.pan.Stepper().DegreesToMicrosteps(panDeg)
	tiltSteps := r.tilt.Stepper().DegreesToMicrosteps(tiltDeg)
	debug.Live("Move: pan %.2f° (%d µsteps), tilt %.2f° (%d µsteps)", panDeg, panSteps, tiltDeg, tiltSteps)
	r.pan.Stepper().Move(panSteps)
	r.tilt.Stepper().Move(tiltSteps)
	return nil
}

// Tick advances both axes by at most one microstep each. This is the
// only place pulses are emitted; the scheduler calls it on every
// iteration. Returns true while either axis still moves.
func (r *Rig) Tick() bool {
	panMoving := r.pan.Stepper().Run()
	tiltMoving := r.tilt.Stepper().Run()
	return panMoving || tiltMoving
}

// Busy reports whether either axis has distance left to cover.
func (r *Rig) Busy() bool {
	return r.pan.Stepper().DistanceToGo() != 0 || r.tilt.Stepper().DistanceToGo() != 0
}

// StopAll decelerates both axes.
func (r *Rig) StopAll() {
	r.pan.Stop()
	r.tilt.Stop()
}

// EnableAll powers both drivers. See stepper.Enable for the
// re-home-to-zero semantics of enabling from the disabled state.
func (r *Rig) EnableAll() error {
	if err := r.pan.Stepper().Enable(); err != nil {
		return err
	}
	return r.tilt.Stepper().Enable()
}

// DisableAll cuts power to both drivers (no holding torque).
func (r *Rig) DisableAll() error {
	if err := r.pan.Stepper().Disable(); err != nil {
		return err
	}
	return r.tilt.Stepper().Disable()
}

// SetMicrostep reprograms the shared selector lines. Both axes see the
// change at once, within a single tick. Unsupported values are a
// silent no-op at this level.
func (r *Rig) SetMicrostep(resolution int) error {
	return r.selector.Set(resolution)
}

// MicrostepResolution returns the shared resolution.
func (r *Rig) MicrostepResolution() int {
	return r.selector.Resolution()
}
