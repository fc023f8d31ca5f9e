package motion

import (
	"github.com/cjeanneret/TurnGo/internal/debug"
	"github.com/cjeanneret/TurnGo/internal/hw/stepper"
)

// Axis wraps one geared stepper with a jog ("bump") direction sign.
// Bump moves are small relative jogs used from the serial console to
// line up a shot by hand; the sign flips with the direction command.
// Absolute/relative degree moves never look at the bump direction.
type Axis struct {
	stepper *stepper.GearedStepper
	name    string
	bumpDir int64 // +1 or -1
}

// NewAxis creates an axis around its stepper. The name ("pan", "tilt")
// only shows up in debug output.
func NewAxis(name string, s *stepper.GearedStepper) *Axis {
	return &Axis{
		stepper: s,
		name:    name,
		bumpDir: 1,
	}
}

// Stepper exposes the underlying driver.
func (a *Axis) Stepper() *stepper.GearedStepper {
	return a.stepper
}

// Name returns the axis name.
func (a *Axis) Name() string {
	return a.name
}

// StepBump jogs exactly one microstep in the current bump direction.
func (a *Axis) StepBump() {
	debug.Move(a.name, a.bumpDir)
	a.stepper.Move(a.bumpDir)
}

// RevolutionBump jogs one full output-shaft revolution in the current
// bump direction, whatever the gearing and microstep resolution.
func (a *Axis) RevolutionBump() {
	rev := a.bumpDir * a.stepper.MicrostepsPerOutputRev()
	debug.Move(a.name, rev)
	a.stepper.Move(rev)
}

// ToggleDirection flips the bump direction. Only later bump commands
// are affected; an in-flight move keeps its course.
func (a *Axis) ToggleDirection() {
	a.bumpDir = -a.bumpDir
	debug.Live("Axis %s: bump direction now %+d", a.name, a.bumpDir)
}

// BumpDirection returns the current bump sign (+1 or -1).
func (a *Axis) BumpDirection() int {
	return int(a.bumpDir)
}

// Stop decelerates this axis to a halt.
func (a *Axis) Stop() {
	debug.Live("Axis %s: stop", a.name)
	a.stepper.Stop()
}
