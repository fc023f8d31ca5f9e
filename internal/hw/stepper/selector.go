package stepper

import (
	"github.com/cjeanneret/TurnGo/internal/debug"
	"github.com/cjeanneret/TurnGo/internal/hw/gpio"
)

// Selector drives the three A4988 microstep selector lines (MS1-MS3).
// The lines are shared between both axis drivers, so there is exactly
// one Selector per head and both steppers hold a reference to it:
// changing the resolution changes it for both axes at once.
type Selector struct {
	gpio       gpio.Driver
	ms1        int
	ms2        int
	ms3        int
	resolution int
}

// msLine is one row of the A4988 microstep truth table.
type msLine struct {
	ms1, ms2, ms3 gpio.Level
}

var msTable = map[int]msLine{
	1:  {gpio.Low, gpio.Low, gpio.Low},
	2:  {gpio.High, gpio.Low, gpio.Low},
	4:  {gpio.Low, gpio.High, gpio.Low},
	8:  {gpio.High, gpio.High, gpio.Low},
	16: {gpio.High, gpio.High, gpio.High},
}

// NewSelector creates the shared microstep selector and programs the
// initial resolution (16 if the given value is not a legal setting).
func NewSelector(g gpio.Driver, ms1, ms2, ms3 int, resolution int) *Selector {
	_ = g.SetupPin(ms1, gpio.Output)
	_ = g.SetupPin(ms2, gpio.Output)
	_ = g.SetupPin(ms3, gpio.Output)

	s := &Selector{
		gpio: g,
		ms1:  ms1,
		ms2:  ms2,
		ms3:  ms3,
	}

	if _, ok := msTable[resolution]; !ok {
		resolution = 16
	}
	s.resolution = 0 // force the initial Set to program the pins
	s.Set(resolution)
	return s
}

// Set programs a new microstep resolution on the selector lines.
// Legal values are 1, 2, 4, 8 and 16; anything else is a silent no-op
// (pins and stored resolution stay as they were), matching the A4988's
// fixed enumeration of settings.
func (s *Selector) Set(resolution int) error {
	line, ok := msTable[resolution]
	if !ok {
		debug.Verbose("Selector: ignoring unsupported resolution %d", resolution)
		return nil
	}
	if err := s.gpio.WritePin(s.ms1, line.ms1); err != nil {
		return err
	}
	if err := s.gpio.WritePin(s.ms2, line.ms2); err != nil {
		return err
	}
	if err := s.gpio.WritePin(s.ms3, line.ms3); err != nil {
		return err
	}
	s.resolution = resolution
	debug.Info("Microstep resolution set to 1/%d", resolution)
	return nil
}

// Resolution returns the currently programmed microstep resolution.
func (s *Selector) Resolution() int {
	return s.resolution
}
