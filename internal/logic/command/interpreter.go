// Package command implements the single-line serial protocol of the
// pan/tilt head. One terminated line in, one response line out; no
// command spans multiple scheduler ticks. Move commands only start
// motion (they acknowledge immediately), the Q poll reports whether
// motion has finished.
package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cjeanneret/TurnGo/internal/debug"
	"github.com/cjeanneret/TurnGo/internal/logic/motion"
)

// Response vocabulary.
const (
	respBusy       = "BUSY"
	respDone       = "DONE"
	respOKMove     = "OK M"
	respOKStop     = "OK STOP"
	respOKSpeed    = "OK SPEED"
	respOKOff      = "OK DRIVERS OFF"
	respOKOn       = "OK DRIVERS ON"
	respErrSyntax  = "ERR Syntax"
	respErrUnknown = "ERR Unknown"
)

// Interpreter parses one command line at a time and applies it to the
// rig. It holds no state of its own beyond the rig reference and the
// firmware version string.
type Interpreter struct {
	rig     *motion.Rig
	version string
}

// New creates an interpreter bound to a rig.
func New(rig *motion.Rig, version string) *Interpreter {
	return &Interpreter{
		rig:     rig,
		version: version,
	}
}

// Execute parses and dispatches one command line and returns exactly
// one response line. Opcodes are case-insensitive with one documented
// exception: uppercase X stops both axes, lowercase x stops pan alone.
func (i *Interpreter) Execute(line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}

	op := line[0]

	// Global stop, checked before case folding.
	if op == 'X' {
		i.rig.StopAll()
		return respOKStop
	}
	if op >= 'A' && op <= 'Z' {
		op += 'a' - 'A'
	}

	switch op {
	case 'v':
		return "VERSION " + i.version

	case 'm':
		return i.move(line[1:])

	case 'q':
		if i.rig.Busy() {
			return respBusy
		}
		// Motion finished: drop holding torque until the next move.
		if err := i.rig.DisableAll(); err != nil {
			debug.Error(err)
		}
		return respDone

	case '1', '2', '4', '8', '6':
		res := int(op - '0')
		if op == '6' {
			res = 16
		}
		if err := i.rig.SetMicrostep(res); err != nil {
			debug.Error(err)
		}
		return fmt.Sprintf("OK MICROSTEP %d", res)

	case 'n':
		i.rig.Pan().StepBump()
		return "OK ROT STEP"
	case 'c':
		i.rig.Pan().RevolutionBump()
		return "OK ROT REV"
	case 'r':
		i.rig.Pan().ToggleDirection()
		return "OK ROT DIR"
	case 'x':
		i.rig.Pan().Stop()
		return "OK ROT STOP"

	case 'w':
		i.rig.Tilt().StepBump()
		return "OK TILT STEP"
	case 'p':
		i.rig.Tilt().RevolutionBump()
		return "OK TILT REV"
	case 't':
		i.rig.Tilt().ToggleDirection()
		return "OK TILT DIR"
	case 'z':
		i.rig.Tilt().Stop()
		return "OK TILT STOP"

	case '+':
		i.rig.ScaleSpeed(1.10)
		return respOKSpeed
	case '-':
		i.rig.ScaleSpeed(0.90)
		return respOKSpeed

	case 'd':
		if err := i.rig.DisableAll(); err != nil {
			debug.Error(err)
		}
		return respOKOff
	case 'e':
		if err := i.rig.EnableAll(); err != nil {
			debug.Error(err)
		}
		return respOKOn
	}

	return respErrUnknown
}

// move parses "M <pan_deg> <tilt_deg>" arguments and starts the move.
// Malformed arguments leave all motion state untouched.
func (i *Interpreter) move(args string) string {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return respErrSyntax
	}
	panDeg, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return respErrSyntax
	}
	tiltDeg, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return respErrSyntax
	}
	if err := i.rig.MoveDegrees(panDeg, tiltDeg); err != nil {
		debug.Error(err)
	}
	return respOKMove
}
