// Package runloop drives the cooperative control loop of the head:
// every iteration advances pending step pulses on both axes, then
// handles at most one newly arrived command line. Pulse generation is
// never allowed to stall on serial I/O, and command dispatch never
// blocks pulse generation for more than one tick.
package runloop

import (
	"context"
	"strings"
	"time"

	"github.com/cjeanneret/TurnGo/internal/debug"
	"github.com/cjeanneret/TurnGo/internal/logic/command"
	"github.com/cjeanneret/TurnGo/internal/logic/motion"
)

// LineWriter is where response lines go (the serial link).
type LineWriter interface {
	WriteLine(line string) error
}

// Scheduler owns the tick loop. All motion state is touched only from
// the goroutine running Run, so the model stays single-threaded and
// cooperative; the serial reader goroutine merely frames bytes into
// the lines channel.
type Scheduler struct {
	rig    *motion.Rig
	interp *command.Interpreter
	lines  <-chan string
	out    LineWriter
	idle   time.Duration
}

// DefaultIdle is how long the loop parks between ticks while no axis
// is moving. While a move is in flight the loop ticks hot, because
// step intervals are measured in microseconds.
const DefaultIdle = time.Millisecond

// New creates a scheduler. idle <= 0 selects DefaultIdle.
func New(rig *motion.Rig, interp *command.Interpreter, lines <-chan string, out LineWriter, idle time.Duration) *Scheduler {
	if idle <= 0 {
		idle = DefaultIdle
	}
	return &Scheduler{
		rig:    rig,
		interp: interp,
		lines:  lines,
		out:    out,
		idle:   idle,
	}
}

// Run executes the loop until the context ends or the line channel
// closes (serial EOF). It always returns after disabling the drivers.
func (s *Scheduler) Run(ctx context.Context) error {
	defer func() {
		if err := s.rig.DisableAll(); err != nil {
			debug.Error(err)
		}
	}()

	for {
		moving := s.rig.Tick()

		if moving {
			// Hot path: poll without blocking so pulses keep flowing.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case line, ok := <-s.lines:
				if !ok {
					return nil
				}
				s.dispatch(line)
			default:
			}
			continue
		}

		// Idle: nothing to step, park until a line arrives or the
		// idle period elapses (a fresh Tick costs nothing).
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-s.lines:
			if !ok {
				return nil
			}
			s.dispatch(line)
		case <-time.After(s.idle):
		}
	}
}

// dispatch handles exactly one command line and writes its single
// response. Blank lines are discarded without a response.
func (s *Scheduler) dispatch(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	resp := s.interp.Execute(line)
	debug.Command(line, resp)
	if resp == "" {
		return
	}
	if err := s.out.WriteLine(resp); err != nil {
		debug.Error(err)
	}
}
