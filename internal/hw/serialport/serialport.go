package serialport

import (
	"bufio"
	"fmt"
	"io"

	"github.com/cjeanneret/TurnGo/internal/debug"
	"github.com/tarm/serial"
)

// Config describes the serial device carrying the command protocol.
type Config struct {
	Port string // e.g. /dev/ttyUSB0
	Baud int    // e.g. 9600
}

// Port wraps the opened tty so callers only see an io.ReadWriteCloser.
type Port struct {
	*serial.Port
	name string
}

// Open opens the serial device. Baud and framing are deployment
// configuration; the protocol itself only assumes newline-terminated
// ASCII lines.
func Open(cfg Config) (*Port, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("serial port path is required")
	}
	baud := cfg.Baud
	if baud <= 0 {
		baud = 9600
	}

	p, err := serial.OpenPort(&serial.Config{
		Name: cfg.Port,
		Baud: baud,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}

	debug.Info("Serial port %s open at %d baud", cfg.Port, baud)
	return &Port{Port: p, name: cfg.Port}, nil
}

// Name returns the device path the port was opened with.
func (p *Port) Name() string {
	return p.name
}

// Link frames a byte stream into newline-terminated command lines and
// carries response lines back. It works over any io.ReadWriter: the
// real serial port, stdin/stdout in console mode, or a pipe in tests.
type Link struct {
	rw    io.ReadWriter
	lines chan string
}

// NewLink starts a reader goroutine that feeds complete lines (without
// their terminator, CR stripped) to the Lines channel. The channel is
// closed when the stream ends or fails.
func NewLink(rw io.ReadWriter) *Link {
	l := &Link{
		rw:    rw,
		lines: make(chan string, 8),
	}
	go l.readLoop()
	return l
}

func (l *Link) readLoop() {
	defer close(l.lines)

	scanner := bufio.NewScanner(l.rw)
	for scanner.Scan() {
		line := scanner.Text()
		debug.Trace("Serial RX: %q", line)
		l.lines <- line
	}
	if err := scanner.Err(); err != nil {
		debug.Error(fmt.Errorf("serial read: %w", err))
	}
}

// Lines returns the channel of complete received command lines.
func (l *Link) Lines() <-chan string {
	return l.lines
}

// WriteLine sends one response line, newline-terminated.
func (l *Link) WriteLine(line string) error {
	debug.Trace("Serial TX: %q", line)
	if _, err := fmt.Fprintf(l.rw, "%s\n", line); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}
