package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cjeanneret/TurnGo/internal/config"
	"github.com/cjeanneret/TurnGo/internal/debug"
	"github.com/cjeanneret/TurnGo/internal/hw/gpio"
	"github.com/cjeanneret/TurnGo/internal/hw/serialport"
	"github.com/cjeanneret/TurnGo/internal/hw/stepper"
	"github.com/cjeanneret/TurnGo/internal/logic/command"
	"github.com/cjeanneret/TurnGo/internal/logic/motion"
	"github.com/cjeanneret/TurnGo/internal/logic/runloop"
)

// fwVersion is reported by the V command.
const fwVersion = "1.0.1"

func main() {
	// CLI flags
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	console := flag.Bool("console", false, "talk the protocol on stdin/stdout instead of the serial port")
	portOverride := flag.String("port", "", "override serial device from config (e.g. /dev/ttyUSB1)")
	mock := flag.Bool("mock", false, "force the mock GPIO driver (development on PC)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)

	// Initialize GPIO driver
	useMock := cfg.Defaults.MockGPIO || *mock
	debug.Value("Mock GPIO", useMock)
	gpioDriver, err := gpio.NewDriver(useMock)
	if err != nil {
		log.Fatalf("init GPIO failed: %v", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()

	// Assemble the head: shared selector, two geared steppers, rig.
	rig := buildRig(gpioDriver, cfg)
	debug.Value("Pan gear ratio", cfg.PanStepper.GearRatio)
	debug.Value("Tilt gear ratio", cfg.TiltStepper.GearRatio)
	debug.Value("Microstep resolution", rig.MicrostepResolution())

	// Open the command link: real tty, or stdin/stdout in console mode.
	var link *serialport.Link
	if *console {
		debug.Info("Console mode: protocol on stdin/stdout")
		link = serialport.NewLink(struct {
			io.Reader
			io.Writer
		}{os.Stdin, os.Stdout})
	} else {
		portName := cfg.Serial.Port
		if *portOverride != "" {
			portName = *portOverride
		}
		port, err := serialport.Open(serialport.Config{Port: portName, Baud: cfg.Serial.Baud})
		if err != nil {
			log.Fatalf("open serial failed: %v", err)
		}
		defer func() {
			if err := port.Close(); err != nil {
				log.Printf("closing serial port failed: %v", err)
			}
		}()
		link = serialport.NewLink(port)
	}

	// Command summary on boot, like the firmware this replaces.
	for _, line := range banner(fwVersion) {
		if err := link.WriteLine(line); err != nil {
			log.Fatalf("write banner failed: %v", err)
		}
	}

	// Run the cooperative control loop until signalled or EOF.
	interp := command.New(rig, fwVersion)
	sched := runloop.New(rig, interp, link.Lines(), link, 0)
	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("control loop: %v", err)
	}
}

// buildRig wires the shared microstep selector and both geared
// steppers from configuration.
func buildRig(g gpio.Driver, cfg *config.Config) *motion.Rig {
	sel := stepper.NewSelector(g,
		cfg.Microstep.MS1Pin, cfg.Microstep.MS2Pin, cfg.Microstep.MS3Pin,
		cfg.Microstep.Resolution)

	pan := stepper.NewGearedStepper(g, sel, stepper.Config{
		StepPin:         cfg.PanStepper.StepPin,
		DirPin:          cfg.PanStepper.DirPin,
		EnablePin:       cfg.PanStepper.EnablePin,
		BaseStepsPerRev: int64(cfg.PanStepper.StepsPerRev),
		GearRatio:       cfg.PanStepper.GearRatio,
	})
	tilt := stepper.NewGearedStepper(g, sel, stepper.Config{
		StepPin:         cfg.TiltStepper.StepPin,
		DirPin:          cfg.TiltStepper.DirPin,
		EnablePin:       cfg.TiltStepper.EnablePin,
		BaseStepsPerRev: int64(cfg.TiltStepper.StepsPerRev),
		GearRatio:       cfg.TiltStepper.GearRatio,
	})

	return motion.NewRig(
		motion.NewAxis("pan", pan),
		motion.NewAxis("tilt", tilt),
		sel,
		cfg.Defaults.MaxSpeed,
		cfg.Defaults.Acceleration,
	)
}

// banner is the command summary printed on the link at boot.
func banner(version string) []string {
	return []string{
		"Dual-axis head - firmware " + version,
		"--------------------------------------------------",
		"  V                         : firmware version",
		"  M <pan> <tilt>            : move axes (deg), poll Q",
		"  Q                         : BUSY / DONE poll",
		"  1 2 4 8 6                 : set micro-step (6=16)",
		"  n c r x                   : step / rev / dir / stop pan",
		"  w p t z                   : step / rev / dir / stop tilt",
		"  X                         : stop both axes",
		"  + / -                     : faster / slower",
		"  d / e                     : disable / enable drivers",
		"--------------------------------------------------",
	}
}
