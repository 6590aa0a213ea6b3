//go:build !tinygo

// Command osdctl drives an OSD companion chip from a Linux host over SPI,
// I2C or a serial bridge. The positional arguments form a script:
//
//	osdctl -spi /dev/spidev0.0 reset cold clear write 0 "HELLO" enable watch
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"osdkit/hal"
	"osdkit/internal/buildinfo"
	"osdkit/osd"

	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

type options struct {
	spiPort    string
	spiFreq    int64
	i2cBus     string
	i2cAddr    uint
	serialDev  string
	serialBaud int
	hz         int
	debounce   int
	pins       string
	activeLow  bool
	rows       int
	cols       int
	debug      bool
	quiet      bool
}

// maxHz bounds the watch polling rate; faster polling only loads the bus.
const maxHz = 1000

func main() {
	var opts options
	flag.StringVar(&opts.spiPort, "spi", "", "SPI port name (periph registry, e.g. /dev/spidev0.0).")
	flag.Int64Var(&opts.spiFreq, "spi-hz", 2_000_000, "SPI clock in Hz.")
	flag.StringVar(&opts.i2cBus, "i2c", "", "I2C bus name (periph registry).")
	flag.UintVar(&opts.i2cAddr, "addr", 0x3D, "I2C device address.")
	flag.StringVar(&opts.serialDev, "serial", "", "Serial bridge device.")
	flag.IntVar(&opts.serialBaud, "baud", 115200, "Serial bridge baud rate.")
	flag.IntVar(&opts.hz, "hz", 50, "Control polling rate for watch (1..1000).")
	flag.IntVar(&opts.debounce, "debounce", osd.DefaultConfig().DebounceSamples, "Consecutive samples before a control changes.")
	flag.StringVar(&opts.pins, "pins", "", "Read controls from host GPIO: UP=name,DOWN=name,SELECT=name,MENU=name.")
	flag.BoolVar(&opts.activeLow, "active-low", false, "Control pins read low when pressed.")
	flag.IntVar(&opts.rows, "rows", 8, "Overlay rows.")
	flag.IntVar(&opts.cols, "cols", 32, "Overlay columns.")
	flag.BoolVar(&opts.debug, "debug", false, "Verbose logging.")
	flag.BoolVar(&opts.quiet, "quiet", false, "Only log errors.")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "osdctl %s\n\nusage: osdctl [flags] command...\n\n", buildinfo.Long())
		fmt.Fprintln(flag.CommandLine.Output(), "commands: reset cold|soft, write ROW TEXT, writei ROW TEXT, clear, enable, disable,")
		fmt.Fprintln(flag.CommandLine.Output(), "          filter LR HR, memcfg N, controls, watch")
		fmt.Fprintln(flag.CommandLine.Output())
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := createLogger(opts.debug, opts.quiet)

	cmds, err := parseScript(flag.Args())
	if err == nil {
		err = checkOptions(opts)
	}
	if err != nil {
		logger.Error("Invalid arguments", log.Err(err))
		flag.Usage()
		os.Exit(2)
	}

	if err := execute(app.Context(), logger, opts, cmds); err != nil {
		if errors.Is(err, osd.ErrHardwareFault) {
			logger.Error("Companion chip not responding", log.Err(err))
		} else {
			logger.Error("Script failed", log.Err(err))
		}
		os.Exit(1)
	}
}

func checkOptions(opts options) error {
	if opts.hz < 1 || opts.hz > maxHz {
		return fmt.Errorf("%w: -hz %d not in 1..%d", errUsage, opts.hz, maxHz)
	}
	if opts.debounce < 1 {
		return fmt.Errorf("%w: -debounce %d must be positive", errUsage, opts.debounce)
	}
	return nil
}

// execute owns every opened resource, so all of them are released before
// main decides the exit code.
func execute(ctx context.Context, logger *log.Logger, opts options, cmds []command) error {
	bus, closer, err := openBus(opts)
	if err != nil {
		return err
	}
	defer closer.Close()

	var src osd.Source
	if opts.pins != "" {
		ps, err := openPins(opts.pins, opts.activeLow)
		if err != nil {
			return err
		}
		src = ps
	}

	dev, err := osd.New(bus, src, osd.Config{
		Rows:            opts.rows,
		Cols:            opts.cols,
		DebounceSamples: opts.debounce,
		Logger:          lineLogger{logger},
	})
	if err != nil {
		return err
	}
	return newRunner(dev, logger, os.Stdout, opts.hz).run(ctx, cmds)
}

func createLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

// lineLogger feeds driver trace lines into the structured logger.
type lineLogger struct {
	l *log.Logger
}

func (w lineLogger) WriteLineString(s string) { w.l.Debug(s) }
func (w lineLogger) WriteLineBytes(b []byte)  { w.l.Debug(string(b)) }

func openBus(opts options) (hal.Bus, io.Closer, error) {
	n := 0
	for _, s := range []string{opts.spiPort, opts.i2cBus, opts.serialDev} {
		if s != "" {
			n++
		}
	}
	if n != 1 {
		return nil, nil, errors.New("exactly one of -spi, -i2c or -serial is required")
	}

	if opts.serialDev != "" {
		bus, c, err := hal.OpenSerial(opts.serialDev, opts.serialBaud, 500*time.Millisecond)
		if err != nil {
			return nil, nil, err
		}
		return bus, c, nil
	}

	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("periph init: %w", err)
	}

	if opts.i2cBus != "" {
		b, err := i2creg.Open(opts.i2cBus)
		if err != nil {
			return nil, nil, fmt.Errorf("open i2c %q: %w", opts.i2cBus, err)
		}
		d := &i2c.Dev{Bus: b, Addr: uint16(opts.i2cAddr)}
		return hal.NewConnBus(d), b, nil
	}

	p, err := spireg.Open(opts.spiPort)
	if err != nil {
		return nil, nil, fmt.Errorf("open spi %q: %w", opts.spiPort, err)
	}
	c, err := p.Connect(physic.Frequency(opts.spiFreq)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, nil, fmt.Errorf("connect spi %q: %w", opts.spiPort, err)
	}
	return hal.NewConnBus(c), p, nil
}

// openPins parses "UP=GPIO17,DOWN=GPIO27,..." into a pin control source.
func openPins(list string, activeLow bool) (*osd.PinSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph init: %w", err)
	}
	var pins []hal.GPIOPin
	for _, kv := range strings.Split(list, ",") {
		key, name, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("-pins: %q is not NAME=pin", kv)
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		switch key {
		case hal.PinUp, hal.PinDown, hal.PinSelect, hal.PinMenu:
		default:
			return nil, fmt.Errorf("-pins: unknown control %q", key)
		}
		p := gpioreg.ByName(strings.TrimSpace(name))
		if p == nil {
			return nil, fmt.Errorf("-pins: no gpio %q", name)
		}
		pins = append(pins, namedPin{GPIOPin: hal.NewPeriphPin(p), name: key})
	}
	return osd.NewPinSource(hal.NewGPIO(pins...), activeLow)
}

// namedPin files a host GPIO under its control name.
type namedPin struct {
	hal.GPIOPin
	name string
}

func (p namedPin) Name() string { return p.name }
