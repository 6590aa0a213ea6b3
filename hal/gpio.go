package hal

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// GPIOMode selects whether a pin is an input or output.
type GPIOMode uint8

const (
	GPIOModeInput GPIOMode = iota
	GPIOModeOutput
)

// GPIOPull selects the pull resistor configuration.
type GPIOPull uint8

const (
	GPIOPullNone GPIOPull = iota
	GPIOPullUp
	GPIOPullDown
)

// GPIOCaps declares what operations a pin supports.
type GPIOCaps uint8

const (
	GPIOCapInput GPIOCaps = 1 << iota
	GPIOCapOutput
	GPIOCapPullUp
	GPIOCapPullDown
)

// GPIO provides access to general-purpose IO pins.
type GPIO interface {
	PinCount() int
	Pin(id int) GPIOPin
	PinByName(name string) GPIOPin
}

// GPIOPin is a single digital IO pin.
type GPIOPin interface {
	Name() string
	Caps() GPIOCaps
	Configure(mode GPIOMode, pull GPIOPull) error
	Read() (level bool, err error)
	Write(level bool) error
}

type nullGPIO struct{}

func (nullGPIO) PinCount() int            { return 0 }
func (nullGPIO) Pin(id int) GPIOPin       { return nil }
func (nullGPIO) PinByName(string) GPIOPin { return nil }

type virtualGPIO struct {
	pins []GPIOPin
}

// NewGPIO groups pins into a GPIO bank. Nil pins are skipped.
func NewGPIO(pins ...GPIOPin) GPIO {
	var out []GPIOPin
	for _, p := range pins {
		if p != nil {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nullGPIO{}
	}
	return &virtualGPIO{pins: out}
}

func (g *virtualGPIO) PinCount() int {
	if g == nil {
		return 0
	}
	return len(g.pins)
}

func (g *virtualGPIO) Pin(id int) GPIOPin {
	if g == nil || id < 0 || id >= len(g.pins) {
		return nil
	}
	return g.pins[id]
}

func (g *virtualGPIO) PinByName(name string) GPIOPin {
	if g == nil {
		return nil
	}
	for _, p := range g.pins {
		if strings.EqualFold(p.Name(), name) {
			return p
		}
	}
	return nil
}

// VirtualPin is an in-memory pin. Its input level is driven from outside
// (host keyboard, tests) with Drive.
type VirtualPin struct {
	mu    sync.Mutex
	name  string
	caps  GPIOCaps
	mode  GPIOMode
	pull  GPIOPull
	level bool
	fail  error
}

// NewVirtualPin returns an input pin reading low until driven.
func NewVirtualPin(name string, caps GPIOCaps) *VirtualPin {
	return &VirtualPin{
		name: name,
		caps: caps,
		mode: GPIOModeInput,
		pull: GPIOPullNone,
	}
}

func (p *VirtualPin) Name() string   { return p.name }
func (p *VirtualPin) Caps() GPIOCaps { return p.caps }

func (p *VirtualPin) Configure(mode GPIOMode, pull GPIOPull) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch mode {
	case GPIOModeInput:
		if p.caps&GPIOCapInput == 0 {
			return fmt.Errorf("gpio: pin %s: input unsupported", p.name)
		}
	case GPIOModeOutput:
		if p.caps&GPIOCapOutput == 0 {
			return fmt.Errorf("gpio: pin %s: output unsupported", p.name)
		}
	default:
		return fmt.Errorf("gpio: pin %s: invalid mode", p.name)
	}

	switch pull {
	case GPIOPullNone:
	case GPIOPullUp:
		if p.caps&GPIOCapPullUp == 0 {
			return fmt.Errorf("gpio: pin %s: pull-up unsupported", p.name)
		}
	case GPIOPullDown:
		if p.caps&GPIOCapPullDown == 0 {
			return fmt.Errorf("gpio: pin %s: pull-down unsupported", p.name)
		}
	default:
		return fmt.Errorf("gpio: pin %s: invalid pull", p.name)
	}

	p.mode = mode
	p.pull = pull
	return nil
}

func (p *VirtualPin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return false, fmt.Errorf("gpio: pin %s: %w", p.name, p.fail)
	}
	return p.level, nil
}

func (p *VirtualPin) Write(level bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode != GPIOModeOutput {
		return fmt.Errorf("gpio: pin %s: not in output mode", p.name)
	}
	p.level = level
	return nil
}

// Drive sets the level seen by Read, as an external signal would.
func (p *VirtualPin) Drive(level bool) {
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
}

// Break makes Read fail with err until Break(nil).
func (p *VirtualPin) Break(err error) {
	p.mu.Lock()
	p.fail = err
	p.mu.Unlock()
}

// pulsePin is an input that reads high for the first `high` of every
// `period` on its clock, a button that presses itself.
type pulsePin struct {
	name   string
	clock  func() time.Duration
	period time.Duration
	high   time.Duration
}

// NewPulsePin returns a self-pressing input pin. clock reports elapsed
// time; the host simulator passes its step-paced clock so the press lands
// on the same step every run, TinyGo-on-host passes WallClock.
func NewPulsePin(name string, period, high time.Duration, clock func() time.Duration) GPIOPin {
	if strings.TrimSpace(name) == "" || clock == nil {
		return nil
	}
	if period <= 0 {
		period = time.Second
	}
	high = min(max(high, 0), period)
	return &pulsePin{name: name, clock: clock, period: period, high: high}
}

// WallClock returns a clock that counts real time from the call.
func WallClock() func() time.Duration {
	t0 := time.Now()
	return func() time.Duration { return time.Since(t0) }
}

func (p *pulsePin) Name() string   { return p.name }
func (p *pulsePin) Caps() GPIOCaps { return GPIOCapInput }

func (p *pulsePin) Configure(mode GPIOMode, pull GPIOPull) error {
	if mode != GPIOModeInput {
		return fmt.Errorf("gpio: pin %s: only input supported", p.name)
	}
	if pull != GPIOPullNone {
		return fmt.Errorf("gpio: pin %s: pull unsupported", p.name)
	}
	return nil
}

func (p *pulsePin) Read() (bool, error) {
	elapsed := p.clock()
	if elapsed < 0 {
		return false, nil
	}
	return elapsed%p.period < p.high, nil
}

func (p *pulsePin) Write(bool) error {
	return fmt.Errorf("gpio: pin %s: output unsupported", p.name)
}
