//go:build !tinygo

package hal

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"osdkit/companion"
)

// ButtonsActiveLow reports that the board buttons pull their line to ground.
const ButtonsActiveLow = false

// HostConfig sizes the simulated companion chip and preview.
type HostConfig struct {
	Rows int
	Cols int
	// Hz is the step rate the runner calls the app at; simulated time
	// advances 1000/Hz ms per step. Zero means 60.
	Hz int

	// AutoMenu replaces the MENU button with a pin that pulses every two
	// seconds, for runs without a keyboard.
	AutoMenu bool
}

type hostHAL struct {
	logger *hostLogger
	led    *hostLED
	gpio   GPIO
	keys   hostKeys
	chip   *companion.Chip
	fb     *hostFramebuffer
	clock  *hostClock
}

type hostKeys struct {
	up, down, sel, menu *VirtualPin
}

// New returns a host HAL with default geometry.
func New() HAL { return newHost(HostConfig{}) }

func newHost(cfg HostConfig) *hostHAL {
	if cfg.Rows <= 0 {
		cfg.Rows = 8
	}
	if cfg.Cols <= 0 {
		cfg.Cols = 32
	}
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	clock := newHostClock(cfg.Hz)
	logger := &hostLogger{w: os.Stdout}
	caps := GPIOCapInput | GPIOCapPullUp | GPIOCapPullDown
	keys := hostKeys{
		up:   NewVirtualPin(PinUp, caps),
		down: NewVirtualPin(PinDown, caps),
		sel:  NewVirtualPin(PinSelect, caps),
		menu: NewVirtualPin(PinMenu, caps),
	}
	var menu GPIOPin = keys.menu
	if cfg.AutoMenu {
		menu = NewPulsePin(PinMenu, 2*time.Second, 200*time.Millisecond, clock.elapsed)
	}
	return &hostHAL{
		logger: logger,
		led:    &hostLED{logger: logger},
		gpio:   NewGPIO(keys.up, keys.down, keys.sel, menu),
		keys:   keys,
		chip:   companion.New(cfg.Rows, cfg.Cols),
		fb:     newHostFramebuffer(320, 240),
		clock:  clock,
	}
}

func (h *hostHAL) Logger() Logger { return h.logger }
func (h *hostHAL) LED() LED       { return h.led }
func (h *hostHAL) GPIO() GPIO     { return h.gpio }
func (h *hostHAL) Bus() Bus       { return h.chip }
func (h *hostHAL) Time() Time     { return h.clock }

// hostClock is the simulator's millisecond tick stream. It advances by one
// step period each time the runner steps the app, so simulated time follows
// the step cadence rather than the wall clock.
type hostClock struct {
	ch  chan uint64
	per uint64
	ms  atomic.Uint64
}

func newHostClock(hz int) *hostClock {
	per := uint64(1000 / hz)
	if per == 0 {
		per = 1
	}
	return &hostClock{ch: make(chan uint64, 1024), per: per}
}

func (c *hostClock) Ticks() <-chan uint64 { return c.ch }

// step advances the clock by one step period.
func (c *hostClock) step() {
	for i := uint64(0); i < c.per; i++ {
		seq := c.ms.Add(1)
		select {
		case c.ch <- seq:
		default:
		}
	}
}

func (c *hostClock) elapsed() time.Duration {
	return time.Duration(c.ms.Load()) * time.Millisecond
}

type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

type hostLED struct {
	mu     sync.Mutex
	on     bool
	logger *hostLogger
}

func (l *hostLED) High() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.on {
		l.logger.WriteLineString("led: HIGH")
	}
	l.on = true
}

func (l *hostLED) Low() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.on {
		l.logger.WriteLineString("led: LOW")
	}
	l.on = false
}
