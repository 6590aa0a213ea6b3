//go:build tinygo && !baremetal

package hal

import (
	"fmt"
	"runtime"
	"time"

	"osdkit/companion"
)

// ButtonsActiveLow reports that the board buttons pull their line to ground.
const ButtonsActiveLow = false

type tinyGoHostHAL struct {
	logger *tinyGoHostLogger
	led    *tinyGoHostLED
	gpio   GPIO
	chip   *companion.Chip
	t      *tinyGoHostTime
}

// New returns a TinyGo-on-host HAL implementation.
//
// This is used by `tinygo run` targets like linux/wasm where there is no MCU
// pin mapping. The companion chip is simulated and MENU pulses every two
// seconds.
func New() HAL {
	l := &tinyGoHostLogger{}
	caps := GPIOCapInput | GPIOCapPullUp | GPIOCapPullDown
	return &tinyGoHostHAL{
		logger: l,
		led:    &tinyGoHostLED{logger: l},
		gpio: NewGPIO(
			NewVirtualPin(PinUp, caps),
			NewVirtualPin(PinDown, caps),
			NewVirtualPin(PinSelect, caps),
			NewPulsePin(PinMenu, 2*time.Second, 200*time.Millisecond, WallClock()),
		),
		chip: companion.New(8, 32),
		t:    newTinyGoHostTime(),
	}
}

func (h *tinyGoHostHAL) Logger() Logger { return h.logger }
func (h *tinyGoHostHAL) LED() LED       { return h.led }
func (h *tinyGoHostHAL) GPIO() GPIO     { return h.gpio }
func (h *tinyGoHostHAL) Bus() Bus       { return h.chip }
func (h *tinyGoHostHAL) Time() Time     { return h.t }

type tinyGoHostTime struct {
	ch  chan uint64
	seq uint64
}

func newTinyGoHostTime() *tinyGoHostTime {
	t := &tinyGoHostTime{ch: make(chan uint64, 16)}
	go func() {
		ticker := time.NewTicker(1 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			t.seq++
			select {
			case t.ch <- t.seq:
			default:
			}
		}
	}()
	return t
}

func (t *tinyGoHostTime) Ticks() <-chan uint64 { return t.ch }

type tinyGoHostLogger struct{}

func (l *tinyGoHostLogger) WriteLineString(s string) {
	println(s)
}

func (l *tinyGoHostLogger) WriteLineBytes(b []byte) {
	println(string(b))
}

type tinyGoHostLED struct {
	on     bool
	logger *tinyGoHostLogger
}

func (l *tinyGoHostLED) High() {
	if !l.on {
		l.logger.WriteLineString(fmt.Sprintf("led: HIGH (tinygo/%s)", runtime.GOOS))
	}
	l.on = true
}

func (l *tinyGoHostLED) Low() {
	if l.on {
		l.logger.WriteLineString(fmt.Sprintf("led: LOW (tinygo/%s)", runtime.GOOS))
	}
	l.on = false
}
