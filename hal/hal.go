package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var ErrNotImplemented = errors.New("not implemented")

// Bus is the transport to the companion video chip.
//
// Tx writes w and reads len(r) bytes full-duplex; r may be nil. A Tx call
// is blocking and bounded by the transfer time of the underlying link.
// Bus implementations are not safe for concurrent use; the owner
// serializes access.
type Bus interface {
	Tx(w, r []byte) error
}

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is the simulator preview surface plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Time provides a millisecond tick stream. Each value is the tick count
// since start; ticks are dropped rather than queued when the reader lags.
type Time interface {
	Ticks() <-chan uint64
}

// Control pin names looked up through GPIO.PinByName.
const (
	PinUp     = "UP"
	PinDown   = "DOWN"
	PinSelect = "SELECT"
	PinMenu   = "MENU"
)

// HAL provides the only contact point between the driver and the outside world.
type HAL interface {
	Logger() Logger
	LED() LED
	GPIO() GPIO
	Bus() Bus
	Time() Time
}
