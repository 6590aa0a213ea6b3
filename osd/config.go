package osd

import (
	"fmt"
	"time"

	"osdkit/hal"
	"osdkit/proto"
)

// Config sizes the overlay and bounds the reset handshake.
// A zero field takes its default.
type Config struct {
	Rows int
	Cols int

	// ResetAttempts bounds the status polls (and failed reset sends)
	// before Reset gives up with ErrNoAck.
	ResetAttempts int
	// ResetDelay is the settle time before each status poll.
	ResetDelay time.Duration

	// DebounceSamples is the number of consecutive identical samples a
	// control needs before its reported level changes. 1 disables debouncing.
	DebounceSamples int

	Logger hal.Logger
}

const maxCols = 253

// DefaultConfig returns an 8x32 overlay, five reset polls 10ms apart and
// three-sample debouncing.
func DefaultConfig() Config {
	return Config{
		Rows:            8,
		Cols:            32,
		ResetAttempts:   5,
		ResetDelay:      10 * time.Millisecond,
		DebounceSamples: 3,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Rows == 0 {
		c.Rows = def.Rows
	}
	if c.Cols == 0 {
		c.Cols = def.Cols
	}
	if c.ResetAttempts == 0 {
		c.ResetAttempts = def.ResetAttempts
	}
	if c.ResetDelay == 0 {
		c.ResetDelay = def.ResetDelay
	}
	if c.DebounceSamples == 0 {
		c.DebounceSamples = def.DebounceSamples
	}
	return c
}

// Validate reports the first field outside its allowed range. New applies
// defaults before validating.
func (c Config) Validate() error {
	if c.Rows < 1 || c.Rows > proto.MaxRows {
		return fmt.Errorf("osd: config: rows %d not in 1..%d", c.Rows, proto.MaxRows)
	}
	if c.Cols < 1 || c.Cols > maxCols {
		return fmt.Errorf("osd: config: cols %d not in 1..%d", c.Cols, maxCols)
	}
	if c.ResetAttempts < 1 {
		return fmt.Errorf("osd: config: reset attempts must be positive")
	}
	if c.ResetDelay < 0 {
		return fmt.Errorf("osd: config: negative reset delay")
	}
	if c.DebounceSamples < 1 {
		return fmt.Errorf("osd: config: debounce samples must be positive")
	}
	return nil
}
