package osd

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"osdkit/hal"
	"osdkit/proto"
)

// Device is the OSD control surface. It is safe for concurrent use: all
// bus commands run under one lock, so at most one command is in flight.
type Device struct {
	mu  sync.Mutex
	ln  link
	log hal.Logger

	life lifecycle
	mem  memoryWriter
	port configPort
	ctl  *Decoder
}

var errNilBus = errors.New("osd: nil bus")

// New returns a device in the Uninitialized state. If controls is nil the
// control lines are read from the companion chip's status byte.
func New(bus hal.Bus, controls Source, cfg Config) (*Device, error) {
	if bus == nil {
		return nil, errNilBus
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Device{
		ln:  link{bus: bus},
		log: cfg.Logger,
		life: lifecycle{
			attempts: cfg.ResetAttempts,
			delay:    cfg.ResetDelay,
			sleep:    time.Sleep,
		},
		mem: memoryWriter{rows: cfg.Rows, cols: cfg.Cols},
	}
	if controls == nil {
		controls = SourceFunc(d.sampleStatus)
	}
	d.ctl = NewDecoder(controls, cfg.DebounceSamples)
	return d, nil
}

func (d *Device) logf(format string, args ...any) {
	if d.log == nil {
		return
	}
	d.log.WriteLineString(fmt.Sprintf("osd: "+format, args...))
}

// Reset re-initializes the companion chip and leaves the overlay disabled.
//
// BootCold returns display memory, filters and memory layout to hardware
// defaults. BootSoft keeps display memory and re-sends the recorded filter
// and memory layout. If the chip does not acknowledge the device falls
// back to Uninitialized and the error matches ErrNoAck. Control debounce
// history is dropped, so controls read released until they settle again.
func (d *Device) Reset(mode proto.BootMode) error {
	if !mode.Valid() {
		return fmt.Errorf("osd: reset %d: %w", mode, ErrBootMode)
	}
	err := d.reset(mode)
	// Decoder lock is taken before the device lock when sampling the
	// status byte, so the history is cleared outside d.mu.
	d.ctl.Reset()
	return err
}

func (d *Device) reset(mode proto.BootMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.life.reset(&d.ln, mode)
	if err != nil {
		d.logf("reset %s failed after %d attempts: %v", mode, n, err)
		return err
	}
	switch mode {
	case proto.BootCold:
		d.port.defaults()
	case proto.BootSoft:
		if err := d.port.resync(&d.ln); err != nil {
			d.life.state = StateUninitialized
			d.logf("reset soft: %v", err)
			return err
		}
	}
	d.logf("reset %s acknowledged after %d attempt(s)", mode, n)
	return nil
}

// Enable shows the overlay. Enabling an enabled overlay sends nothing.
func (d *Device) Enable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.life.setVisible(&d.ln, true)
}

// Disable hides the overlay. Disabling a disabled overlay sends nothing.
func (d *Device) Disable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.life.setVisible(&d.ln, false)
}

// WriteRow writes text into row, truncated or padded with blanks to the
// row width, with inversion applied to the whole row. Writing while the
// overlay is disabled stages the content without showing it.
func (d *Device) WriteRow(row int, text []byte, inverted bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.life.ready() {
		return fmt.Errorf("osd: write row %d: %w", row, ErrSequence)
	}
	return d.mem.writeRow(&d.ln, row, text, inverted)
}

// WriteString is WriteRow for text held in a string.
func (d *Device) WriteString(row int, s string, inverted bool) error {
	return d.WriteRow(row, []byte(s), inverted)
}

// Clear blanks every row. The bus stays locked for the whole sweep.
func (d *Device) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.life.ready() {
		return fmt.Errorf("osd: clear: %w", ErrSequence)
	}
	return d.mem.clear(&d.ln)
}

// SetFilter configures the low-res and high-res video filters. On any
// error the previously configured pair stays in effect.
func (d *Device) SetFilter(lowRes, highRes FilterMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.life.ready() {
		return fmt.Errorf("osd: set filter: %w", ErrSequence)
	}
	return d.port.setFilter(&d.ln, lowRes, highRes)
}

// SetMemoryConfig selects the companion chip memory layout. Out of range
// values fail with ErrMemConfigRange before anything is sent, and a
// failed transfer keeps the previously recorded layout.
func (d *Device) SetMemoryConfig(mem MemConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.life.ready() {
		return fmt.Errorf("osd: set memory config: %w", ErrSequence)
	}
	return d.port.setMemConfig(&d.ln, mem)
}

// GetControls samples the control lines and returns the debounced bitmask
// (CtrlUp, CtrlDown, CtrlSelect, CtrlMenu). It never fails; unreadable
// lines read as no controls pressed.
func (d *Device) GetControls() byte { return d.ctl.GetControls() }

// Controls samples the control lines like GetControls and returns the
// debounced set.
func (d *Device) Controls() Controls { return d.ctl.Controls() }

// PollControls feeds one sample to the debouncer without reading it back.
func (d *Device) PollControls() { d.ctl.Poll() }

// DebounceSamples returns the configured debounce window in samples.
func (d *Device) DebounceSamples() int { return d.ctl.Samples() }

// State returns the lifecycle state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.life.state
}

// Filter returns the filter pair last accepted by the chip.
func (d *Device) Filter() (lowRes, highRes FilterMode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port.lowRes, d.port.highRes
}

// MemoryConfig returns the memory layout last accepted by the chip.
func (d *Device) MemoryConfig() MemConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port.mem
}

// Geometry returns the configured rows and columns.
func (d *Device) Geometry() (rows, cols int) { return d.mem.rows, d.mem.cols }

func (d *Device) sampleStatus() (Controls, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, err := d.ln.readStatus()
	if err != nil {
		return Controls{}, err
	}
	return Unpack(st & proto.StatusControls), nil
}
