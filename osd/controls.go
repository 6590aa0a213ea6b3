package osd

import (
	"errors"
	"strings"

	"osdkit/hal"
)

// Wire bits of the control bitmask.
const (
	CtrlUp     byte = 0x01
	CtrlDown   byte = 0x02
	CtrlSelect byte = 0x04
	CtrlMenu   byte = 0x08
)

// Controls is the set of pressed navigation controls.
type Controls struct {
	Up     bool
	Down   bool
	Select bool
	Menu   bool
}

const numControls = 4

// Pack encodes c as the CtrlUp|CtrlDown|CtrlSelect|CtrlMenu bitmask.
func (c Controls) Pack() byte {
	var b byte
	if c.Up {
		b |= CtrlUp
	}
	if c.Down {
		b |= CtrlDown
	}
	if c.Select {
		b |= CtrlSelect
	}
	if c.Menu {
		b |= CtrlMenu
	}
	return b
}

// Unpack decodes a bitmask; bits above CtrlMenu are ignored.
func Unpack(b byte) Controls {
	return Controls{
		Up:     b&CtrlUp != 0,
		Down:   b&CtrlDown != 0,
		Select: b&CtrlSelect != 0,
		Menu:   b&CtrlMenu != 0,
	}
}

// Any reports whether at least one control is pressed.
func (c Controls) Any() bool { return c.Up || c.Down || c.Select || c.Menu }

// Pressed returns the controls set in c but not in prev.
func (c Controls) Pressed(prev Controls) Controls {
	return Controls{
		Up:     c.Up && !prev.Up,
		Down:   c.Down && !prev.Down,
		Select: c.Select && !prev.Select,
		Menu:   c.Menu && !prev.Menu,
	}
}

func (c Controls) String() string {
	var parts []string
	if c.Up {
		parts = append(parts, "up")
	}
	if c.Down {
		parts = append(parts, "down")
	}
	if c.Select {
		parts = append(parts, "select")
	}
	if c.Menu {
		parts = append(parts, "menu")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

func (c Controls) flags() [numControls]bool {
	return [numControls]bool{c.Up, c.Down, c.Select, c.Menu}
}

func controlsFromFlags(f [numControls]bool) Controls {
	return Controls{Up: f[0], Down: f[1], Select: f[2], Menu: f[3]}
}

// Source samples the raw (undebounced) control lines.
type Source interface {
	Sample() (Controls, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (Controls, error)

func (f SourceFunc) Sample() (Controls, error) { return f() }

// PinSource reads one GPIO line per control. A nil pin never reads pressed.
type PinSource struct {
	Up, Down, Select, Menu hal.GPIOPin

	// ActiveLow treats a low line as pressed (buttons to ground with pull-ups).
	ActiveLow bool
}

var errNoControlPins = errors.New("osd: no control pins")

// NewPinSource looks up the UP, DOWN, SELECT and MENU pins of g and
// configures them as inputs, pulled up when activeLow is set.
func NewPinSource(g hal.GPIO, activeLow bool) (*PinSource, error) {
	if g == nil {
		return nil, errNoControlPins
	}
	s := &PinSource{
		Up:        g.PinByName(hal.PinUp),
		Down:      g.PinByName(hal.PinDown),
		Select:    g.PinByName(hal.PinSelect),
		Menu:      g.PinByName(hal.PinMenu),
		ActiveLow: activeLow,
	}
	pull := hal.GPIOPullNone
	if activeLow {
		pull = hal.GPIOPullUp
	}
	found := 0
	for _, p := range s.pins() {
		if p == nil {
			continue
		}
		found++
		if err := p.Configure(hal.GPIOModeInput, pull); err != nil {
			return nil, err
		}
	}
	if found == 0 {
		return nil, errNoControlPins
	}
	return s, nil
}

func (s *PinSource) pins() [numControls]hal.GPIOPin {
	return [numControls]hal.GPIOPin{s.Up, s.Down, s.Select, s.Menu}
}

func (s *PinSource) Sample() (Controls, error) {
	var f [numControls]bool
	for i, p := range s.pins() {
		if p == nil {
			continue
		}
		level, err := p.Read()
		if err != nil {
			return Controls{}, err
		}
		f[i] = level != s.ActiveLow
	}
	return controlsFromFlags(f), nil
}
