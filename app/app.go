package app

import (
	"errors"
	"fmt"

	"osdkit/hal"
	"osdkit/internal/buildinfo"
	"osdkit/osd"
	"osdkit/proto"
)

// Config tunes the menu demo.
type Config struct {
	OSD osd.Config

	// ActiveLow selects buttons wired to ground (firmware boards).
	ActiveLow bool
	// RetryTicks is the number of steps between recovery resets while
	// the companion chip is not answering. Zero means 60.
	RetryTicks uint64
	// HeartbeatTicks is the LED half period in steps. Zero means 30.
	HeartbeatTicks uint64
}

// stepEvery is the tick distance (in ms) between steps on firmware.
const stepEvery = 16

type item int

const (
	itemLowRes item = iota
	itemHighRes
	itemMemory
	itemSoftReset
	itemHide
	numItems
)

type menu struct {
	log hal.Logger
	led hal.LED
	dev *osd.Device
	cfg Config

	rows    int
	cols    int
	items   int
	cursor  int
	visible bool
	prev    osd.Controls

	lowRes  osd.FilterMode
	highRes osd.FilterMode
	mem     osd.MemConfig

	steps   uint64
	retryAt uint64
	faulted bool
	ledOn   bool
}

// New returns a step function driving the overlay menu with default config.
func New(h hal.HAL) func() error {
	return NewWithConfig(h, Config{})
}

// NewWithConfig returns a step function driving the overlay menu. Each
// call samples the controls once and reacts to new presses.
func NewWithConfig(h hal.HAL, cfg Config) func() error {
	m, err := newMenu(h, cfg)
	if err != nil {
		return func() error { return err }
	}
	return m.step
}

// Run drives the menu from the HAL tick stream and blocks forever
// (TinyGo entrypoint).
func Run(h hal.HAL) {
	RunWithConfig(h, Config{})
}

func RunWithConfig(h hal.HAL, cfg Config) {
	step := NewWithConfig(h, cfg)
	ticks := h.Time().Ticks()
	if ticks == nil {
		select {}
	}
	var last uint64
	for seq := range ticks {
		if seq-last < stepEvery {
			continue
		}
		last = seq
		if err := step(); err != nil {
			h.Logger().WriteLineString("app: " + err.Error())
			select {}
		}
	}
}

func newMenu(h hal.HAL, cfg Config) (*menu, error) {
	if cfg.RetryTicks == 0 {
		cfg.RetryTicks = 60
	}
	if cfg.HeartbeatTicks == 0 {
		cfg.HeartbeatTicks = 30
	}
	if cfg.OSD.Logger == nil {
		cfg.OSD.Logger = h.Logger()
	}

	// Board buttons when the HAL has them, otherwise the companion
	// chip's own control lines.
	var src osd.Source
	if ps, err := osd.NewPinSource(h.GPIO(), cfg.ActiveLow); err == nil {
		src = ps
	}

	dev, err := osd.New(h.Bus(), src, cfg.OSD)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	rows, cols := dev.Geometry()
	items := int(numItems)
	if rows-1 < items {
		items = rows - 1
	}
	return &menu{
		log:     h.Logger(),
		led:     h.LED(),
		dev:     dev,
		cfg:     cfg,
		rows:    rows,
		cols:    cols,
		items:   items,
		lowRes:  osd.FilterOff,
		highRes: osd.FilterOff,
		faulted: true,
	}, nil
}

func (m *menu) logf(format string, args ...any) {
	if m.log == nil {
		return
	}
	m.log.WriteLineString(fmt.Sprintf("app: "+format, args...))
}

func (m *menu) step() error {
	m.steps++
	if m.faulted {
		if m.steps < m.retryAt {
			return nil
		}
		if err := m.start(); err != nil {
			return m.fault(err)
		}
	}
	m.heartbeat()

	cur := m.dev.Controls()
	pressed := cur.Pressed(m.prev)
	m.prev = cur
	if !pressed.Any() {
		return nil
	}
	return m.fault(m.handle(pressed))
}

// fault swallows hardware faults and schedules a recovery reset; any
// other error is a bug and is returned.
func (m *menu) fault(err error) error {
	if err == nil {
		return nil
	}
	if !errors.Is(err, osd.ErrHardwareFault) {
		return err
	}
	m.faulted = true
	m.retryAt = m.steps + m.cfg.RetryTicks
	m.logf("%v (retry in %d steps)", err, m.cfg.RetryTicks)
	if m.led != nil {
		m.led.Low()
		m.ledOn = false
	}
	return nil
}

func (m *menu) start() error {
	if err := m.dev.Reset(proto.BootCold); err != nil {
		return err
	}
	if err := m.dev.SetFilter(m.lowRes, m.highRes); err != nil {
		return err
	}
	if err := m.dev.SetMemoryConfig(m.mem); err != nil {
		return err
	}
	if err := m.redraw(); err != nil {
		return err
	}
	if m.visible {
		if err := m.dev.Enable(); err != nil {
			return err
		}
	}
	m.faulted = false
	m.logf("companion ready (%dx%d)", m.rows, m.cols)
	return nil
}

func (m *menu) handle(p osd.Controls) error {
	if p.Menu {
		return m.toggle()
	}
	if !m.visible || m.items == 0 {
		return nil
	}
	switch {
	case p.Up:
		return m.move(-1)
	case p.Down:
		return m.move(1)
	case p.Select:
		return m.activate(item(m.cursor))
	}
	return nil
}

func (m *menu) toggle() error {
	if m.visible {
		m.visible = false
		return m.dev.Disable()
	}
	if err := m.dev.Enable(); err != nil {
		return err
	}
	m.visible = true
	return nil
}

func (m *menu) move(delta int) error {
	old := m.cursor
	m.cursor = (m.cursor + delta + m.items) % m.items
	if err := m.drawItem(item(old)); err != nil {
		return err
	}
	return m.drawItem(item(m.cursor))
}

func (m *menu) activate(it item) error {
	switch it {
	case itemLowRes:
		m.lowRes = (m.lowRes + 1) % (proto.MaxFilter + 1)
		if err := m.dev.SetFilter(m.lowRes, m.highRes); err != nil {
			return err
		}
	case itemHighRes:
		m.highRes = (m.highRes + 1) % (proto.MaxFilter + 1)
		if err := m.dev.SetFilter(m.lowRes, m.highRes); err != nil {
			return err
		}
	case itemMemory:
		m.mem = (m.mem + 1) % (proto.MaxMemConfig + 1)
		if err := m.dev.SetMemoryConfig(m.mem); err != nil {
			return err
		}
	case itemSoftReset:
		if err := m.dev.Reset(proto.BootSoft); err != nil {
			return err
		}
		m.logf("soft reset")
		return m.dev.Enable()
	case itemHide:
		m.visible = false
		return m.dev.Disable()
	}
	return m.drawItem(it)
}

func (m *menu) redraw() error {
	if err := m.dev.Clear(); err != nil {
		return err
	}
	if err := m.dev.WriteString(0, "OSDKIT "+buildinfo.Short(), false); err != nil {
		return err
	}
	for i := 0; i < m.items; i++ {
		if err := m.drawItem(item(i)); err != nil {
			return err
		}
	}
	return nil
}

func (m *menu) drawItem(it item) error {
	return m.dev.WriteString(int(it)+1, m.label(it), int(it) == m.cursor)
}

var filterNames = [...]string{"OFF", "LOW", "MEDIUM", "HIGH"}

func (m *menu) label(it item) string {
	switch it {
	case itemLowRes:
		return " LORES FILTER  " + filterNames[m.lowRes]
	case itemHighRes:
		return " HIRES FILTER  " + filterNames[m.highRes]
	case itemMemory:
		return fmt.Sprintf(" MEMORY CONFIG %d", m.mem)
	case itemSoftReset:
		return " SOFT RESET"
	case itemHide:
		return " HIDE"
	}
	return ""
}

func (m *menu) heartbeat() {
	if m.led == nil || m.steps%m.cfg.HeartbeatTicks != 0 {
		return
	}
	m.ledOn = !m.ledOn
	if m.ledOn {
		m.led.High()
	} else {
		m.led.Low()
	}
}
