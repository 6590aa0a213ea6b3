// Package companion emulates the video chip that composites the overlay.
//
// Chip speaks the command set in package proto over the Bus interface, so
// it can stand in for real hardware in tests and in the host simulator.
package companion

import (
	"errors"
	"fmt"
	"sync"

	"osdkit/proto"
)

// Cell is one character position of display memory.
type Cell struct {
	Code     byte
	Inverted bool
}

// ErrInjected is returned by transfers failed through FailNext.
var ErrInjected = errors.New("companion: injected transport failure")

// Chip is a software companion chip. It is safe for concurrent use.
type Chip struct {
	mu   sync.Mutex
	rows int
	cols int
	mem  [][]Cell

	enabled bool
	lowRes  uint8
	highRes uint8
	memCfg  uint8

	ready    bool
	ackDelay int
	pending  int
	dead     bool
	failNext int
	controls byte

	transfers int
	resets    int
	lastCmd   byte
}

// New returns a chip with blank display memory, clamped to 1..MaxRows rows
// and at least one column. It acknowledges the first status read.
func New(rows, cols int) *Chip {
	if rows < 1 {
		rows = 1
	}
	if rows > proto.MaxRows {
		rows = proto.MaxRows
	}
	if cols < 1 {
		cols = 1
	}
	c := &Chip{rows: rows, cols: cols, mem: make([][]Cell, rows)}
	for i := range c.mem {
		c.mem[i] = make([]Cell, cols)
	}
	c.blank()
	c.ready = true
	return c
}

func (c *Chip) blank() {
	for _, row := range c.mem {
		for i := range row {
			row[i] = Cell{Code: proto.Blank}
		}
	}
}

// Tx implements hal.Bus.
func (c *Chip) Tx(w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failNext > 0 {
		c.failNext--
		return ErrInjected
	}
	if len(w) == 0 {
		return errors.New("companion: empty transfer")
	}
	c.transfers++
	c.lastCmd = w[0]
	for i := range r {
		r[i] = 0
	}

	op, arg := proto.Decode(w[0])
	switch op {
	case proto.OpReadStatus:
		if len(r) > 1 {
			r[1] = c.statusLocked()
		}
	case proto.OpWriteRow:
		return c.writeRowLocked(int(arg), w[1:])
	case proto.OpEnable:
		c.enabled = true
	case proto.OpDisable:
		c.enabled = false
	case proto.OpReset:
		c.resetLocked(proto.BootMode(arg))
	case proto.OpFilter:
		c.lowRes, c.highRes = proto.DecodeFilter(arg)
	case proto.OpMemConfig:
		c.memCfg = arg
	default:
		return fmt.Errorf("companion: unknown command %#02x", w[0])
	}
	return nil
}

func (c *Chip) statusLocked() byte {
	var st byte
	if !c.ready && !c.dead {
		if c.pending > 0 {
			c.pending--
		} else {
			c.ready = true
		}
	}
	if c.ready {
		st |= proto.StatusReady
	}
	if c.enabled {
		st |= proto.StatusEnabled
	}
	return st | c.controls&proto.StatusControls
}

func (c *Chip) resetLocked(mode proto.BootMode) {
	c.resets++
	c.enabled = false
	if mode == proto.BootCold {
		c.blank()
		c.lowRes, c.highRes, c.memCfg = 0, 0, 0
	}
	c.ready = false
	c.pending = c.ackDelay
}

func (c *Chip) writeRowLocked(row int, payload []byte) error {
	if row >= c.rows {
		return fmt.Errorf("companion: row %d out of range", row)
	}
	if len(payload) < 1 {
		return errors.New("companion: row write without attribute")
	}
	inv := payload[0]&proto.AttrInvert != 0
	cells := payload[1:]
	dst := c.mem[row]
	for i := range dst {
		code := proto.Blank
		if i < len(cells) {
			code = cells[i]
		}
		dst[i] = Cell{Code: code, Inverted: inv}
	}
	return nil
}

// Row returns a copy of display memory row i, or nil when out of range.
func (c *Chip) Row(i int) []Cell {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= c.rows {
		return nil
	}
	return append([]Cell(nil), c.mem[i]...)
}

// RowText returns the character codes of row i.
func (c *Chip) RowText(i int) string {
	cells := c.Row(i)
	b := make([]byte, len(cells))
	for j, cell := range cells {
		b[j] = cell.Code
	}
	return string(b)
}

func (c *Chip) Geometry() (rows, cols int) { return c.rows, c.cols }

// Enabled reports whether the overlay is composited onto the video.
func (c *Chip) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

func (c *Chip) Filter() (lowRes, highRes uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lowRes, c.highRes
}

func (c *Chip) MemoryConfig() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memCfg
}

// Transfers counts transfers the chip accepted. Injected failures are not
// counted.
func (c *Chip) Transfers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transfers
}

// Resets counts reset commands received, acknowledged or not.
func (c *Chip) Resets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets
}

func (c *Chip) LastCommand() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCmd
}

// FailNext makes the next n transfers fail with ErrInjected.
func (c *Chip) FailNext(n int) {
	c.mu.Lock()
	c.failNext = n
	c.mu.Unlock()
}

// SetAckDelay sets how many status reads after a reset report not-ready.
func (c *Chip) SetAckDelay(n int) {
	c.mu.Lock()
	c.ackDelay = n
	c.mu.Unlock()
}

// SetDead stops the chip from ever acknowledging a reset.
func (c *Chip) SetDead(dead bool) {
	c.mu.Lock()
	c.dead = dead
	c.mu.Unlock()
}

// SetControls sets the control bits reported in the status byte.
func (c *Chip) SetControls(bits byte) {
	c.mu.Lock()
	c.controls = bits
	c.mu.Unlock()
}
