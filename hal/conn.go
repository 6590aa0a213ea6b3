//go:build !tinygo

package hal

import (
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// ConnBus adapts a periph.io connection (spi.Conn or i2c.Dev) to Bus.
//
// On a half-duplex link (I²C) the reply to the command byte does not
// exist, so reads land from r[1] on, which lines up with what a
// full-duplex SPI transfer returns for the payload bytes.
type ConnBus struct {
	c conn.Conn
}

// NewConnBus wraps c; c stays owned by the caller.
func NewConnBus(c conn.Conn) *ConnBus { return &ConnBus{c: c} }

func (b *ConnBus) String() string {
	if b == nil || b.c == nil {
		return "conn(nil)"
	}
	return b.c.String()
}

func (b *ConnBus) Tx(w, r []byte) error {
	if b == nil || b.c == nil {
		return fmt.Errorf("conn: no connection")
	}
	var err error
	if r != nil && b.c.Duplex() == conn.Half {
		if len(r) > 0 {
			r[0] = 0
			err = b.c.Tx(w, r[1:])
		} else {
			err = b.c.Tx(w, nil)
		}
	} else {
		err = b.c.Tx(w, r)
	}
	if err != nil {
		return fmt.Errorf("conn: %s: %w", b.c, err)
	}
	return nil
}

// PeriphPin adapts a periph.io pin to GPIOPin.
type PeriphPin struct {
	p gpio.PinIO
}

func NewPeriphPin(p gpio.PinIO) *PeriphPin {
	if p == nil {
		return nil
	}
	return &PeriphPin{p: p}
}

func (p *PeriphPin) Name() string { return p.p.Name() }

func (p *PeriphPin) Caps() GPIOCaps {
	return GPIOCapInput | GPIOCapOutput | GPIOCapPullUp | GPIOCapPullDown
}

func (p *PeriphPin) Configure(mode GPIOMode, pull GPIOPull) error {
	switch mode {
	case GPIOModeInput:
		pp := gpio.Float
		switch pull {
		case GPIOPullUp:
			pp = gpio.PullUp
		case GPIOPullDown:
			pp = gpio.PullDown
		}
		if err := p.p.In(pp, gpio.NoEdge); err != nil {
			return fmt.Errorf("gpio: pin %s: %w", p.p.Name(), err)
		}
		return nil
	case GPIOModeOutput:
		if err := p.p.Out(gpio.Low); err != nil {
			return fmt.Errorf("gpio: pin %s: %w", p.p.Name(), err)
		}
		return nil
	default:
		return fmt.Errorf("gpio: pin %s: invalid mode", p.p.Name())
	}
}

func (p *PeriphPin) Read() (bool, error) { return p.p.Read() == gpio.High, nil }

func (p *PeriphPin) Write(level bool) error {
	if err := p.p.Out(gpio.Level(level)); err != nil {
		return fmt.Errorf("gpio: pin %s: %w", p.p.Name(), err)
	}
	return nil
}
