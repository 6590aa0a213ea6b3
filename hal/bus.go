package hal

import (
	"errors"
	"fmt"

	"tinygo.org/x/drivers"
)

// ChipSelect is the active-low select line of an SPI peripheral.
type ChipSelect interface {
	High()
	Low()
}

// SPIBus talks to the companion chip over a TinyGo SPI peripheral.
//
// Each Tx is framed by one chip-select assertion; the chip latches a
// command on the rising edge of CS.
type SPIBus struct {
	spi drivers.SPI
	cs  ChipSelect
}

var errNoSPI = errors.New("spi: no bus")

// NewSPIBus returns a bus over spi and deselects the chip. cs may be nil
// when the peripheral drives chip select in hardware.
func NewSPIBus(spi drivers.SPI, cs ChipSelect) *SPIBus {
	if cs != nil {
		cs.High()
	}
	return &SPIBus{spi: spi, cs: cs}
}

func (b *SPIBus) Tx(w, r []byte) error {
	if b == nil || b.spi == nil {
		return errNoSPI
	}
	if r != nil && len(r) != len(w) {
		// drivers.SPI requires equal lengths for full-duplex transfers.
		buf := make([]byte, len(w))
		if err := b.tx(w, buf); err != nil {
			return err
		}
		copy(r, buf)
		return nil
	}
	return b.tx(w, r)
}

func (b *SPIBus) tx(w, r []byte) error {
	if b.cs != nil {
		b.cs.Low()
		defer b.cs.High()
	}
	if err := b.spi.Tx(w, r); err != nil {
		return fmt.Errorf("spi: tx %d bytes: %w", len(w), err)
	}
	return nil
}

// BusFunc adapts a function to Bus.
type BusFunc func(w, r []byte) error

func (f BusFunc) Tx(w, r []byte) error { return f(w, r) }
