//go:build tinygo && baremetal

package hal

import (
	"machine"
)

// ButtonsActiveLow reports that the board buttons pull their line to ground.
const ButtonsActiveLow = true

type tinyGoHAL struct {
	logger *uartLogger
	led    *pinLED
	gpio   GPIO
	bus    Bus
	t      *tinyGoTime
}

// New returns a Pico (RP2040/RP2350) HAL wired to an OSD companion chip.
//
// UART: UART0 on GP0 (TX) / GP1 (RX), 115200 8N1.
// Buttons: GP2 UP, GP3 DOWN, GP4 SELECT, GP5 MENU, active-low with pull-ups.
// Companion: SPI0 on GP18 (SCK) / GP19 (SDO) / GP16 (SDI), CS on GP17, 2 MHz mode 0.
func New() HAL {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})
	logger := &uartLogger{uart: uart}

	ledPin := machine.LED
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	var bus Bus
	if err := machine.SPI0.Configure(machine.SPIConfig{
		Frequency: 2_000_000,
		SCK:       machine.GP18,
		SDO:       machine.GP19,
		SDI:       machine.GP16,
		Mode:      0,
	}); err != nil {
		logger.WriteLineString("hal: spi0: " + err.Error())
	} else {
		cs := machine.GP17
		cs.Configure(machine.PinConfig{Mode: machine.PinOutput})
		bus = NewSPIBus(machine.SPI0, cs)
	}

	return &tinyGoHAL{
		logger: logger,
		led:    &pinLED{pin: ledPin},
		gpio: NewGPIO(
			&machinePin{name: PinUp, pin: machine.GP2},
			&machinePin{name: PinDown, pin: machine.GP3},
			&machinePin{name: PinSelect, pin: machine.GP4},
			&machinePin{name: PinMenu, pin: machine.GP5},
		),
		bus: bus,
		t:   newTinyGoTime(),
	}
}

func (h *tinyGoHAL) Logger() Logger { return h.logger }
func (h *tinyGoHAL) LED() LED       { return h.led }
func (h *tinyGoHAL) GPIO() GPIO     { return h.gpio }
func (h *tinyGoHAL) Time() Time     { return h.t }

func (h *tinyGoHAL) Bus() Bus {
	if h.bus == nil {
		return BusFunc(func(w, r []byte) error { return ErrNotImplemented })
	}
	return h.bus
}
