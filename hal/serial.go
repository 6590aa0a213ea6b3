//go:build !tinygo

package hal

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Bridge framing for companion chips reached through a UART-to-SPI bridge.
//
// Request:  0x55, n, n x payload, xor(payload), rn (bytes to read back)
// Response: 0x06 (ACK) followed by rn bytes, or 0x15 (NAK).
const (
	serialSync byte = 0x55
	serialAck  byte = 0x06
	serialNak  byte = 0x15

	serialMaxPayload = 255
)

var (
	ErrSerialNak     = errors.New("serial: bridge rejected frame")
	errSerialBadSync = errors.New("serial: unexpected response byte")
)

// SerialBus frames Bus transfers over a byte stream.
type SerialBus struct {
	rw  io.ReadWriter
	buf []byte
}

func NewSerialBus(rw io.ReadWriter) *SerialBus {
	return &SerialBus{rw: rw, buf: make([]byte, 0, serialMaxPayload+4)}
}

// OpenSerial opens a UART bridge on the named port.
func OpenSerial(name string, baud int, timeout time.Duration) (*SerialBus, io.Closer, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: timeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("serial: open %s: %w", name, err)
	}
	return NewSerialBus(port), port, nil
}

func (b *SerialBus) Tx(w, r []byte) error {
	if len(w) == 0 || len(w) > serialMaxPayload {
		return fmt.Errorf("serial: invalid payload length %d", len(w))
	}
	if len(r) > serialMaxPayload {
		return fmt.Errorf("serial: invalid read length %d", len(r))
	}

	var sum byte
	frame := append(b.buf[:0], serialSync, byte(len(w)))
	for _, c := range w {
		frame = append(frame, c)
		sum ^= c
	}
	frame = append(frame, sum, byte(len(r)))
	b.buf = frame

	if _, err := b.rw.Write(frame); err != nil {
		return fmt.Errorf("serial: write: %w", err)
	}

	var status [1]byte
	if _, err := io.ReadFull(b.rw, status[:]); err != nil {
		return fmt.Errorf("serial: read ack: %w", err)
	}
	switch status[0] {
	case serialAck:
	case serialNak:
		return ErrSerialNak
	default:
		return fmt.Errorf("%w: %#02x", errSerialBadSync, status[0])
	}
	if len(r) == 0 {
		return nil
	}
	if _, err := io.ReadFull(b.rw, r); err != nil {
		return fmt.Errorf("serial: read reply: %w", err)
	}
	return nil
}
