package osd

import (
	"osdkit/hal"
	"osdkit/proto"
)

// link is the exclusively-owned bus handle. Every method expects the
// owning Device's lock to be held.
type link struct {
	bus    hal.Bus
	status [2]byte
}

func (l *link) send(w []byte) error { return l.bus.Tx(w, nil) }

func (l *link) command(cmd byte) error {
	var w [1]byte
	w[0] = cmd
	return l.bus.Tx(w[:], nil)
}

func (l *link) readStatus() (byte, error) {
	l.status = [2]byte{}
	if err := l.bus.Tx(proto.StatusRequest(), l.status[:]); err != nil {
		return 0, err
	}
	return l.status[1], nil
}
