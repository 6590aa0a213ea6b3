package osd

import (
	"fmt"

	"osdkit/proto"
)

// FilterMode is a video filter strength understood by the companion chip.
type FilterMode uint8

const (
	FilterOff FilterMode = iota
	FilterLow
	FilterMedium
	FilterHigh
)

// Valid reports whether m fits the two-bit filter field.
func (m FilterMode) Valid() bool { return m <= proto.MaxFilter }

// MemConfig is an opaque companion chip memory layout selector (0..15).
type MemConfig uint8

// Valid reports whether m fits the four-bit layout field.
func (m MemConfig) Valid() bool { return m <= proto.MaxMemConfig }

type configPort struct {
	lowRes  FilterMode
	highRes FilterMode
	mem     MemConfig
}

func (p *configPort) setFilter(ln *link, lowRes, highRes FilterMode) error {
	if !lowRes.Valid() || !highRes.Valid() {
		return fmt.Errorf("osd: set filter %d/%d: %w", lowRes, highRes, ErrFilterRange)
	}
	if err := ln.command(proto.FilterCommand(uint8(lowRes), uint8(highRes))); err != nil {
		return transportError("set filter", err)
	}
	p.lowRes, p.highRes = lowRes, highRes
	return nil
}

func (p *configPort) setMemConfig(ln *link, mem MemConfig) error {
	if !mem.Valid() {
		return fmt.Errorf("osd: set memory config %d: %w", mem, ErrMemConfigRange)
	}
	if err := ln.command(proto.MemConfigCommand(uint8(mem))); err != nil {
		return transportError("set memory config", err)
	}
	p.mem = mem
	return nil
}

// resync re-sends the recorded configuration after a soft reset.
func (p *configPort) resync(ln *link) error {
	if err := ln.command(proto.FilterCommand(uint8(p.lowRes), uint8(p.highRes))); err != nil {
		return transportError("resync filter", err)
	}
	if err := ln.command(proto.MemConfigCommand(uint8(p.mem))); err != nil {
		return transportError("resync memory config", err)
	}
	return nil
}

func (p *configPort) defaults() { *p = configPort{} }
