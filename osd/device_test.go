package osd

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"osdkit/companion"
	"osdkit/hal"
	"osdkit/proto"
)

type lineLog struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineLog) WriteLineString(s string) {
	l.mu.Lock()
	l.lines = append(l.lines, s)
	l.mu.Unlock()
}

func (l *lineLog) WriteLineBytes(b []byte) { l.WriteLineString(string(b)) }

func newTestDevice(t *testing.T, src Source) (*Device, *companion.Chip) {
	t.Helper()
	chip := companion.New(8, 32)
	d, err := New(chip, src, Config{DebounceSamples: 1, Logger: &lineLog{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.life.sleep = func(time.Duration) {}
	return d, chip
}

func mustReset(t *testing.T, d *Device, mode proto.BootMode) {
	t.Helper()
	if err := d.Reset(mode); err != nil {
		t.Fatalf("Reset(%s): %v", mode, err)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New(nil, nil, Config{}); err == nil {
		t.Fatal("expected error for nil bus")
	}
	if _, err := New(companion.New(1, 1), nil, Config{Rows: 33}); err == nil {
		t.Fatal("expected error for too many rows")
	}
	if _, err := New(companion.New(1, 1), nil, Config{ResetDelay: -1}); err == nil {
		t.Fatal("expected error for negative delay")
	}
}

func TestOperationsBeforeResetFailWithSequenceError(t *testing.T) {
	d, chip := newTestDevice(t, nil)

	checks := map[string]error{
		"enable":    d.Enable(),
		"disable":   d.Disable(),
		"write row": d.WriteRow(0, []byte("X"), false),
		"clear":     d.Clear(),
		"filter":    d.SetFilter(FilterLow, FilterLow),
		"memcfg":    d.SetMemoryConfig(1),
	}
	for name, err := range checks {
		if !errors.Is(err, ErrSequence) {
			t.Fatalf("%s: expected ErrSequence, got %v", name, err)
		}
	}
	if chip.Transfers() != 0 {
		t.Fatalf("sequence errors touched the bus %d times", chip.Transfers())
	}
	if d.State() != StateUninitialized {
		t.Fatalf("state = %s", d.State())
	}
}

func TestResetLandsDisabled(t *testing.T) {
	d, chip := newTestDevice(t, nil)
	mustReset(t, d, proto.BootCold)
	if d.State() != StateDisabled {
		t.Fatalf("state = %s; want disabled", d.State())
	}

	if err := d.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	mustReset(t, d, proto.BootSoft)
	if d.State() != StateDisabled || chip.Enabled() {
		t.Fatal("reset from enabled must end disabled")
	}
}

func TestResetRejectsUnknownMode(t *testing.T) {
	d, chip := newTestDevice(t, nil)
	if err := d.Reset(proto.BootMode(7)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if chip.Transfers() != 0 {
		t.Fatal("invalid boot mode reached the bus")
	}
}

func TestResetWaitsForSlowAck(t *testing.T) {
	d, chip := newTestDevice(t, nil)
	chip.SetAckDelay(3)
	mustReset(t, d, proto.BootCold)
	if chip.Resets() != 1 {
		t.Fatalf("reset re-sent %d times; want once", chip.Resets())
	}
}

func TestResetHardwareFaultIsBounded(t *testing.T) {
	d, chip := newTestDevice(t, nil)
	mustReset(t, d, proto.BootCold)

	chip.SetDead(true)
	before := chip.Transfers()
	err := d.Reset(proto.BootCold)
	if !errors.Is(err, ErrHardwareFault) || !errors.Is(err, ErrNoAck) {
		t.Fatalf("expected ErrNoAck hardware fault, got %v", err)
	}
	// One reset command plus one status poll per attempt.
	if got := chip.Transfers() - before; got != 1+DefaultConfig().ResetAttempts {
		t.Fatalf("reset used %d transfers", got)
	}
	if d.State() != StateUninitialized {
		t.Fatalf("state after failed reset = %s", d.State())
	}
	if err := d.Enable(); !errors.Is(err, ErrSequence) {
		t.Fatalf("expected ErrSequence after failed reset, got %v", err)
	}

	log := d.log.(*lineLog)
	if len(log.lines) == 0 || !strings.Contains(log.lines[len(log.lines)-1], "failed") {
		t.Fatalf("expected failure to be logged, got %v", log.lines)
	}
}

func TestResetRetriesFailedSend(t *testing.T) {
	d, chip := newTestDevice(t, nil)
	chip.FailNext(2)
	mustReset(t, d, proto.BootCold)

	chip.FailNext(100)
	err := d.Reset(proto.BootSoft)
	if !errors.Is(err, ErrNoAck) || !errors.Is(err, companion.ErrInjected) {
		t.Fatalf("expected ErrNoAck wrapping the transport error, got %v", err)
	}
}

func TestEnableDisableIdempotent(t *testing.T) {
	d, chip := newTestDevice(t, nil)
	mustReset(t, d, proto.BootCold)

	if err := d.Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	n := chip.Transfers()
	if err := d.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if err := d.Enable(); err != nil {
		t.Fatalf("second Enable: %v", err)
	}
	if chip.Transfers()-n != 1 || !chip.Enabled() || d.State() != StateEnabled {
		t.Fatal("second Enable must be a no-op")
	}

	n = chip.Transfers()
	_ = d.Disable()
	_ = d.Disable()
	if chip.Transfers()-n != 1 || chip.Enabled() || d.State() != StateDisabled {
		t.Fatal("second Disable must be a no-op")
	}
}

func TestEnableTransportFailureKeepsState(t *testing.T) {
	d, chip := newTestDevice(t, nil)
	mustReset(t, d, proto.BootCold)

	chip.FailNext(1)
	if err := d.Enable(); !errors.Is(err, ErrHardwareFault) {
		t.Fatalf("expected hardware fault, got %v", err)
	}
	if d.State() != StateDisabled {
		t.Fatalf("state = %s; want disabled", d.State())
	}
}

func TestWriteRowReadBack(t *testing.T) {
	d, chip := newTestDevice(t, nil)
	mustReset(t, d, proto.BootCold)
	rows, cols := d.Geometry()

	full := strings.Repeat("0123456789ABCDEF", 2)
	for row := 0; row < rows; row++ {
		inv := row%2 == 1
		if err := d.WriteString(row, full, inv); err != nil {
			t.Fatalf("WriteRow(%d): %v", row, err)
		}
		if got := chip.RowText(row); got != full[:cols] {
			t.Fatalf("row %d = %q", row, got)
		}
		for _, cell := range chip.Row(row) {
			if cell.Inverted != inv {
				t.Fatalf("row %d inversion = %v; want %v", row, cell.Inverted, inv)
			}
		}
	}

	if err := d.WriteString(1, full+"overflow", false); err != nil {
		t.Fatalf("WriteRow: %v", err)
	}
	if got := chip.RowText(1); got != full[:cols] {
		t.Fatalf("long text not truncated: %q", got)
	}
	if err := d.WriteString(2, "HI", false); err != nil {
		t.Fatalf("WriteRow: %v", err)
	}
	if got := chip.RowText(2); got != "HI"+strings.Repeat(" ", cols-2) {
		t.Fatalf("short text not padded: %q", got)
	}
}

func TestWriteRowOutOfRange(t *testing.T) {
	d, chip := newTestDevice(t, nil)
	mustReset(t, d, proto.BootCold)
	rows, _ := d.Geometry()

	n := chip.Transfers()
	for _, row := range []int{rows, rows + 1, 31, -1} {
		err := d.WriteRow(row, []byte("X"), false)
		if !errors.Is(err, ErrValidation) || !errors.Is(err, ErrRowRange) {
			t.Fatalf("row %d: expected ErrRowRange, got %v", row, err)
		}
	}
	if chip.Transfers() != n {
		t.Fatal("out-of-range write reached the bus")
	}
}

func TestWriteWhileDisabledStagesContent(t *testing.T) {
	d, chip := newTestDevice(t, nil)
	mustReset(t, d, proto.BootCold)

	if err := d.WriteString(0, "STAGED", false); err != nil {
		t.Fatalf("WriteRow: %v", err)
	}
	if d.State() != StateDisabled || chip.Enabled() {
		t.Fatal("write must not enable the overlay")
	}
	if !strings.HasPrefix(chip.RowText(0), "STAGED") {
		t.Fatalf("row 0 = %q", chip.RowText(0))
	}
}

func TestClearBlanksAllRowsIdempotently(t *testing.T) {
	d, chip := newTestDevice(t, nil)
	mustReset(t, d, proto.BootCold)
	rows, cols := d.Geometry()
	blank := strings.Repeat(" ", cols)

	for row := 0; row < rows; row++ {
		_ = d.WriteString(row, "JUNK", true)
	}
	for pass := 0; pass < 2; pass++ {
		if err := d.Clear(); err != nil {
			t.Fatalf("Clear pass %d: %v", pass, err)
		}
		for row := 0; row < rows; row++ {
			if chip.RowText(row) != blank {
				t.Fatalf("pass %d: row %d = %q", pass, row, chip.RowText(row))
			}
			for _, cell := range chip.Row(row) {
				if cell.Inverted {
					t.Fatalf("pass %d: row %d still inverted", pass, row)
				}
			}
		}
	}
}

func TestClearIsAtomicUnderConcurrentWriters(t *testing.T) {
	var mu sync.Mutex
	inFlight := 0
	overlap := false
	chip := companion.New(8, 32)
	bus := hal.BusFunc(func(w, r []byte) error {
		mu.Lock()
		inFlight++
		if inFlight > 1 {
			overlap = true
		}
		mu.Unlock()
		err := chip.Tx(w, r)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return err
	})
	d, err := New(bus, nil, Config{DebounceSamples: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.life.sleep = func(time.Duration) {}
	mustReset(t, d, proto.BootCold)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(row int) {
			defer wg.Done()
			_ = d.WriteString(row, "BUSY", true)
		}(i)
		go func() {
			defer wg.Done()
			_ = d.Clear()
			_ = d.GetControls()
		}()
	}
	wg.Wait()
	if overlap {
		t.Fatal("two commands were in flight at once")
	}
}

func TestSetFilterValidatesBeforeWrite(t *testing.T) {
	d, chip := newTestDevice(t, nil)
	mustReset(t, d, proto.BootCold)

	if err := d.SetFilter(FilterMedium, FilterLow); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	n := chip.Transfers()
	for _, pair := range [][2]FilterMode{{4, 0}, {0, 4}, {255, 255}} {
		err := d.SetFilter(pair[0], pair[1])
		if !errors.Is(err, ErrValidation) || !errors.Is(err, ErrFilterRange) {
			t.Fatalf("SetFilter(%v): expected ErrFilterRange, got %v", pair, err)
		}
	}
	if chip.Transfers() != n {
		t.Fatal("invalid filter reached the bus")
	}
	if lr, hr := d.Filter(); lr != FilterMedium || hr != FilterLow {
		t.Fatalf("filter = %d/%d; want 2/1", lr, hr)
	}
	if lr, hr := chip.Filter(); lr != 2 || hr != 1 {
		t.Fatalf("chip filter = %d/%d; want 2/1", lr, hr)
	}

	chip.FailNext(1)
	if err := d.SetFilter(FilterHigh, FilterHigh); !errors.Is(err, ErrHardwareFault) {
		t.Fatalf("expected hardware fault, got %v", err)
	}
	if lr, hr := d.Filter(); lr != FilterMedium || hr != FilterLow {
		t.Fatal("failed transfer changed recorded filter")
	}
}

func TestSetMemoryConfig(t *testing.T) {
	d, chip := newTestDevice(t, nil)
	mustReset(t, d, proto.BootCold)

	if err := d.SetMemoryConfig(0x0A); err != nil {
		t.Fatalf("SetMemoryConfig: %v", err)
	}
	if chip.MemoryConfig() != 0x0A || d.MemoryConfig() != 0x0A {
		t.Fatal("memory config not applied")
	}
	n := chip.Transfers()
	if err := d.SetMemoryConfig(0x10); !errors.Is(err, ErrMemConfigRange) {
		t.Fatalf("expected ErrMemConfigRange, got %v", err)
	}
	if chip.Transfers() != n || d.MemoryConfig() != 0x0A {
		t.Fatal("invalid memory config had side effects")
	}
}

func TestColdResetRestoresDefaultsSoftResetResyncs(t *testing.T) {
	d, chip := newTestDevice(t, nil)
	mustReset(t, d, proto.BootCold)
	_ = d.SetFilter(FilterHigh, FilterLow)
	_ = d.SetMemoryConfig(7)
	_ = d.WriteString(0, "KEEP", false)

	mustReset(t, d, proto.BootSoft)
	if lr, hr := chip.Filter(); lr != 3 || hr != 1 || chip.MemoryConfig() != 7 {
		t.Fatal("soft reset did not keep configuration")
	}
	if !strings.HasPrefix(chip.RowText(0), "KEEP") {
		t.Fatal("soft reset lost display memory")
	}
	if chip.LastCommand() != proto.MemConfigCommand(7) {
		t.Fatalf("last command = %#02x; want memcfg resync", chip.LastCommand())
	}

	mustReset(t, d, proto.BootCold)
	if lr, hr := d.Filter(); lr != FilterOff || hr != FilterOff || d.MemoryConfig() != 0 {
		t.Fatal("cold reset kept recorded configuration")
	}
	if strings.TrimSpace(chip.RowText(0)) != "" {
		t.Fatal("cold reset kept display memory")
	}
}

func TestControlsFromStatusByte(t *testing.T) {
	d, chip := newTestDevice(t, nil)
	if got := d.GetControls(); got != 0 {
		t.Fatalf("GetControls = %#02x; want 0", got)
	}
	chip.SetControls(CtrlUp | CtrlMenu)
	if got := d.GetControls(); got != 0x09 {
		t.Fatalf("GetControls = %#02x; want 0x09", got)
	}
	chip.FailNext(1)
	if got := d.GetControls(); got != 0 {
		t.Fatalf("GetControls on failed read = %#02x; want 0", got)
	}
}

func TestScenarioMenuRowWithSelectHeld(t *testing.T) {
	sel := hal.NewVirtualPin(hal.PinSelect, hal.GPIOCapInput)
	src, err := NewPinSource(hal.NewGPIO(
		hal.NewVirtualPin(hal.PinUp, hal.GPIOCapInput),
		hal.NewVirtualPin(hal.PinDown, hal.GPIOCapInput),
		sel,
		hal.NewVirtualPin(hal.PinMenu, hal.GPIOCapInput),
	), false)
	if err != nil {
		t.Fatalf("NewPinSource: %v", err)
	}

	chip := companion.New(8, 32)
	d, err := New(chip, src, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.life.sleep = func(time.Duration) {}

	mustReset(t, d, proto.BootCold)
	if err := d.SetFilter(2, 1); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	if err := d.WriteString(0, "MENU", true); err != nil {
		t.Fatalf("WriteRow: %v", err)
	}
	if err := d.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}

	sel.Drive(true)
	for i := 1; i < DefaultConfig().DebounceSamples; i++ {
		d.PollControls()
	}
	if got := d.GetControls(); got != CtrlSelect {
		t.Fatalf("GetControls = %#02x; want 0x04", got)
	}

	if !chip.Enabled() {
		t.Fatal("overlay not visible")
	}
	row := chip.Row(0)
	if got := chip.RowText(0)[:4]; got != "MENU" || !row[0].Inverted {
		t.Fatalf("row 0 = %q inverted=%v", got, row[0].Inverted)
	}
}

func TestWriteRowAndClearReportTransportFailure(t *testing.T) {
	d, chip := newTestDevice(t, nil)
	mustReset(t, d, proto.BootCold)
	if err := d.WriteString(2, "OLD", false); err != nil {
		t.Fatalf("WriteString: %v", err)
	}

	chip.FailNext(1)
	err := d.WriteString(2, "NEW", false)
	if !errors.Is(err, ErrHardwareFault) || !errors.Is(err, companion.ErrInjected) {
		t.Fatalf("WriteString on failed bus = %v; want hardware fault wrapping the bus error", err)
	}
	if !strings.HasPrefix(chip.RowText(2), "OLD") {
		t.Fatalf("row 2 = %q after failed write", chip.RowText(2))
	}

	chip.FailNext(1)
	if err := d.Clear(); !errors.Is(err, ErrHardwareFault) {
		t.Fatalf("Clear on failed bus = %v; want hardware fault", err)
	}
	if d.State() != StateDisabled {
		t.Fatalf("state = %v after transport failure; want disabled", d.State())
	}
}

func TestSetMemoryConfigTransportFailureKeepsRecorded(t *testing.T) {
	d, chip := newTestDevice(t, nil)
	mustReset(t, d, proto.BootCold)
	if err := d.SetMemoryConfig(3); err != nil {
		t.Fatalf("SetMemoryConfig: %v", err)
	}

	chip.FailNext(1)
	if err := d.SetMemoryConfig(9); !errors.Is(err, ErrHardwareFault) {
		t.Fatalf("SetMemoryConfig on failed bus = %v; want hardware fault", err)
	}
	if got := d.MemoryConfig(); got != 3 {
		t.Fatalf("recorded memory config = %d; want 3", got)
	}
	if got := chip.MemoryConfig(); got != 3 {
		t.Fatalf("chip memory config = %d; want 3", got)
	}
}

func TestSoftResetResyncFailureUninitializes(t *testing.T) {
	chip := companion.New(8, 32)
	var n int
	var failAt int
	bus := hal.BusFunc(func(w, r []byte) error {
		n++
		if n == failAt {
			return companion.ErrInjected
		}
		return chip.Tx(w, r)
	})
	d, err := New(bus, nil, Config{DebounceSamples: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.life.sleep = func(time.Duration) {}
	mustReset(t, d, proto.BootCold)
	if err := d.SetFilter(FilterHigh, FilterLow); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}

	// Soft reset: reset command, status poll, filter resync, memcfg resync.
	n, failAt = 0, 3
	err = d.Reset(proto.BootSoft)
	if !errors.Is(err, ErrHardwareFault) || errors.Is(err, ErrNoAck) {
		t.Fatalf("Reset(soft) = %v; want resync hardware fault", err)
	}
	if d.State() != StateUninitialized {
		t.Fatalf("state = %v; want uninitialized", d.State())
	}
	if err := d.Enable(); !errors.Is(err, ErrSequence) {
		t.Fatalf("Enable after failed resync = %v; want ErrSequence", err)
	}
}

func TestResetDropsDebounceHistory(t *testing.T) {
	chip := companion.New(8, 32)
	d, err := New(chip, nil, Config{DebounceSamples: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.life.sleep = func(time.Duration) {}
	if got := d.DebounceSamples(); got != 3 {
		t.Fatalf("DebounceSamples = %d; want 3", got)
	}

	chip.SetControls(CtrlSelect)
	d.PollControls()
	d.PollControls()
	if got := d.GetControls(); got != CtrlSelect {
		t.Fatalf("GetControls = %#02x; want select", got)
	}

	mustReset(t, d, proto.BootCold)
	if got := d.GetControls(); got != 0 {
		t.Fatalf("GetControls right after reset = %#02x; want 0", got)
	}
	d.PollControls()
	if got := d.GetControls(); got != CtrlSelect {
		t.Fatalf("GetControls after settling = %#02x; want select", got)
	}
}
