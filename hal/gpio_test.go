package hal

import (
	"testing"
	"time"
)

func TestPulsePinRead(t *testing.T) {
	var now time.Duration
	pin := NewPulsePin("SIG", 10*time.Second, 2*time.Second, func() time.Duration { return now })
	if pin == nil {
		t.Fatal("expected pin")
	}
	if err := pin.Configure(GPIOModeInput, GPIOPullUp); err == nil {
		t.Fatal("expected pull-up to be rejected")
	}

	for _, tc := range []struct {
		at   time.Duration
		want bool
	}{
		{0, true},
		{1999 * time.Millisecond, true},
		{3 * time.Second, false},
		{11 * time.Second, true},
		{-time.Second, false},
	} {
		now = tc.at
		level, err := pin.Read()
		if err != nil {
			t.Fatalf("Read at %v: %v", tc.at, err)
		}
		if level != tc.want {
			t.Fatalf("level at %v = %v; want %v", tc.at, level, tc.want)
		}
	}

	if NewPulsePin("", time.Second, 0, WallClock()) != nil {
		t.Fatal("expected nil pin for empty name")
	}
}

func TestVirtualPinDriveAndBreak(t *testing.T) {
	p := NewVirtualPin("UP", GPIOCapInput|GPIOCapPullUp)
	if err := p.Configure(GPIOModeInput, GPIOPullUp); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := p.Configure(GPIOModeOutput, GPIOPullNone); err == nil {
		t.Fatal("expected output mode to be rejected")
	}

	p.Drive(true)
	level, err := p.Read()
	if err != nil || !level {
		t.Fatalf("Read = %v, %v; want true, nil", level, err)
	}

	p.Break(ErrNotImplemented)
	if _, err := p.Read(); err == nil {
		t.Fatal("expected read error on broken pin")
	}
	p.Break(nil)
	if _, err := p.Read(); err != nil {
		t.Fatalf("Read after repair: %v", err)
	}
}

func TestGPIOPinByName(t *testing.T) {
	up := NewVirtualPin(PinUp, GPIOCapInput)
	menu := NewVirtualPin(PinMenu, GPIOCapInput)
	g := NewGPIO(up, nil, menu)

	if g.PinCount() != 2 {
		t.Fatalf("PinCount = %d; want 2", g.PinCount())
	}
	if g.PinByName("menu") != menu {
		t.Fatal("expected case-insensitive lookup of MENU")
	}
	if g.PinByName(PinSelect) != nil {
		t.Fatal("expected nil for missing pin")
	}
	if NewGPIO().PinByName(PinUp) != nil {
		t.Fatal("expected nil from empty bank")
	}
}
