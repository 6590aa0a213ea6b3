package osd

import (
	"fmt"
	"time"

	"osdkit/proto"
)

// State is the overlay lifecycle state.
type State uint8

const (
	StateUninitialized State = iota
	StateDisabled
	StateEnabled
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateDisabled:
		return "disabled"
	case StateEnabled:
		return "enabled"
	default:
		return "invalid"
	}
}

type lifecycle struct {
	state    State
	attempts int
	delay    time.Duration
	sleep    func(time.Duration)
}

func (c *lifecycle) ready() bool { return c.state != StateUninitialized }

// reset sends the reset command and polls the status byte until the chip
// reports ready. A failed send is retried within the same attempt budget;
// a reset is not re-sent once delivered so a slow chip is not restarted.
// It returns the number of attempts used.
func (c *lifecycle) reset(ln *link, mode proto.BootMode) (int, error) {
	c.state = StateUninitialized

	var last error
	sent := false
	for i := 1; i <= c.attempts; i++ {
		if !sent {
			if err := ln.command(proto.ResetCommand(mode)); err != nil {
				last = err
				c.sleep(c.delay)
				continue
			}
			sent = true
		}
		c.sleep(c.delay)
		st, err := ln.readStatus()
		if err != nil {
			last = err
			continue
		}
		if st&proto.StatusReady != 0 {
			c.state = StateDisabled
			return i, nil
		}
	}
	if last != nil {
		return c.attempts, fmt.Errorf("osd: reset %s: %w after %d attempts: %w", mode, ErrNoAck, c.attempts, last)
	}
	return c.attempts, fmt.Errorf("osd: reset %s: %w after %d attempts", mode, ErrNoAck, c.attempts)
}

func (c *lifecycle) setVisible(ln *link, on bool) error {
	if !c.ready() {
		return fmt.Errorf("osd: %s: %w", visibleOp(on), ErrSequence)
	}
	want := StateDisabled
	cmd := proto.CmdDisable
	if on {
		want = StateEnabled
		cmd = proto.CmdEnable
	}
	if c.state == want {
		return nil
	}
	if err := ln.command(cmd); err != nil {
		return transportError(visibleOp(on), err)
	}
	c.state = want
	return nil
}

func visibleOp(on bool) string {
	if on {
		return "enable"
	}
	return "disable"
}
