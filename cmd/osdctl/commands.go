package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"osdkit/osd"
	"osdkit/proto"

	"github.com/retroenv/retrogolib/log"
)

type opcode int

const (
	opReset opcode = iota
	opWrite
	opClear
	opEnable
	opDisable
	opFilter
	opMemConfig
	opControls
	opWatch
)

// command is one parsed script word with its arguments.
type command struct {
	op       opcode
	word     string
	mode     proto.BootMode
	row      int
	text     string
	inverted bool
	lowRes   osd.FilterMode
	highRes  osd.FilterMode
	mem      osd.MemConfig
}

var errUsage = errors.New("usage")

// parseScript turns the positional arguments into commands. Nothing is
// sent to the hardware until the whole script parses.
func parseScript(args []string) ([]command, error) {
	var cmds []command
	for i := 0; i < len(args); {
		word := strings.ToLower(args[i])
		i++
		need := func(n int) ([]string, error) {
			if i+n > len(args) {
				return nil, fmt.Errorf("%w: %s needs %d argument(s)", errUsage, word, n)
			}
			a := args[i : i+n]
			i += n
			return a, nil
		}

		c := command{word: word}
		switch word {
		case "reset":
			a, err := need(1)
			if err != nil {
				return nil, err
			}
			switch strings.ToLower(a[0]) {
			case "cold":
				c.mode = proto.BootCold
			case "soft":
				c.mode = proto.BootSoft
			default:
				return nil, fmt.Errorf("%w: reset mode %q (want cold or soft)", errUsage, a[0])
			}
			c.op = opReset
		case "write", "writei":
			a, err := need(2)
			if err != nil {
				return nil, err
			}
			row, err := parseUint(a[0], proto.MaxRows-1)
			if err != nil {
				return nil, fmt.Errorf("%w: %s row: %w", errUsage, word, err)
			}
			c.op = opWrite
			c.row = int(row)
			c.text = a[1]
			c.inverted = word == "writei"
		case "clear":
			c.op = opClear
		case "enable":
			c.op = opEnable
		case "disable":
			c.op = opDisable
		case "filter":
			a, err := need(2)
			if err != nil {
				return nil, err
			}
			lr, err := parseUint(a[0], proto.MaxFilter)
			if err != nil {
				return nil, fmt.Errorf("%w: filter low-res: %w", errUsage, err)
			}
			hr, err := parseUint(a[1], proto.MaxFilter)
			if err != nil {
				return nil, fmt.Errorf("%w: filter high-res: %w", errUsage, err)
			}
			c.op = opFilter
			c.lowRes = osd.FilterMode(lr)
			c.highRes = osd.FilterMode(hr)
		case "memcfg":
			a, err := need(1)
			if err != nil {
				return nil, err
			}
			mem, err := parseUint(a[0], proto.MaxMemConfig)
			if err != nil {
				return nil, fmt.Errorf("%w: memcfg: %w", errUsage, err)
			}
			c.op = opMemConfig
			c.mem = osd.MemConfig(mem)
		case "controls":
			c.op = opControls
		case "watch":
			if i != len(args) {
				return nil, fmt.Errorf("%w: watch must be the last command", errUsage)
			}
			c.op = opWatch
		default:
			return nil, fmt.Errorf("%w: unknown command %q", errUsage, args[i-1])
		}
		cmds = append(cmds, c)
	}
	if len(cmds) == 0 {
		return nil, fmt.Errorf("%w: empty script", errUsage)
	}
	return cmds, nil
}

// parseUint accepts decimal, 0x hex or 0b binary up to limit.
func parseUint(s string, limit uint64) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if v > limit {
		return 0, fmt.Errorf("%d out of range 0..%d", v, limit)
	}
	return v, nil
}

// runner executes parsed commands against one device.
type runner struct {
	dev     *osd.Device
	logger  *log.Logger
	out     io.Writer
	period  time.Duration
	samples int
}

func newRunner(dev *osd.Device, logger *log.Logger, out io.Writer, hz int) *runner {
	return &runner{
		dev:     dev,
		logger:  logger,
		out:     out,
		period:  time.Second / time.Duration(hz),
		samples: dev.DebounceSamples(),
	}
}

func (r *runner) run(ctx context.Context, cmds []command) error {
	for _, c := range cmds {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.logger.Debug("Running command", log.String("command", c.word))
		if err := r.exec(ctx, c); err != nil {
			return fmt.Errorf("%s: %w", c.word, err)
		}
	}
	return nil
}

func (r *runner) exec(ctx context.Context, c command) error {
	switch c.op {
	case opReset:
		return r.dev.Reset(c.mode)
	case opWrite:
		return r.dev.WriteString(c.row, c.text, c.inverted)
	case opClear:
		return r.dev.Clear()
	case opEnable:
		return r.dev.Enable()
	case opDisable:
		return r.dev.Disable()
	case opFilter:
		return r.dev.SetFilter(c.lowRes, c.highRes)
	case opMemConfig:
		return r.dev.SetMemoryConfig(c.mem)
	case opControls:
		// Enough samples for the debouncer to settle on the current level.
		for i := 1; i < r.samples; i++ {
			r.dev.PollControls()
		}
		r.printControls(r.dev.Controls())
		return nil
	case opWatch:
		return r.watch(ctx)
	}
	return fmt.Errorf("unhandled command %q", c.word)
}

func (r *runner) watch(ctx context.Context) error {
	t := time.NewTicker(r.period)
	defer t.Stop()

	var last osd.Controls
	first := true
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			cur := r.dev.Controls()
			if first || cur != last {
				r.printControls(cur)
			}
			last = cur
			first = false
		}
	}
}

func (r *runner) printControls(c osd.Controls) {
	fmt.Fprintf(r.out, "controls 0x%02X %s\n", c.Pack(), c)
}
