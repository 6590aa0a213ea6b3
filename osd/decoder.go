package osd

import "sync"

// Decoder debounces a Source into a stable Controls snapshot.
//
// A control's reported level flips only after the raw line has disagreed
// with it for the configured number of consecutive samples. A sampling
// error drops every control to released and restarts the count.
type Decoder struct {
	mu     sync.Mutex
	src    Source
	need   int
	stable [numControls]bool
	runs   [numControls]int
}

// NewDecoder debounces src over samples consecutive reads; values below 1
// disable debouncing.
func NewDecoder(src Source, samples int) *Decoder {
	if samples < 1 {
		samples = 1
	}
	return &Decoder{src: src, need: samples}
}

// Poll takes one sample. Call it once per cycle so the debounce window is
// measured in cycles rather than in queries.
func (d *Decoder) Poll() {
	d.mu.Lock()
	d.sampleLocked()
	d.mu.Unlock()
}

// Controls samples once and returns the debounced set.
func (d *Decoder) Controls() Controls {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sampleLocked()
	return controlsFromFlags(d.stable)
}

// GetControls samples once and returns the packed bitmask.
func (d *Decoder) GetControls() byte { return d.Controls().Pack() }

// Reset forgets all debounce history. Every control reads released until
// the line has been sampled again for the full window.
func (d *Decoder) Reset() {
	d.mu.Lock()
	d.resetLocked()
	d.mu.Unlock()
}

// Samples returns the debounce window length.
func (d *Decoder) Samples() int { return d.need }

func (d *Decoder) resetLocked() {
	d.stable = [numControls]bool{}
	d.runs = [numControls]int{}
}

func (d *Decoder) sampleLocked() {
	if d.src == nil {
		d.resetLocked()
		return
	}
	raw, err := d.src.Sample()
	if err != nil {
		d.resetLocked()
		return
	}
	f := raw.flags()
	for i := range f {
		if f[i] == d.stable[i] {
			d.runs[i] = 0
			continue
		}
		d.runs[i]++
		if d.runs[i] >= d.need {
			d.stable[i] = f[i]
			d.runs[i] = 0
		}
	}
}
