package osd

import (
	"fmt"

	"osdkit/proto"
)

type memoryWriter struct {
	rows int
	cols int
	buf  []byte
}

func (w *memoryWriter) writeRow(ln *link, row int, text []byte, inverted bool) error {
	if row < 0 || row >= w.rows {
		return fmt.Errorf("osd: write row %d: %w (rows 0..%d)", row, ErrRowRange, w.rows-1)
	}
	w.buf = proto.RowPayload(w.buf, row, text, w.cols, inverted)
	if err := ln.send(w.buf); err != nil {
		return transportError(fmt.Sprintf("write row %d", row), err)
	}
	return nil
}

func (w *memoryWriter) clear(ln *link) error {
	for row := 0; row < w.rows; row++ {
		w.buf = proto.RowPayload(w.buf, row, nil, w.cols, false)
		if err := ln.send(w.buf); err != nil {
			return transportError(fmt.Sprintf("clear row %d", row), err)
		}
	}
	return nil
}
