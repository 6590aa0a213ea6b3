package companion

import (
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
)

// Preview cell size in pixels.
const (
	CellWidth  = 8
	CellHeight = 10
)

// SMPTE colour bars stand in for the incoming video.
var barColors = [7]color.RGBA{
	{192, 192, 192, 255}, // Gray
	{192, 192, 0, 255},   // Yellow
	{0, 192, 192, 255},   // Cyan
	{0, 192, 0, 255},     // Green
	{192, 0, 192, 255},   // Magenta
	{192, 0, 0, 255},     // Red
	{0, 0, 192, 255},     // Blue
}

var (
	textColor    = color.RGBA{255, 255, 255, 255}
	invTextColor = color.RGBA{0, 0, 0, 255}
	invCellColor = color.RGBA{240, 240, 240, 255}
)

// Render composites the overlay onto a colour-bar test signal. The
// high-res filter smooths bar edges horizontally, two pixels per step.
// When the overlay is disabled only the video is drawn.
func (c *Chip) Render(d drivers.Displayer, font tinyfont.Fonter) error {
	c.mu.Lock()
	rows := make([][]Cell, len(c.mem))
	for i := range c.mem {
		rows[i] = append([]Cell(nil), c.mem[i]...)
	}
	enabled := c.enabled
	radius := int(c.highRes) * 2
	c.mu.Unlock()

	w16, h16 := d.Size()
	w, h := int(w16), int(h16)
	if w <= 0 || h <= 0 {
		return nil
	}

	video := filteredBars(w, radius)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d.SetPixel(int16(x), int16(y), video[x])
		}
	}

	if enabled {
		x0 := (w - c.cols*CellWidth) / 2
		y0 := (h - c.rows*CellHeight) / 2
		if x0 < 0 {
			x0 = 0
		}
		if y0 < 0 {
			y0 = 0
		}
		for r, row := range rows {
			drawRow(d, font, video, x0, y0+r*CellHeight, w, h, row)
		}
	}
	return d.Display()
}

func drawRow(d drivers.Displayer, font tinyfont.Fonter, video []color.RGBA, x0, y0, w, h int, row []Cell) {
	for i, cell := range row {
		cx := x0 + i*CellWidth
		fg := textColor
		for y := y0; y < y0+CellHeight && y < h; y++ {
			for x := cx; x < cx+CellWidth && x < w; x++ {
				if cell.Inverted {
					d.SetPixel(int16(x), int16(y), invCellColor)
				} else {
					d.SetPixel(int16(x), int16(y), darken(video[x]))
				}
			}
		}
		if cell.Inverted {
			fg = invTextColor
		}
		if font == nil || cell.Code <= 0x20 || cell.Code == 0x7F {
			continue
		}
		tinyfont.DrawChar(d, font, int16(cx+1), int16(y0+CellHeight-2), rune(cell.Code), fg)
	}
}

func darken(c color.RGBA) color.RGBA {
	return color.RGBA{c.R / 4, c.G / 4, c.B / 4, 255}
}

func barAt(x, w int) color.RGBA {
	barWidth := w / len(barColors)
	if barWidth <= 0 {
		return barColors[0]
	}
	idx := x / barWidth
	if idx < 0 {
		idx = 0
	}
	if idx >= len(barColors) {
		idx = len(barColors) - 1
	}
	return barColors[idx]
}

func filteredBars(w, radius int) []color.RGBA {
	out := make([]color.RGBA, w)
	for x := 0; x < w; x++ {
		if radius == 0 {
			out[x] = barAt(x, w)
			continue
		}
		var r, g, b, n int
		for dx := -radius; dx <= radius; dx++ {
			xx := x + dx
			if xx < 0 || xx >= w {
				continue
			}
			c := barAt(xx, w)
			r += int(c.R)
			g += int(c.G)
			b += int(c.B)
			n++
		}
		out[x] = color.RGBA{uint8(r / n), uint8(g / n), uint8(b / n), 255}
	}
	return out
}
