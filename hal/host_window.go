//go:build !tinygo && cgo

package hal

import (
	"image"

	"osdkit/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont/proggy"
)

// RunWindow starts a desktop window that shows the composited preview of
// the simulated companion chip and maps the keyboard onto the control
// pins. It blocks until the window closes.
func RunWindow(newApp func(HAL) func() error, cfg HostConfig) error {
	cfg.Hz = windowTPS
	h := newHost(cfg)
	step := newApp(h)

	g := &hostGame{h: h, step: step, disp: NewFramebufferDisplayer(h.fb)}
	ebiten.SetWindowTitle("OSD simulator (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(h.fb.width*2, h.fb.height*2)
	ebiten.SetTPS(windowTPS)
	return ebiten.RunGame(g)
}

const windowTPS = 60

type hostGame struct {
	h       *hostHAL
	disp    drivers.Displayer
	img     *image.RGBA
	fbImg   *ebiten.Image
	scratch []byte
	step    func() error
}

func (g *hostGame) Update() error {
	g.h.keys.poll()
	g.h.clock.step()
	if g.step != nil {
		if err := g.step(); err != nil {
			return err
		}
	}
	return g.h.chip.Render(g.disp, &proggy.TinySZ8pt7b)
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.img == nil || g.img.Bounds().Dx() != fb.width || g.img.Bounds().Dy() != fb.height {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		g.scratch = make([]byte, len(fb.buf))
		if g.fbImg != nil {
			g.fbImg.Deallocate()
		}
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}

	fb.snapshotRGB565(g.scratch)

	src := g.scratch
	dst := g.img.Pix
	for i := 0; i+1 < len(src) && i/2*4+3 < len(dst); i += 2 {
		r, gg, b := rgb888From565(uint16(src[i]) | uint16(src[i+1])<<8)
		j := (i / 2) * 4
		dst[j+0] = r
		dst[j+1] = gg
		dst[j+2] = b
		dst[j+3] = 0xFF
	}

	g.fbImg.WritePixels(g.img.Pix)
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}
