//go:build !tinygo && cgo

package hal

import "github.com/hajimehoshi/ebiten/v2"

// poll samples the keyboard as button levels. Arrow keys move, Enter
// selects, Escape or Tab opens the menu.
func (k hostKeys) poll() {
	k.up.Drive(ebiten.IsKeyPressed(ebiten.KeyArrowUp))
	k.down.Drive(ebiten.IsKeyPressed(ebiten.KeyArrowDown))
	k.sel.Drive(ebiten.IsKeyPressed(ebiten.KeyEnter) || ebiten.IsKeyPressed(ebiten.KeySpace))
	k.menu.Drive(ebiten.IsKeyPressed(ebiten.KeyEscape) || ebiten.IsKeyPressed(ebiten.KeyTab))
}
