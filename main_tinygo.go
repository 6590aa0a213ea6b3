//go:build tinygo

package main

import (
	"osdkit/app"
	"osdkit/hal"
)

func main() {
	app.RunWithConfig(hal.New(), app.Config{ActiveLow: hal.ButtonsActiveLow})
}
