//go:build sdl

package main

import (
	"github.com/veandco/go-sdl2/sdl"

	_ "github.com/Faultbox/arcalib/internal/display"
)

func init() {
	runMain = sdl.Main
}
