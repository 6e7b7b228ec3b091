//go:build sdl

package display

import (
	"testing"

	"github.com/veandco/go-sdl2/sdl"
)

func TestKeyRune(t *testing.T) {
	tests := []struct {
		key    sdl.Keycode
		want   rune
		wantOK bool
	}{
		{sdl.K_s, 's', true},
		{sdl.K_q, 'q', true},
		{sdl.K_p, 'p', true},
		{sdl.K_SPACE, 0, false},
		{sdl.K_ESCAPE, 0, false},
		{sdl.K_F1, 0, false},
	}
	for _, tt := range tests {
		got, ok := keyRune(tt.key)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("keyRune(%d) = %q, %v; want %q, %v", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}
}
