package window

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/go-gl/glfw/v3.3/glfw"
)

func TestKeyCodesMatchGLFW(t *testing.T) {
	tests := []struct {
		name string
		got  uint32
		want glfw.Key
	}{
		{"space", common.KeySpace, glfw.KeySpace},
		{"L", common.KeyL, glfw.KeyL},
		{"P", common.KeyP, glfw.KeyP},
		{"R", common.KeyR, glfw.KeyR},
		{"S", common.KeyS, glfw.KeyS},
		{"escape", common.KeyEsc, glfw.KeyEscape},
	}
	for _, tt := range tests {
		if tt.got != uint32(tt.want) {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}
