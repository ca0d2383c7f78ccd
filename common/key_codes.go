package common

// Key codes delivered by window key callbacks. Printable keys use their ASCII value,
// matching GLFW.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeySpace = 32  // space bar
	KeyL     = 76  // L
	KeyP     = 80  // P
	KeyR     = 82  // R
	KeyS     = 83  // S
	KeyEsc   = 256 // escape, the window closes itself on it
)
