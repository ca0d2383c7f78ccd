package camera

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUCameraUniformSource is the canonical WGSL definition of the CameraUniform struct.
// Matches GPUCameraUniform layout exactly (288 bytes, std430 aligned).
//
//go:embed assets/camera_uniform.wgsl
var GPUCameraUniformSource string

// GPUCameraUniform is the GPU-aligned representation of the camera uniform buffer.
// Matches the WGSL CameraUniform struct layout exactly (see GPUCameraUniformSource).
// Size: 288 bytes (std430 / WGSL aligned).
type GPUCameraUniform struct {
	ViewProj       [16]float32 // offset   0: world to clip (mat4x4<f32>)
	View           [16]float32 // offset  64: world to view (mat4x4<f32>)
	Proj           [16]float32 // offset 128: view to clip (mat4x4<f32>)
	InverseProj    [16]float32 // offset 192: clip to view, used to rebuild tile frusta
	CameraPosition [3]float32  // offset 256: world-space camera position (vec3<f32>)
	Near           float32     // offset 268
	Viewport       [2]float32  // offset 272: output size in pixels (vec2<f32>)
	Far            float32     // offset 280
	_pad           float32     // offset 284: padding to 288 bytes
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (288)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	putMat := func(off int, m [16]float32) {
		for i := range 16 {
			binary.LittleEndian.PutUint32(buf[off+i*4:], math.Float32bits(m[i]))
		}
	}
	putMat(0, g.ViewProj)
	putMat(64, g.View)
	putMat(128, g.Proj)
	putMat(192, g.InverseProj)
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[256+i*4:], math.Float32bits(g.CameraPosition[i]))
	}
	binary.LittleEndian.PutUint32(buf[268:], math.Float32bits(g.Near))
	binary.LittleEndian.PutUint32(buf[272:], math.Float32bits(g.Viewport[0]))
	binary.LittleEndian.PutUint32(buf[276:], math.Float32bits(g.Viewport[1]))
	binary.LittleEndian.PutUint32(buf[280:], math.Float32bits(g.Far))
	binary.LittleEndian.PutUint32(buf[284:], 0) // _pad
	return buf
}
