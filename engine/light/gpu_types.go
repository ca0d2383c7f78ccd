package light

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
)

// GPU light flag bits stored in GPULight.Flags.
const (
	// FlagShadowMapped marks a light whose shadow maps occupy slots of the shadow map array.
	FlagShadowMapped uint32 = 1 << iota
	// FlagStatic marks a light whose shadow maps come from its cache.
	FlagStatic
)

// GPULightSource is the canonical WGSL definition of the Light struct.
// Matches GPULight layout exactly (80 bytes, std430 aligned).
//
//go:embed assets/light.wgsl
var GPULightSource string

// GPULightSize is the packed size of one GPULight record.
const GPULightSize = 80

// GPULight is the GPU-aligned representation of a single light source.
// Matches the WGSL Light struct layout exactly (see GPULightSource).
// Size: 80 bytes (std430 / WGSL aligned).
type GPULight struct {
	Position     [3]float32 // offset  0: world-space position (point/spot) or unused (directional)
	LightType    uint32     // offset 12: 0 = directional, 1 = point, 2 = spot
	Color        [3]float32 // offset 16: RGB color
	Intensity    float32    // offset 28: scalar multiplier
	Direction    [3]float32 // offset 32: normalized direction (directional/spot) or unused (point)
	LightRange   float32    // offset 44: attenuation cutoff distance
	InnerCone    float32    // offset 48: cos(inner half-angle) for spot
	OuterCone    float32    // offset 52: cos(outer half-angle) for spot
	ShadowSlot   uint32     // offset 56: first shadow map array layer
	CascadeCount uint32     // offset 60: shadow maps rendered for the light, 0 when unmapped
	DepthBias    float32    // offset 64
	NormalBias   float32    // offset 68
	Flags        uint32     // offset 72: FlagShadowMapped | FlagStatic
	_pad         uint32     // offset 76: padding to 80 bytes
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (g *GPULight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, GPULightSize)
	g.marshalInto(buf)
	return buf
}

func (g *GPULight) marshalInto(buf []byte) {
	f32 := func(off int, v float32) { binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v)) }
	for i := range 3 {
		f32(i*4, g.Position[i])
		f32(16+i*4, g.Color[i])
		f32(32+i*4, g.Direction[i])
	}
	binary.LittleEndian.PutUint32(buf[12:16], g.LightType)
	f32(28, g.Intensity)
	f32(44, g.LightRange)
	f32(48, g.InnerCone)
	f32(52, g.OuterCone)
	binary.LittleEndian.PutUint32(buf[56:60], g.ShadowSlot)
	binary.LittleEndian.PutUint32(buf[60:64], g.CascadeCount)
	f32(64, g.DepthBias)
	f32(68, g.NormalBias)
	binary.LittleEndian.PutUint32(buf[72:76], g.Flags)
	binary.LittleEndian.PutUint32(buf[76:80], 0) // padding
}

// UnmarshalGPULight decodes a record written by GPULight.Marshal.
//
// Parameters:
//   - buf: at least 80 bytes
//
// Returns:
//   - GPULight: the decoded record
func UnmarshalGPULight(buf []byte) GPULight {
	_ = buf[GPULightSize-1]
	f32 := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4])) }
	var g GPULight
	for i := range 3 {
		g.Position[i] = f32(i * 4)
		g.Color[i] = f32(16 + i*4)
		g.Direction[i] = f32(32 + i*4)
	}
	g.LightType = binary.LittleEndian.Uint32(buf[12:16])
	g.Intensity = f32(28)
	g.LightRange = f32(44)
	g.InnerCone = f32(48)
	g.OuterCone = f32(52)
	g.ShadowSlot = binary.LittleEndian.Uint32(buf[56:60])
	g.CascadeCount = binary.LittleEndian.Uint32(buf[60:64])
	g.DepthBias = f32(64)
	g.NormalBias = f32(68)
	g.Flags = binary.LittleEndian.Uint32(buf[72:76])
	return g
}

// GPULightHeaderSource is the canonical WGSL definition of the LightHeader struct.
// Matches GPULightHeader layout exactly (32 bytes, std430 aligned).
//
//go:embed assets/light_header.wgsl
var GPULightHeaderSource string

// GPULightHeaderSize is the packed size of the light buffer header.
const GPULightHeaderSize = 32

// GPULightHeader is the header prepended to the light storage buffer.
// Shadow-mapped lights are the first ShadowedCount records after the header.
// Matches the WGSL LightHeader struct layout exactly (see GPULightHeaderSource).
// Size: 32 bytes.
type GPULightHeader struct {
	AmbientColor  [3]float32 // offset  0: scene ambient RGB
	LightCount    uint32     // offset 12: number of records following the header
	ShadowedCount uint32     // offset 16: length of the shadow-mapped prefix
	_pad          [3]uint32  // offset 20: padding to 32 bytes
}

// Size returns the size of the GPULightHeader struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (h *GPULightHeader) Size() int {
	return int(unsafe.Sizeof(*h))
}

// Marshal serializes the GPULightHeader struct into a byte buffer suitable for
// GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (h *GPULightHeader) Marshal() []byte {
	buf := make([]byte, GPULightHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(h.AmbientColor[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(h.AmbientColor[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(h.AmbientColor[2]))
	binary.LittleEndian.PutUint32(buf[12:16], h.LightCount)
	binary.LittleEndian.PutUint32(buf[16:20], h.ShadowedCount)
	return buf
}

// GPUShadowPassSource is the canonical WGSL definition of the ShadowPass struct.
// Matches GPUShadowPass layout exactly (80 bytes, std430 aligned).
//
//go:embed assets/shadow_pass.wgsl
var GPUShadowPassSource string

// GPUShadowPassSize is the packed size of the per-cascade shadow pass constants.
const GPUShadowPassSize = 80

// GPUShadowPass holds the constants of one shadow cascade render.
// Matches the WGSL ShadowPass struct layout exactly (see GPUShadowPassSource).
// Size: 80 bytes.
//
// Layout:
//
//	mat4x4<f32> light_vp    (64 bytes, offset 0)
//	f32         depth_bias  ( 4 bytes, offset 64)
//	f32         normal_bias ( 4 bytes, offset 68)
//	u32         slot        ( 4 bytes, offset 72)
//	u32         cascade     ( 4 bytes, offset 76)
type GPUShadowPass struct {
	LightVP    [16]float32 // world to light clip space
	DepthBias  float32
	NormalBias float32
	Slot       uint32 // shadow map array layer
	Cascade    uint32
}

// Size returns the size of the GPUShadowPass struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (s *GPUShadowPass) Size() int {
	return int(unsafe.Sizeof(*s))
}

// Marshal serializes the GPUShadowPass struct into a byte buffer suitable for
// GPU uniform upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload
func (s *GPUShadowPass) Marshal() []byte {
	buf := make([]byte, GPUShadowPassSize)
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(s.LightVP[i]))
	}
	binary.LittleEndian.PutUint32(buf[64:68], math.Float32bits(s.DepthBias))
	binary.LittleEndian.PutUint32(buf[68:72], math.Float32bits(s.NormalBias))
	binary.LittleEndian.PutUint32(buf[72:76], s.Slot)
	binary.LittleEndian.PutUint32(buf[76:80], s.Cascade)
	return buf
}

// ShadowPassLayout is the resource layout bound at group 1 during shadow passes:
// the GPUShadowPass constants of the cascade being rendered.
var ShadowPassLayout = renderer.ResourceLayout{
	Label: "Shadow Pass",
	Entries: []renderer.LayoutEntry{
		{Binding: 0, Kind: renderer.BindingUniformBuffer},
	},
}
