package light

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/gogpu/gputypes"
)

var (
	// ErrIndexOutOfRange is returned by SetLightData for an index past the capacity.
	ErrIndexOutOfRange = errors.New("light: index out of range")

	// ErrBufferNotPrepared is returned by FinalizeBufLights before the first PrepareBufLights.
	ErrBufferNotPrepared = errors.New("light: light buffer not prepared")
)

// minLightCapacity is the smallest record capacity of a light data buffer.
const minLightCapacity = 8

type lightDataBuffer struct {
	device renderer.Device
	label  string

	buffer     renderer.Buffer
	capacity   int
	count      int
	generation uint64

	header  GPULightHeader
	staging []GPULight
}

// LightDataBuffer is a GPU storage buffer of packed light records preceded by a
// GPULightHeader.
//
// Writes follow a two-phase protocol: SetLightData fills a CPU staging array and
// FinalizeBufLights uploads the header and records [0, Count()) in one write. The
// buffer grows when a frame needs more records than fit and never shrinks. Growth
// replaces the GPU buffer, so resource sets referencing Buffer() must be rebuilt
// whenever PrepareBufLights reports a recreation.
type LightDataBuffer interface {
	// PrepareBufLights sets the record count for this frame, growing the buffer if needed.
	//
	// Parameters:
	//   - required: the number of records this frame
	//
	// Returns:
	//   - bool: true if the GPU buffer was (re)created
	//   - error: a creation error; the previous buffer is kept on failure
	PrepareBufLights(required int) (bool, error)

	// SetLightData stages one record.
	//
	// Parameters:
	//   - index: the record index, less than Capacity()
	//   - data: the packed light
	//
	// Returns:
	//   - error: ErrIndexOutOfRange if index >= Capacity(); nothing is written
	SetLightData(index int, data GPULight) error

	// SetHeader stages the header values uploaded with the records.
	//
	// Parameters:
	//   - ambient: the scene ambient color
	//   - shadowed: the length of the shadow-mapped prefix
	SetHeader(ambient common.Vec3, shadowed int)

	// Light returns a staged record.
	Light(index int) (GPULight, bool)

	// FinalizeBufLights uploads the header and the first Count() records.
	//
	// Parameters:
	//   - cmd: the command list to record the write into, or nil to write through the device
	//
	// Returns:
	//   - error: ErrBufferNotPrepared or a write error
	FinalizeBufLights(cmd renderer.CommandList) error

	// Count returns the number of records uploaded by FinalizeBufLights.
	Count() int

	// Capacity returns how many records fit in the GPU buffer.
	Capacity() int

	// Buffer returns the GPU buffer, or nil before the first PrepareBufLights.
	Buffer() renderer.Buffer

	// Generation increments every time the GPU buffer is replaced.
	Generation() uint64

	// Release releases the GPU buffer.
	Release()
}

var _ LightDataBuffer = &lightDataBuffer{}

// NewLightDataBuffer creates an empty light data buffer. No GPU memory is allocated
// until PrepareBufLights.
//
// Parameters:
//   - device: the device that creates the buffer
//   - label: debug label of the buffer
//
// Returns:
//   - LightDataBuffer: the new buffer
func NewLightDataBuffer(device renderer.Device, label string) LightDataBuffer {
	return &lightDataBuffer{device: device, label: label}
}

// LightBufferSize returns the byte size of a light buffer holding capacity records.
func LightBufferSize(capacity int) uint64 {
	return uint64(GPULightHeaderSize + capacity*GPULightSize)
}

func nextCapacity(required int) int {
	c := minLightCapacity
	for c < required {
		c *= 2
	}
	return c
}

func (b *lightDataBuffer) PrepareBufLights(required int) (bool, error) {
	if required < 0 {
		return false, fmt.Errorf("%s: negative light count %d: %w", b.label, required, ErrIndexOutOfRange)
	}
	recreated := false
	if b.buffer == nil || b.buffer.Released() || required > b.capacity {
		capacity := max(nextCapacity(required), b.capacity)
		buf, err := b.device.CreateBuffer(renderer.BufferDescriptor{
			Label: b.label,
			Size:  LightBufferSize(capacity),
			Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return false, fmt.Errorf("%s: grow to %d lights: %w", b.label, capacity, err)
		}
		if b.buffer != nil {
			b.buffer.Release()
		}
		b.buffer = buf
		b.capacity = capacity
		b.staging = append(b.staging, make([]GPULight, capacity-len(b.staging))...)
		b.generation++
		recreated = true
	}
	b.count = required
	return recreated, nil
}

func (b *lightDataBuffer) SetLightData(index int, data GPULight) error {
	if index < 0 || index >= b.capacity {
		return fmt.Errorf("%s: index %d, capacity %d: %w", b.label, index, b.capacity, ErrIndexOutOfRange)
	}
	b.staging[index] = data
	return nil
}

func (b *lightDataBuffer) SetHeader(ambient common.Vec3, shadowed int) {
	b.header.AmbientColor = ambient
	b.header.ShadowedCount = uint32(max(shadowed, 0))
}

func (b *lightDataBuffer) Light(index int) (GPULight, bool) {
	if index < 0 || index >= b.count {
		return GPULight{}, false
	}
	return b.staging[index], true
}

func (b *lightDataBuffer) FinalizeBufLights(cmd renderer.CommandList) error {
	if b.buffer == nil {
		return fmt.Errorf("%s: %w", b.label, ErrBufferNotPrepared)
	}
	b.header.LightCount = uint32(b.count)
	b.header.ShadowedCount = min(b.header.ShadowedCount, uint32(b.count))

	data := make([]byte, LightBufferSize(b.count))
	copy(data, b.header.Marshal())
	for i := range b.count {
		off := GPULightHeaderSize + i*GPULightSize
		b.staging[i].marshalInto(data[off : off+GPULightSize])
	}

	var err error
	if cmd != nil {
		err = cmd.WriteBuffer(b.buffer, 0, data)
	} else {
		err = b.device.WriteBuffer(b.buffer, 0, data)
	}
	if err != nil {
		return fmt.Errorf("%s: upload %d lights: %w", b.label, b.count, err)
	}
	return nil
}

func (b *lightDataBuffer) Count() int {
	return b.count
}

func (b *lightDataBuffer) Capacity() int {
	return b.capacity
}

func (b *lightDataBuffer) Buffer() renderer.Buffer {
	return b.buffer
}

func (b *lightDataBuffer) Generation() uint64 {
	return b.generation
}

func (b *lightDataBuffer) Release() {
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
	b.capacity, b.count = 0, 0
	b.staging = nil
}
