package bind_group_provider

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
)

// BufferWrite describes a single GPU buffer write targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  uint32
	Offset   uint64
	Data     []byte
}

// WriteBuffers records every write on cmd. Writes whose binding has no buffer are
// reported but do not stop the remaining writes.
//
// Parameters:
//   - cmd: the command list receiving the writes
//   - writes: the writes to perform
//
// Returns:
//   - error: the joined errors of failed writes, or nil
func WriteBuffers(cmd renderer.CommandList, writes []BufferWrite) error {
	var errs []error
	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			errs = append(errs, fmt.Errorf("%s: binding %d has no buffer", w.Provider.Label(), w.Binding))
			continue
		}
		if err := cmd.WriteBuffer(buf, w.Offset, w.Data); err != nil {
			errs = append(errs, fmt.Errorf("%s: binding %d: %w", w.Provider.Label(), w.Binding, err))
		}
	}
	return errors.Join(errs...)
}
