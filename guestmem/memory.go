package guestmem

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/fidlwire/coding"
	"github.com/wippyai/fidlwire/errors"
	"github.com/wippyai/fidlwire/handle"
	"github.com/wippyai/fidlwire/wire"
)

// Memory checks messages held in guest linear memory.
type Memory struct {
	mem     api.Memory
	decoder *wire.Decoder
}

// New wraps mem. A nil decoder uses the defaults.
func New(mem api.Memory, decoder *wire.Decoder) *Memory {
	if decoder == nil {
		decoder = wire.NewDecoder()
	}
	return &Memory{mem: mem, decoder: decoder}
}

// View returns the guest bytes at [ptr, ptr+size). The slice aliases guest
// memory.
func (m *Memory) View(ptr, size uint32) ([]byte, error) {
	if ptr%coding.Alignment != 0 {
		return nil, errors.Constraint(errors.PhaseGuest, errors.KindAlignment, ptr,
			"message is not 8-byte aligned in guest memory")
	}
	b, ok := m.mem.Read(ptr, size)
	if !ok {
		return nil, errors.New(errors.PhaseGuest, errors.KindOutOfBounds).
			Offset(ptr).
			Status(errors.StatusMemoryError).
			Detail("read out of bounds: size=%d, memory=%d", size, m.mem.Size()).
			Build()
	}
	return b, nil
}

// Write copies b into guest memory at ptr.
func (m *Memory) Write(ptr uint32, b []byte) error {
	if !m.mem.Write(ptr, b) {
		return errors.New(errors.PhaseGuest, errors.KindOutOfBounds).
			Offset(ptr).
			Status(errors.StatusMemoryError).
			Detail("write out of bounds: size=%d, memory=%d", len(b), m.mem.Size()).
			Build()
	}
	return nil
}

// Validate checks the message at [ptr, ptr+size) without modifying it.
func (m *Memory) Validate(t coding.Type, ptr, size, numHandles uint32) error {
	b, err := m.View(ptr, size)
	if err != nil {
		return err
	}
	return m.decoder.Validate(t, b, numHandles)
}

// Decode decodes the message at [ptr, ptr+size) in place and returns the
// view it was decoded in. Handles follow the decoder's rules: they are
// consumed on success and closed on failure.
func (m *Memory) Decode(t coding.Type, ptr, size uint32, infos []handle.Info) ([]byte, error) {
	b, err := m.View(ptr, size)
	if err != nil {
		if tbl := m.decoder.Table(); tbl != nil {
			_ = tbl.CloseMany(handle.Handles(infos))
		}
		return nil, err
	}
	if err := m.decoder.DecodeEtc(t, b, infos); err != nil {
		return nil, err
	}
	return b, nil
}
