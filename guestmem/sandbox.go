package guestmem

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/fidlwire/errors"
)

// memoryModule is a wasm module with one page of memory exported as
// "memory" and nothing else.
var memoryModule = []byte{
	0x00, 0x61, 0x73, 0x6d, // \0asm
	0x01, 0x00, 0x00, 0x00, // version 1
	0x05, 0x03, 0x01, 0x00, 0x01, // memory section: 1 memory, min 1 page
	0x07, 0x0a, 0x01, // export section: 1 export
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00, // "memory" -> memory 0
}

// Sandbox is a wazero runtime holding a memory-only guest.
type Sandbox struct {
	runtime wazero.Runtime
	module  api.Module
}

// NewSandbox instantiates the memory-only guest.
func NewSandbox(ctx context.Context) (*Sandbox, error) {
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	mod, err := r.Instantiate(ctx, memoryModule)
	if err != nil {
		_ = r.Close(ctx)
		return nil, errors.Wrap(errors.PhaseGuest, errors.KindInvalidData, err, "instantiate memory module")
	}
	return &Sandbox{runtime: r, module: mod}, nil
}

// Memory returns the guest memory.
func (s *Sandbox) Memory() api.Memory {
	return s.module.ExportedMemory("memory")
}

// Stage grows guest memory as needed, copies b to an aligned offset and
// returns it.
func (s *Sandbox) Stage(b []byte) (uint32, error) {
	mem := s.Memory()
	const ptr = 64
	need := uint64(ptr) + uint64(len(b))
	if need > uint64(mem.Size()) {
		pages := uint32((need - uint64(mem.Size()) + 0xffff) / 0x10000)
		if _, ok := mem.Grow(pages); !ok {
			return 0, errors.New(errors.PhaseGuest, errors.KindOutOfBounds).
				Status(errors.StatusMemoryError).
				Detail("cannot grow guest memory by %d pages", pages).
				Build()
		}
	}
	if !mem.Write(ptr, b) {
		return 0, errors.Memory(errors.PhaseGuest, errors.KindOutOfBounds, ptr, "stage message")
	}
	return ptr, nil
}

// Close releases the runtime.
func (s *Sandbox) Close(ctx context.Context) error {
	return s.runtime.Close(ctx)
}
