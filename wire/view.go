package wire

import (
	"github.com/wippyai/fidlwire/coding"
	"github.com/wippyai/fidlwire/errors"
	"github.com/wippyai/fidlwire/handle"
)

// The helpers below read a buffer after a successful Decode. They map the
// addresses written into presence markers back to buffer offsets, so
// callers never dereference them. Applied to an undecoded buffer they
// report an error.

// PointerTarget returns the offset the decoded presence marker at off
// refers to. present is false for an absent pointer.
func PointerTarget(b []byte, off uint32) (target uint32, present bool, err error) {
	if uint64(off)+coding.PointerSize > uint64(len(b)) {
		return 0, false, errors.Memory(errors.PhaseDecode, errors.KindOutOfBounds, off, "pointer outside buffer")
	}
	addr := readU64(b, position{off: off})
	if addr == coding.AllocAbsent {
		return 0, false, nil
	}
	base := uint64(baseAddress(b))
	if addr < base || addr-base > uint64(len(b)) {
		return 0, false, errors.Constraint(errors.PhaseDecode, errors.KindInvalidInput, off,
			"pointer does not refer into buffer")
	}
	return uint32(addr - base), true, nil
}

// VectorAt returns the elements of the decoded vector whose header is at
// off, each elementSize bytes wide.
func VectorAt(b []byte, off, elementSize uint32) (data []byte, present bool, err error) {
	if uint64(off)+coding.VectorHeaderSize > uint64(len(b)) {
		return nil, false, errors.Memory(errors.PhaseDecode, errors.KindOutOfBounds, off, "vector header outside buffer")
	}
	count := readU64(b, position{off: off})
	target, present, err := PointerTarget(b, off+8)
	if err != nil || !present {
		return nil, false, err
	}
	size, ok := mulU32(count, uint64(elementSize))
	if !ok || uint64(target)+uint64(size) > uint64(len(b)) {
		return nil, false, errors.Memory(errors.PhaseDecode, errors.KindOutOfBounds, off, "vector body outside buffer")
	}
	return b[target : target+size : target+size], true, nil
}

// StringAt returns the decoded string whose header is at off.
func StringAt(b []byte, off uint32) (s string, present bool, err error) {
	data, present, err := VectorAt(b, off, 1)
	if err != nil || !present {
		return "", present, err
	}
	return string(data), true, nil
}

// HandleAt returns the decoded handle at off. Absent handles are Invalid.
func HandleAt(b []byte, off uint32) (handle.Handle, error) {
	if uint64(off)+coding.HandleSize > uint64(len(b)) {
		return handle.Invalid, errors.Memory(errors.PhaseDecode, errors.KindOutOfBounds, off, "handle outside buffer")
	}
	return handle.Handle(readU32(b, position{off: off})), nil
}
