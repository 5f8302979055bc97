package wire

import (
	"math"
	"unsafe"

	"github.com/wippyai/fidlwire/coding"
)

// addOutOfLine returns the offset following an object of size placed at
// current, aligned to the wire alignment. ok is false on overflow.
func addOutOfLine(current, size uint32) (uint32, bool) {
	end := uint64(current) + uint64(size)
	aligned := (end + coding.Alignment - 1) &^ (coding.Alignment - 1)
	if aligned > math.MaxUint32 {
		return 0, false
	}
	return uint32(aligned), true
}

func addU32(a, b uint32) (uint32, bool) {
	if a > math.MaxUint32-b {
		return 0, false
	}
	return a + b, true
}

func mulU32(a, b uint64) (uint32, bool) {
	if b != 0 && a > math.MaxUint32/b {
		return 0, false
	}
	return uint32(a * b), true
}

// baseAddress is the address of the first byte of b, or 0 when b is empty.
func baseAddress(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

// addressOf is the in-process address of b[off]. Decode writes these into
// presence markers; nothing in this module dereferences them.
func addressOf(b []byte, off uint32) uint64 {
	return uint64(baseAddress(b)) + uint64(off)
}
