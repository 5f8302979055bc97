package coding

import (
	"math"

	"github.com/wippyai/fidlwire/errors"
)

// Wire layout constants.
const (
	Alignment        = 8
	PointerSize      = 8
	HandleSize       = 4
	VectorHeaderSize = 16
	EnvelopeSize     = 16
	XUnionSize       = 8 + EnvelopeSize

	// MaxDepth is the default limit on out-of-line nesting.
	MaxDepth = 32
	// MaxMsgHandles is the most handles a channel message may carry.
	MaxMsgHandles = 64
)

// Presence markers.
const (
	AllocAbsent   uint64 = 0
	AllocPresent  uint64 = math.MaxUint64
	HandleAbsent  uint32 = 0
	HandlePresent uint32 = math.MaxUint32
)

// Align rounds offset up to the wire alignment. ok is false on overflow.
func Align(offset uint32) (uint32, bool) {
	aligned := (uint64(offset) + Alignment - 1) &^ (Alignment - 1)
	if aligned > math.MaxUint32 {
		return 0, false
	}
	return uint32(aligned), true
}

// IsAligned reports whether offset is a multiple of the wire alignment.
func IsAligned(offset uint64) bool {
	return offset&(Alignment-1) == 0
}

// PrimaryObjectSize is the inline size of a message whose top-level type is
// t. Only structs, tables and xunions may be messages.
func PrimaryObjectSize(t Type) (uint32, error) {
	switch t := t.(type) {
	case *Struct:
		return t.Size, nil
	case *Table:
		return VectorHeaderSize, nil
	case *XUnion:
		return XUnionSize, nil
	}
	return 0, errors.Constraint(errors.PhaseSchema, errors.KindUnsupported, errors.NoOffset,
		"Message must be a struct, table, or union")
}

// StartingOutOfLineOffset is the offset of the first out-of-line object in a
// buffer of numBytes holding t.
func StartingOutOfLineOffset(t Type, numBytes uint32) (uint32, error) {
	size, err := PrimaryObjectSize(t)
	if err != nil {
		return 0, err
	}
	off, ok := Align(size)
	if !ok {
		return 0, errors.Memory(errors.PhaseSchema, errors.KindOverflow, errors.NoOffset,
			"primary object size overflows")
	}
	if off > numBytes {
		return 0, errors.Memory(errors.PhaseSchema, errors.KindOutOfBounds, errors.NoOffset,
			"Buffer is too small for first inline object")
	}
	return off, nil
}

// InlineAlign is the alignment t requires inline.
func InlineAlign(t Type) uint32 {
	switch t := t.(type) {
	case *Primitive:
		return t.Subtype.Size()
	case *Enum:
		return t.Underlying.Size()
	case *Bits:
		return t.Underlying.Size()
	case *Handle:
		return HandleSize
	case *Array:
		if t.Element == nil {
			return 1
		}
		return InlineAlign(t.Element)
	case *Struct:
		align := uint32(1)
		for _, e := range t.Elements {
			if e.Kind == ElementField && e.Type != nil {
				align = max(align, InlineAlign(e.Type))
			}
		}
		return align
	default:
		return Alignment
	}
}
