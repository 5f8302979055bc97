package wire

import "encoding/binary"

// position is an offset into the message buffer. Callers prove every access
// in bounds before reading, through the out-of-line claim or the primary
// object size check.
type position struct {
	off uint32
}

func (p position) add(n uint32) position {
	return position{off: p.off + n}
}

func readU8(b []byte, p position) uint8 {
	return b[p.off]
}

func readU16(b []byte, p position) uint16 {
	return binary.LittleEndian.Uint16(b[p.off:])
}

func readU32(b []byte, p position) uint32 {
	return binary.LittleEndian.Uint32(b[p.off:])
}

func readU64(b []byte, p position) uint64 {
	return binary.LittleEndian.Uint64(b[p.off:])
}

// readUint widens a size-byte little-endian integer at p, sign-extending
// when signed.
func readUint(b []byte, p position, size uint32, signed bool) uint64 {
	switch size {
	case 1:
		v := readU8(b, p)
		if signed {
			return uint64(int64(int8(v)))
		}
		return uint64(v)
	case 2:
		v := readU16(b, p)
		if signed {
			return uint64(int64(int16(v)))
		}
		return uint64(v)
	case 4:
		v := readU32(b, p)
		if signed {
			return uint64(int64(int32(v)))
		}
		return uint64(v)
	default:
		return readU64(b, p)
	}
}

func writeU32(b []byte, p position, v uint32) {
	binary.LittleEndian.PutUint32(b[p.off:], v)
}

func writeU64(b []byte, p position, v uint64) {
	binary.LittleEndian.PutUint64(b[p.off:], v)
}

// envelopeHeader is the 16-byte envelope as read from the wire.
type envelopeHeader struct {
	pos        position
	presence   uint64
	numBytes   uint32
	numHandles uint32
}

func readEnvelope(b []byte, p position) envelopeHeader {
	return envelopeHeader{
		pos:        p,
		numBytes:   readU32(b, p),
		numHandles: readU32(b, p.add(4)),
		presence:   readU64(b, p.add(8)),
	}
}

func (e envelopeHeader) dataPos() position {
	return e.pos.add(8)
}
