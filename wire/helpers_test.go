package wire

import (
	"encoding/binary"
	stderrors "errors"
	"testing"
	"unsafe"

	"github.com/wippyai/fidlwire/coding"
	"github.com/wippyai/fidlwire/errors"
)

const present = coding.AllocPresent

// msg builds little-endian wire bytes.
type msg struct {
	b []byte
}

func (m *msg) u32(v uint32) *msg {
	m.b = binary.LittleEndian.AppendUint32(m.b, v)
	return m
}

func (m *msg) u64(v uint64) *msg {
	m.b = binary.LittleEndian.AppendUint64(m.b, v)
	return m
}

func (m *msg) raw(bs ...byte) *msg {
	m.b = append(m.b, bs...)
	return m
}

func (m *msg) zeros(n int) *msg {
	m.b = append(m.b, make([]byte, n)...)
	return m
}

func (m *msg) envelope(numBytes, numHandles uint32, presence uint64) *msg {
	return m.u32(numBytes).u32(numHandles).u64(presence)
}

func (m *msg) bytes() []byte {
	return aligned(m.b)
}

// aligned copies b into 8-byte aligned storage.
func aligned(b []byte) []byte {
	words := make([]uint64, (len(b)+7)/8+1)
	out := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), len(b))
	copy(out, b)
	return out
}

func expectError(t *testing.T, err error, status errors.Status, detail string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s %q, got success", status, detail)
	}
	if got := errors.StatusOf(err); got != status {
		t.Errorf("status = %s, want %s (%v)", got, status, err)
	}
	if got := errors.Detail(err); got != detail {
		t.Errorf("detail = %q, want %q", got, detail)
	}
}

// recordType is struct { uint32 id; vector<uint8>:8 payload }.
var recordType = &coding.Struct{
	Name: "Record",
	Size: 24,
	Elements: []coding.StructElement{
		coding.Padding64(0, 0xffffffff00000000),
		coding.Field("payload", 8, &coding.Vector{MaxCount: 8, ElementSize: 1}),
	},
}

// recordBytes encodes Record{id: 0x01020304, payload: "abcd"}.
func recordBytes() []byte {
	return (&msg{}).
		u32(0x01020304).zeros(4).
		u64(4).u64(present).
		raw('a', 'b', 'c', 'd').zeros(4).
		bytes()
}

func asError(err error, target **errors.Error) bool {
	return stderrors.As(err, target)
}
