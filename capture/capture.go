package capture

import (
	"encoding/hex"
	"strconv"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/wippyai/fidlwire"
	"github.com/wippyai/fidlwire/coding"
	"github.com/wippyai/fidlwire/errors"
	"github.com/wippyai/fidlwire/handle"
)

// HandleRecord describes one handle carried by a captured message.
type HandleRecord struct {
	Type   string        `cbor:"type"`
	Rights handle.Rights `cbor:"rights"`
}

// Message is a captured message.
type Message struct {
	Type    string         `cbor:"type,omitempty"`
	Bytes   []byte         `cbor:"bytes"`
	Handles []HandleRecord `cbor:"handles,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("capture: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		MaxArrayElements: 1 << 16,
	}.DecMode()
	if err != nil {
		panic("capture: CBOR decoder initialization failed: " + err.Error())
	}
}

// FromInfos builds a capture of bytes received with infos.
func FromInfos(typeName string, bytes []byte, infos []handle.Info) *Message {
	m := &Message{Type: typeName, Bytes: append([]byte(nil), bytes...)}
	for _, info := range infos {
		m.Handles = append(m.Handles, HandleRecord{Type: info.Type.String(), Rights: info.Rights})
	}
	return m
}

// Marshal encodes m as CBOR.
func (m *Message) Marshal() ([]byte, error) {
	data, err := encMode.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCapture, errors.KindInvalidData, err, "encode capture")
	}
	return data, nil
}

// Unmarshal decodes a CBOR capture.
func Unmarshal(data []byte) (*Message, error) {
	var m Message
	if err := decMode.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.PhaseCapture, errors.KindInvalidData, err, "decode capture")
	}
	if len(m.Handles) > coding.MaxMsgHandles {
		return nil, errors.New(errors.PhaseCapture, errors.KindHandle).
			Detail("capture carries %d handles", len(m.Handles)).
			Build()
	}
	return &m, nil
}

// Infos re-creates the captured handles in table and returns their infos
// in capture order.
func (m *Message) Infos(table *handle.LocalTable) ([]handle.Info, error) {
	infos := make([]handle.Info, 0, len(m.Handles))
	for i, rec := range m.Handles {
		typ, ok := handle.ParseObjType(rec.Type)
		if !ok {
			_ = table.CloseMany(handle.Handles(infos))
			return nil, errors.New(errors.PhaseCapture, errors.KindInvalidData).
				Path("handles", strconv.Itoa(i)).
				Detail("unknown object type %q", rec.Type).
				Build()
		}
		h := table.Create(typ, rec.Rights, nil)
		infos = append(infos, handle.Info{Handle: h, Type: typ, Rights: rec.Rights})
	}
	return infos, nil
}

// Incoming re-creates the captured handles in table and returns a message
// ready for wire.DecodeMessage. The buffer is a copy.
func (m *Message) Incoming(table *handle.LocalTable) (*fidlwire.IncomingMessage, error) {
	infos, err := m.Infos(table)
	if err != nil {
		return nil, err
	}
	return &fidlwire.IncomingMessage{Bytes: alignedCopy(m.Bytes), HandleInfos: infos}, nil
}

// Digest is the BLAKE3 hash of a capture's canonical encoding.
type Digest [32]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 12 hex digits.
func (d Digest) Short() string {
	return hex.EncodeToString(d[:6])
}

// Digest hashes the deterministic CBOR encoding of m, so equal captures
// hash equal regardless of compression.
func (m *Message) Digest() (Digest, error) {
	data, err := m.Marshal()
	if err != nil {
		return Digest{}, err
	}
	return blake3.Sum256(data), nil
}

// alignedCopy copies b into storage aligned for in-place decode.
func alignedCopy(b []byte) []byte {
	words := make([]uint64, (len(b)+7)/8)
	out := bytesOf(words)[:len(b)]
	copy(out, b)
	return out
}
