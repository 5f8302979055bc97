package capture

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/wippyai/fidlwire/errors"
)

// MaxSize bounds the decompressed size of a capture.
const MaxSize = 64 << 20

// Compression selects how a capture file is compressed.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, errors.InvalidInput(errors.PhaseCapture, fmt.Sprintf("unknown compression %q", name))
	}
}

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Detect reports the compression of a capture from its first bytes.
func Detect(head []byte) Compression {
	switch {
	case bytes.HasPrefix(head, zstdMagic):
		return CompressionZstd
	case bytes.HasPrefix(head, lz4Magic):
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// Write encodes m to w with compression c.
func Write(w io.Writer, m *Message, c Compression) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}

	switch c {
	case CompressionNone:
		_, err = w.Write(data)
	case CompressionZstd:
		var enc *zstd.Encoder
		enc, err = zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			break
		}
		if _, err = enc.Write(data); err != nil {
			enc.Close()
			break
		}
		err = enc.Close()
	case CompressionLZ4:
		zw := lz4.NewWriter(w)
		if _, err = zw.Write(data); err != nil {
			break
		}
		err = zw.Close()
	default:
		return errors.InvalidInput(errors.PhaseCapture, "unsupported compression "+c.String())
	}
	if err != nil {
		return errors.Wrap(errors.PhaseCapture, errors.KindInvalidData, err, "write capture ("+c.String()+")")
	}
	return nil
}

// Read decodes a capture from r, detecting compression.
func Read(r io.Reader) (*Message, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(4)

	var src io.Reader = br
	switch c := Detect(head); c {
	case CompressionZstd:
		dec, err := zstd.NewReader(br, zstd.WithDecoderMaxMemory(MaxSize))
		if err != nil {
			return nil, errors.Wrap(errors.PhaseCapture, errors.KindInvalidData, err, "open zstd capture")
		}
		defer dec.Close()
		src = dec
	case CompressionLZ4:
		src = lz4.NewReader(br)
	}

	data, err := io.ReadAll(io.LimitReader(src, MaxSize+1))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCapture, errors.KindInvalidData, err, "read capture")
	}
	if len(data) > MaxSize {
		return nil, errors.New(errors.PhaseCapture, errors.KindOverflow).
			Detail("capture exceeds %d bytes", MaxSize).
			Build()
	}
	return Unmarshal(data)
}

// Save writes m to path.
func Save(path string, m *Message, c Compression) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.PhaseCapture, errors.KindInvalidInput, err, "create capture file")
	}
	if err := Write(f, m, c); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.PhaseCapture, errors.KindInvalidData, err, "close capture file")
	}
	return nil
}

// Load reads the capture at path.
func Load(path string) (*Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCapture, errors.KindInvalidInput, err, "open capture file")
	}
	defer f.Close()
	return Read(f)
}
