package wire

import (
	"bytes"
	"testing"

	"github.com/wippyai/fidlwire"
	"github.com/wippyai/fidlwire/coding"
	"github.com/wippyai/fidlwire/errors"
)

func TestDecode_Record(t *testing.T) {
	buf := recordBytes()
	if err := Decode(recordType, buf, nil); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if id := readU32(buf, position{}); id != 0x01020304 {
		t.Errorf("id = %#x", id)
	}
	target, ok, err := PointerTarget(buf, 16)
	if err != nil || !ok || target != 24 {
		t.Fatalf("PointerTarget = %d, %v, %v; want 24", target, ok, err)
	}
	payload, ok, err := VectorAt(buf, 8, 1)
	if err != nil || !ok {
		t.Fatalf("VectorAt: %v, %v", ok, err)
	}
	if string(payload) != "abcd" {
		t.Errorf("payload = %q", payload)
	}
	if &payload[0] != &buf[24] {
		t.Error("payload is not a view into the buffer")
	}
}

func TestValidate_Record(t *testing.T) {
	buf := recordBytes()
	orig := append([]byte(nil), buf...)
	if err := Validate(recordType, buf, 0); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !bytes.Equal(buf, orig) {
		t.Error("Validate modified the buffer")
	}
}

func TestDecode_RecordFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte) []byte
		status errors.Status
		detail string
	}{
		{
			name:   "out-of-line padding",
			mutate: func(b []byte) []byte { b[30] = 1; return b },
			status: errors.StatusConstraintViolation,
			detail: "non-zero padding bytes detected",
		},
		{
			name:   "inline padding",
			mutate: func(b []byte) []byte { b[5] = 0x80; return b },
			status: errors.StatusConstraintViolation,
			detail: "non-zero padding bytes detected",
		},
		{
			name:   "truncated",
			mutate: func(b []byte) []byte { return b[:28] },
			status: errors.StatusMemoryError,
			detail: "message tried to access more than provided number of bytes",
		},
		{
			name: "count past available payload",
			mutate: func(b []byte) []byte {
				b[8] = 5
				return b[:28]
			},
			status: errors.StatusMemoryError,
			detail: "message tried to access more than provided number of bytes",
		},
		{
			name:   "count over bound",
			mutate: func(b []byte) []byte { b[8] = 9; return b },
			status: errors.StatusConstraintViolation,
			detail: "vector exceeds maximum count",
		},
		{
			name:   "absent non-nullable vector",
			mutate: func(b []byte) []byte { b[8] = 0; clear(b[16:24]); return b[:24] },
			status: errors.StatusConstraintViolation,
			detail: "absent pointer disallowed in non-nullable collection",
		},
		{
			name:   "garbage presence marker",
			mutate: func(b []byte) []byte { b[16] = 0x7f; return b },
			status: errors.StatusConstraintViolation,
			detail: "invalid presence marker",
		},
		{
			name:   "primary object larger than buffer",
			mutate: func(b []byte) []byte { return b[:16] },
			status: errors.StatusMemoryError,
			detail: "Buffer is too small for first inline object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := tt.mutate(recordBytes())
			expectError(t, Decode(recordType, buf, nil), tt.status, tt.detail)

			buf = tt.mutate(recordBytes())
			expectError(t, Validate(recordType, buf, 0), tt.status, tt.detail)
		})
	}
}

func TestDecode_ErrorPath(t *testing.T) {
	buf := recordBytes()
	buf[8] = 9
	err := Decode(recordType, buf, nil)

	var e *errors.Error
	if !asError(err, &e) {
		t.Fatalf("error %T is not *errors.Error", err)
	}
	if len(e.Path) != 1 || e.Path[0] != "payload" {
		t.Errorf("Path = %v, want [payload]", e.Path)
	}
	if e.Offset != 8 {
		t.Errorf("Offset = %d, want 8", e.Offset)
	}
	if e.Phase != errors.PhaseDecode {
		t.Errorf("Phase = %s", e.Phase)
	}
}

func TestDecode_EveryPaddingBit(t *testing.T) {
	paddingBytes := []int{4, 5, 6, 7, 28, 29, 30, 31}
	for _, i := range paddingBytes {
		for bit := 0; bit < 8; bit++ {
			buf := recordBytes()
			buf[i] |= 1 << bit
			if err := Validate(recordType, buf, 0); errors.StatusOf(err) != errors.StatusConstraintViolation {
				t.Errorf("byte %d bit %d: Validate = %v", i, bit, err)
			}
			if err := Decode(recordType, buf, nil); errors.StatusOf(err) != errors.StatusConstraintViolation {
				t.Errorf("byte %d bit %d: Decode = %v", i, bit, err)
			}
		}
	}
}

func TestDecode_TrailingBytes(t *testing.T) {
	buf := aligned(append(recordBytes(), make([]byte, 8)...))
	expectError(t, Decode(recordType, buf, nil), errors.StatusConstraintViolation,
		"message did not decode all provided bytes")

	buf = aligned(append(recordBytes(), make([]byte, 8)...))
	expectError(t, Validate(recordType, buf, 0), errors.StatusConstraintViolation,
		"message did not consume all provided bytes")
}

func TestValidate_TrailingHandles(t *testing.T) {
	expectError(t, Validate(recordType, recordBytes(), 2), errors.StatusConstraintViolation,
		"message did not reference all provided handles")
}

func TestDecode_Preconditions(t *testing.T) {
	expectError(t, Decode(recordType, nil, nil), errors.StatusMemoryError, "Cannot decode null bytes")
	expectError(t, Validate(recordType, nil, 0), errors.StatusMemoryError, "Cannot validate null bytes")

	misaligned := aligned(make([]byte, 33))[1:]
	expectError(t, Decode(recordType, misaligned, nil), errors.StatusMemoryError,
		"Bytes must be aligned to FIDL_ALIGNMENT")

	expectError(t, Validate(&coding.Vector{}, aligned(make([]byte, 16)), 0),
		errors.StatusConstraintViolation, "Message must be a struct, table, or union")
}

func TestDecode_LayoutErrorsCarryPassPhase(t *testing.T) {
	tests := []struct {
		name   string
		run    func() error
		phase  errors.Phase
		status errors.Status
	}{
		{"decode not a message", func() error {
			return Decode(&coding.Vector{}, aligned(make([]byte, 16)), nil)
		}, errors.PhaseDecode, errors.StatusConstraintViolation},
		{"validate not a message", func() error {
			return Validate(&coding.Vector{}, aligned(make([]byte, 16)), 0)
		}, errors.PhaseValidate, errors.StatusConstraintViolation},
		{"decode short buffer", func() error {
			return Decode(recordType, aligned(make([]byte, 16)), nil)
		}, errors.PhaseDecode, errors.StatusMemoryError},
		{"validate short buffer", func() error {
			return Validate(recordType, aligned(make([]byte, 16)), 0)
		}, errors.PhaseValidate, errors.StatusMemoryError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e *errors.Error
			if !asError(tt.run(), &e) {
				t.Fatal("expected *errors.Error")
			}
			if e.Phase != tt.phase || e.Status != tt.status {
				t.Errorf("phase = %s, status = %s, want %s, %s", e.Phase, e.Status, tt.phase, tt.status)
			}
		})
	}
}

func TestDecode_PrimaryGapPadding(t *testing.T) {
	small := &coding.Struct{Size: 4}
	buf := aligned(make([]byte, 8))
	if err := Validate(small, buf, 0); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	buf[6] = 1
	expectError(t, Validate(small, buf, 0), errors.StatusConstraintViolation, "non-zero padding bytes detected")
}

func TestDecodeMessage(t *testing.T) {
	m := &fidlwire.IncomingMessage{Bytes: recordBytes()}
	if err := DecodeMessage(recordType, m); err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if err := ValidateMessage(recordType, &fidlwire.OutgoingMessage{Bytes: recordBytes()}); err != nil {
		t.Fatalf("ValidateMessage: %v", err)
	}
	if err := DecodeMessage(recordType, nil); err == nil {
		t.Error("nil message should fail")
	}
}

func TestDecode_Strings(t *testing.T) {
	nameType := &coding.Struct{
		Size: 16,
		Elements: []coding.StructElement{
			coding.Field("name", 0, &coding.String{MaxSize: 5}),
		},
	}
	nullableType := &coding.Struct{
		Size: 16,
		Elements: []coding.StructElement{
			coding.Field("name", 0, &coding.String{MaxSize: 5, Nullable: true}),
		},
	}
	str := func(s string) []byte {
		m := (&msg{}).u64(uint64(len(s))).u64(present).raw([]byte(s)...)
		if pad := (8 - len(s)%8) % 8; pad > 0 {
			m.zeros(pad)
		}
		return m.bytes()
	}

	t.Run("valid", func(t *testing.T) {
		buf := str("hé")
		if err := Decode(nameType, buf, nil); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		s, ok, err := StringAt(buf, 0)
		if err != nil || !ok || s != "hé" {
			t.Errorf("StringAt = %q, %v, %v", s, ok, err)
		}
	})
	t.Run("too long", func(t *testing.T) {
		expectError(t, Validate(nameType, str("abcdef"), 0), errors.StatusConstraintViolation,
			"string exceeds maximum length")
	})
	t.Run("invalid utf8", func(t *testing.T) {
		expectError(t, Validate(nameType, str("a\xffb"), 0), errors.StatusConstraintViolation,
			"encountered invalid UTF8 string")
	})
	t.Run("truncated rune", func(t *testing.T) {
		expectError(t, Validate(nameType, str("h\xc3"), 0), errors.StatusConstraintViolation,
			"encountered invalid UTF8 string")
	})
	t.Run("surrogate", func(t *testing.T) {
		expectError(t, Validate(nameType, str("\xed\xa0\x80"), 0), errors.StatusConstraintViolation,
			"encountered invalid UTF8 string")
	})
	t.Run("absent nullable", func(t *testing.T) {
		buf := (&msg{}).u64(0).u64(0).bytes()
		if err := Decode(nullableType, buf, nil); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if _, ok, err := StringAt(buf, 0); ok || err != nil {
			t.Errorf("StringAt = %v, %v; want absent", ok, err)
		}
	})
	t.Run("absent with size", func(t *testing.T) {
		buf := (&msg{}).u64(3).u64(0).bytes()
		expectError(t, Validate(nullableType, buf, 0), errors.StatusConstraintViolation,
			"string is absent but length is not zero")
	})
	t.Run("absent non-nullable", func(t *testing.T) {
		buf := (&msg{}).u64(0).u64(0).bytes()
		expectError(t, Validate(nameType, buf, 0), errors.StatusConstraintViolation,
			"absent pointer disallowed in non-nullable collection")
	})
	t.Run("empty", func(t *testing.T) {
		if err := Validate(nameType, str(""), 0); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})
}

func TestDecode_VectorOverflow(t *testing.T) {
	wide := &coding.Struct{
		Size: 16,
		Elements: []coding.StructElement{
			coding.Field("items", 0, &coding.Vector{MaxCount: 0xFFFFFFFF, ElementSize: 0x10000}),
		},
	}
	buf := (&msg{}).u64(0x10000).u64(present).bytes()
	expectError(t, Validate(wide, buf, 0), errors.StatusMemoryError, "integer overflow calculating vector size")
}

func TestDecode_VectorOfStructs(t *testing.T) {
	flag := &coding.Struct{
		Name: "Flag",
		Size: 2,
		Elements: []coding.StructElement{
			coding.Field("on", 0, coding.Bool),
			coding.Field("level", 1, coding.Uint8),
		},
	}
	typ := &coding.Struct{
		Size: 16,
		Elements: []coding.StructElement{
			coding.Field("flags", 0, &coding.Vector{MaxCount: 4, ElementSize: 2, Element: flag}),
		},
	}
	good := (&msg{}).u64(2).u64(present).raw(1, 7, 0, 9).zeros(4).bytes()
	if err := Validate(typ, good, 0); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	bad := (&msg{}).u64(2).u64(present).raw(1, 7, 2, 9).zeros(4).bytes()
	err := Validate(typ, bad, 0)
	expectError(t, err, errors.StatusConstraintViolation, "not a valid bool value")
	var e *errors.Error
	if asError(err, &e) && (len(e.Path) != 3 || e.Path[0] != "flags" || e.Path[1] != "1" || e.Path[2] != "on") {
		t.Errorf("Path = %v, want [flags 1 on]", e.Path)
	}
}

func TestDecode_EnumBits(t *testing.T) {
	color := &coding.Enum{Name: "Color", Underlying: coding.SubtypeInt16, Strict: true, Validate: coding.Members(1, 2, ^uint64(0))}
	flexible := &coding.Enum{Name: "Any", Underlying: coding.SubtypeUint16}
	perms := &coding.Bits{Name: "Perms", Underlying: coding.SubtypeUint32, Strict: true, Mask: 0b111}
	typ := &coding.Struct{
		Size: 8,
		Elements: []coding.StructElement{
			coding.Field("color", 0, color),
			coding.Field("any", 2, flexible),
			coding.Field("perms", 4, perms),
		},
	}

	tests := []struct {
		name   string
		bytes  []byte
		detail string
	}{
		{"valid", (&msg{}).raw(2, 0, 9, 9).u32(0b101).bytes(), ""},
		{"negative member", (&msg{}).raw(0xff, 0xff, 0, 0).u32(0).bytes(), ""},
		{"bad enum", (&msg{}).raw(3, 0, 0, 0).u32(0).bytes(), "not a valid enum value"},
		{"bad bits", (&msg{}).raw(1, 0, 0, 0).u32(0b1000).bytes(), "not a valid bits member"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(typ, tt.bytes, 0)
			if tt.detail == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			expectError(t, err, errors.StatusConstraintViolation, tt.detail)
		})
	}
}

func TestDecode_Array(t *testing.T) {
	typ := &coding.Struct{
		Size: 8,
		Elements: []coding.StructElement{
			coding.Field("bits", 0, &coding.Array{Element: coding.Bool, ArraySize: 3, ElementSize: 1}),
			coding.Padding64(0, 0xffffffffff000000),
		},
	}
	if err := Validate(typ, (&msg{}).raw(1, 0, 1).zeros(5).bytes(), 0); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	expectError(t, Validate(typ, (&msg{}).raw(1, 0, 5).zeros(5).bytes(), 0),
		errors.StatusConstraintViolation, "not a valid bool value")
	expectError(t, Validate(typ, (&msg{}).raw(1, 0, 1, 0, 0, 0, 0, 1).bytes(), 0),
		errors.StatusConstraintViolation, "non-zero padding bytes detected")
}

// listType is struct Node { Node? next; }.
func listType() *coding.Struct {
	node := &coding.Struct{Name: "Node", Size: 8}
	node.Elements = []coding.StructElement{
		coding.Field("next", 0, &coding.StructPointer{Struct: node}),
	}
	return node
}

func chain(n int) []byte {
	m := &msg{}
	for i := 0; i < n; i++ {
		m.u64(present)
	}
	return m.u64(0).bytes()
}

func TestDecode_Depth(t *testing.T) {
	node := listType()

	if err := Validate(node, chain(coding.MaxDepth), 0); err != nil {
		t.Fatalf("depth %d: %v", coding.MaxDepth, err)
	}
	expectError(t, Validate(node, chain(coding.MaxDepth+1), 0), errors.StatusConstraintViolation,
		"recursion depth exceeded")

	shallow := NewDecoderWithConfig(&Config{MaxDepth: 2})
	if err := shallow.Validate(node, chain(2), 0); err != nil {
		t.Fatalf("depth 2: %v", err)
	}
	expectError(t, shallow.Decode(node, chain(3), nil), errors.StatusConstraintViolation,
		"recursion depth exceeded")
}

func TestDecode_StructPointer(t *testing.T) {
	node := listType()
	buf := chain(2)
	if err := Decode(node, buf, nil); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	first, ok, err := PointerTarget(buf, 0)
	if err != nil || !ok || first != 8 {
		t.Fatalf("first = %d, %v, %v", first, ok, err)
	}
	second, ok, err := PointerTarget(buf, first)
	if err != nil || !ok || second != 16 {
		t.Fatalf("second = %d, %v, %v", second, ok, err)
	}
	if _, ok, _ := PointerTarget(buf, second); ok {
		t.Error("tail pointer should be absent")
	}
}

func TestView_UndecodedBuffer(t *testing.T) {
	buf := recordBytes()
	if _, _, err := VectorAt(buf, 8, 1); err == nil {
		t.Error("VectorAt on undecoded buffer should fail")
	}
	if _, _, err := PointerTarget(buf, 30); err == nil {
		t.Error("PointerTarget past the end should fail")
	}
	if _, err := HandleAt(buf, 30); err == nil {
		t.Error("HandleAt past the end should fail")
	}
}

func TestDecode_SameWalkBothModes(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		buf := chain(n)
		validated := append([]byte(nil), buf...)
		errV := Validate(listType(), validated, 0)
		errD := Decode(listType(), buf, nil)
		if errors.StatusOf(errV) != errors.StatusOf(errD) {
			t.Errorf("n=%d: validate %v, decode %v", n, errV, errD)
		}
	}
}
