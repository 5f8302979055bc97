package wire

import (
	"testing"

	"github.com/wippyai/fidlwire/coding"
	"github.com/wippyai/fidlwire/errors"
	"github.com/wippyai/fidlwire/handle"
)

// settingsType is table Settings { 1: uint32 volume; } with unknown
// members walked from their envelopes.
func settingsType(resource bool) *coding.Table {
	return &coding.Table{
		Name:     "Settings",
		Resource: resource,
		Fields: []coding.TableField{
			{Ordinal: 1, Name: "volume", Type: coding.Uint32},
		},
	}
}

// settingsBytes holds volume = 42 and an unknown member 2 carrying
// numHandles handles.
func settingsBytes(numHandles uint32) []byte {
	return (&msg{}).
		u64(2).u64(present).
		envelope(8, 0, present).
		envelope(8, numHandles, present).
		u32(42).zeros(4).
		u32(coding.HandlePresent).zeros(4).
		bytes()
}

func TestTable_Valid(t *testing.T) {
	if err := Validate(settingsType(false), settingsBytes(1), 1); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	buf := settingsBytes(0)
	if err := Decode(settingsType(false), buf, nil); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	envelopes, ok, err := PointerTarget(buf, 8)
	if err != nil || !ok || envelopes != 16 {
		t.Fatalf("envelopes = %d, %v, %v", envelopes, ok, err)
	}
	volume, ok, err := PointerTarget(buf, 24)
	if err != nil || !ok || volume != 48 {
		t.Fatalf("volume = %d, %v, %v", volume, ok, err)
	}
	if v := readU32(buf, position{off: volume}); v != 42 {
		t.Errorf("volume = %d", v)
	}
}

func TestTable_Empty(t *testing.T) {
	if err := Validate(settingsType(false), (&msg{}).u64(0).u64(0).bytes(), 0); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	expectError(t, Validate(settingsType(false), (&msg{}).u64(1).u64(0).bytes(), 0),
		errors.StatusConstraintViolation, "table envelope vector is absent but count is not zero")
}

func TestTable_UnknownHandlePolicies(t *testing.T) {
	t.Run("close", func(t *testing.T) {
		d, tbl, log := newTableDecoder(nil)
		h := tbl.Create(handle.ObjTypeEvent, handle.RightsEvent, nil)
		if err := d.Decode(settingsType(false), settingsBytes(1), []handle.Handle{h}); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		log.expectClosedOnce(t, h)
	})

	t.Run("close with infos", func(t *testing.T) {
		d, tbl, log := newTableDecoder(nil)
		h := tbl.Create(handle.ObjTypeEvent, handle.RightsEvent, nil)
		infos := []handle.Info{{Handle: h, Type: handle.ObjTypeEvent, Rights: handle.RightsEvent}}
		if err := d.DecodeEtc(settingsType(true), settingsBytes(1), infos); err != nil {
			t.Fatalf("DecodeEtc: %v", err)
		}
		log.expectClosedOnce(t, h)
	})

	t.Run("skip resource", func(t *testing.T) {
		d, tbl, _ := newTableDecoder(&Config{UnknownHandles: UnknownHandlesSkip})
		h := tbl.Create(handle.ObjTypeEvent, handle.RightsEvent, nil)
		if err := d.Decode(settingsType(true), settingsBytes(1), []handle.Handle{h}); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if _, ok := tbl.Info(h); !ok {
			t.Error("skipped unknown handle was closed")
		}
	})

	t.Run("skip non-resource", func(t *testing.T) {
		d, tbl, log := newTableDecoder(&Config{UnknownHandles: UnknownHandlesSkip})
		h := tbl.Create(handle.ObjTypeEvent, handle.RightsEvent, nil)
		err := d.Decode(settingsType(false), settingsBytes(1), []handle.Handle{h})
		expectError(t, err, errors.StatusConstraintViolation, "received unknown handles for a non-resource type")
		log.expectClosedOnce(t, h)
	})

	t.Run("capacity", func(t *testing.T) {
		d, tbl, log := newTableDecoder(&Config{MaxUnknownHandles: 1})
		a := tbl.Create(handle.ObjTypeEvent, handle.RightsEvent, nil)
		b := tbl.Create(handle.ObjTypeEvent, handle.RightsEvent, nil)
		err := d.Decode(settingsType(false), settingsBytes(2), []handle.Handle{a, b})
		expectError(t, err, errors.StatusConstraintViolation,
			"number of unknown handles exceeds unknown handle array size")
		log.expectClosedOnce(t, a, b)
	})

	t.Run("more than supplied", func(t *testing.T) {
		expectError(t, Validate(settingsType(false), settingsBytes(3), 1), errors.StatusConstraintViolation,
			"message decoded too many handles")
	})
}

func TestTable_EnvelopeErrors(t *testing.T) {
	base := func() *msg {
		return (&msg{}).u64(2).u64(present)
	}
	tail := func(m *msg) []byte {
		return m.u32(42).zeros(4).zeros(8).bytes()
	}

	tests := []struct {
		name    string
		bytes   []byte
		handles uint32
		detail  string
	}{
		{
			name:   "num_bytes mis-sized",
			bytes:  tail(base().envelope(16, 0, present).envelope(8, 0, present)),
			detail: "Envelope num_bytes was mis-sized",
		},
		{
			name:    "num_handles mis-sized",
			bytes:   tail(base().envelope(8, 1, present).envelope(8, 0, present)),
			handles: 1,
			detail:  "Envelope num_handles was mis-sized",
		},
		{
			name:   "absent with bytes",
			bytes:  (&msg{}).u64(1).u64(present).envelope(8, 0, 0).bytes(),
			detail: "Envelope has absent data pointer, yet has data and/or handles",
		},
		{
			name:   "unaligned unknown",
			bytes:  tail(base().envelope(8, 0, present).envelope(4, 0, present)),
			detail: "Envelope num_bytes was not a multiple of alignment",
		},
		{
			name:   "bad presence",
			bytes:  tail(base().envelope(8, 0, 1).envelope(8, 0, present)),
			detail: "invalid presence marker",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, Validate(settingsType(false), tt.bytes, tt.handles),
				errors.StatusConstraintViolation, tt.detail)
		})
	}
}

func TestTable_AbsentMembers(t *testing.T) {
	buf := (&msg{}).
		u64(3).u64(present).
		envelope(0, 0, 0).
		envelope(0, 0, 0).
		envelope(8, 0, present).
		zeros(8).
		bytes()
	if err := Validate(settingsType(false), buf, 0); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func valueType(strict, nullable bool) *coding.XUnion {
	return &coding.XUnion{
		Name:     "Value",
		Strict:   strict,
		Nullable: nullable,
		Fields: []coding.XUnionField{
			{Name: "num", Type: coding.Uint64},
			{Name: "text", Type: &coding.String{MaxSize: 16}},
		},
	}
}

func TestXUnion(t *testing.T) {
	num := (&msg{}).u64(1).envelope(8, 0, present).u64(7).bytes()
	text := (&msg{}).u64(2).envelope(24, 0, present).u64(2).u64(present).raw('h', 'i').zeros(6).bytes()
	unknown := (&msg{}).u64(3).envelope(8, 0, present).u64(0).bytes()
	empty := (&msg{}).u64(0).envelope(0, 0, 0).bytes()

	tests := []struct {
		name   string
		typ    *coding.XUnion
		bytes  []byte
		detail string
	}{
		{"num", valueType(true, false), num, ""},
		{"text", valueType(true, false), text, ""},
		{"flexible unknown", valueType(false, false), unknown, ""},
		{"strict unknown", valueType(true, false), unknown, "strict xunion has unknown ordinal"},
		{"nullable empty", valueType(true, true), empty, ""},
		{"non-nullable empty", valueType(true, false), empty, "non-nullable xunion is absent"},
		{
			"empty with envelope", valueType(true, true),
			(&msg{}).u64(0).envelope(8, 0, 0).bytes(),
			"empty xunion must have an absent, zero-sized envelope",
		},
		{
			"ordinal without envelope", valueType(true, false),
			(&msg{}).u64(1).envelope(0, 0, 0).bytes(),
			"xunion with a non-zero ordinal has an absent envelope",
		},
		{
			"payload size mismatch", valueType(true, false),
			(&msg{}).u64(1).envelope(16, 0, present).u64(7).bytes(),
			"Envelope num_bytes was mis-sized",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.typ, tt.bytes, 0)
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

func TestXUnion_DecodeText(t *testing.T) {
	buf := (&msg{}).u64(2).envelope(24, 0, present).u64(2).u64(present).raw('h', 'i').zeros(6).bytes()
	if err := Decode(valueType(true, false), buf, nil); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	payload, ok, err := PointerTarget(buf, 16)
	if err != nil || !ok || payload != 24 {
		t.Fatalf("payload = %d, %v, %v", payload, ok, err)
	}
	s, ok, err := StringAt(buf, payload)
	if err != nil || !ok || s != "hi" {
		t.Errorf("StringAt = %q, %v, %v", s, ok, err)
	}
}
