package coding

import (
	"github.com/wippyai/fidlwire/handle"
)

// Tag identifies the kind of a coding table.
type Tag uint8

const (
	TagPrimitive Tag = iota
	TagEnum
	TagBits
	TagStruct
	TagStructPointer
	TagArray
	TagString
	TagHandle
	TagVector
	TagTable
	TagXUnion
)

var tagNames = [...]string{
	TagPrimitive:     "primitive",
	TagEnum:          "enum",
	TagBits:          "bits",
	TagStruct:        "struct",
	TagStructPointer: "struct_pointer",
	TagArray:         "array",
	TagString:        "string",
	TagHandle:        "handle",
	TagVector:        "vector",
	TagTable:         "table",
	TagXUnion:        "xunion",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "unknown"
}

// Type is implemented by every coding table.
type Type interface {
	Tag() Tag
	// InlineSize is the number of bytes the type occupies inline, before
	// alignment of whatever follows it.
	InlineSize() uint32
	// TypeName is used in diagnostics.
	TypeName() string
}

// PrimitiveSubtype is the scalar kind of a Primitive, Enum or Bits.
type PrimitiveSubtype uint8

const (
	SubtypeBool PrimitiveSubtype = iota
	SubtypeInt8
	SubtypeInt16
	SubtypeInt32
	SubtypeInt64
	SubtypeUint8
	SubtypeUint16
	SubtypeUint32
	SubtypeUint64
	SubtypeFloat32
	SubtypeFloat64
)

var subtypeNames = [...]string{
	SubtypeBool:    "bool",
	SubtypeInt8:    "int8",
	SubtypeInt16:   "int16",
	SubtypeInt32:   "int32",
	SubtypeInt64:   "int64",
	SubtypeUint8:   "uint8",
	SubtypeUint16:  "uint16",
	SubtypeUint32:  "uint32",
	SubtypeUint64:  "uint64",
	SubtypeFloat32: "float32",
	SubtypeFloat64: "float64",
}

func (s PrimitiveSubtype) String() string {
	if int(s) < len(subtypeNames) {
		return subtypeNames[s]
	}
	return "unknown"
}

// Size returns the wire size in bytes.
func (s PrimitiveSubtype) Size() uint32 {
	switch s {
	case SubtypeBool, SubtypeInt8, SubtypeUint8:
		return 1
	case SubtypeInt16, SubtypeUint16:
		return 2
	case SubtypeInt32, SubtypeUint32, SubtypeFloat32:
		return 4
	default:
		return 8
	}
}

// Signed reports whether values must be sign-extended when widened.
func (s PrimitiveSubtype) Signed() bool {
	switch s {
	case SubtypeInt8, SubtypeInt16, SubtypeInt32, SubtypeInt64:
		return true
	default:
		return false
	}
}

// Primitive is a scalar with no constraints beyond bool being 0 or 1.
type Primitive struct {
	Subtype PrimitiveSubtype
}

// Predefined primitives.
var (
	Bool    = &Primitive{Subtype: SubtypeBool}
	Int8    = &Primitive{Subtype: SubtypeInt8}
	Int16   = &Primitive{Subtype: SubtypeInt16}
	Int32   = &Primitive{Subtype: SubtypeInt32}
	Int64   = &Primitive{Subtype: SubtypeInt64}
	Uint8   = &Primitive{Subtype: SubtypeUint8}
	Uint16  = &Primitive{Subtype: SubtypeUint16}
	Uint32  = &Primitive{Subtype: SubtypeUint32}
	Uint64  = &Primitive{Subtype: SubtypeUint64}
	Float32 = &Primitive{Subtype: SubtypeFloat32}
	Float64 = &Primitive{Subtype: SubtypeFloat64}
)

func (p *Primitive) Tag() Tag           { return TagPrimitive }
func (p *Primitive) InlineSize() uint32 { return p.Subtype.Size() }
func (p *Primitive) TypeName() string   { return p.Subtype.String() }

// Enum is an integer restricted to a set of members when Strict.
type Enum struct {
	// Validate reports whether a value is a member. Only consulted for
	// strict enums; nil accepts everything.
	Validate   func(uint64) bool
	Name       string
	Underlying PrimitiveSubtype
	Strict     bool
}

func (e *Enum) Tag() Tag           { return TagEnum }
func (e *Enum) InlineSize() uint32 { return e.Underlying.Size() }
func (e *Enum) TypeName() string   { return nameOr(e.Name, "enum") }

// Members returns a Validate predicate accepting exactly values. Signed
// members are compared after widening to uint64 the same way the walker
// widens wire values.
func Members(values ...uint64) func(uint64) bool {
	set := make(map[uint64]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return func(v uint64) bool {
		_, ok := set[v]
		return ok
	}
}

// Bits is an integer whose strict form may only set bits inside Mask.
type Bits struct {
	Name       string
	Mask       uint64
	Underlying PrimitiveSubtype
	Strict     bool
}

func (b *Bits) Tag() Tag           { return TagBits }
func (b *Bits) InlineSize() uint32 { return b.Underlying.Size() }
func (b *Bits) TypeName() string   { return nameOr(b.Name, "bits") }

// ElementKind distinguishes struct fields from padding runs.
type ElementKind uint8

const (
	ElementField ElementKind = iota + 1
	ElementPadding64
	ElementPadding32
	ElementPadding16
)

// StructElement is either a field at Offset, or a padding check of the
// 2, 4 or 8 bytes at Offset. Mask has 0xff on every padding byte.
type StructElement struct {
	Type   Type
	Name   string
	Mask   uint64
	Offset uint32
	Kind   ElementKind
}

// Field describes a field. A nil type means the field needs no checks.
func Field(name string, offset uint32, t Type) StructElement {
	return StructElement{Kind: ElementField, Name: name, Offset: offset, Type: t}
}

func Padding64(offset uint32, mask uint64) StructElement {
	return StructElement{Kind: ElementPadding64, Offset: offset, Mask: mask}
}

func Padding32(offset uint32, mask uint32) StructElement {
	return StructElement{Kind: ElementPadding32, Offset: offset, Mask: uint64(mask)}
}

func Padding16(offset uint32, mask uint16) StructElement {
	return StructElement{Kind: ElementPadding16, Offset: offset, Mask: uint64(mask)}
}

// Struct is a fixed-size inline object.
type Struct struct {
	Name     string
	Elements []StructElement
	Size     uint32
}

func (s *Struct) Tag() Tag           { return TagStruct }
func (s *Struct) InlineSize() uint32 { return s.Size }
func (s *Struct) TypeName() string   { return nameOr(s.Name, "struct") }

// StructPointer is a nullable reference to an out-of-line Struct.
type StructPointer struct {
	Struct *Struct
}

func (p *StructPointer) Tag() Tag           { return TagStructPointer }
func (p *StructPointer) InlineSize() uint32 { return PointerSize }
func (p *StructPointer) TypeName() string   { return p.Struct.TypeName() + "?" }

// Array is ArraySize bytes of consecutive ElementSize-byte elements.
type Array struct {
	Element     Type
	ArraySize   uint32
	ElementSize uint32
}

func (a *Array) Tag() Tag           { return TagArray }
func (a *Array) InlineSize() uint32 { return a.ArraySize }
func (a *Array) TypeName() string {
	if a.Element == nil {
		return "array"
	}
	return "array<" + a.Element.TypeName() + ">"
}

// String is a UTF-8 string of at most MaxSize bytes.
type String struct {
	MaxSize  uint32
	Nullable bool
}

func (s *String) Tag() Tag           { return TagString }
func (s *String) InlineSize() uint32 { return VectorHeaderSize }
func (s *String) TypeName() string   { return nullable("string", s.Nullable) }

// Vector holds at most MaxCount elements of ElementSize bytes each.
// Element is nil when the elements contain nothing to check, such as
// plain integers.
type Vector struct {
	Element     Type
	MaxCount    uint32
	ElementSize uint32
	Nullable    bool
}

func (v *Vector) Tag() Tag           { return TagVector }
func (v *Vector) InlineSize() uint32 { return VectorHeaderSize }
func (v *Vector) TypeName() string {
	name := "vector"
	if v.Element != nil {
		name += "<" + v.Element.TypeName() + ">"
	}
	return nullable(name, v.Nullable)
}

// Handle is a handle field. Subtype ObjTypeNone accepts any object and
// Rights RightSameRights accepts any rights.
type Handle struct {
	Subtype  handle.ObjType
	Rights   handle.Rights
	Nullable bool
}

func (h *Handle) Tag() Tag           { return TagHandle }
func (h *Handle) InlineSize() uint32 { return HandleSize }
func (h *Handle) TypeName() string {
	name := "handle"
	if h.Subtype != handle.ObjTypeNone {
		name += "<" + h.Subtype.String() + ">"
	}
	return nullable(name, h.Nullable)
}

// TableField is a known table member.
type TableField struct {
	Type    Type
	Name    string
	Ordinal uint32
}

// Table is a sparse record of envelopes. Fields must be sorted by Ordinal;
// ordinals start at 1. Members without an entry are walked as unknown.
type Table struct {
	Name     string
	Fields   []TableField
	Resource bool
}

func (t *Table) Tag() Tag           { return TagTable }
func (t *Table) InlineSize() uint32 { return VectorHeaderSize }
func (t *Table) TypeName() string   { return nameOr(t.Name, "table") }

// Field returns the known field with ordinal, or nil.
func (t *Table) Field(ordinal uint32) *TableField {
	for i := range t.Fields {
		if t.Fields[i].Ordinal == ordinal {
			return &t.Fields[i]
		}
		if t.Fields[i].Ordinal > ordinal {
			break
		}
	}
	return nil
}

// XUnionField is a union member. Fields are indexed by ordinal, ordinal 1
// at index 0. A nil Type is a known member with nothing to check.
type XUnionField struct {
	Type Type
	Name string
}

// XUnion is an extensible union: an ordinal followed by an envelope.
type XUnion struct {
	Name     string
	Fields   []XUnionField
	Nullable bool
	Strict   bool
	Resource bool
}

func (u *XUnion) Tag() Tag           { return TagXUnion }
func (u *XUnion) InlineSize() uint32 { return XUnionSize }
func (u *XUnion) TypeName() string   { return nullable(nameOr(u.Name, "xunion"), u.Nullable) }

// Field returns the member with ordinal, or nil when it is unknown.
func (u *XUnion) Field(ordinal uint64) *XUnionField {
	if ordinal == 0 || ordinal > uint64(len(u.Fields)) {
		return nil
	}
	return &u.Fields[ordinal-1]
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

func nullable(name string, n bool) string {
	if n {
		return name + "?"
	}
	return name
}
