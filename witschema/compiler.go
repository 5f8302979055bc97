package witschema

import (
	"math"
	"strconv"
	"sync"
	"unicode/utf8"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/fidlwire/coding"
	"github.com/wippyai/fidlwire/errors"
	"github.com/wippyai/fidlwire/handle"
)

// Options tune how WIT types are bounded on the wire.
type Options struct {
	// MaxStringSize bounds every string (default unbounded).
	MaxStringSize uint32
	// MaxListCount bounds every list (default unbounded).
	MaxListCount uint32
	// HandleType is the object type required for own and borrow handles.
	HandleType handle.ObjType
	// HandleRights are the rights required for handles (default same rights).
	HandleRights handle.Rights
}

// Compiler turns WIT types into coding tables.
type Compiler struct {
	cache sync.Map // *wit.TypeDef -> coding.Type
	opts  Options
}

// NewCompiler creates a compiler. A nil opts uses the defaults.
func NewCompiler(opts *Options) *Compiler {
	c := &Compiler{}
	if opts != nil {
		c.opts = *opts
	}
	if c.opts.MaxStringSize == 0 {
		c.opts.MaxStringSize = math.MaxUint32
	}
	if c.opts.MaxListCount == 0 {
		c.opts.MaxListCount = math.MaxUint32
	}
	if c.opts.HandleRights == handle.RightNone {
		c.opts.HandleRights = handle.RightSameRights
	}
	return c
}

// Compile returns the coding table for t.
func (c *Compiler) Compile(t wit.Type) (coding.Type, error) {
	return c.compile(t, nil)
}

// CompileMessage returns a coding table usable as a message: records,
// variants and results as they are, anything else wrapped in a struct with
// a single "value" field.
func (c *Compiler) CompileMessage(t wit.Type) (coding.Type, error) {
	ct, err := c.compile(t, nil)
	if err != nil {
		return nil, err
	}
	if _, err := coding.PrimaryObjectSize(ct); err == nil {
		return ct, nil
	}
	return c.layoutStruct("", []member{{name: "value", typ: ct}}), nil
}

var emptyStruct = &coding.Struct{
	Name: "empty",
	Size: 1,
	Elements: []coding.StructElement{
		coding.Field("", 0, &coding.Enum{Name: "empty", Underlying: coding.SubtypeUint8, Strict: true, Validate: coding.Members(0)}),
	},
}

var charType = &coding.Enum{
	Name:       "char",
	Underlying: coding.SubtypeUint32,
	Strict:     true,
	Validate: func(v uint64) bool {
		return v <= utf8.MaxRune && utf8.ValidRune(rune(v))
	},
}

func (c *Compiler) compile(t wit.Type, path []string) (coding.Type, error) {
	switch t := t.(type) {
	case wit.Bool:
		return coding.Bool, nil
	case wit.U8:
		return coding.Uint8, nil
	case wit.S8:
		return coding.Int8, nil
	case wit.U16:
		return coding.Uint16, nil
	case wit.S16:
		return coding.Int16, nil
	case wit.U32:
		return coding.Uint32, nil
	case wit.S32:
		return coding.Int32, nil
	case wit.U64:
		return coding.Uint64, nil
	case wit.S64:
		return coding.Int64, nil
	case wit.F32:
		return coding.Float32, nil
	case wit.F64:
		return coding.Float64, nil
	case wit.Char:
		return charType, nil
	case wit.String:
		return &coding.String{MaxSize: c.opts.MaxStringSize}, nil
	case *wit.TypeDef:
		return c.compileTypeDef(t, path)
	case nil:
		return emptyStruct, nil
	default:
		return nil, errors.New(errors.PhaseSchema, errors.KindUnsupported).
			Path(path...).
			Detail("unsupported WIT type: %T", t).
			Build()
	}
}

func (c *Compiler) compileTypeDef(td *wit.TypeDef, path []string) (coding.Type, error) {
	if cached, ok := c.cache.Load(td); ok {
		return cached.(coding.Type), nil
	}

	name := ""
	if td.Name != nil {
		name = *td.Name
	}

	var (
		ct  coding.Type
		err error
	)
	switch kind := td.Kind.(type) {
	case *wit.Record:
		ct, err = c.compileRecord(name, kind, path)
	case *wit.Tuple:
		ct, err = c.compileTuple(name, kind, path)
	case *wit.List:
		ct, err = c.compileList(kind, path)
	case *wit.Enum:
		ct = c.compileEnum(name, kind)
	case *wit.Flags:
		ct = c.compileFlags(name, kind)
	case *wit.Variant:
		ct, err = c.compileVariant(name, kind, path)
	case *wit.Result:
		ct, err = c.compileResult(name, kind, path)
	case *wit.Option:
		ct, err = c.compileOption(name, kind, path)
	case *wit.Own, *wit.Borrow:
		ct = &coding.Handle{Subtype: c.opts.HandleType, Rights: c.opts.HandleRights}
	case wit.Type:
		ct, err = c.compile(kind, path)
	default:
		err = errors.New(errors.PhaseSchema, errors.KindUnsupported).
			Path(path...).
			Detail("unsupported WIT type definition %q: %T", name, td.Kind).
			Build()
	}
	if err != nil {
		return nil, err
	}

	c.cache.Store(td, ct)
	return ct, nil
}

type member struct {
	typ  coding.Type
	name string
}

func (c *Compiler) compileRecord(name string, r *wit.Record, path []string) (coding.Type, error) {
	members := make([]member, 0, len(r.Fields))
	for _, f := range r.Fields {
		ct, err := c.compile(f.Type, append(path, f.Name))
		if err != nil {
			return nil, err
		}
		members = append(members, member{name: f.Name, typ: ct})
	}
	return c.layoutStruct(name, members), nil
}

func (c *Compiler) compileTuple(name string, t *wit.Tuple, path []string) (coding.Type, error) {
	members := make([]member, 0, len(t.Types))
	for i, typ := range t.Types {
		field := strconv.Itoa(i)
		ct, err := c.compile(typ, append(path, field))
		if err != nil {
			return nil, err
		}
		members = append(members, member{name: field, typ: ct})
	}
	return c.layoutStruct(name, members), nil
}

func (c *Compiler) compileList(l *wit.List, path []string) (coding.Type, error) {
	elem, err := c.compile(l.Type, append(path, "[]"))
	if err != nil {
		return nil, err
	}
	v := &coding.Vector{
		MaxCount:    c.opts.MaxListCount,
		ElementSize: elem.InlineSize(),
	}
	if needsWalk(elem) {
		v.Element = elem
	}
	return v, nil
}

func discriminant(n int) coding.PrimitiveSubtype {
	switch {
	case n <= 1<<8:
		return coding.SubtypeUint8
	case n <= 1<<16:
		return coding.SubtypeUint16
	default:
		return coding.SubtypeUint32
	}
}

func (c *Compiler) compileEnum(name string, e *wit.Enum) coding.Type {
	n := uint64(len(e.Cases))
	return &coding.Enum{
		Name:       name,
		Underlying: discriminant(len(e.Cases)),
		Strict:     true,
		Validate:   func(v uint64) bool { return v < n },
	}
}

func (c *Compiler) compileFlags(name string, f *wit.Flags) coding.Type {
	n := len(f.Flags)
	var sub coding.PrimitiveSubtype
	switch {
	case n <= 8:
		sub = coding.SubtypeUint8
	case n <= 16:
		sub = coding.SubtypeUint16
	case n <= 32:
		sub = coding.SubtypeUint32
	default:
		sub = coding.SubtypeUint64
	}
	mask := uint64(math.MaxUint64)
	if n < 64 {
		mask = 1<<n - 1
	}
	return &coding.Bits{Name: name, Underlying: sub, Strict: true, Mask: mask}
}

func (c *Compiler) union(name string, cases []member, nullable bool) *coding.XUnion {
	u := &coding.XUnion{Name: name, Strict: true, Nullable: nullable}
	for _, m := range cases {
		u.Fields = append(u.Fields, coding.XUnionField{Name: m.name, Type: m.typ})
		if hasHandles(m.typ) {
			u.Resource = true
		}
	}
	return u
}

func (c *Compiler) compileVariant(name string, v *wit.Variant, path []string) (coding.Type, error) {
	cases := make([]member, 0, len(v.Cases))
	for _, cs := range v.Cases {
		ct, err := c.compile(cs.Type, append(path, cs.Name))
		if err != nil {
			return nil, err
		}
		cases = append(cases, member{name: cs.Name, typ: ct})
	}
	return c.union(name, cases, false), nil
}

func (c *Compiler) compileResult(name string, r *wit.Result, path []string) (coding.Type, error) {
	ok, err := c.compile(r.OK, append(path, "ok"))
	if err != nil {
		return nil, err
	}
	fail, err := c.compile(r.Err, append(path, "err"))
	if err != nil {
		return nil, err
	}
	return c.union(name, []member{{name: "ok", typ: ok}, {name: "err", typ: fail}}, false), nil
}

func (c *Compiler) compileOption(name string, o *wit.Option, path []string) (coding.Type, error) {
	inner, err := c.compile(o.Type, append(path, "some"))
	if err != nil {
		return nil, err
	}
	switch t := inner.(type) {
	case *coding.String:
		cp := *t
		cp.Nullable = true
		return &cp, nil
	case *coding.Vector:
		cp := *t
		cp.Nullable = true
		return &cp, nil
	case *coding.Struct:
		if t != emptyStruct {
			return &coding.StructPointer{Struct: t}, nil
		}
	case *coding.Handle:
		cp := *t
		cp.Nullable = true
		return &cp, nil
	}
	return c.union(name, []member{{name: "some", typ: inner}}, true), nil
}

// layoutStruct places members at their natural alignment and emits padding
// checks for every gap.
func (c *Compiler) layoutStruct(name string, members []member) *coding.Struct {
	if len(members) == 0 {
		s := *emptyStruct
		s.Name = name
		return &s
	}

	s := &coding.Struct{Name: name}
	var offset, align uint32 = 0, 1
	used := make([]bool, 0, 16)
	for _, m := range members {
		a := coding.InlineAlign(m.typ)
		align = max(align, a)
		offset = alignTo(offset, a)
		s.Elements = append(s.Elements, coding.Field(m.name, offset, m.typ))
		size := m.typ.InlineSize()
		for uint32(len(used)) < offset+size {
			used = append(used, false)
		}
		for i := offset; i < offset+size; i++ {
			used[i] = true
		}
		offset += size
	}
	s.Size = alignTo(offset, align)
	for uint32(len(used)) < s.Size {
		used = append(used, false)
	}
	s.Elements = append(s.Elements, paddingElements(used)...)
	return s
}

// paddingElements covers every unused byte with the widest padding check
// that fits.
func paddingElements(used []bool) []coding.StructElement {
	var out []coding.StructElement
	size := uint32(len(used))
	for off := uint32(0); off < size; {
		width := uint32(8)
		for off%width != 0 || off+width > size {
			width /= 2
		}
		if width == 1 {
			off++
			continue
		}
		var mask uint64
		for i := uint32(0); i < width; i++ {
			if !used[off+i] {
				mask |= 0xff << (8 * i)
			}
		}
		if mask != 0 {
			switch width {
			case 8:
				out = append(out, coding.Padding64(off, mask))
			case 4:
				out = append(out, coding.Padding32(off, uint32(mask)))
			case 2:
				out = append(out, coding.Padding16(off, uint16(mask)))
			}
		}
		off += width
	}
	return out
}

func alignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// needsWalk reports whether t has anything for the walker to check.
func needsWalk(t coding.Type) bool {
	switch t := t.(type) {
	case *coding.Primitive:
		return t.Subtype == coding.SubtypeBool
	case *coding.Enum:
		return t.Strict && t.Validate != nil
	case *coding.Bits:
		return t.Strict
	case *coding.Struct:
		for _, e := range t.Elements {
			if e.Kind != coding.ElementField || (e.Type != nil && needsWalk(e.Type)) {
				return true
			}
		}
		return false
	case *coding.Array:
		return t.Element != nil && needsWalk(t.Element)
	default:
		return true
	}
}

// hasHandles reports whether t can carry handles.
func hasHandles(t coding.Type) bool {
	switch t := t.(type) {
	case *coding.Handle:
		return true
	case *coding.Struct:
		for _, e := range t.Elements {
			if e.Kind == coding.ElementField && e.Type != nil && hasHandles(e.Type) {
				return true
			}
		}
		return false
	case *coding.StructPointer:
		return hasHandles(t.Struct)
	case *coding.Array:
		return t.Element != nil && hasHandles(t.Element)
	case *coding.Vector:
		return t.Element != nil && hasHandles(t.Element)
	case *coding.Table:
		return t.Resource
	case *coding.XUnion:
		return t.Resource
	default:
		return false
	}
}
