package wire

import (
	"math"
	"strconv"

	"github.com/wippyai/fidlwire/coding"
	"github.com/wippyai/fidlwire/errors"
)

// pointeeKind tells VisitPointer what the claimed region holds.
type pointeeKind uint8

const (
	pointeeStruct pointeeKind = iota
	pointeeString
	pointeeVector
	pointeeTable
	pointeeEnvelope
)

func (k pointeeKind) String() string {
	switch k {
	case pointeeStruct:
		return "struct"
	case pointeeString:
		return "string"
	case pointeeVector:
		return "vector"
	case pointeeTable:
		return "table"
	case pointeeEnvelope:
		return "envelope"
	default:
		return "unknown"
	}
}

// checkpoint is the allocator and handle state on entering an envelope.
type checkpoint struct {
	nextOutOfLine uint32
	handleIdx     uint32
}

// walkVisitor receives the walker's callbacks. Any non-nil error stops the
// walk; implementations record it before returning it.
type walkVisitor interface {
	// VisitPointer claims size bytes out of line for the object referenced
	// by the presence marker at ptr and returns the object's position.
	VisitPointer(ptr position, kind pointeeKind, size uint32) (position, error)
	VisitAbsentPointerInNonNullableCollection(ptr position) error
	VisitHandle(p position, typ *coding.Handle) error
	VisitVectorOrStringCount(count position) error
	// VisitInternalPadding checks the width bytes at p under mask.
	VisitInternalPadding(p position, width uint32, mask uint64) error
	EnterEnvelope(env envelopeHeader) checkpoint
	LeaveEnvelope(env envelopeHeader, cp checkpoint) error
	VisitUnknownEnvelope(env envelopeHeader, resource bool) error
	OnError(err *errors.Error)
}

// frame is one step of the field path; index is used when name is empty.
type frame struct {
	name  string
	index uint64
}

// walker traverses a message depth-first in schema order.
type walker struct {
	v        walkVisitor
	bytes    []byte
	path     []frame
	phase    errors.Phase
	depth    uint32
	maxDepth uint32
}

func (w *walker) fail(status errors.Status, kind errors.Kind, p position, detail string) error {
	err := &errors.Error{
		Phase:  w.phase,
		Kind:   kind,
		Offset: p.off,
		Detail: detail,
		Status: status,
	}
	w.v.OnError(err)
	return err
}

func (w *walker) violation(kind errors.Kind, p position, detail string) error {
	return w.fail(errors.StatusConstraintViolation, kind, p, detail)
}

func (w *walker) push(name string) {
	w.path = append(w.path, frame{name: name})
}

func (w *walker) pushIndex(i uint64) {
	w.path = append(w.path, frame{index: i})
}

func (w *walker) pop() {
	w.path = w.path[:len(w.path)-1]
}

// pathStrings renders the path at the point the walk stopped.
func (w *walker) pathStrings() []string {
	if len(w.path) == 0 {
		return nil
	}
	out := make([]string, 0, len(w.path))
	for _, f := range w.path {
		if f.name != "" {
			out = append(out, f.name)
		} else {
			out = append(out, strconv.FormatUint(f.index, 10))
		}
	}
	return out
}

// enter claims an out-of-line object, one nesting level deeper.
func (w *walker) enter(ptr position, kind pointeeKind, size uint32) (position, error) {
	if w.depth >= w.maxDepth {
		return position{}, w.violation(errors.KindDepth, ptr, "recursion depth exceeded")
	}
	obj, err := w.v.VisitPointer(ptr, kind, size)
	if err != nil {
		return position{}, err
	}
	w.depth++
	return obj, nil
}

func (w *walker) leave() {
	w.depth--
}

// presence reads the 8-byte marker at p.
func (w *walker) presence(p position) (bool, error) {
	switch readU64(w.bytes, p) {
	case coding.AllocAbsent:
		return false, nil
	case coding.AllocPresent:
		return true, nil
	}
	return false, w.violation(errors.KindPresence, p, "invalid presence marker")
}

func (w *walker) walk(t coding.Type, p position) error {
	switch t := t.(type) {
	case *coding.Primitive:
		if t.Subtype == coding.SubtypeBool && readU8(w.bytes, p) > 1 {
			return w.violation(errors.KindInvalidData, p, "not a valid bool value")
		}
		return nil
	case *coding.Enum:
		if !t.Strict || t.Validate == nil {
			return nil
		}
		v := readUint(w.bytes, p, t.Underlying.Size(), t.Underlying.Signed())
		if !t.Validate(v) {
			return w.violation(errors.KindInvalidEnum, p, "not a valid enum value")
		}
		return nil
	case *coding.Bits:
		if !t.Strict {
			return nil
		}
		v := readUint(w.bytes, p, t.Underlying.Size(), false)
		if v&^t.Mask != 0 {
			return w.violation(errors.KindInvalidEnum, p, "not a valid bits member")
		}
		return nil
	case *coding.Struct:
		return w.walkStruct(t, p)
	case *coding.StructPointer:
		return w.walkStructPointer(t, p)
	case *coding.Array:
		return w.walkArray(t, p)
	case *coding.String:
		return w.walkString(t, p)
	case *coding.Handle:
		return w.walkHandle(t, p)
	case *coding.Vector:
		return w.walkVector(t, p)
	case *coding.Table:
		return w.walkTable(t, p)
	case *coding.XUnion:
		return w.walkXUnion(t, p)
	}
	return w.violation(errors.KindUnsupported, p, "unknown coding table")
}

func (w *walker) walkStruct(s *coding.Struct, p position) error {
	for i := range s.Elements {
		e := &s.Elements[i]
		switch e.Kind {
		case coding.ElementField:
			if e.Type == nil {
				continue
			}
			w.push(e.Name)
			if err := w.walk(e.Type, p.add(e.Offset)); err != nil {
				return err
			}
			w.pop()
		case coding.ElementPadding64:
			if err := w.v.VisitInternalPadding(p.add(e.Offset), 8, e.Mask); err != nil {
				return err
			}
		case coding.ElementPadding32:
			if err := w.v.VisitInternalPadding(p.add(e.Offset), 4, e.Mask); err != nil {
				return err
			}
		case coding.ElementPadding16:
			if err := w.v.VisitInternalPadding(p.add(e.Offset), 2, e.Mask); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *walker) walkStructPointer(sp *coding.StructPointer, p position) error {
	present, err := w.presence(p)
	if err != nil || !present {
		return err
	}
	obj, err := w.enter(p, pointeeStruct, sp.Struct.Size)
	if err != nil {
		return err
	}
	if err := w.walkStruct(sp.Struct, obj); err != nil {
		return err
	}
	w.leave()
	return nil
}

func (w *walker) walkArray(a *coding.Array, p position) error {
	if a.Element == nil || a.ElementSize == 0 {
		return nil
	}
	n := a.ArraySize / a.ElementSize
	for i := uint32(0); i < n; i++ {
		w.pushIndex(uint64(i))
		if err := w.walk(a.Element, p.add(i*a.ElementSize)); err != nil {
			return err
		}
		w.pop()
	}
	return nil
}

func (w *walker) walkString(s *coding.String, p position) error {
	size := readU64(w.bytes, p)
	if err := w.v.VisitVectorOrStringCount(p); err != nil {
		return err
	}
	data := p.add(8)
	present, err := w.presence(data)
	if err != nil {
		return err
	}
	if !present {
		if !s.Nullable {
			return w.v.VisitAbsentPointerInNonNullableCollection(data)
		}
		if size != 0 {
			return w.violation(errors.KindAbsent, p, "string is absent but length is not zero")
		}
		return nil
	}
	if size > math.MaxUint32 {
		return w.fail(errors.StatusMemoryError, errors.KindOverflow, p, "string size overflows 32 bits")
	}
	if size > uint64(s.MaxSize) {
		return w.violation(errors.KindInvalidData, p, "string exceeds maximum length")
	}
	if _, err := w.enter(data, pointeeString, uint32(size)); err != nil {
		return err
	}
	w.leave()
	return nil
}

func (w *walker) walkHandle(h *coding.Handle, p position) error {
	if readU32(w.bytes, p) == coding.HandleAbsent {
		if !h.Nullable {
			return w.violation(errors.KindAbsent, p, "non-nullable handle is absent")
		}
		return nil
	}
	return w.v.VisitHandle(p, h)
}

func (w *walker) walkVector(v *coding.Vector, p position) error {
	count := readU64(w.bytes, p)
	if err := w.v.VisitVectorOrStringCount(p); err != nil {
		return err
	}
	data := p.add(8)
	present, err := w.presence(data)
	if err != nil {
		return err
	}
	if !present {
		if !v.Nullable {
			return w.v.VisitAbsentPointerInNonNullableCollection(data)
		}
		if count != 0 {
			return w.violation(errors.KindAbsent, p, "vector is absent but count is not zero")
		}
		return nil
	}
	if count > uint64(v.MaxCount) {
		return w.violation(errors.KindInvalidData, p, "vector exceeds maximum count")
	}
	size, ok := mulU32(count, uint64(v.ElementSize))
	if !ok {
		return w.fail(errors.StatusMemoryError, errors.KindOverflow, p, "integer overflow calculating vector size")
	}
	obj, err := w.enter(data, pointeeVector, size)
	if err != nil {
		return err
	}
	if v.Element != nil {
		for i := uint32(0); i < uint32(count); i++ {
			w.pushIndex(uint64(i))
			if err := w.walk(v.Element, obj.add(i*v.ElementSize)); err != nil {
				return err
			}
			w.pop()
		}
	}
	w.leave()
	return nil
}

func (w *walker) walkTable(t *coding.Table, p position) error {
	count := readU64(w.bytes, p)
	data := p.add(8)
	present, err := w.presence(data)
	if err != nil {
		return err
	}
	if !present {
		if count != 0 {
			return w.violation(errors.KindAbsent, p, "table envelope vector is absent but count is not zero")
		}
		return nil
	}
	size, ok := mulU32(count, coding.EnvelopeSize)
	if !ok {
		return w.fail(errors.StatusMemoryError, errors.KindOverflow, p, "integer overflow calculating table size")
	}
	obj, err := w.enter(data, pointeeTable, size)
	if err != nil {
		return err
	}

	next := 0
	for i := uint32(0); i < uint32(count); i++ {
		ordinal := i + 1
		for next < len(t.Fields) && t.Fields[next].Ordinal < ordinal {
			next++
		}
		var payload coding.Type
		if next < len(t.Fields) && t.Fields[next].Ordinal == ordinal {
			payload = t.Fields[next].Type
			w.push(t.Fields[next].Name)
		} else {
			w.pushIndex(uint64(ordinal))
		}
		env := readEnvelope(w.bytes, obj.add(i*coding.EnvelopeSize))
		if err := w.walkEnvelope(env, payload, t.Resource); err != nil {
			return err
		}
		w.pop()
	}
	w.leave()
	return nil
}

func (w *walker) walkXUnion(u *coding.XUnion, p position) error {
	ordinal := readU64(w.bytes, p)
	env := readEnvelope(w.bytes, p.add(8))

	if ordinal == 0 {
		if !u.Nullable {
			return w.violation(errors.KindAbsent, p, "non-nullable xunion is absent")
		}
		if env.presence != coding.AllocAbsent || env.numBytes != 0 || env.numHandles != 0 {
			return w.violation(errors.KindEnvelope, p, "empty xunion must have an absent, zero-sized envelope")
		}
		return nil
	}

	field := u.Field(ordinal)
	if field == nil && u.Strict {
		return w.violation(errors.KindInvalidData, p, "strict xunion has unknown ordinal")
	}
	var payload coding.Type
	if field != nil {
		payload = field.Type
		w.push(field.Name)
	} else {
		w.pushIndex(ordinal)
	}

	present, err := w.presence(env.dataPos())
	if err != nil {
		return err
	}
	if !present {
		return w.violation(errors.KindEnvelope, p, "xunion with a non-zero ordinal has an absent envelope")
	}
	if err := w.walkEnvelope(env, payload, u.Resource); err != nil {
		return err
	}
	w.pop()
	return nil
}

// walkEnvelope walks a known payload, or claims the declared bytes of an
// unknown one. A nil payload is treated as unknown.
func (w *walker) walkEnvelope(env envelopeHeader, payload coding.Type, resource bool) error {
	present, err := w.presence(env.dataPos())
	if err != nil {
		return err
	}
	if !present {
		if env.numBytes != 0 || env.numHandles != 0 {
			return w.violation(errors.KindEnvelope, env.pos, "Envelope has absent data pointer, yet has data and/or handles")
		}
		return nil
	}

	cp := w.v.EnterEnvelope(env)
	if payload != nil {
		obj, err := w.enter(env.dataPos(), pointeeEnvelope, payload.InlineSize())
		if err != nil {
			return err
		}
		if err := w.walk(payload, obj); err != nil {
			return err
		}
		w.leave()
	} else {
		if env.numBytes%coding.Alignment != 0 {
			return w.violation(errors.KindEnvelope, env.pos, "Envelope num_bytes was not a multiple of alignment")
		}
		if _, err := w.enter(env.dataPos(), pointeeEnvelope, env.numBytes); err != nil {
			return err
		}
		w.leave()
		if err := w.v.VisitUnknownEnvelope(env, resource); err != nil {
			return err
		}
	}
	return w.v.LeaveEnvelope(env, cp)
}
