package wire

import (
	"unicode/utf8"

	"github.com/wippyai/fidlwire/coding"
	"github.com/wippyai/fidlwire/errors"
	"github.com/wippyai/fidlwire/handle"
)

// mode selects between in-place decoding and read-only validation.
type mode interface {
	mutates() bool
}

type decodeMode struct{}

func (decodeMode) mutates() bool { return true }

type validateMode struct{}

func (validateMode) mutates() bool { return false }

func phaseOf[M mode]() errors.Phase {
	var m M
	if m.mutates() {
		return errors.PhaseDecode
	}
	return errors.PhaseValidate
}

// visitor implements both decode and validate. Every write to the buffer
// is guarded by M.mutates, so validation never changes the message.
type visitor[M mode] struct {
	bytes         []byte
	table         handle.Table
	err           *errors.Error
	unknown       []handle.Handle
	handles       handleSource
	numBytes      uint32
	nextOutOfLine uint32
	maxUnknown    uint32
	policy        UnknownHandlePolicy
}

func (v *visitor[M]) mutating() bool {
	var m M
	return m.mutates()
}

func (v *visitor[M]) fail(status errors.Status, kind errors.Kind, p position, detail string) error {
	err := &errors.Error{
		Phase:  phaseOf[M](),
		Kind:   kind,
		Offset: p.off,
		Detail: detail,
		Status: status,
	}
	v.OnError(err)
	return err
}

func (v *visitor[M]) violation(kind errors.Kind, p position, detail string) error {
	return v.fail(errors.StatusConstraintViolation, kind, p, detail)
}

func (v *visitor[M]) OnError(err *errors.Error) {
	if v.err == nil {
		v.err = err
	}
}

func (v *visitor[M]) VisitAbsentPointerInNonNullableCollection(ptr position) error {
	return v.violation(errors.KindAbsent, ptr, "absent pointer disallowed in non-nullable collection")
}

func (v *visitor[M]) VisitPointer(ptr position, kind pointeeKind, size uint32) (position, error) {
	next, ok := addOutOfLine(v.nextOutOfLine, size)
	if !ok {
		return position{}, v.fail(errors.StatusMemoryError, errors.KindOverflow, ptr,
			"overflow updating out-of-line offset")
	}
	if next > v.numBytes {
		return position{}, v.fail(errors.StatusMemoryError, errors.KindOutOfBounds, ptr,
			"message tried to access more than provided number of bytes")
	}
	if size%coding.Alignment != 0 {
		// Only the final 8-byte block can hold trailing padding.
		padding := uint64(next - v.nextOutOfLine - size)
		mask := ^uint64(0) << (64 - 8*padding)
		block := position{off: next - coding.Alignment}
		if readU64(v.bytes, block)&mask != 0 {
			return position{}, v.violation(errors.KindPadding, block, "non-zero padding bytes detected")
		}
	}
	obj := position{off: v.nextOutOfLine}
	if kind == pointeeString && !utf8.Valid(v.bytes[obj.off:obj.off+size]) {
		return position{}, v.violation(errors.KindInvalidUTF8, obj, "encountered invalid UTF8 string")
	}
	if v.mutating() {
		writeU64(v.bytes, ptr, addressOf(v.bytes, obj.off))
	}
	v.nextOutOfLine = next
	return obj, nil
}

func (v *visitor[M]) VisitHandle(p position, typ *coding.Handle) error {
	if readU32(v.bytes, p) != coding.HandlePresent {
		return v.violation(errors.KindHandle, p, "message tried to decode a garbage handle")
	}
	if v.handles.remaining() == 0 {
		return v.violation(errors.KindHandle, p, "message decoded too many handles")
	}
	if !v.mutating() {
		v.handles.idx++
		return nil
	}

	switch v.handles.kind {
	case sourceRaw:
		h := v.handles.raw[v.handles.idx]
		if h == handle.Invalid {
			return v.violation(errors.KindHandle, p, "invalid handle detected in handle table")
		}
		writeU32(v.bytes, p, uint32(h))
	case sourceInfos:
		info := &v.handles.infos[v.handles.idx]
		if info.Handle == handle.Invalid {
			return v.violation(errors.KindHandle, p, "invalid handle detected in handle table")
		}
		h, err := handle.Ensure(info, typ.Subtype, typ.Rights, v.table)
		if err != nil {
			e := errors.New(phaseOf[M](), errors.KindRights).
				Offset(p.off).
				Detail("%s", errors.Detail(err)).
				Cause(err).
				Build()
			v.OnError(e)
			return e
		}
		writeU32(v.bytes, p, uint32(h))
	default:
		writeU32(v.bytes, p, uint32(handle.Invalid))
		return v.violation(errors.KindHandle, p, "decoder noticed a handle is present but the handle table is empty")
	}
	v.handles.idx++
	return nil
}

func (v *visitor[M]) VisitVectorOrStringCount(position) error {
	return nil
}

func (v *visitor[M]) VisitInternalPadding(p position, width uint32, mask uint64) error {
	if readUint(v.bytes, p, width, false)&mask != 0 {
		return v.violation(errors.KindPadding, p, "non-zero padding bytes detected")
	}
	return nil
}

func (v *visitor[M]) EnterEnvelope(envelopeHeader) checkpoint {
	return checkpoint{
		nextOutOfLine: v.nextOutOfLine,
		handleIdx:     v.handles.idx,
	}
}

func (v *visitor[M]) LeaveEnvelope(env envelopeHeader, cp checkpoint) error {
	if env.numBytes != v.nextOutOfLine-cp.nextOutOfLine {
		return v.violation(errors.KindEnvelope, env.pos, "Envelope num_bytes was mis-sized")
	}
	if env.numHandles != v.handles.idx-cp.handleIdx {
		return v.violation(errors.KindEnvelope, env.pos, "Envelope num_handles was mis-sized")
	}
	return nil
}

func (v *visitor[M]) VisitUnknownEnvelope(env envelopeHeader, resource bool) error {
	n := env.numHandles
	if n > v.handles.remaining() {
		return v.violation(errors.KindHandle, env.pos, "message decoded too many handles")
	}
	if !v.mutating() {
		v.handles.idx += n
		return nil
	}
	if n == 0 {
		return nil
	}

	total, ok := addU32(uint32(len(v.unknown)), n)
	if !ok {
		return v.violation(errors.KindHandle, env.pos, "number of unknown handles overflows")
	}
	if total > v.maxUnknown {
		return v.violation(errors.KindHandle, env.pos, "number of unknown handles exceeds unknown handle array size")
	}
	if v.policy == UnknownHandlesSkip {
		if !resource {
			return v.violation(errors.KindHandle, env.pos, "received unknown handles for a non-resource type")
		}
		v.handles.idx += n
		return nil
	}
	for end := v.handles.idx + n; v.handles.idx < end; v.handles.idx++ {
		v.unknown = append(v.unknown, v.handles.at(v.handles.idx))
	}
	return nil
}
