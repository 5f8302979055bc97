package wire

import (
	"fmt"

	"github.com/wippyai/fidlwire/coding"
	"github.com/wippyai/fidlwire/errors"
)

// TraceKind identifies a recorded walker callback.
type TraceKind uint8

const (
	TracePointer TraceKind = iota
	TraceAbsentPointer
	TraceHandle
	TraceCount
	TracePadding
	TraceEnterEnvelope
	TraceLeaveEnvelope
	TraceUnknownEnvelope
	TraceError
)

var traceKindNames = [...]string{
	TracePointer:         "pointer",
	TraceAbsentPointer:   "absent",
	TraceHandle:          "handle",
	TraceCount:           "count",
	TracePadding:         "padding",
	TraceEnterEnvelope:   "enter",
	TraceLeaveEnvelope:   "leave",
	TraceUnknownEnvelope: "unknown",
	TraceError:           "error",
}

func (k TraceKind) String() string {
	if int(k) < len(traceKindNames) {
		return traceKindNames[k]
	}
	return "unknown"
}

// TraceEvent is one walker callback.
type TraceEvent struct {
	Err    error
	Detail string
	Kind   TraceKind
	Offset uint32
	// Target and Size describe the region claimed by a pointer.
	Target uint32
	Size   uint32
	// Nesting counts the envelopes enclosing the event.
	Nesting int
}

func (e TraceEvent) String() string {
	switch e.Kind {
	case TracePointer:
		return fmt.Sprintf("%-8s @%-6d -> %d (+%d) %s", e.Kind, e.Offset, e.Target, e.Size, e.Detail)
	default:
		if e.Detail != "" {
			return fmt.Sprintf("%-8s @%-6d %s", e.Kind, e.Offset, e.Detail)
		}
		return fmt.Sprintf("%-8s @%d", e.Kind, e.Offset)
	}
}

// Trace is the result of Inspect.
type Trace struct {
	// Err is the validation result.
	Err    error
	Events []TraceEvent
}

// tracer records every callback before delegating to the wrapped visitor.
type tracer struct {
	next    walkVisitor
	events  []TraceEvent
	nesting int
}

func (t *tracer) record(e TraceEvent, err error) {
	e.Nesting = t.nesting
	e.Err = err
	t.events = append(t.events, e)
}

func (t *tracer) VisitPointer(ptr position, kind pointeeKind, size uint32) (position, error) {
	obj, err := t.next.VisitPointer(ptr, kind, size)
	t.record(TraceEvent{Kind: TracePointer, Offset: ptr.off, Target: obj.off, Size: size, Detail: kind.String()}, err)
	return obj, err
}

func (t *tracer) VisitAbsentPointerInNonNullableCollection(ptr position) error {
	err := t.next.VisitAbsentPointerInNonNullableCollection(ptr)
	t.record(TraceEvent{Kind: TraceAbsentPointer, Offset: ptr.off}, err)
	return err
}

func (t *tracer) VisitHandle(p position, typ *coding.Handle) error {
	err := t.next.VisitHandle(p, typ)
	t.record(TraceEvent{Kind: TraceHandle, Offset: p.off, Detail: typ.TypeName()}, err)
	return err
}

func (t *tracer) VisitVectorOrStringCount(count position) error {
	err := t.next.VisitVectorOrStringCount(count)
	t.record(TraceEvent{Kind: TraceCount, Offset: count.off}, err)
	return err
}

func (t *tracer) VisitInternalPadding(p position, width uint32, mask uint64) error {
	err := t.next.VisitInternalPadding(p, width, mask)
	t.record(TraceEvent{Kind: TracePadding, Offset: p.off, Size: width, Detail: fmt.Sprintf("mask %#x", mask)}, err)
	return err
}

func (t *tracer) EnterEnvelope(env envelopeHeader) checkpoint {
	cp := t.next.EnterEnvelope(env)
	t.record(TraceEvent{
		Kind:   TraceEnterEnvelope,
		Offset: env.pos.off,
		Size:   env.numBytes,
		Detail: fmt.Sprintf("%d bytes, %d handles", env.numBytes, env.numHandles),
	}, nil)
	t.nesting++
	return cp
}

func (t *tracer) LeaveEnvelope(env envelopeHeader, cp checkpoint) error {
	err := t.next.LeaveEnvelope(env, cp)
	t.nesting--
	t.record(TraceEvent{Kind: TraceLeaveEnvelope, Offset: env.pos.off}, err)
	return err
}

func (t *tracer) VisitUnknownEnvelope(env envelopeHeader, resource bool) error {
	err := t.next.VisitUnknownEnvelope(env, resource)
	detail := "value"
	if resource {
		detail = "resource"
	}
	t.record(TraceEvent{Kind: TraceUnknownEnvelope, Offset: env.pos.off, Size: env.numBytes, Detail: detail}, err)
	return err
}

func (t *tracer) OnError(err *errors.Error) {
	t.next.OnError(err)
	t.record(TraceEvent{Kind: TraceError, Offset: err.Offset, Detail: err.Detail}, err)
}

// Inspect validates bytes like Validate and records every step of the walk.
func (d *Decoder) Inspect(t coding.Type, bytes []byte, numHandles uint32) *Trace {
	tr := &tracer{}
	err := run[validateMode](d, t, bytes, countSource(numHandles), func(v walkVisitor) walkVisitor {
		tr.next = v
		return tr
	})
	return &Trace{Err: err, Events: tr.events}
}

// Inspect traces a validation with the default decoder.
func Inspect(t coding.Type, bytes []byte, numHandles uint32) *Trace {
	return defaultDecoder.Inspect(t, bytes, numHandles)
}
