package wire

import (
	stderrors "errors"
	"math"

	"go.uber.org/zap"

	"github.com/wippyai/fidlwire"
	"github.com/wippyai/fidlwire/coding"
	"github.com/wippyai/fidlwire/errors"
	"github.com/wippyai/fidlwire/handle"
)

// Decode decodes bytes in place against t, consuming handles in traversal
// order. Presence markers are replaced by the in-process address of their
// target and handle placeholders by handle values. On error every handle
// in handles is closed and the buffer contents are unspecified.
func (d *Decoder) Decode(t coding.Type, bytes []byte, handles []handle.Handle) error {
	return run[decodeMode](d, t, bytes, rawSource(handles), nil)
}

// DecodeEtc is Decode for handles annotated with object type and rights.
// Each handle is checked against its field's constraints and excess
// rights are reduced; reduced entries in infos are rewritten in place.
func (d *Decoder) DecodeEtc(t coding.Type, bytes []byte, infos []handle.Info) error {
	return run[decodeMode](d, t, bytes, infoSource(infos), nil)
}

// Validate checks that bytes is a well-formed message of type t carrying
// numHandles handles, without writing to bytes.
func (d *Decoder) Validate(t coding.Type, bytes []byte, numHandles uint32) error {
	return run[validateMode](d, t, bytes, countSource(numHandles), nil)
}

// DecodeMessage decodes msg in place using whichever handle form it
// carries.
func (d *Decoder) DecodeMessage(t coding.Type, msg *fidlwire.IncomingMessage) error {
	if msg == nil {
		return errors.InvalidInput(errors.PhaseDecode, "nil message")
	}
	if len(msg.Handles) > 0 && len(msg.HandleInfos) > 0 {
		d.closeHandles(msg.Handles)
		d.closeHandles(handle.Handles(msg.HandleInfos))
		return errors.Constraint(errors.PhaseDecode, errors.KindInvalidInput, errors.NoOffset,
			"Cannot provide both handles and handle infos")
	}
	if len(msg.HandleInfos) > 0 {
		return d.DecodeEtc(t, msg.Bytes, msg.HandleInfos)
	}
	return d.Decode(t, msg.Bytes, msg.Handles)
}

// ValidateMessage validates an outgoing message.
func (d *Decoder) ValidateMessage(t coding.Type, msg *fidlwire.OutgoingMessage) error {
	if msg == nil {
		return errors.InvalidInput(errors.PhaseValidate, "nil message")
	}
	return d.Validate(t, msg.Bytes, msg.NumHandles)
}

// Decode decodes with the default decoder. The default decoder has no
// handle table, so on failure the handles are left open and the caller must
// close them. Use a Decoder configured with a handle.Table to have them
// closed.
func Decode(t coding.Type, bytes []byte, handles []handle.Handle) error {
	return defaultDecoder.Decode(t, bytes, handles)
}

// DecodeEtc decodes with the default decoder. As with Decode, handles are
// left open on failure and the caller must close them.
func DecodeEtc(t coding.Type, bytes []byte, infos []handle.Info) error {
	return defaultDecoder.DecodeEtc(t, bytes, infos)
}

// Validate validates with the default decoder.
func Validate(t coding.Type, bytes []byte, numHandles uint32) error {
	return defaultDecoder.Validate(t, bytes, numHandles)
}

// DecodeMessage decodes msg with the default decoder. As with Decode,
// handles are left open on failure and the caller must close them.
func DecodeMessage(t coding.Type, msg *fidlwire.IncomingMessage) error {
	return defaultDecoder.DecodeMessage(t, msg)
}

// ValidateMessage validates msg with the default decoder.
func ValidateMessage(t coding.Type, msg *fidlwire.OutgoingMessage) error {
	return defaultDecoder.ValidateMessage(t, msg)
}

var modeDetails = map[errors.Phase]struct {
	nilBytes, bytesLeft, handlesLeft string
}{
	errors.PhaseDecode: {
		nilBytes:    "Cannot decode null bytes",
		bytesLeft:   "message did not decode all provided bytes",
		handlesLeft: "message did not decode all provided handles",
	},
	errors.PhaseValidate: {
		nilBytes:    "Cannot validate null bytes",
		bytesLeft:   "message did not consume all provided bytes",
		handlesLeft: "message did not reference all provided handles",
	},
}

// run is the shared entry routine. wrap, when set, decorates the visitor
// the walker calls.
func run[M mode](d *Decoder, t coding.Type, bytes []byte, src handleSource, wrap func(walkVisitor) walkVisitor) (err error) {
	phase := phaseOf[M]()
	details := modeDetails[phase]

	defer func() {
		if err == nil {
			return
		}
		d.closeHandles(src.all())
		Logger().Debug("message rejected",
			zap.String("phase", string(phase)),
			zap.String("status", errors.StatusOf(err).String()),
			zap.Int("bytes", len(bytes)),
			zap.Uint32("handles", src.count),
			zap.Error(err))
	}()

	if bytes == nil {
		return errors.Memory(phase, errors.KindInvalidInput, errors.NoOffset, details.nilBytes)
	}
	if !coding.IsAligned(uint64(baseAddress(bytes))) {
		return errors.Memory(phase, errors.KindAlignment, errors.NoOffset, "Bytes must be aligned to FIDL_ALIGNMENT")
	}
	if uint64(len(bytes)) > math.MaxUint32 {
		return errors.Memory(phase, errors.KindOverflow, errors.NoOffset, "message exceeds 4GiB")
	}
	numBytes := uint32(len(bytes))

	primary, err := coding.PrimaryObjectSize(t)
	if err != nil {
		return inPhase(err, phase)
	}
	next, err := coding.StartingOutOfLineOffset(t, numBytes)
	if err != nil {
		return inPhase(err, phase)
	}
	for i := primary; i < next; i++ {
		if bytes[i] != 0 {
			return errors.Constraint(phase, errors.KindPadding, i, "non-zero padding bytes detected")
		}
	}

	v := &visitor[M]{
		bytes:         bytes,
		table:         d.table,
		handles:       src,
		numBytes:      numBytes,
		nextOutOfLine: next,
		maxUnknown:    d.maxUnknownHandles,
		policy:        d.policy,
	}
	var wv walkVisitor = v
	if wrap != nil {
		wv = wrap(v)
	}
	w := &walker{
		v:        wv,
		bytes:    bytes,
		phase:    phase,
		maxDepth: d.maxDepth,
	}

	if werr := w.walk(t, position{}); werr != nil {
		e := v.err
		if e == nil && !stderrors.As(werr, &e) {
			return werr
		}
		if len(e.Path) == 0 {
			e.Path = w.pathStrings()
		}
		return e
	}
	if v.nextOutOfLine != numBytes {
		return errors.Constraint(phase, errors.KindTrailing, v.nextOutOfLine, details.bytesLeft)
	}
	if v.handles.idx != v.handles.count {
		return errors.Constraint(phase, errors.KindTrailing, errors.NoOffset, details.handlesLeft)
	}

	d.closeHandles(v.unknown)
	return nil
}

// inPhase reports a layout error from the coding package under the phase of
// the running pass. Status is kept.
func inPhase(err error, phase errors.Phase) error {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return err
	}
	cp := *e
	cp.Phase = phase
	return &cp
}

// closeHandles closes hs through the configured table, best effort.
func (d *Decoder) closeHandles(hs []handle.Handle) {
	if len(hs) == 0 {
		return
	}
	if d.table == nil {
		Logger().Warn("no handle table configured, handles left open", zap.Int("count", len(hs)))
		return
	}
	if err := d.table.CloseMany(hs); err != nil {
		Logger().Debug("closing handles", zap.Int("count", len(hs)), zap.Error(err))
	}
}
