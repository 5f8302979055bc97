package wire

import "github.com/wippyai/fidlwire/handle"

type sourceKind uint8

const (
	sourceAbsent sourceKind = iota
	sourceRaw
	sourceInfos
	sourceCount
)

// handleSource is the handle table supplied with a message. Exactly one
// form is active; entries are consumed in traversal order.
type handleSource struct {
	raw   []handle.Handle
	infos []handle.Info
	count uint32
	idx   uint32
	kind  sourceKind
}

func rawSource(hs []handle.Handle) handleSource {
	if len(hs) == 0 {
		return handleSource{kind: sourceAbsent}
	}
	return handleSource{kind: sourceRaw, raw: hs, count: uint32(len(hs))}
}

func infoSource(infos []handle.Info) handleSource {
	if len(infos) == 0 {
		return handleSource{kind: sourceAbsent}
	}
	return handleSource{kind: sourceInfos, infos: infos, count: uint32(len(infos))}
}

// countSource is used by validation, which only needs the number of
// handles.
func countSource(n uint32) handleSource {
	return handleSource{kind: sourceCount, count: n}
}

func (s *handleSource) remaining() uint32 {
	return s.count - s.idx
}

func (s *handleSource) isRaw() bool {
	return s.kind == sourceRaw
}

func (s *handleSource) isRightsAnnotated() bool {
	return s.kind == sourceInfos
}

// at returns the raw value of entry i without consuming it.
func (s *handleSource) at(i uint32) handle.Handle {
	switch s.kind {
	case sourceRaw:
		return s.raw[i]
	case sourceInfos:
		return s.infos[i].Handle
	default:
		return handle.Invalid
	}
}

// all returns every supplied handle value. Entries rewritten by rights
// reduction are returned as rewritten.
func (s *handleSource) all() []handle.Handle {
	switch s.kind {
	case sourceRaw:
		return s.raw
	case sourceInfos:
		return handle.Handles(s.infos)
	default:
		return nil
	}
}
