package fidlwire

import "github.com/wippyai/fidlwire/handle"

// IncomingMessage is a message as received from a transport. At most one of
// Handles and HandleInfos may be set.
type IncomingMessage struct {
	Bytes       []byte
	Handles     []handle.Handle
	HandleInfos []handle.Info
}

// NumHandles returns the number of handles carried in either form.
func (m *IncomingMessage) NumHandles() int {
	if len(m.HandleInfos) > 0 {
		return len(m.HandleInfos)
	}
	return len(m.Handles)
}

// OutgoingMessage describes a message whose handles were already moved to
// the transport. Only the handle count remains, which is all validation
// needs.
type OutgoingMessage struct {
	Bytes      []byte
	NumHandles uint32
}
