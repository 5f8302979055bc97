package handle

import "strconv"

// Handle is an opaque reference to a kernel object.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Invalid is the sentinel for "no handle".
const Invalid Handle = 0

// ObjType identifies the kind of kernel object a handle refers to.
type ObjType uint32

const (
	ObjTypeNone         ObjType = 0
	ObjTypeProcess      ObjType = 1
	ObjTypeThread       ObjType = 2
	ObjTypeVMO          ObjType = 3
	ObjTypeChannel      ObjType = 4
	ObjTypeEvent        ObjType = 5
	ObjTypePort         ObjType = 6
	ObjTypeInterrupt    ObjType = 9
	ObjTypeLog          ObjType = 12
	ObjTypeSocket       ObjType = 14
	ObjTypeResource     ObjType = 15
	ObjTypeEventPair    ObjType = 16
	ObjTypeJob          ObjType = 17
	ObjTypeVMAR         ObjType = 18
	ObjTypeFIFO         ObjType = 19
	ObjTypeTimer        ObjType = 22
	ObjTypeBTI          ObjType = 24
	ObjTypeProfile      ObjType = 25
	ObjTypeSuspendToken ObjType = 27
	ObjTypePager        ObjType = 28
	ObjTypeException    ObjType = 29
	ObjTypeClock        ObjType = 30
	ObjTypeStream       ObjType = 31
)

var objTypeNames = map[ObjType]string{
	ObjTypeNone:         "none",
	ObjTypeProcess:      "process",
	ObjTypeThread:       "thread",
	ObjTypeVMO:          "vmo",
	ObjTypeChannel:      "channel",
	ObjTypeEvent:        "event",
	ObjTypePort:         "port",
	ObjTypeInterrupt:    "interrupt",
	ObjTypeLog:          "log",
	ObjTypeSocket:       "socket",
	ObjTypeResource:     "resource",
	ObjTypeEventPair:    "eventpair",
	ObjTypeJob:          "job",
	ObjTypeVMAR:         "vmar",
	ObjTypeFIFO:         "fifo",
	ObjTypeTimer:        "timer",
	ObjTypeBTI:          "bti",
	ObjTypeProfile:      "profile",
	ObjTypeSuspendToken: "suspend_token",
	ObjTypePager:        "pager",
	ObjTypeException:    "exception",
	ObjTypeClock:        "clock",
	ObjTypeStream:       "stream",
}

func (t ObjType) String() string {
	if name, ok := objTypeNames[t]; ok {
		return name
	}
	return "obj_type(" + strconv.FormatUint(uint64(t), 10) + ")"
}

// ParseObjType resolves an object type by its String name.
func ParseObjType(name string) (ObjType, bool) {
	for t, n := range objTypeNames {
		if n == name {
			return t, true
		}
	}
	return ObjTypeNone, false
}

// Rights is a bitmask of permitted operations.
type Rights uint32

const (
	RightNone          Rights = 0
	RightDuplicate     Rights = 1 << 0
	RightTransfer      Rights = 1 << 1
	RightRead          Rights = 1 << 2
	RightWrite         Rights = 1 << 3
	RightExecute       Rights = 1 << 4
	RightMap           Rights = 1 << 5
	RightGetProperty   Rights = 1 << 6
	RightSetProperty   Rights = 1 << 7
	RightEnumerate     Rights = 1 << 8
	RightDestroy       Rights = 1 << 9
	RightSetPolicy     Rights = 1 << 10
	RightGetPolicy     Rights = 1 << 11
	RightSignal        Rights = 1 << 12
	RightSignalPeer    Rights = 1 << 13
	RightWait          Rights = 1 << 14
	RightInspect       Rights = 1 << 15
	RightManageJob     Rights = 1 << 16
	RightManageProcess Rights = 1 << 17
	RightManageThread  Rights = 1 << 18
	RightApplyProfile  Rights = 1 << 19

	// RightSameRights in a coding table means "whatever the handle has".
	RightSameRights Rights = 1 << 31
)

// Common rights sets.
const (
	RightsBasic    = RightTransfer | RightDuplicate | RightWait | RightInspect
	RightsIO       = RightRead | RightWrite
	RightsProperty = RightGetProperty | RightSetProperty
	RightsPolicy   = RightGetPolicy | RightSetPolicy

	RightsChannel = RightsBasic | RightsIO | RightSignal | RightSignalPeer
	RightsVMO     = RightsBasic | RightsIO | RightsProperty | RightMap | RightSignal
	RightsSocket  = RightsBasic | RightsIO | RightsProperty | RightSignal | RightSignalPeer
	RightsEvent   = RightsBasic | RightSignal
)

// DefaultRights returns the rights a freshly created object of type t
// carries. Types without a dedicated set get RightsBasic.
func (t ObjType) DefaultRights() Rights {
	switch t {
	case ObjTypeChannel:
		return RightsChannel
	case ObjTypeVMO:
		return RightsVMO
	case ObjTypeSocket:
		return RightsSocket
	case ObjTypeEvent:
		return RightsEvent
	}
	return RightsBasic
}

// Subtract returns the rights in r that are not in other.
func (r Rights) Subtract(other Rights) Rights {
	return r &^ other
}

// Has reports whether r contains every right in required.
func (r Rights) Has(required Rights) bool {
	return required.Subtract(r) == 0
}

// Info is a handle annotated with the object type and rights the kernel
// reported when the handle was received.
type Info struct {
	Handle Handle
	Type   ObjType
	Rights Rights
}

// Table is the kernel-side collaborator the decoder closes and replaces
// handles through.
type Table interface {
	// CloseMany closes every valid handle in handles. Invalid entries are
	// skipped. The first failure is returned after all handles were tried.
	CloseMany(handles []Handle) error

	// Replace consumes h and returns a handle to the same object carrying
	// exactly rights. h is invalid afterwards even on failure.
	Replace(h Handle, rights Rights) (Handle, error)
}

// EventType identifies a handle lifecycle event.
type EventType uint8

const (
	EventCreated EventType = iota
	EventClosed
	EventReplaced
	EventBadHandle
)

// Event represents a handle lifecycle notification.
type Event struct {
	Value  any
	Handle Handle
	// Replacement is set for EventReplaced.
	Replacement Handle
	Type        EventType
	ObjType     ObjType
}

// Observer receives notifications about handle lifecycle events.
type Observer interface {
	OnHandleEvent(Event)
}

// Closer is optionally implemented by values stored in a LocalTable that
// need cleanup when their last handle is closed.
type Closer interface {
	Close() error
}

// Handles extracts the handle values from infos.
func Handles(infos []Info) []Handle {
	out := make([]Handle, len(infos))
	for i, info := range infos {
		out[i] = info.Handle
	}
	return out
}
