package handle

import (
	"errors"
	"sync"
)

var (
	ErrClosed    = errors.New("handle table closed")
	ErrBadHandle = errors.New("bad handle")
	ErrRights    = errors.New("cannot increase handle rights")
)

// LocalTable is an in-process handle table. Handle values are never reused,
// so a stale or double close is always reported as ErrBadHandle.
type LocalTable struct {
	entries   []entry
	observers []Observer
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    bool
}

type entry struct {
	value   any
	objType ObjType
	rights  Rights
	valid   bool
}

// NewLocalTable creates an empty table.
func NewLocalTable() *LocalTable {
	return &LocalTable{
		entries: make([]entry, 0, 64),
	}
}

// Create stores value and returns a new handle to it. Returns Invalid once
// the table is closed.
func (t *LocalTable) Create(objType ObjType, rights Rights, value any) Handle {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Invalid
	}
	t.entries = append(t.entries, entry{
		value:   value,
		objType: objType,
		rights:  rights,
		valid:   true,
	})
	h := Handle(len(t.entries))
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Handle: h, ObjType: objType, Value: value})
	return h
}

// Info returns the object type and rights of a live handle.
func (t *LocalTable) Info(h Handle) (Info, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.lookup(h)
	if !ok {
		return Info{}, false
	}
	return Info{Handle: h, Type: e.objType, Rights: e.rights}, true
}

// Get retrieves the value a live handle refers to.
func (t *LocalTable) Get(h Handle) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.lookup(h)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Close releases a single handle.
func (t *LocalTable) Close(h Handle) error {
	t.mu.Lock()
	e, ok := t.lookup(h)
	if !ok {
		t.mu.Unlock()
		t.notify(Event{Type: EventBadHandle, Handle: h})
		return ErrBadHandle
	}
	value, objType := e.value, e.objType
	*e = entry{}
	shared := t.referencedLocked(value)
	t.mu.Unlock()

	if c, ok := value.(Closer); ok && !shared {
		_ = c.Close()
	}
	t.notify(Event{Type: EventClosed, Handle: h, ObjType: objType, Value: value})
	return nil
}

// CloseMany closes every valid handle, skipping Invalid entries.
func (t *LocalTable) CloseMany(handles []Handle) error {
	var first error
	for _, h := range handles {
		if h == Invalid {
			continue
		}
		if err := t.Close(h); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Replace consumes h and returns a new handle to the same object with
// exactly rights, which must be a subset of h's rights.
func (t *LocalTable) Replace(h Handle, rights Rights) (Handle, error) {
	t.mu.Lock()
	e, ok := t.lookup(h)
	if !ok {
		t.mu.Unlock()
		t.notify(Event{Type: EventBadHandle, Handle: h})
		return Invalid, ErrBadHandle
	}
	old := *e
	*e = entry{}
	if !old.rights.Has(rights) {
		t.mu.Unlock()
		if c, ok := old.value.(Closer); ok {
			_ = c.Close()
		}
		t.notify(Event{Type: EventClosed, Handle: h, ObjType: old.objType, Value: old.value})
		return Invalid, ErrRights
	}
	t.entries = append(t.entries, entry{
		value:   old.value,
		objType: old.objType,
		rights:  rights,
		valid:   true,
	})
	replacement := Handle(len(t.entries))
	t.mu.Unlock()

	t.notify(Event{Type: EventReplaced, Handle: h, Replacement: replacement, ObjType: old.objType, Value: old.value})
	return replacement, nil
}

// Duplicate returns a second handle to the same object with the given
// rights. The source handle needs RightDuplicate.
func (t *LocalTable) Duplicate(h Handle, rights Rights) (Handle, error) {
	info, ok := t.Info(h)
	if !ok {
		return Invalid, ErrBadHandle
	}
	if !info.Rights.Has(RightDuplicate) {
		return Invalid, ErrRights
	}
	if rights == RightSameRights {
		rights = info.Rights
	}
	if !info.Rights.Has(rights) {
		return Invalid, ErrRights
	}
	value, _ := t.Get(h)
	dup := t.Create(info.Type, rights, value)
	if dup == Invalid {
		return Invalid, ErrClosed
	}
	return dup, nil
}

// Len returns the number of live handles.
func (t *LocalTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	for _, e := range t.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// Each iterates over all live handles.
func (t *LocalTable) Each(fn func(Info) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i, e := range t.entries {
		if e.valid {
			if !fn(Info{Handle: Handle(i + 1), Type: e.objType, Rights: e.rights}) {
				break
			}
		}
	}
}

// Subscribe adds an observer for lifecycle events.
func (t *LocalTable) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *LocalTable) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// CloseAll releases all handles and stops accepting new ones.
func (t *LocalTable) CloseAll() error {
	var live []Handle
	t.mu.Lock()
	t.closed = true
	for i, e := range t.entries {
		if e.valid {
			live = append(live, Handle(i+1))
		}
	}
	t.mu.Unlock()
	return t.CloseMany(live)
}

func (t *LocalTable) lookup(h Handle) (*entry, bool) {
	if h == Invalid {
		return nil, false
	}
	idx := int(h) - 1
	if idx >= len(t.entries) {
		return nil, false
	}
	e := &t.entries[idx]
	if !e.valid {
		return nil, false
	}
	return e, true
}

// referencedLocked reports whether another live handle still refers to value.
func (t *LocalTable) referencedLocked(value any) bool {
	if value == nil {
		return false
	}
	if _, ok := value.(Closer); !ok {
		return false
	}
	for _, e := range t.entries {
		if e.valid && e.value == value {
			return true
		}
	}
	return false
}

func (t *LocalTable) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnHandleEvent(e)
	}
}
