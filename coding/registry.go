package coding

import (
	"sort"
	"sync"

	"github.com/wippyai/fidlwire/errors"
)

// Registry maps names to coding tables. It is safe for concurrent use.
type Registry struct {
	types sync.Map // string -> Type
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds t under name. Names are unique.
func (r *Registry) Register(name string, t Type) error {
	if name == "" || t == nil {
		return errors.InvalidInput(errors.PhaseSchema, "register: empty name or nil type")
	}
	if _, loaded := r.types.LoadOrStore(name, t); loaded {
		return errors.New(errors.PhaseSchema, errors.KindInvalidInput).
			Detail("type %q already registered", name).
			Build()
	}
	return nil
}

// Lookup returns the coding table registered under name.
func (r *Registry) Lookup(name string) (Type, error) {
	if v, ok := r.types.Load(name); ok {
		return v.(Type), nil
	}
	return nil, errors.NotFound(errors.PhaseSchema, "type", name)
}

// Names lists every registered name in sorted order.
func (r *Registry) Names() []string {
	var names []string
	r.types.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	sort.Strings(names)
	return names
}
