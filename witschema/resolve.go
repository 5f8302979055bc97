package witschema

import (
	stderrors "errors"
	"io"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/fidlwire/coding"
	"github.com/wippyai/fidlwire/errors"
)

// DecodeJSON reads a WIT resolve in the JSON form emitted by
// wasm-tools component wit --json.
func DecodeJSON(r io.Reader) (*wit.Resolve, error) {
	res, err := wit.DecodeJSON(r)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSchema, errors.KindInvalidData, err, "decode WIT JSON")
	}
	return res, nil
}

// LoadJSON reads a WIT resolve from a JSON file.
func LoadJSON(path string) (*wit.Resolve, error) {
	res, err := wit.LoadJSON(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSchema, errors.KindInvalidData, err, "load WIT JSON "+path)
	}
	return res, nil
}

var errUnsupported = &errors.Error{Phase: errors.PhaseSchema, Kind: errors.KindUnsupported}

// QualifiedName names td as "interface.type", or just "type" when it is
// not owned by a named interface. Anonymous types return "".
func QualifiedName(td *wit.TypeDef) string {
	if td.Name == nil {
		return ""
	}
	if iface, ok := td.Owner.(*wit.Interface); ok && iface.Name != nil {
		return *iface.Name + "." + *td.Name
	}
	return *td.Name
}

// Register compiles every named type of res as a message and adds it to
// reg under its qualified name. Types with no wire form are skipped. It
// returns the number of types added.
func (c *Compiler) Register(reg *coding.Registry, res *wit.Resolve) (int, error) {
	n := 0
	for _, td := range res.TypeDefs {
		name := QualifiedName(td)
		if name == "" {
			continue
		}
		switch td.Kind.(type) {
		case *wit.Resource, *wit.Own, *wit.Borrow:
			continue
		}
		t, err := c.CompileMessage(td)
		if stderrors.Is(err, errUnsupported) {
			continue
		}
		if err != nil {
			return n, err
		}
		if err := reg.Register(name, t); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
