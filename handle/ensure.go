package handle

import (
	"github.com/wippyai/fidlwire/errors"
)

// Ensure checks a received handle against the object type and rights a field
// requires. Excess rights are dropped through table.Replace and info is
// rewritten to the replacement so that the caller closes the live handle.
//
// requiredType ObjTypeNone accepts any object; requiredRights
// RightSameRights skips the rights check. A nil table leaves excess rights
// in place.
func Ensure(info *Info, requiredType ObjType, requiredRights Rights, table Table) (Handle, error) {
	if info.Handle == Invalid {
		return Invalid, nil
	}
	if requiredType != ObjTypeNone && requiredType != info.Type {
		return Invalid, errors.Constraint(errors.PhaseHandle, errors.KindRights, errors.NoOffset,
			"object type does not match expected type")
	}
	if requiredRights == RightSameRights {
		return info.Handle, nil
	}
	if !info.Rights.Has(requiredRights) {
		return Invalid, errors.Constraint(errors.PhaseHandle, errors.KindRights, errors.NoOffset,
			"required rights are not present on handle")
	}
	if info.Rights == requiredRights || table == nil {
		return info.Handle, nil
	}

	replaced, err := table.Replace(info.Handle, requiredRights)
	if err != nil {
		// Replace consumes the original even on failure.
		info.Handle = Invalid
		return Invalid, errors.New(errors.PhaseHandle, errors.KindRights).
			Detail("zx_handle_replace failed").
			Cause(err).
			Build()
	}
	info.Handle = replaced
	info.Rights = requiredRights
	return replaced, nil
}
