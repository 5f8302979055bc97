// Package errors provides structured error types for the fidlwire module.
//
// Errors are categorized by Phase (where the error occurred), Kind (error
// category) and Status (the coarse outcome callers branch on). Decode and
// validate report exactly two failure statuses:
//
//	StatusMemoryError         offset/size overflow, access beyond the buffer
//	StatusConstraintViolation padding, UTF-8, nullability, handles, envelopes
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindPadding).
//		Offset(20).
//		Detail("non-zero padding bytes detected").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Memory(errors.PhaseDecode, errors.KindOutOfBounds, off, msg)
//	err := errors.Constraint(errors.PhaseValidate, errors.KindHandle, off, msg)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
