// Package wire decodes and validates messages against coding tables.
//
// A message is a byte buffer holding a primary object followed by
// out-of-line objects in depth-first traversal order, plus a table of
// handles consumed in the same order. The walker visits the message in
// schema order and hands every pointer, handle, padding run and envelope to
// a visitor. A single visitor implementation serves both passes:
//
//	Decode    rewrites presence markers to in-process addresses and handle
//	          placeholders to handle values, checking handle rights
//	Validate  performs the same checks without writing to the buffer
//
// Every out-of-line claim is bounds and overflow checked before the bytes
// are touched, so a hostile buffer produces an error, never an
// out-of-range access. The first error wins. On any error every supplied
// handle is closed through the configured handle.Table.
//
// Errors carry an errors.Status: StatusMemoryError for offset overflow or
// access past the end of the buffer, StatusConstraintViolation for
// everything else.
//
// After a successful Decode, PointerTarget, VectorAt, StringAt and HandleAt
// read the patched buffer without pointer arithmetic. Inspect runs a
// validation that records each walker step for debugging.
package wire
