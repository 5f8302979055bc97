// Package handle models the kernel handle table that messages carry
// resources through.
//
// A message arrives as bytes plus an out-of-band table of handles. The
// decoder consumes that table in traversal order, checks each entry's object
// type and rights against the coding table, and closes everything it was
// given when the message is rejected.
//
// # Handle Values
//
//	Handle  - opaque uint32, 0 (Invalid) is never a live handle
//	Info    - a handle annotated with its object type and rights
//	ObjType - kernel object type (channel, vmo, socket, ...)
//	Rights  - bitmask of operations the holder may perform
//
// # Tables
//
// The decoder needs two operations from the kernel, expressed by Table:
//
//	CloseMany(handles) - release handles (best effort on error paths)
//	Replace(h, rights) - trade h for a handle with reduced rights
//
// LocalTable is an in-process implementation with object types, rights,
// lifecycle observers and stale-handle detection:
//
//	table := handle.NewLocalTable()
//	h := table.Create(handle.ObjTypeChannel, handle.RightsChannel, conn)
//	info, ok := table.Info(h)
//
// FDTable (unix only) treats file descriptors as handles, deriving the
// object type from fstat.
//
// # Rights Checks
//
// Ensure implements the rule messages are decoded under: a subtype mismatch
// is fatal, missing rights are fatal, excess rights are reduced.
package handle
