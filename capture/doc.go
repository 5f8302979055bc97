// Package capture stores received messages on disk so they can be checked
// again later.
//
// A capture is a CBOR map (core deterministic encoding) holding the message
// bytes, the name of the coding table it should be checked against, and one
// record per handle with the object type and rights the kernel reported.
// Handle values are process-local, so loading a capture re-creates the
// handles in a handle.LocalTable.
//
// Files may be compressed with zstd or lz4 frames. Load detects the format
// from the leading magic number.
package capture
