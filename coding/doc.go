// Package coding defines coding tables: the type descriptors that tell the
// wire engine how a message is laid out.
//
// Coding tables are produced ahead of time (by hand, by an interface
// compiler, or by the witschema package) and treated as trusted. The engine
// reads them but never checks them for consistency; a struct whose Size
// disagrees with its elements will be walked as described.
//
// Every table implements Type. The concrete kinds mirror the wire format:
//
//	Primitive      bool, integers, floats
//	Enum, Bits     integers with strict-member or mask constraints
//	Struct         fixed-size inline object with fields and padding elements
//	StructPointer  8-byte presence marker to an out-of-line Struct
//	Array          fixed count of inline elements
//	String         16-byte header, UTF-8 payload out of line
//	Vector         16-byte header, element payload out of line
//	Handle         4-byte placeholder resolved from the handle table
//	Table          16-byte vector of envelopes indexed by ordinal
//	XUnion         8-byte ordinal plus one envelope
//
// Inline layout constants and the primary object helpers live in layout.go.
package coding
