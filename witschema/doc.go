// Package witschema builds coding tables from WIT type definitions.
//
// WIT types map onto the wire format as follows:
//
//	bool, u8..u64, s8..s64, f32, f64   primitives
//	char                               strict uint32 holding a Unicode scalar
//	string                             string
//	list<T>                            vector of T
//	record, tuple                      struct with natural alignment
//	enum                               strict enum, discriminant sized by case count
//	flags                              strict bits
//	variant                            strict xunion, ordinals from case order
//	result<T, E>                       strict xunion {1: ok, 2: err}
//	option<string>, option<list<T>>    nullable string or vector
//	option<record>                     struct pointer
//	option<T>                          nullable xunion {1: T}
//	own<R>, borrow<R>                  handle
//
// Missing payload types (a variant case or result arm without a type) are
// encoded as the one-byte empty struct.
//
// The Compiler caches the table built for each *wit.TypeDef so repeated
// lookups share one table.
package witschema
