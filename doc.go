// Package fidlwire decodes and validates FIDL-style wire messages.
//
// A message is an untrusted byte buffer plus an out-of-band table of OS
// handles. Given a coding table describing the message shape, the engine
// either rewrites the buffer in place into a usable object graph, patching
// presence markers to addresses and handle placeholders to handle values
// ("decode"), or checks that it is well formed without writing ("validate").
//
// # Architecture Overview
//
//	fidlwire/            Root package with the message carriers
//	├── wire/            Decode/validate engine, walker and decoded-buffer views
//	├── coding/          Coding tables (type descriptors) and wire layout
//	├── handle/          Handles, rights, in-process and fd handle tables
//	├── witschema/       Coding tables built from WIT type definitions
//	├── capture/         CBOR capture files of received messages
//	├── config/          YAML configuration for limits and logging
//	├── guestmem/        Messages held in a wazero guest's linear memory
//	├── errors/          Structured error types
//	└── cmd/wirecheck/   Command line checker and trace browser
//
// # Quick Start
//
//	msg := &fidlwire.IncomingMessage{Bytes: buf, HandleInfos: infos}
//	if err := wire.DecodeMessage(typ, msg); err != nil {
//	    log.Printf("%s: %s", errors.StatusOf(err), errors.Detail(err))
//	    return
//	}
//	payload, _, _ := wire.VectorAt(msg.Bytes, 8, 1)
//
// On any error every supplied handle is closed through the configured
// handle.Table and the buffer contents are unspecified.
//
// # Thread Safety
//
// A wire.Decoder is immutable and safe for concurrent use. Each call owns its
// buffer and handles exclusively; two calls must never share a buffer.
package fidlwire
