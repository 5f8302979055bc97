// Package guestmem validates and decodes messages that live in the linear
// memory of a wazero guest.
//
// The message is checked where it lies: Memory takes a view of the guest
// bytes with api.Memory.Read and runs the wire walker over that view.
// Decode patches pointers inside guest memory, so the guest must not run
// while the decoded view is in use, and the view must not be used after the
// memory grows.
//
// Sandbox instantiates a module that only exports a memory. Tools use it to
// stage captured messages in guest memory.
package guestmem
