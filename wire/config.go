package wire

import (
	"github.com/wippyai/fidlwire/coding"
	"github.com/wippyai/fidlwire/handle"
)

// UnknownHandlePolicy decides what decode does with handles found in
// envelopes whose payload type is unknown.
type UnknownHandlePolicy uint8

const (
	// UnknownHandlesClose moves unknown handles to a holding area and closes
	// them once the message decoded successfully.
	UnknownHandlesClose UnknownHandlePolicy = iota
	// UnknownHandlesSkip leaves unknown handles of resource types in the
	// handle table for a later consumer, and rejects unknown handles in
	// non-resource types.
	UnknownHandlesSkip
)

func (p UnknownHandlePolicy) String() string {
	switch p {
	case UnknownHandlesClose:
		return "close"
	case UnknownHandlesSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// Config holds decoder configuration.
type Config struct {
	// Table closes and replaces handles. Nil disables closing and rights
	// reduction.
	Table handle.Table

	// MaxDepth limits out-of-line nesting (default 32).
	MaxDepth uint32

	// MaxUnknownHandles bounds the unknown-handle holding area (default 64).
	MaxUnknownHandles uint32

	// UnknownHandles selects the unknown-handle policy.
	UnknownHandles UnknownHandlePolicy
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxDepth:          coding.MaxDepth,
		MaxUnknownHandles: coding.MaxMsgHandles,
		UnknownHandles:    UnknownHandlesClose,
	}
}

// Decoder runs decode and validate passes with a fixed configuration.
// It is immutable and safe for concurrent use.
type Decoder struct {
	table             handle.Table
	maxDepth          uint32
	maxUnknownHandles uint32
	policy            UnknownHandlePolicy
}

// NewDecoder creates a decoder with default configuration.
func NewDecoder() *Decoder {
	return NewDecoderWithConfig(nil)
}

// NewDecoderWithConfig creates a decoder with custom configuration.
// Zero limits fall back to the defaults.
func NewDecoderWithConfig(cfg *Config) *Decoder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	d := &Decoder{
		table:             cfg.Table,
		maxDepth:          cfg.MaxDepth,
		maxUnknownHandles: cfg.MaxUnknownHandles,
		policy:            cfg.UnknownHandles,
	}
	if d.maxDepth == 0 {
		d.maxDepth = coding.MaxDepth
	}
	if d.maxUnknownHandles == 0 {
		d.maxUnknownHandles = coding.MaxMsgHandles
	}
	return d
}

// Table returns the handle table the decoder closes handles through.
func (d *Decoder) Table() handle.Table {
	return d.table
}

var defaultDecoder = NewDecoder()
