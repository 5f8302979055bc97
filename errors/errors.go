package errors

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDecode   Phase = "decode"   // in-place decode
	PhaseValidate Phase = "validate" // read-only validation
	PhaseSchema   Phase = "schema"   // coding table construction or lookup
	PhaseHandle   Phase = "handle"   // handle table operations
	PhaseCapture  Phase = "capture"  // capture file load/save
	PhaseConfig   Phase = "config"   // configuration loading
	PhaseGuest    Phase = "guest"    // guest linear memory access
)

// Kind categorizes the error
type Kind string

const (
	KindOutOfBounds  Kind = "out_of_bounds"
	KindOverflow     Kind = "overflow"
	KindAlignment    Kind = "alignment"
	KindPadding      Kind = "padding"
	KindInvalidUTF8  Kind = "invalid_utf8"
	KindAbsent       Kind = "absent"
	KindPresence     Kind = "presence"
	KindHandle       Kind = "handle"
	KindRights       Kind = "rights"
	KindEnvelope     Kind = "envelope"
	KindDepth        Kind = "depth"
	KindTrailing     Kind = "trailing"
	KindInvalidData  Kind = "invalid_data"
	KindInvalidEnum  Kind = "invalid_enum"
	KindUnsupported  Kind = "unsupported"
	KindNotFound     Kind = "not_found"
	KindInvalidInput Kind = "invalid_input"
)

// Status is the coarse outcome reported to callers of decode and validate.
type Status uint8

const (
	StatusSuccess Status = iota
	StatusMemoryError
	StatusConstraintViolation
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusMemoryError:
		return "memory_error"
	case StatusConstraintViolation:
		return "constraint_violation"
	default:
		return "status(" + strconv.Itoa(int(s)) + ")"
	}
}

// NoOffset marks errors that are not tied to a buffer position.
const NoOffset = ^uint32(0)

// Error is the structured error type used throughout the module
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
	Offset uint32
	Status Status
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Offset != NoOffset {
		b.WriteString(" (offset ")
		b.WriteString(strconv.FormatUint(uint64(e.Offset), 10))
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder. Status defaults to a constraint violation.
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:  phase,
			Kind:   kind,
			Offset: NoOffset,
			Status: StatusConstraintViolation,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Offset sets the buffer offset the error refers to
func (b *Builder) Offset(off uint32) *Builder {
	b.err.Offset = off
	return b
}

// Status overrides the reported status
func (b *Builder) Status(s Status) *Builder {
	b.err.Status = s
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Memory creates a bounds or overflow error reported as StatusMemoryError
func Memory(phase Phase, kind Kind, off uint32, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Offset: off,
		Detail: detail,
		Status: StatusMemoryError,
	}
}

// Constraint creates a semantic violation reported as StatusConstraintViolation
func Constraint(phase Phase, kind Kind, off uint32, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Offset: off,
		Detail: detail,
		Status: StatusConstraintViolation,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Offset: NoOffset,
		Detail: what,
		Status: StatusConstraintViolation,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Offset: NoOffset,
		Detail: fmt.Sprintf("%s %q not found", what, name),
		Status: StatusConstraintViolation,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Offset: NoOffset,
		Detail: detail,
		Status: StatusConstraintViolation,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Offset: NoOffset,
		Detail: detail,
		Cause:  cause,
		Status: StatusConstraintViolation,
	}
}

// StatusOf classifies err. nil is success; errors outside this package are
// reported as constraint violations.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return StatusConstraintViolation
}

// Detail returns the diagnostic message of err without phase or kind
// decoration, or "" for nil.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return err.Error()
}
