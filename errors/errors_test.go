package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
		excludes []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseDecode,
				Kind:   KindPadding,
				Path:   []string{"request", "payload"},
				Offset: 20,
				Detail: "non-zero padding bytes detected",
			},
			contains: []string{"[decode]", "padding", "request.payload", "offset 20", "non-zero padding bytes detected"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase:  PhaseValidate,
				Kind:   KindOutOfBounds,
				Offset: NoOffset,
			},
			contains: []string{"[validate]", "out_of_bounds"},
			excludes: []string{"offset"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseCapture,
				Kind:   KindInvalidData,
				Offset: NoOffset,
				Detail: "read capture",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[capture]", "invalid_data", "read capture", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(msg, s) {
					t.Errorf("error message %q should not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(PhaseConfig, KindInvalidData, cause, "parse config")

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find cause")
	}
}

func TestError_Is(t *testing.T) {
	err := Constraint(PhaseDecode, KindHandle, 8, "message decoded too many handles")

	if !errors.Is(err, &Error{Phase: PhaseDecode, Kind: KindHandle}) {
		t.Error("expected match on phase and kind")
	}
	if errors.Is(err, &Error{Phase: PhaseValidate, Kind: KindHandle}) {
		t.Error("phase mismatch should not match")
	}
	if errors.Is(err, &Error{Phase: PhaseDecode, Kind: KindPadding}) {
		t.Error("kind mismatch should not match")
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseDecode, KindOverflow).
		Path("items", "3").
		Offset(64).
		Status(StatusMemoryError).
		Detail("count %d overflows", 7).
		Build()

	if err.Status != StatusMemoryError {
		t.Errorf("Status = %v, want memory_error", err.Status)
	}
	if err.Offset != 64 {
		t.Errorf("Offset = %d, want 64", err.Offset)
	}
	if err.Detail != "count 7 overflows" {
		t.Errorf("Detail = %q", err.Detail)
	}
	if strings.Join(err.Path, ".") != "items.3" {
		t.Errorf("Path = %v", err.Path)
	}
}

func TestBuilder_DetailVerbatim(t *testing.T) {
	inner := Constraint(PhaseHandle, KindRights, NoOffset, "rights 100% missing")
	err := New(PhaseDecode, KindRights).Detail("%s", Detail(inner)).Cause(inner).Build()
	if err.Detail != "rights 100% missing" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestBuilder_DefaultStatus(t *testing.T) {
	err := New(PhaseValidate, KindEnvelope).Build()
	if err.Status != StatusConstraintViolation {
		t.Errorf("default Status = %v, want constraint_violation", err.Status)
	}
	if err.Offset != NoOffset {
		t.Errorf("default Offset = %d, want NoOffset", err.Offset)
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Status
	}{
		{"nil", nil, StatusSuccess},
		{"memory", Memory(PhaseDecode, KindOutOfBounds, 0, "x"), StatusMemoryError},
		{"constraint", Constraint(PhaseDecode, KindPadding, 0, "x"), StatusConstraintViolation},
		{"wrapped", fmt.Errorf("outer: %w", Memory(PhaseDecode, KindOverflow, 0, "x")), StatusMemoryError},
		{"foreign", errors.New("plain"), StatusConstraintViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Errorf("StatusOf = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetail(t *testing.T) {
	if Detail(nil) != "" {
		t.Error("Detail(nil) should be empty")
	}
	err := Constraint(PhaseDecode, KindPadding, 4, "non-zero padding bytes detected")
	if got := Detail(fmt.Errorf("wrap: %w", err)); got != "non-zero padding bytes detected" {
		t.Errorf("Detail = %q", got)
	}
	if got := Detail(errors.New("plain")); got != "plain" {
		t.Errorf("Detail = %q", got)
	}
}

func TestStatus_String(t *testing.T) {
	if StatusSuccess.String() != "success" {
		t.Error("success")
	}
	if StatusMemoryError.String() != "memory_error" {
		t.Error("memory_error")
	}
	if StatusConstraintViolation.String() != "constraint_violation" {
		t.Error("constraint_violation")
	}
	if Status(9).String() != "status(9)" {
		t.Errorf("unknown = %q", Status(9).String())
	}
}
