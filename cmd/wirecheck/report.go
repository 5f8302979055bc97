package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unsafe"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/fidlwire/capture"
	"github.com/wippyai/fidlwire/errors"
	"github.com/wippyai/fidlwire/wire"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Width(10)

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	okStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))

	markStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// reported marks an error that was already shown to the user.
type reported struct {
	err error
}

func (r reported) Error() string { return r.err.Error() }
func (r reported) Unwrap() error { return r.err }

// report prints the outcome of a check and returns err marked as reported.
func report(w io.Writer, path string, m *capture.Message, typeName string, err error) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render("wirecheck"))
	b.WriteString(" ")
	b.WriteString(path)
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	if typeName != "" {
		row("type", typeStyle.Render(typeName))
	}
	if m != nil {
		row("size", fmt.Sprintf("%d bytes", len(m.Bytes)))
		row("handles", fmt.Sprintf("%d", len(m.Handles)))
		if d, derr := m.Digest(); derr == nil {
			row("digest", d.Short())
		}
	}

	status := errors.StatusOf(err)
	if err == nil {
		row("status", okStyle.Render(status.String()))
	} else {
		row("status", errorStyle.Render(status.String()))
		var e *errors.Error
		if stderrors.As(err, &e) {
			if len(e.Path) > 0 {
				row("at", strings.Join(e.Path, "."))
			}
			if e.Offset != errors.NoOffset {
				row("offset", fmt.Sprintf("%d", e.Offset))
			}
			row("error", e.Detail)
			if e.Cause != nil {
				row("cause", e.Cause.Error())
			}
			if m != nil && e.Offset != errors.NoOffset && int(e.Offset) < len(m.Bytes) {
				b.WriteString("\n")
				b.WriteString(hexRow(m.Bytes, e.Offset))
				b.WriteString("\n")
			}
		} else {
			row("error", err.Error())
		}
	}

	fmt.Fprint(w, b.String())
	if err != nil {
		return reported{err}
	}
	return nil
}

// hexRow renders the 16-byte row holding off with that byte marked.
func hexRow(data []byte, off uint32) string {
	start := off &^ 15
	end := min(uint32(len(data)), start+16)

	var b strings.Builder
	fmt.Fprintf(&b, "%08x ", start)
	for i := start; i < end; i++ {
		cell := fmt.Sprintf("%02x", data[i])
		if i == off {
			cell = markStyle.Render(cell)
		}
		b.WriteString(" ")
		b.WriteString(cell)
	}
	return b.String()
}

func printTrace(w io.Writer, t *wire.Trace) {
	for _, e := range t.Events {
		line := strings.Repeat("  ", e.Nesting) + e.String()
		if e.Err != nil {
			line = errorStyle.Render(line)
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// alignedCopy copies b into 8-byte aligned storage.
func alignedCopy(b []byte) []byte {
	words := make([]uint64, (len(b)+7)/8+1)
	out := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), len(b))
	copy(out, b)
	return out
}
