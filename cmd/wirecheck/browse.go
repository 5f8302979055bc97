package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/fidlwire/errors"
	"github.com/wippyai/fidlwire/wire"
)

type browseModel struct {
	trace    *wire.Trace
	path     string
	typeName string
	viewport viewport.Model
	selected int
	ready    bool
}

func newBrowseModel(path, typeName string, trace *wire.Trace) *browseModel {
	m := &browseModel{path: path, typeName: typeName, trace: trace}
	// Start on the failing event, if any.
	for i, e := range trace.Events {
		if e.Err != nil {
			m.selected = i
			break
		}
	}
	return m
}

func (m *browseModel) Init() tea.Cmd {
	return nil
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.trace.Events)-1 {
				m.selected++
			}
		case "home", "g":
			m.selected = 0
		case "end", "G":
			m.selected = max(0, len(m.trace.Events)-1)
		}

	case tea.WindowSizeMsg:
		height := max(1, msg.Height-4)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
	}

	if m.ready {
		m.viewport.SetContent(m.renderEvents())
		if m.selected < m.viewport.YOffset {
			m.viewport.SetYOffset(m.selected)
		} else if m.selected >= m.viewport.YOffset+m.viewport.Height {
			m.viewport.SetYOffset(m.selected - m.viewport.Height + 1)
		}
	}
	return m, nil
}

func (m *browseModel) renderEvents() string {
	var b strings.Builder
	for i, e := range m.trace.Events {
		line := strings.Repeat("  ", e.Nesting) + e.String()
		switch {
		case i == m.selected:
			line = markStyle.Render("> " + line)
		case e.Err != nil:
			line = errorStyle.Render("  " + line)
		default:
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m *browseModel) View() string {
	if !m.ready {
		return "Loading trace..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("wirecheck"))
	fmt.Fprintf(&b, " %s %s\n\n", m.path, typeStyle.Render(m.typeName))
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	status := errors.StatusOf(m.trace.Err)
	if m.trace.Err != nil {
		b.WriteString(errorStyle.Render(status.String() + ": " + errors.Detail(m.trace.Err)))
	} else {
		b.WriteString(okStyle.Render(status.String()))
	}
	b.WriteString("  ")
	b.WriteString(helpStyle.Render(fmt.Sprintf("%d/%d • ↑/↓ move • g/G ends • q quit", m.selected+1, len(m.trace.Events))))
	return b.String()
}

func browse(path, typeName string, trace *wire.Trace) error {
	p := tea.NewProgram(newBrowseModel(path, typeName, trace), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
