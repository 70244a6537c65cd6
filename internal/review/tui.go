// Package review is the interactive confirmation step for manually pasted
// postings: it shows the AI-inferred fields next to the pasted text and
// lets the user confirm or discard the draft.
package review

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mvelez/jobdeck/internal/ingest"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(1, 0, 1, 2)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Width(14)

	valueStyle = lipgloss.NewStyle()

	missingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Italic(true)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)

	rawBodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

type confirmModel struct {
	draft     ingest.Draft
	viewport  viewport.Model
	width     int
	height    int
	ready     bool
	confirmed bool
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Fields block + title + hint take roughly 12 lines.
		vpHeight := max(m.height-12, 5)
		if !m.ready {
			m.viewport = viewport.New(m.width-4, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width - 4
			m.viewport.Height = vpHeight
		}
		m.viewport.SetContent(rawBodyStyle.Render(wordWrap(m.draft.Raw, max(m.width-8, 20))))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "y", "enter":
			m.confirmed = true
			return m, tea.Quit
		case "n", "q", "esc", "ctrl+c":
			m.confirmed = false
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m confirmModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	s := titleStyle.Render("Review Draft Posting")
	s += "\n"
	s += renderFields(m.draft)
	s += "\n"
	s += borderStyle.Width(m.width - 2).Render(m.viewport.View())
	s += "\n"
	s += hintStyle.Render("y/enter confirm  n/esc discard  ↑/↓ scroll")
	return s
}

func renderFields(d ingest.Draft) string {
	var b strings.Builder

	addField := func(label, value string) {
		b.WriteString("  ")
		b.WriteString(labelStyle.Render(label))
		if value == "" {
			b.WriteString(missingStyle.Render("(not inferred)"))
		} else {
			b.WriteString(valueStyle.Render(value))
		}
		b.WriteByte('\n')
	}

	addField("Title", d.Title)
	addField("Company", d.Company)
	addField("Location", d.Location)
	addField("URL", d.URL)
	if d.Description != "" {
		summary := d.Description
		if len(summary) > 120 {
			summary = summary[:120] + "…"
		}
		addField("Description", summary)
	}

	return b.String()
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

// RunConfirmTUI shows the draft-review screen and reports whether the user
// confirmed the draft. A discarded draft stays in the registry until its
// TTL expires; it is never persisted as a posting.
func RunConfirmTUI(d ingest.Draft) (bool, error) {
	m := confirmModel{draft: d}

	p := tea.NewProgram(m, tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("running review TUI: %w", err)
	}

	final := result.(confirmModel)
	return final.confirmed, nil
}
