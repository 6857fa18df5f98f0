package viz

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	itemStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

// Picker lets the user choose one of a list of named options.
type Picker struct {
	title    string
	names    []string
	info     map[string]string
	cursor   int
	selected string
}

// NewPicker lists names in order; info holds optional one-line
// descriptions.
func NewPicker(title string, names []string, info map[string]string) Picker {
	return Picker{title: title, names: names, info: info}
}

// Selected is empty when the picker was left without a choice.
func (p Picker) Selected() string { return p.selected }

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "q", "esc", "ctrl+c":
		return p, tea.Quit
	}
	if len(p.names) == 0 {
		return p, nil
	}
	switch key.String() {
	case "up", "k":
		p.cursor = (p.cursor - 1 + len(p.names)) % len(p.names)
	case "down", "j":
		p.cursor = (p.cursor + 1) % len(p.names)
	case "enter", " ":
		p.selected = p.names[p.cursor]
		return p, tea.Quit
	}
	return p, nil
}

func (p Picker) View() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(p.title) + "\n")
	for i, name := range p.names {
		line := "  " + itemStyle.Render(name)
		if i == p.cursor {
			line = cursorStyle.Render("> " + name)
		}
		if d := p.info[name]; d != "" {
			line += "  " + infoStyle.Render(d)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(helpStyle.Render("↑↓:Move Enter:Select Q:Quit"))
	return b.String()
}
