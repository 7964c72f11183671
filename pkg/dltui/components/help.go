package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/txn2/devlog/pkg/dltui/styles"
)

// HelpModel displays keyboard shortcuts
type HelpModel struct {
	visible bool
	width   int
	height  int
}

// NewHelpModel creates a new help model
func NewHelpModel() HelpModel {
	return HelpModel{}
}

// Init initializes the help model
func (m *HelpModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help modal
func (m *HelpModel) Update(msg tea.Msg) (HelpModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		if m.visible {
			switch msg.String() {
			case "?", "q", "esc":
				m.visible = false
			}
		}
	}
	return *m, nil
}

// Toggle toggles the help visibility
func (m *HelpModel) Toggle() {
	m.visible = !m.visible
}

// IsVisible returns whether help is visible
func (m *HelpModel) IsVisible() bool {
	return m.visible
}

var helpItems = []struct {
	key  string
	desc string
}{
	{"Navigation", ""},
	{"j / ↓", "Move down / scroll"},
	{"k / ↑", "Move up / scroll"},
	{"g / G", "Go to first / last"},
	{"Tab", "Switch focus (channels/log)"},
	{"", ""},
	{"Channels", ""},
	{"Space / Enter", "Toggle forwarding"},
	{"r", "Reload channels"},
	{"", ""},
	{"Developer Log", ""},
	{"d", "Toggle debug mode (shows the log)"},
	{"a", "Toggle auto-scroll"},
	{"z", "Collapse / expand"},
	{"x", "Clear log"},
	{"", ""},
	{"?", "Toggle help"},
	{"q", "Quit"},
}

// View renders the help modal
func (m *HelpModel) View() string {
	if !m.visible {
		return ""
	}

	var lines []string
	for _, item := range helpItems {
		if item.key == "" && item.desc == "" {
			lines = append(lines, "")
			continue
		}
		if item.desc == "" {
			lines = append(lines, styles.HelpTitleStyle.Render(item.key))
			continue
		}
		lines = append(lines, styles.HelpKeyStyle.Render(item.key)+styles.HelpDescStyle.Render(item.desc))
	}

	modal := styles.HelpModalStyle.Render(strings.Join(lines, "\n"))

	// Center the modal
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}
