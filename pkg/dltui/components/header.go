package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/txn2/devlog/pkg/dlstream"
	"github.com/txn2/devlog/pkg/dltui/styles"
)

// HeaderModel displays the application header with title, version, endpoint
// and connection state
type HeaderModel struct {
	version  string
	endpoint string
	state    dlstream.State
	debug    bool
	width    int
}

// NewHeaderModel creates a new header model
func NewHeaderModel(version, endpoint string) HeaderModel {
	return HeaderModel{
		version:  version,
		endpoint: endpoint,
		state:    dlstream.StateDisconnected,
	}
}

// Init initializes the header model
func (m *HeaderModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the header
func (m *HeaderModel) Update(msg tea.Msg) (HeaderModel, tea.Cmd) {
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = wsm.Width
	}
	return *m, nil
}

// View renders the header
func (m *HeaderModel) View() string {
	title := styles.HeaderTitleStyle.Render("devlog")
	version := styles.HeaderVersionStyle.Render(" v" + m.version)
	endpoint := styles.HeaderEndpointStyle.Render(m.endpoint)

	leftPart := fmt.Sprintf(" %s%s | %s", title, version, endpoint)

	debug := "debug: off"
	if m.debug {
		debug = "debug: on"
	}
	rightPart := styles.HeaderHintStyle.Render("["+debug+"]") + " " + stateStyle(m.state).Render(m.state.String())

	// Calculate spacing to push state to right
	spacing := m.width - lipgloss.Width(leftPart) - lipgloss.Width(rightPart) - 1
	if spacing < 1 {
		spacing = 1
	}

	return leftPart + strings.Repeat(" ", spacing) + rightPart
}

func stateStyle(s dlstream.State) lipgloss.Style {
	switch s {
	case dlstream.StateConnected:
		return styles.StateConnectedStyle
	case dlstream.StateConnecting:
		return styles.StateConnectingStyle
	default:
		return styles.StateDisconnectedStyle
	}
}

// SetWidth updates the header width
func (m *HeaderModel) SetWidth(width int) {
	m.width = width
}

// SetState updates the displayed connection state
func (m *HeaderModel) SetState(s dlstream.State) {
	m.state = s
}

// State returns the displayed connection state
func (m *HeaderModel) State() dlstream.State {
	return m.state
}

// SetDebug updates the debug mode indicator
func (m *HeaderModel) SetDebug(debug bool) {
	m.debug = debug
}
