package components

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/txn2/devlog/pkg/dlfwd"
	"github.com/txn2/devlog/pkg/dltui/styles"
)

// StatusBarModel displays counts, panel flags, the current toast and the
// newest local log line
type StatusBarModel struct {
	width int

	channels   int
	forwarding int
	autoScroll bool
	collapsed  bool
	debug      bool

	toast   *dlfwd.Notification
	toastID int

	localLog string
}

// NewStatusBarModel creates a new status bar model
func NewStatusBarModel() StatusBarModel {
	return StatusBarModel{autoScroll: true}
}

// Init initializes the status bar model
func (m *StatusBarModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the status bar
func (m *StatusBarModel) Update(msg tea.Msg) (StatusBarModel, tea.Cmd) {
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = wsm.Width
	}
	return *m, nil
}

// SetCounts updates the channel counts
func (m *StatusBarModel) SetCounts(channels, forwarding int) {
	m.channels = channels
	m.forwarding = forwarding
}

// SetFlags updates the panel flag indicators
func (m *StatusBarModel) SetFlags(debug, autoScroll, collapsed bool) {
	m.debug = debug
	m.autoScroll = autoScroll
	m.collapsed = collapsed
}

// ShowToast displays n and returns its id. A newer toast replaces an
// older one.
func (m *StatusBarModel) ShowToast(n dlfwd.Notification) int {
	m.toastID++
	m.toast = &n
	return m.toastID
}

// ClearToast removes the toast with the given id. An expired id of a
// replaced toast is ignored.
func (m *StatusBarModel) ClearToast(id int) {
	if id == m.toastID {
		m.toast = nil
	}
}

// Toast returns the displayed notification, or nil
func (m *StatusBarModel) Toast() *dlfwd.Notification {
	return m.toast
}

// SetLocalLog records the newest line logged by this process
func (m *StatusBarModel) SetLocalLog(line string) {
	m.localLog = line
}

func flag(name string, on bool) string {
	if on {
		return styles.StatusBarFlagOnStyle.Render(name + ":on")
	}
	return styles.StatusBarFlagOffStyle.Render(name + ":off")
}

// View renders the status bar
func (m *StatusBarModel) View() string {
	counts := fmt.Sprintf("Channels: %d | Forwarding: %d", m.channels, m.forwarding)

	flags := flag("debug", m.debug) + " " + flag("scroll", m.autoScroll) + " " + flag("collapsed", m.collapsed)

	left := fmt.Sprintf(" %s | %s", counts, flags)

	var middle string
	switch {
	case m.toast != nil && m.toast.Kind == dlfwd.KindError:
		middle = styles.ToastErrorStyle.Render(m.toast.Title + ": " + m.toast.Message)
	case m.toast != nil:
		middle = styles.ToastSuccessStyle.Render(m.toast.Title + ": " + m.toast.Message)
	case m.localLog != "":
		middle = styles.LocalLogStyle.Render(m.localLog)
	}
	if middle != "" {
		left += " | " + middle
	}

	help := styles.StatusBarHelpStyle.Render("Press ? for help")

	// Calculate padding to right-align help
	padding := m.width - lipgloss.Width(left) - lipgloss.Width(help) - 2
	if padding < 1 {
		padding = 1
	}

	spacer := lipgloss.NewStyle().Width(padding).Render("")

	return styles.StatusBarStyle.Render(left + spacer + help + " ")
}

// SetWidth updates the status bar width
func (m *StatusBarModel) SetWidth(width int) {
	m.width = width
}
