package components

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/txn2/devlog/pkg/dlbuffer"
	"github.com/txn2/devlog/pkg/dlevent"
	"github.com/txn2/devlog/pkg/dltui/styles"
)

// DevlogModel is the developer-log panel. It renders the entries of a
// dlbuffer.Buffer into a scrollable viewport.
type DevlogModel struct {
	viewport viewport.Model
	buffer   *dlbuffer.Buffer
	width    int
	height   int
	focused  bool
	ready    bool
	visible  bool
	follow   bool
}

// NewDevlogModel creates the panel for buffer. The panel starts hidden.
func NewDevlogModel(buffer *dlbuffer.Buffer) *DevlogModel {
	m := &DevlogModel{buffer: buffer}
	buffer.SetScroller(m.requestScroll)
	return m
}

// requestScroll is the buffer's scroll action. The jump happens on the
// next Refresh so it sees the new content.
func (m *DevlogModel) requestScroll() {
	m.follow = true
}

// Init initializes the panel
func (m *DevlogModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel viewport
func (m *DevlogModel) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd

	if km, ok := msg.(tea.KeyMsg); ok && m.focused && m.ready {
		switch km.String() {
		case "j", "down":
			m.viewport.LineDown(1)
		case "k", "up":
			m.viewport.LineUp(1)
		case "g", "home":
			m.viewport.GotoTop()
		case "G", "end":
			m.viewport.GotoBottom()
		case "pgdown":
			m.viewport.HalfViewDown()
		case "pgup":
			m.viewport.HalfViewUp()
		}
		return nil
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return cmd
}

// Append adds a payload to the buffer and redraws
func (m *DevlogModel) Append(p dlevent.Payload) {
	m.buffer.Append(p)
	m.Refresh()
}

// Refresh rebuilds the viewport content from the buffer
func (m *DevlogModel) Refresh() {
	// a scroll request made before the first SetSize waits for it
	if !m.ready {
		return
	}

	entries := m.buffer.Entries()
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, m.formatEntry(entry))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))

	if m.follow {
		m.viewport.GotoBottom()
		m.follow = false
	}
}

// formatEntry renders one entry as "time [logger] message" colored by its
// severity class
func (m *DevlogModel) formatEntry(entry dlevent.DisplayEntry) string {
	style := styles.SeverityStyle(entry.Class())

	prefix := entry.Time
	if tag := entry.LoggerTag(); tag != "" {
		prefix += " " + tag
	}
	prefixWidth := utf8.RuneCountInString(prefix) + 1

	availableWidth := m.width - prefixWidth - 1
	if availableWidth < 20 {
		availableWidth = 20
	}

	message := entry.Message
	if utf8.RuneCountInString(message) > availableWidth {
		message = wrapText(message, availableWidth, prefixWidth)
	}

	rendered := styles.LogTimestampStyle.Render(entry.Time)
	if tag := entry.LoggerTag(); tag != "" {
		rendered += " " + styles.LogLoggerStyle.Render(tag)
	}
	return fmt.Sprintf("%s %s", rendered, style.Render(message))
}

// wrapText wraps text to width runes, indenting continuation lines
func wrapText(text string, width, indent int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	indentStr := strings.Repeat(" ", indent)
	remaining := []rune(text)
	firstLine := true

	for len(remaining) > 0 {
		if !firstLine {
			result.WriteString("\n")
			result.WriteString(indentStr)
		}

		if len(remaining) <= width {
			result.WriteString(string(remaining))
			break
		}

		// Prefer breaking at the last space within width
		breakPoint := width
		for i := width; i > width/2; i-- {
			if remaining[i] == ' ' {
				breakPoint = i
				break
			}
		}

		result.WriteString(string(remaining[:breakPoint]))
		remaining = []rune(strings.TrimLeft(string(remaining[breakPoint:]), " "))
		firstLine = false
	}

	return result.String()
}

// View renders the panel. A hidden panel renders nothing and a collapsed
// one only its title.
func (m *DevlogModel) View() string {
	if !m.visible {
		return ""
	}

	title := m.title()
	if m.buffer.Collapsed() || !m.ready {
		return title
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, m.viewport.View())
}

func (m *DevlogModel) title() string {
	style := styles.SectionTitleStyle
	if m.focused {
		style = styles.FocusAccentStyle.Bold(true)
	}

	marker := "▼"
	if m.buffer.Collapsed() {
		marker = "▶"
	}

	flags := ""
	if !m.buffer.AutoScroll() {
		flags = styles.HeaderHintStyle.Render(" (auto-scroll off)")
	}
	return style.Render(fmt.Sprintf("%s Developer Log (%d)", marker, m.buffer.Len())) + flags
}

// SetVisible shows or hides the panel
func (m *DevlogModel) SetVisible(visible bool) {
	m.visible = visible
	if visible {
		m.followIfAutoScroll()
		m.Refresh()
	}
}

// Visible reports whether the panel is shown
func (m *DevlogModel) Visible() bool {
	return m.visible
}

// ToggleAutoScroll flips auto-scroll and returns the new value
func (m *DevlogModel) ToggleAutoScroll() bool {
	on := !m.buffer.AutoScroll()
	m.buffer.SetAutoScroll(on)
	m.Refresh()
	return on
}

// ToggleCollapsed flips the collapsed state and returns the new value
func (m *DevlogModel) ToggleCollapsed() bool {
	collapsed := !m.buffer.Collapsed()
	m.buffer.SetCollapsed(collapsed)
	m.Refresh()
	return collapsed
}

// Clear empties the buffer
func (m *DevlogModel) Clear() {
	m.buffer.Clear()
	m.Refresh()
}

// Buffer returns the backing buffer
func (m *DevlogModel) Buffer() *dlbuffer.Buffer {
	return m.buffer
}

// AtBottom reports whether the viewport shows the newest entry
func (m *DevlogModel) AtBottom() bool {
	return !m.ready || m.viewport.AtBottom()
}

// SetFocus sets the focus state
func (m *DevlogModel) SetFocus(focused bool) {
	m.focused = focused
}

// SetSize updates the viewport dimensions. One line goes to the title.
func (m *DevlogModel) SetSize(width, height int) {
	m.width = width
	m.height = height - 1
	if m.height < 1 {
		m.height = 1
	}

	if !m.ready {
		m.viewport = viewport.New(m.width, m.height)
		m.viewport.Style = lipgloss.NewStyle()
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = m.height
	}
	m.followIfAutoScroll()
	m.Refresh()
}

// followIfAutoScroll pins the viewport to the newest entry when the
// buffer would scroll there on append
func (m *DevlogModel) followIfAutoScroll() {
	if m.buffer.AutoScroll() && !m.buffer.Collapsed() {
		m.follow = true
	}
}
