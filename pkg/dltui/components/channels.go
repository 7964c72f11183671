package components

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/txn2/devlog/pkg/dlapi/types"
	"github.com/txn2/devlog/pkg/dlfwd"
	"github.com/txn2/devlog/pkg/dltui/styles"
)

// Column keys
const (
	colKeyID         = "_id" // Hidden id column for row identification
	colKeyName       = "name"
	colKeyGuild      = "guild"
	colKeyCategory   = "category"
	colKeyActive     = "active"
	colKeyForwarding = "forwarding"
)

// ChannelsModel displays the channel table with its forwarding column
type ChannelsModel struct {
	table    table.Model
	channels []types.ChannelResponse
	states   map[string]*dlfwd.State
	pending  map[string]bool
	width    int
	height   int
	focused  bool
}

// NewChannelsModel creates a new channels model
func NewChannelsModel() ChannelsModel {
	columns := []table.Column{
		table.NewFlexColumn(colKeyName, "Channel", 3),
		table.NewColumn(colKeyGuild, "Guild", 16),
		table.NewColumn(colKeyCategory, "Category", 16),
		table.NewColumn(colKeyActive, "Active", 8),
		table.NewColumn(colKeyForwarding, "Forwarding", 12),
	}

	m := ChannelsModel{
		states:  make(map[string]*dlfwd.State),
		pending: make(map[string]bool),
		focused: true,
	}

	m.table = table.New(columns).
		WithBaseStyle(lipgloss.NewStyle().Padding(0, 1)).
		BorderRounded().
		HeaderStyle(styles.TableHeaderStyle).
		HighlightStyle(styles.TableSelectedStyle).
		Focused(true).
		WithPageSize(20).
		WithFooterVisibility(false).
		WithKeyMap(tableKeyMap())

	return m
}

// tableKeyMap drops the table's own paging on space so space can toggle
func tableKeyMap() table.KeyMap {
	km := table.DefaultKeyMap()
	km.RowSelectToggle = key.NewBinding(key.WithDisabled())
	km.PageDown = key.NewBinding(key.WithKeys("right", "l", "pgdown"))
	return km
}

// Init initializes the channels model
func (m *ChannelsModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the channels table
func (m *ChannelsModel) Update(msg tea.Msg) (ChannelsModel, tea.Cmd) {
	var cmd tea.Cmd
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = wsm.Width
		m.table = m.table.WithTargetWidth(m.width - 2)
	}
	m.table, cmd = m.table.Update(msg)
	return *m, cmd
}

// SetChannels replaces the channel list. The displayed forwarding value of
// a channel with a toggle in flight is left alone.
func (m *ChannelsModel) SetChannels(channels []types.ChannelResponse) {
	m.channels = channels

	states := make(map[string]*dlfwd.State, len(channels))
	for _, ch := range channels {
		state, ok := m.states[ch.ID]
		switch {
		case !ok:
			state = dlfwd.NewState(ch.ID, ch.IsForwarding)
		case !m.pending[ch.ID]:
			state.Set(ch.IsForwarding)
		}
		states[ch.ID] = state
	}
	m.states = states
	m.Refresh()
}

// Refresh rebuilds the table rows from the channel list
func (m *ChannelsModel) Refresh() {
	rows := make([]table.Row, 0, len(m.channels))
	for _, ch := range m.channels {
		active := "no"
		if ch.IsActive {
			active = "yes"
		}

		rowData := table.RowData{
			colKeyID:         ch.ID,
			colKeyName:       ch.Name,
			colKeyGuild:      ch.GuildName,
			colKeyCategory:   ch.CategoryName,
			colKeyActive:     active,
			colKeyForwarding: m.forwardingCell(ch.ID),
		}
		rows = append(rows, table.NewRow(rowData))
	}

	m.table = m.table.WithRows(rows)
	if m.width > 0 {
		m.table = m.table.WithTargetWidth(m.width - 2)
	}
}

func (m *ChannelsModel) forwardingCell(id string) table.StyledCell {
	state := m.states[id]
	if state == nil {
		return table.NewStyledCell("-", styles.ForwardingOffStyle)
	}

	text, style := "off", styles.ForwardingOffStyle
	if state.Forwarding() {
		text, style = "on", styles.ForwardingOnStyle
	}
	if m.pending[id] {
		text += " …"
		style = styles.ForwardingPendingStyle
	}
	return table.NewStyledCell(text, style)
}

// View renders the channels table
func (m *ChannelsModel) View() string {
	if len(m.channels) == 0 {
		return styles.HeaderHintStyle.Render("  No channels. Press r to reload.")
	}
	return m.table.View()
}

// Selected returns the forwarding state of the highlighted channel
func (m *ChannelsModel) Selected() *dlfwd.State {
	row := m.table.HighlightedRow()
	if row.Data == nil {
		return nil
	}
	if id, ok := row.Data[colKeyID].(string); ok {
		return m.states[id]
	}
	return nil
}

// State returns the forwarding state of a channel
func (m *ChannelsModel) State(id string) *dlfwd.State {
	return m.states[id]
}

// SetPending marks a channel's toggle as in flight
func (m *ChannelsModel) SetPending(id string, pending bool) {
	if pending {
		m.pending[id] = true
	} else {
		delete(m.pending, id)
	}
}

// IsPending reports whether a toggle is in flight for id
func (m *ChannelsModel) IsPending(id string) bool {
	return m.pending[id]
}

// Counts returns the number of channels and how many forward
func (m *ChannelsModel) Counts() (total, forwarding int) {
	for _, ch := range m.channels {
		if state := m.states[ch.ID]; state != nil && state.Forwarding() {
			forwarding++
		}
	}
	return len(m.channels), forwarding
}

// SetFocus sets the focus state
func (m *ChannelsModel) SetFocus(focused bool) {
	m.focused = focused
	m.table = m.table.Focused(focused)
}

// SetSize updates the table dimensions
func (m *ChannelsModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table = m.table.WithTargetWidth(width - 2)

	// Borders and header take 4 lines
	pageSize := height - 4
	if pageSize < 1 {
		pageSize = 1
	}
	m.table = m.table.WithPageSize(pageSize)
}
