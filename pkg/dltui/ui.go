// Package dltui is the terminal panel: a bubbletea program that follows a
// devlog server's stream, shows its channels and toggles their forwarding.
package dltui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/devlog/pkg/dlapi/types"
	"github.com/txn2/devlog/pkg/dlbuffer"
	"github.com/txn2/devlog/pkg/dlevent"
	"github.com/txn2/devlog/pkg/dlfwd"
	"github.com/txn2/devlog/pkg/dlgate"
	"github.com/txn2/devlog/pkg/dlstream"
	"github.com/txn2/devlog/pkg/dltui/components"
	"github.com/txn2/devlog/pkg/dltui/styles"
)

// Focus tracks which component has focus
type Focus int

const (
	FocusChannels Focus = iota
	FocusDevlog
)

// ChannelSource is the server API the panel needs
type ChannelSource interface {
	ListChannels(ctx context.Context) ([]types.ChannelResponse, error)
	dlfwd.Requester
}

// Options configures a Manager. ServerURL and Channels are required.
type Options struct {
	Version      string
	ServerURL    string
	Channels     ChannelSource
	RetryDelay   time.Duration
	PollInterval time.Duration
	MaxEntries   int
	Debug        bool

	// Dialer replaces the websocket dialer, mainly for tests.
	Dialer dlstream.Dialer
}

// Manager manages the TUI lifecycle
type Manager struct {
	program  *tea.Program
	model    *RootModel
	stream   *dlstream.Client
	flag     *dlgate.Flag
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once

	payloadCh chan dlevent.Payload
	stateCh   chan dlstream.State
	logCh     chan LogEntryMsg
}

// RootModel is the main bubbletea model
type RootModel struct {
	// Components
	header    components.HeaderModel
	channels  components.ChannelsModel
	devlog    *components.DevlogModel
	statusBar components.StatusBarModel
	help      components.HelpModel

	// State
	source   ChannelSource
	toggler  *dlfwd.Toggler
	flag     *dlgate.Flag
	gate     *dlgate.Gate
	focus    Focus
	quitting bool

	// Dimensions
	width          int
	height         int
	channelsHeight int
	devlogHeight   int

	// Channels for async updates
	payloadCh <-chan dlevent.Payload
	stateCh   <-chan dlstream.State
	debugCh   <-chan bool
	notifyCh  <-chan dlfwd.Notification
	logCh     <-chan LogEntryMsg
	stopCh    <-chan struct{}

	// unsubscribeDebug releases the flag subscription behind debugCh
	unsubscribeDebug func()
}

// New creates a Manager. The stream endpoint is derived from ServerURL.
func New(opts Options) (*Manager, error) {
	if opts.Channels == nil {
		return nil, errors.New("tui requires a channel source")
	}
	endpoint, err := dlstream.Endpoint(opts.ServerURL)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		flag:      dlgate.NewFlag(opts.Debug),
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
		payloadCh: make(chan dlevent.Payload, 256),
		stateCh:   make(chan dlstream.State, 8),
		logCh:     make(chan LogEntryMsg, 100),
	}

	m.stream = dlstream.New(dlstream.Config{
		Endpoint: endpoint,
		Sink:     dlstream.SinkFunc(m.deliver),
		Policy:   dlstream.RetryPolicy{Delay: opts.RetryDelay},
		Dialer:   opts.Dialer,
		OnState:  m.reportState,
	})

	m.model = newRootModel(opts, endpoint, m.flag, m.payloadCh, m.stateCh, m.logCh, m.stopChan)
	return m, nil
}

// deliver hands a payload to the update loop. The buffer is only ever
// written there.
func (m *Manager) deliver(p dlevent.Payload) {
	select {
	case m.payloadCh <- p:
	case <-m.stopChan:
	}
}

func (m *Manager) reportState(s dlstream.State) {
	select {
	case m.stateCh <- s:
	case <-m.stopChan:
	}
}

// newRootModel wires the components. It is separate from New so tests
// can drive the model without a stream.
func newRootModel(opts Options, endpoint string, flag *dlgate.Flag,
	payloadCh <-chan dlevent.Payload, stateCh <-chan dlstream.State,
	logCh <-chan LogEntryMsg, stopCh <-chan struct{}) *RootModel {

	notifyCh := make(chan dlfwd.Notification, 16)
	debugCh, unsubscribe := flag.Subscribe()

	buffer := dlbuffer.New(dlbuffer.WithMaxEntries(opts.MaxEntries))

	model := &RootModel{
		header:    components.NewHeaderModel(opts.Version, endpoint),
		channels:  components.NewChannelsModel(),
		devlog:    components.NewDevlogModel(buffer),
		statusBar: components.NewStatusBarModel(),
		help:      components.NewHelpModel(),
		source:    opts.Channels,
		flag:      flag,
		focus:     FocusChannels,
		payloadCh: payloadCh,
		stateCh:   stateCh,
		debugCh:   debugCh,
		notifyCh:  notifyCh,
		logCh:     logCh,
		stopCh:    stopCh,
	}

	model.toggler = dlfwd.New(opts.Channels, dlfwd.NotifierFunc(func(n dlfwd.Notification) {
		select {
		case notifyCh <- n:
		default:
			// a newer toast will replace it anyway
		}
	}))
	model.unsubscribeDebug = unsubscribe
	model.gate = dlgate.New(flag, dlgate.TargetFunc(model.setDevlogVisible), opts.PollInterval)
	model.header.SetDebug(flag.Get())
	model.syncStatus()

	return model
}

// Run starts the stream and the program and blocks until the program
// quits or ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	// Ensure TERM is set
	if os.Getenv("TERM") == "" {
		_ = os.Setenv("TERM", "xterm-256color")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := m.stream.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Debugf("Stream stopped: %v", err)
		}
	}()

	// Suppress terminal output and capture logs
	logger := log.StandardLogger()
	originalOut := logger.Out
	hooks := make(log.LevelHooks)
	hooks.Add(&tuiLogHook{logCh: m.logCh})
	originalHooks := logger.ReplaceHooks(hooks)
	logger.SetOutput(io.Discard)

	m.program = tea.NewProgram(
		m.model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	// Run the program - blocks until quit
	_, err := m.program.Run()

	// Restore log output
	logger.SetOutput(originalOut)
	logger.ReplaceHooks(originalHooks)
	m.model.close()

	m.Stop()
	close(m.doneChan)

	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Stop stops the TUI application
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
}

// Done returns a channel that closes when TUI is stopped
func (m *Manager) Done() <-chan struct{} {
	return m.doneChan
}

// Flag returns the debug-mode flag that drives the developer-log panel
func (m *Manager) Flag() *dlgate.Flag {
	return m.flag
}

// RootModel methods

// Init initializes the model
func (m *RootModel) Init() tea.Cmd {
	return tea.Batch(
		ListenPayloads(m.payloadCh),
		ListenStreamState(m.stateCh),
		ListenDebug(m.debugCh),
		ListenNotifications(m.notifyCh),
		ListenLogs(m.logCh),
		ListenShutdown(m.stopCh),
		func() tea.Msg { return GateTickMsg{} },
		LoadChannels(m.source),
	)
}

// Update handles messages
func (m *RootModel) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	// Panic recovery to prevent TUI crash from leaving terminal in broken state
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("TUI Update panic recovered: %v", r)
			model = m
			cmd = nil
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleWindowSizeMsg(msg)
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case PayloadMsg:
		m.devlog.Append(msg.Payload)
		return m, ListenPayloads(m.payloadCh)
	case StreamStateMsg:
		m.header.SetState(msg.State)
		return m, ListenStreamState(m.stateCh)
	case DebugChangedMsg:
		m.applyDebug()
		return m, ListenDebug(m.debugCh)
	case GateTickMsg:
		m.applyDebug()
		return m, GateTick(m.gate.Interval())
	case NotificationMsg:
		id := m.statusBar.ShowToast(msg.Notification)
		return m, tea.Batch(
			ListenNotifications(m.notifyCh),
			ExpireToast(id, msg.Notification.Duration),
		)
	case ToastExpiredMsg:
		m.statusBar.ClearToast(msg.ID)
	case ChannelsLoadedMsg:
		m.handleChannelsLoaded(msg)
	case ToggleResultMsg:
		m.channels.SetPending(msg.ChannelID, false)
		m.channels.Refresh()
		m.syncStatus()
	case LogEntryMsg:
		m.statusBar.SetLocalLog(formatLocalLog(msg))
		return m, ListenLogs(m.logCh)
	case ShutdownMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// close drops the model's subscription to the debug flag
func (m *RootModel) close() {
	if m.unsubscribeDebug != nil {
		m.unsubscribeDebug()
		m.unsubscribeDebug = nil
	}
}

// applyDebug polls the gate on the update loop and mirrors the flag into
// the header
func (m *RootModel) applyDebug() {
	m.gate.Tick()
	m.header.SetDebug(m.flag.Get())
	m.syncStatus()
}

// setDevlogVisible is the gate target
func (m *RootModel) setDevlogVisible(visible bool) {
	m.devlog.SetVisible(visible)
	if !visible && m.focus == FocusDevlog {
		m.focus = FocusChannels
		m.channels.SetFocus(true)
		m.devlog.SetFocus(false)
	}
	m.updateSizes()
}

func (m *RootModel) handleChannelsLoaded(msg ChannelsLoadedMsg) {
	if msg.Err != nil {
		log.Warnf("Failed to load channels: %v", msg.Err)
		return
	}
	m.channels.SetChannels(msg.Channels)
	m.syncStatus()
	log.Debugf("Loaded %d channels", len(msg.Channels))
}

func (m *RootModel) syncStatus() {
	total, forwarding := m.channels.Counts()
	m.statusBar.SetCounts(total, forwarding)
	buffer := m.devlog.Buffer()
	m.statusBar.SetFlags(m.flag.Get(), buffer.AutoScroll(), buffer.Collapsed())
}

func formatLocalLog(e LogEntryMsg) string {
	message := strings.TrimRight(e.Message, "\n\r")
	return fmt.Sprintf("[%s] %s", strings.ToUpper(e.Level.String()), dlevent.LastLine(message))
}

// View renders the UI
func (m *RootModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Overlay help if visible
	if m.help.IsVisible() {
		return m.help.View()
	}

	header := m.header.View()

	channelsFocusAccent := " "
	if m.focus == FocusChannels {
		channelsFocusAccent = styles.FocusAccentStyle.Render("▌")
	}
	channelsTitle := channelsFocusAccent + styles.SectionTitleStyle.Render("Channels")
	channelsContent := lipgloss.NewStyle().
		Height(m.channelsHeight).
		Render(m.channels.View())

	sections := []string{header, "", channelsTitle, channelsContent}

	if m.devlog.Visible() {
		devlogFocusAccent := " "
		if m.focus == FocusDevlog {
			devlogFocusAccent = styles.FocusAccentStyle.Render("▌")
		}
		devlogContent := lipgloss.NewStyle().
			Height(m.devlogHeight).
			Render(m.devlog.View())
		sections = append(sections, devlogFocusAccent+devlogContent)
	}

	sections = append(sections, m.statusBar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// updateSizes recalculates component sizes
func (m *RootModel) updateSizes() {
	if m.width == 0 || m.height == 0 {
		return
	}

	headerHeight := 1
	statusHeight := 1

	// Fixed lines: channels title (1) + blank line after header (1)
	fixedLines := 2

	contentWidth := m.width
	if contentWidth < 20 {
		contentWidth = 20
	}

	availableHeight := m.height - headerHeight - statusHeight - fixedLines
	if availableHeight < 8 {
		availableHeight = 8
	}

	devlogHeight := 0
	if m.devlog.Visible() {
		devlogHeight = availableHeight * 2 / 5
		if m.devlog.Buffer().Collapsed() {
			devlogHeight = 1
		}
		if devlogHeight < 1 {
			devlogHeight = 1
		}
	}
	channelsHeight := availableHeight - devlogHeight
	if channelsHeight < 5 {
		channelsHeight = 5
	}

	m.channelsHeight = channelsHeight
	m.devlogHeight = devlogHeight

	m.header.SetWidth(m.width)
	m.channels.SetSize(contentWidth, channelsHeight)
	if devlogHeight > 0 {
		m.devlog.SetSize(contentWidth-1, devlogHeight)
	}
	m.statusBar.SetWidth(m.width)
}

// cycleFocus switches focus between components. The developer log only
// takes focus while it is shown.
func (m *RootModel) cycleFocus() {
	switch m.focus {
	case FocusChannels:
		if !m.devlog.Visible() {
			return
		}
		m.focus = FocusDevlog
		m.channels.SetFocus(false)
		m.devlog.SetFocus(true)
	case FocusDevlog:
		m.focus = FocusChannels
		m.channels.SetFocus(true)
		m.devlog.SetFocus(false)
	}
}

func (m *RootModel) handleWindowSizeMsg(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.updateSizes()
	m.header, _ = m.header.Update(msg)
	m.statusBar, _ = m.statusBar.Update(msg)
	m.help, _ = m.help.Update(msg)
}

// handleKeyMsg handles keyboard input
func (m *RootModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Help modal captures all input when visible
	if m.help.IsVisible() {
		m.help, _ = m.help.Update(msg)
		return m, nil
	}

	if result, cmd, handled := m.handleGlobalKeys(msg); handled {
		return result, cmd
	}

	return m.handleFocusedComponentKey(msg)
}

// handleGlobalKeys handles global keyboard shortcuts
func (m *RootModel) handleGlobalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit, true
	case "?":
		m.help.Toggle()
		return m, nil, true
	case "tab":
		m.cycleFocus()
		return m, nil, true
	case "d":
		m.flag.Toggle()
		m.applyDebug()
		return m, nil, true
	case " ", "enter":
		return m, m.toggleSelected(), true
	case "a":
		on := m.devlog.ToggleAutoScroll()
		m.syncStatus()
		log.Debugf("Auto-scroll %v", on)
		return m, nil, true
	case "x":
		m.devlog.Clear()
		return m, nil, true
	case "z":
		m.devlog.ToggleCollapsed()
		m.updateSizes()
		m.syncStatus()
		return m, nil, true
	case "r":
		return m, LoadChannels(m.source), true
	}
	return nil, nil, false
}

// toggleSelected starts an optimistic forwarding toggle of the
// highlighted channel. A channel with a toggle in flight is skipped.
func (m *RootModel) toggleSelected() tea.Cmd {
	state := m.channels.Selected()
	if state == nil || m.channels.IsPending(state.ChannelID()) {
		return nil
	}

	pending := m.toggler.Begin(state)
	m.channels.SetPending(pending.ChannelID(), true)
	m.channels.Refresh()
	m.syncStatus()
	return CompleteToggle(pending)
}

// handleFocusedComponentKey routes key to the focused component
func (m *RootModel) handleFocusedComponentKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case FocusChannels:
		m.channels, cmd = m.channels.Update(msg)
	case FocusDevlog:
		cmd = m.devlog.Update(msg)
	}
	return m, cmd
}

// tuiLogHook feeds local log lines to the status bar without blocking
type tuiLogHook struct {
	logCh chan<- LogEntryMsg
}

func (h *tuiLogHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *tuiLogHook) Fire(entry *log.Entry) error {
	select {
	case h.logCh <- LogEntryMsg{
		Level:   entry.Level,
		Message: entry.Message,
		Time:    entry.Time,
	}:
	default:
		// Buffer full, the status bar only shows the newest line anyway
	}
	return nil
}
