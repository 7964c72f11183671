package dltui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/devlog/pkg/dlapi/types"
	"github.com/txn2/devlog/pkg/dlevent"
	"github.com/txn2/devlog/pkg/dlfwd"
	"github.com/txn2/devlog/pkg/dlgate"
	"github.com/txn2/devlog/pkg/dlstream"
)

// fakeSource is an in-memory ChannelSource
type fakeSource struct {
	mu       sync.Mutex
	channels []types.ChannelResponse
	listErr  error
	setErr   error
	calls    []bool
}

func (f *fakeSource) ListChannels(_ context.Context) ([]types.ChannelResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]types.ChannelResponse(nil), f.channels...), nil
}

func (f *fakeSource) SetForwarding(_ context.Context, _ string, forwarding bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, forwarding)
	return f.setErr
}

func newFakeSource() *fakeSource {
	return &fakeSource{channels: []types.ChannelResponse{
		{ID: "1001", Name: "alerts", GuildName: "ops"},
		{ID: "1002", Name: "signals", GuildName: "ops", IsForwarding: true},
	}}
}

func newTestModel(t *testing.T, source *fakeSource, debug bool) *RootModel {
	t.Helper()
	m := newRootModel(Options{
		Version:      "test",
		Channels:     source,
		PollInterval: time.Second,
		MaxEntries:   10,
	}, "ws://localhost:8000/ws", dlgate.NewFlag(debug), nil, nil, nil, nil)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func loadChannels(t *testing.T, m *RootModel) {
	t.Helper()
	msg := LoadChannels(m.source)()
	m.Update(msg)
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func drainNotification(t *testing.T, m *RootModel) dlfwd.Notification {
	t.Helper()
	select {
	case n := <-m.notifyCh:
		return n
	case <-time.After(time.Second):
		t.Fatal("Expected a notification")
	}
	return dlfwd.Notification{}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Options{ServerURL: "http://localhost:8000"}); err == nil {
		t.Error("Expected error without a channel source")
	}

	m, err := New(Options{ServerURL: "https://devlog.example.com", Channels: newFakeSource()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if m.stream.Endpoint() != "wss://devlog.example.com/ws" {
		t.Errorf("Unexpected endpoint %s", m.stream.Endpoint())
	}
	if m.Flag().Get() {
		t.Error("Expected debug off")
	}
}

func TestManagerDeliverAfterStop(t *testing.T) {
	m, err := New(Options{ServerURL: "localhost:8000", Channels: newFakeSource()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	m.deliver(dlevent.Text("queued"))
	if len(m.payloadCh) != 1 {
		t.Fatalf("Expected one queued payload, got %d", len(m.payloadCh))
	}

	m.Stop()
	m.Stop()

	// fill the queue; delivery must not block once stopped
	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(m.payloadCh)+10; i++ {
			m.deliver(dlevent.Text("x"))
		}
		m.reportState(dlstream.StateConnected)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("deliver blocked after Stop")
	}
}

func TestDebugKeyTogglesDevlog(t *testing.T) {
	m := newTestModel(t, newFakeSource(), false)

	m.Update(GateTickMsg{})
	if m.devlog.Visible() {
		t.Fatal("Expected developer log hidden with debug off")
	}

	m.Update(key("d"))
	if !m.flag.Get() {
		t.Error("Expected debug flag on")
	}
	if !m.devlog.Visible() {
		t.Error("Expected developer log shown")
	}
	if !strings.Contains(m.View(), "Developer Log") {
		t.Error("Expected developer log in view")
	}

	// the flag subscription delivers the same change; it must be a no-op
	m.Update(DebugChangedMsg{Debug: true})
	if m.gate.Mutations() != 1 {
		t.Errorf("Expected 1 gate mutation, got %d", m.gate.Mutations())
	}

	m.Update(key("d"))
	if m.devlog.Visible() {
		t.Error("Expected developer log hidden again")
	}
}

func TestGateTickReschedules(t *testing.T) {
	m := newTestModel(t, newFakeSource(), true)

	_, cmd := m.Update(GateTickMsg{})
	if cmd == nil {
		t.Error("Expected next gate tick scheduled")
	}
	if !m.devlog.Visible() {
		t.Error("Expected developer log shown when debug starts on")
	}
}

func TestDebugRevealShowsNewestEntries(t *testing.T) {
	m := newRootModel(Options{
		Version:      "test",
		Channels:     newFakeSource(),
		PollInterval: time.Second,
		MaxEntries:   200,
	}, "ws://localhost:8000/ws", dlgate.NewFlag(false), nil, nil, nil, nil)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	for i := 0; i < 100; i++ {
		m.Update(PayloadMsg{Payload: dlevent.Text(fmt.Sprintf("line-%03d", i))})
	}
	if m.devlog.Visible() {
		t.Fatal("Expected developer log hidden with debug off")
	}

	m.Update(key("d"))

	if !m.devlog.Buffer().AutoScroll() {
		t.Fatal("Expected auto-scroll on")
	}
	if !m.devlog.AtBottom() {
		t.Error("Expected revealed log at the newest entry")
	}
	view := m.View()
	if !strings.Contains(view, "line-099") {
		t.Error("Expected newest entry in view")
	}
	if strings.Contains(view, "line-000") {
		t.Error("Oldest entry should be scrolled out of view")
	}
}

func TestCloseReleasesDebugSubscription(t *testing.T) {
	flag := dlgate.NewFlag(false)
	m := newRootModel(Options{
		Version:      "test",
		Channels:     newFakeSource(),
		PollInterval: time.Second,
		MaxEntries:   10,
	}, "ws://localhost:8000/ws", flag, nil, nil, nil, nil)

	m.close()
	m.close()
	flag.Set(true)

	select {
	case v := <-m.debugCh:
		t.Errorf("Closed model still received flag value %v", v)
	default:
	}
}

func TestPayloadAppendsToBuffer(t *testing.T) {
	m := newTestModel(t, newFakeSource(), true)
	m.Update(GateTickMsg{})

	m.Update(PayloadMsg{Payload: dlevent.Text("hello")})
	m.Update(PayloadMsg{Payload: dlevent.FromEvent(dlevent.LogEvent{Level: "error", Logger: "api", Message: "boom"})})

	entries := m.devlog.Buffer().Entries()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[1].Severity != "ERROR" || entries[1].Logger != "api" {
		t.Errorf("Unexpected entry %+v", entries[1])
	}
	if !strings.Contains(m.View(), "boom") {
		t.Error("Expected entry in view")
	}
}

func TestBufferKeys(t *testing.T) {
	m := newTestModel(t, newFakeSource(), true)
	m.Update(GateTickMsg{})
	m.Update(PayloadMsg{Payload: dlevent.Text("one")})

	buffer := m.devlog.Buffer()

	m.Update(key("a"))
	if buffer.AutoScroll() {
		t.Error("Expected auto-scroll off")
	}
	m.Update(key("a"))
	if !buffer.AutoScroll() {
		t.Error("Expected auto-scroll on")
	}

	m.Update(key("z"))
	if !buffer.Collapsed() {
		t.Error("Expected collapsed")
	}
	if buffer.Len() != 1 {
		t.Error("Collapse should keep entries")
	}
	m.Update(key("z"))

	m.Update(key("x"))
	if buffer.Len() != 0 {
		t.Errorf("Expected cleared buffer, got %d", buffer.Len())
	}
}

func TestToggleForwarding(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setErr   error
		wantFwd  bool
		wantKind dlfwd.Kind
	}{
		{"space success", " ", nil, true, dlfwd.KindSuccess},
		{"enter success", "enter", nil, true, dlfwd.KindSuccess},
		{"failure rolls back", " ", errors.New("server down"), false, dlfwd.KindError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := newFakeSource()
			source.setErr = tt.setErr
			m := newTestModel(t, source, false)
			loadChannels(t, m)

			state := m.channels.State("1001")
			_, cmd := m.Update(key(tt.key))
			if cmd == nil {
				t.Fatal("Expected toggle command")
			}
			if !state.Forwarding() {
				t.Error("Expected optimistic value before the server answers")
			}
			if !m.channels.IsPending("1001") {
				t.Error("Expected channel pending")
			}

			result, ok := cmd().(ToggleResultMsg)
			if !ok {
				t.Fatal("Expected ToggleResultMsg")
			}
			m.Update(result)

			if state.Forwarding() != tt.wantFwd {
				t.Errorf("Forwarding = %v, want %v", state.Forwarding(), tt.wantFwd)
			}
			if (result.Err != nil) != (tt.setErr != nil) {
				t.Errorf("Unexpected result error %v", result.Err)
			}
			if m.channels.IsPending("1001") {
				t.Error("Expected pending cleared")
			}
			if n := drainNotification(t, m); n.Kind != tt.wantKind {
				t.Errorf("Notification kind = %s, want %s", n.Kind, tt.wantKind)
			}
			if len(source.calls) != 1 || source.calls[0] != true {
				t.Errorf("Unexpected server calls %v", source.calls)
			}
		})
	}
}

func TestToggleSkippedWhilePending(t *testing.T) {
	m := newTestModel(t, newFakeSource(), false)
	loadChannels(t, m)

	_, first := m.Update(key(" "))
	_, second := m.Update(key(" "))
	if first == nil {
		t.Fatal("Expected first toggle to start")
	}
	if second != nil {
		t.Error("Second toggle should be ignored while the first is in flight")
	}
}

func TestToggleWithoutChannels(t *testing.T) {
	m := newTestModel(t, newFakeSource(), false)
	if _, cmd := m.Update(key(" ")); cmd != nil {
		t.Error("Expected no command without channels")
	}
}

func TestNotificationToast(t *testing.T) {
	m := newTestModel(t, newFakeSource(), false)

	_, cmd := m.Update(NotificationMsg{Notification: dlfwd.SuccessNotification(false)})
	if cmd == nil {
		t.Error("Expected expiry command")
	}
	if m.statusBar.Toast() == nil {
		t.Fatal("Expected toast shown")
	}
	if !strings.Contains(m.View(), "Forwarding disabled") {
		t.Error("Expected toast in view")
	}

	m.Update(ToastExpiredMsg{ID: 99})
	if m.statusBar.Toast() == nil {
		t.Error("Unknown id should not clear the toast")
	}
	m.Update(ToastExpiredMsg{ID: 1})
	if m.statusBar.Toast() != nil {
		t.Error("Expected toast cleared")
	}
}

func TestChannelsLoad(t *testing.T) {
	source := newFakeSource()
	m := newTestModel(t, source, false)
	loadChannels(t, m)

	if total, fwd := m.channels.Counts(); total != 2 || fwd != 1 {
		t.Errorf("Counts() = %d, %d", total, fwd)
	}
	if !strings.Contains(m.View(), "signals") {
		t.Error("Expected channel in view")
	}

	source.listErr = errors.New("unavailable")
	_, cmd := m.Update(key("r"))
	if cmd == nil {
		t.Fatal("Expected reload command")
	}
	m.Update(cmd())
	if total, _ := m.channels.Counts(); total != 2 {
		t.Error("Failed reload should keep the existing list")
	}
}

func TestStreamStateUpdatesHeader(t *testing.T) {
	m := newTestModel(t, newFakeSource(), false)
	m.Update(StreamStateMsg{State: dlstream.StateConnected})
	if m.header.State() != dlstream.StateConnected {
		t.Errorf("Expected connected, got %v", m.header.State())
	}
}

func TestCycleFocus(t *testing.T) {
	m := newTestModel(t, newFakeSource(), false)

	m.Update(key("tab"))
	if m.focus != FocusChannels {
		t.Error("Hidden developer log should not take focus")
	}

	m.Update(key("d"))
	m.Update(key("tab"))
	if m.focus != FocusDevlog {
		t.Error("Expected developer log focused")
	}

	// hiding the panel returns focus to the channels
	m.Update(key("d"))
	if m.focus != FocusChannels {
		t.Error("Expected focus back on channels")
	}
}

func TestHelpCapturesKeys(t *testing.T) {
	m := newTestModel(t, newFakeSource(), false)

	m.Update(key("?"))
	if !strings.Contains(m.View(), "Toggle forwarding") {
		t.Error("Expected help overlay")
	}

	// q closes help instead of quitting
	_, cmd := m.Update(key("q"))
	if cmd != nil || m.quitting {
		t.Error("q should only close help")
	}
	if m.help.IsVisible() {
		t.Error("Expected help closed")
	}
}

func TestQuit(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.Msg
	}{
		{"q", key("q")},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}},
		{"shutdown", ShutdownMsg{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t, newFakeSource(), false)
			_, cmd := m.Update(tt.msg)
			if cmd == nil {
				t.Fatal("Expected quit command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("Expected tea.QuitMsg")
			}
			if m.View() != "Shutting down...\n" {
				t.Errorf("Unexpected view %q", m.View())
			}
		})
	}
}

func TestLocalLogInStatusBar(t *testing.T) {
	m := newTestModel(t, newFakeSource(), false)
	m.Update(LogEntryMsg{Level: log.WarnLevel, Message: "first\nsecond\n", Time: time.Now()})

	if !strings.Contains(m.View(), "[WARNING] second") {
		t.Errorf("Expected local log in status bar:\n%s", m.View())
	}
}

func TestTuiLogHook(t *testing.T) {
	ch := make(chan LogEntryMsg, 1)
	hook := &tuiLogHook{logCh: ch}

	if len(hook.Levels()) != len(log.AllLevels) {
		t.Error("Expected all levels")
	}

	entry := log.NewEntry(log.New())
	entry.Level = log.InfoLevel
	entry.Message = "one"
	if err := hook.Fire(entry); err != nil {
		t.Fatal(err)
	}

	// a full channel drops instead of blocking
	entry.Message = "two"
	if err := hook.Fire(entry); err != nil {
		t.Fatal(err)
	}

	got := <-ch
	if got.Message != "one" {
		t.Errorf("Expected first message kept, got %q", got.Message)
	}
}
