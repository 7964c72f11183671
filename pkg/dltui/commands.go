package dltui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/txn2/devlog/pkg/dlevent"
	"github.com/txn2/devlog/pkg/dlfwd"
	"github.com/txn2/devlog/pkg/dlstream"
)

// requestTimeout bounds a single API call made from the UI
const requestTimeout = 10 * time.Second

// ListenPayloads creates a command that waits for the next stream payload
func ListenPayloads(ch <-chan dlevent.Payload) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return PayloadMsg{Payload: p}
	}
}

// ListenStreamState creates a command that waits for a connection state change
func ListenStreamState(ch <-chan dlstream.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return StreamStateMsg{State: s}
	}
}

// ListenDebug creates a command that waits for a debug flag change
func ListenDebug(ch <-chan bool) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return nil
		}
		return DebugChangedMsg{Debug: v}
	}
}

// ListenNotifications creates a command that waits for a notification
func ListenNotifications(ch <-chan dlfwd.Notification) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return NotificationMsg{Notification: n}
	}
}

// ListenLogs creates a command that listens for log entries
func ListenLogs(logCh <-chan LogEntryMsg) tea.Cmd {
	return func() tea.Msg {
		entry, ok := <-logCh
		if !ok {
			return nil
		}
		return entry
	}
}

// ListenShutdown creates a command that listens for shutdown signal
func ListenShutdown(stopCh <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-stopCh
		return ShutdownMsg{}
	}
}

// GateTick schedules the next visibility poll
func GateTick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return GateTickMsg{}
	})
}

// ExpireToast schedules removal of toast id
func ExpireToast(id int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return ToastExpiredMsg{ID: id}
	})
}

// LoadChannels creates a command that fetches the channel list
func LoadChannels(source ChannelSource) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		channels, err := source.ListChannels(ctx)
		return ChannelsLoadedMsg{Channels: channels, Err: err}
	}
}

// CompleteToggle creates a command that sends a pending toggle to the server
func CompleteToggle(p *dlfwd.Pending) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		forwarding, err := p.Complete(ctx)
		return ToggleResultMsg{ChannelID: p.ChannelID(), Forwarding: forwarding, Err: err}
	}
}
