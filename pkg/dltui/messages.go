package dltui

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/txn2/devlog/pkg/dlapi/types"
	"github.com/txn2/devlog/pkg/dlevent"
	"github.com/txn2/devlog/pkg/dlfwd"
	"github.com/txn2/devlog/pkg/dlstream"
)

// PayloadMsg carries one stream payload into the update loop
type PayloadMsg struct {
	Payload dlevent.Payload
}

// StreamStateMsg reports a stream connection state change
type StreamStateMsg struct {
	State dlstream.State
}

// DebugChangedMsg reports a change of the debug-mode flag
type DebugChangedMsg struct {
	Debug bool
}

// GateTickMsg triggers a visibility gate poll
type GateTickMsg struct{}

// NotificationMsg carries a toggle notification
type NotificationMsg struct {
	Notification dlfwd.Notification
}

// ToastExpiredMsg removes the toast with the given id
type ToastExpiredMsg struct {
	ID int
}

// ChannelsLoadedMsg carries the result of a channel reload
type ChannelsLoadedMsg struct {
	Channels []types.ChannelResponse
	Err      error
}

// ToggleResultMsg reports a completed forwarding toggle
type ToggleResultMsg struct {
	ChannelID  string
	Forwarding bool
	Err        error
}

// LogEntryMsg represents a local log message
type LogEntryMsg struct {
	Level   logrus.Level
	Message string
	Time    time.Time
}

// ShutdownMsg signals the TUI to shut down
type ShutdownMsg struct{}
