// Package dlfwd flips a channel's forwarding flag optimistically: the
// new value is shown immediately, sent to the server, and rolled back if
// the server does not confirm it.
package dlfwd

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// NotificationDuration is how long a toggle notification stays up.
const NotificationDuration = 2 * time.Second

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is the user-facing outcome of a toggle.
type Notification struct {
	Title    string
	Message  string
	Kind     Kind
	Duration time.Duration
}

// Notifier displays notifications.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// Requester persists a forwarding flag on the server. Any error,
// including a non-2xx response, means the write did not happen.
type Requester interface {
	SetForwarding(ctx context.Context, channelID string, forwarding bool) error
}

// State is the displayed forwarding flag of one channel.
type State struct {
	mu         sync.RWMutex
	channelID  string
	forwarding bool
}

// NewState creates the state for channelID.
func NewState(channelID string, forwarding bool) *State {
	return &State{channelID: channelID, forwarding: forwarding}
}

// ChannelID returns the platform channel id.
func (s *State) ChannelID() string {
	return s.channelID
}

// Forwarding returns the displayed value.
func (s *State) Forwarding() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.forwarding
}

// Set overwrites the displayed value, e.g. after a reload from the server.
func (s *State) Set(forwarding bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forwarding = forwarding
}

// Toggler runs forwarding toggles. There is no retry.
type Toggler struct {
	requester Requester
	notifier  Notifier
}

// New creates a Toggler. notifier may be nil.
func New(requester Requester, notifier Notifier) *Toggler {
	return &Toggler{requester: requester, notifier: notifier}
}

// Toggle flips state and waits for the server. It returns the value
// left displayed and the request error, if any.
func (t *Toggler) Toggle(ctx context.Context, state *State) (bool, error) {
	return t.Begin(state).Complete(ctx)
}

// Begin writes the flipped value to state and returns the pending
// request. The caller must call Complete.
func (t *Toggler) Begin(state *State) *Pending {
	state.mu.Lock()
	prior := state.forwarding
	state.forwarding = !prior
	state.mu.Unlock()

	return &Pending{
		toggler: t,
		state:   state,
		prior:   prior,
		target:  !prior,
	}
}

// Pending is a toggle whose optimistic value is displayed but not yet
// confirmed.
type Pending struct {
	toggler *Toggler
	state   *State
	prior   bool
	target  bool
}

// ChannelID returns the channel being toggled.
func (p *Pending) ChannelID() string {
	return p.state.channelID
}

// Target returns the optimistic value.
func (p *Pending) Target() bool {
	return p.target
}

// Complete sends the request. On success the optimistic value stays; on
// failure the prior value is restored. Either way one notification is
// sent.
func (p *Pending) Complete(ctx context.Context) (bool, error) {
	t := p.toggler
	err := t.requester.SetForwarding(ctx, p.state.channelID, p.target)
	if err != nil {
		p.state.Set(p.prior)
		log.Errorf("Error toggling channel forwarding for %s: %v", p.state.channelID, err)
		t.notify(ErrorNotification())
		return p.prior, errors.Wrapf(err, "set forwarding for channel %s", p.state.channelID)
	}

	log.Debugf("Channel %s forwarding set to %v", p.state.channelID, p.target)
	t.notify(SuccessNotification(p.target))
	return p.target, nil
}

func (t *Toggler) notify(n Notification) {
	if t.notifier != nil {
		t.notifier.Notify(n)
	}
}

// SuccessNotification describes a confirmed toggle.
func SuccessNotification(forwarding bool) Notification {
	msg := "Forwarding disabled"
	if forwarding {
		msg = "Forwarding enabled"
	}
	return Notification{
		Title:    "Success",
		Message:  msg,
		Kind:     KindSuccess,
		Duration: NotificationDuration,
	}
}

// ErrorNotification describes a failed toggle.
func ErrorNotification() Notification {
	return Notification{
		Title:    "Error",
		Message:  "Failed to update forwarding status",
		Kind:     KindError,
		Duration: NotificationDuration,
	}
}
