// Package dlchannels is the server's channel registry. Channels are
// seeded from configuration; changes to their flags are kept in a YAML
// state file so they survive a restart.
package dlchannels

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// DefaultSaveDelay is how long flag changes are batched before the state
// file is written.
const DefaultSaveDelay = 500 * time.Millisecond

// ErrNotFound is returned for an unknown channel id.
var ErrNotFound = errors.New("channel not found")

// Channel is one channel record.
type Channel struct {
	ID         string    `yaml:"id"`
	Name       string    `yaml:"name"`
	Guild      string    `yaml:"guild,omitempty"`
	Category   string    `yaml:"category,omitempty"`
	Active     bool      `yaml:"active"`
	Forwarding bool      `yaml:"forwarding"`
	UpdatedAt  time.Time `yaml:"-"`
}

// channelState is the persisted part of a channel
type channelState struct {
	Active     bool      `yaml:"active"`
	Forwarding bool      `yaml:"forwarding"`
	UpdatedAt  time.Time `yaml:"updated_at"`
}

type stateFile struct {
	Channels map[string]channelState `yaml:"channels"`
}

// Option configures a Store.
type Option func(*Store)

// WithStatePath sets the YAML state file. Without it nothing is persisted.
func WithStatePath(path string) Option {
	return func(s *Store) {
		s.path = path
	}
}

// WithSaveDelay overrides DefaultSaveDelay.
func WithSaveDelay(d time.Duration) Option {
	return func(s *Store) {
		s.saveDelay = d
	}
}

// WithOnChange registers a callback run after every flag change.
func WithOnChange(fn func(Channel)) Option {
	return func(s *Store) {
		s.onChange = fn
	}
}

// Store holds channels keyed by their platform id.
type Store struct {
	mu       sync.RWMutex
	channels map[string]*Channel
	order    []string
	dirty    bool

	path      string
	saveDelay time.Duration
	debounced func(f func())
	saveMu    sync.Mutex
	onChange  func(Channel)
	now       func() time.Time
}

// New creates a store seeded with channels and overlays any flags found
// in the state file. Duplicate or empty ids are rejected.
func New(seed []Channel, opts ...Option) (*Store, error) {
	s := &Store{
		channels:  make(map[string]*Channel, len(seed)),
		saveDelay: DefaultSaveDelay,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.debounced = debounce.New(s.saveDelay)

	for _, ch := range seed {
		if ch.ID == "" {
			return nil, errors.Errorf("channel %q has no id", ch.Name)
		}
		if _, exists := s.channels[ch.ID]; exists {
			return nil, errors.Errorf("duplicate channel id %s", ch.ID)
		}
		c := ch
		if c.Name == "" {
			c.Name = c.ID
		}
		s.channels[c.ID] = &c
		s.order = append(s.order, c.ID)
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "read channel state %s", s.path)
	}

	var sf stateFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return errors.Wrapf(err, "parse channel state %s", s.path)
	}

	for id, st := range sf.Channels {
		ch, ok := s.channels[id]
		if !ok {
			log.Debugf("Ignoring state for unknown channel %s", id)
			continue
		}
		ch.Active = st.Active
		ch.Forwarding = st.Forwarding
		ch.UpdatedAt = st.UpdatedAt
	}
	log.Debugf("Loaded channel state for %d channels from %s", len(sf.Channels), s.path)
	return nil
}

// List returns all channels in seed order.
func (s *Store) List() []Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Channel, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, *s.channels[id])
	}
	return result
}

// Get returns the channel with the given id.
func (s *Store) Get(id string) (Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.channels[id]
	if !ok {
		return Channel{}, false
	}
	return *ch, true
}

// Count returns the number of channels.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// SetForwarding sets the forwarding flag of a channel.
func (s *Store) SetForwarding(id string, forwarding bool) (Channel, error) {
	return s.update(id, func(ch *Channel) { ch.Forwarding = forwarding })
}

// SetActive sets the active flag of a channel.
func (s *Store) SetActive(id string, active bool) (Channel, error) {
	return s.update(id, func(ch *Channel) { ch.Active = active })
}

func (s *Store) update(id string, fn func(*Channel)) (Channel, error) {
	s.mu.Lock()
	ch, ok := s.channels[id]
	if !ok {
		s.mu.Unlock()
		return Channel{}, errors.Wrap(ErrNotFound, id)
	}
	fn(ch)
	ch.UpdatedAt = s.now()
	s.dirty = true
	result := *ch
	s.mu.Unlock()

	if s.path != "" {
		s.debounced(func() {
			if err := s.Save(); err != nil {
				log.Errorf("Channel state save failed: %v", err)
			}
		})
	}
	if s.onChange != nil {
		s.onChange(result)
	}
	return result, nil
}

// Save writes the state file now.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	sf := stateFile{Channels: make(map[string]channelState, len(s.channels))}
	for id, ch := range s.channels {
		sf.Channels[id] = channelState{
			Active:     ch.Active,
			Forwarding: ch.Forwarding,
			UpdatedAt:  ch.UpdatedAt,
		}
	}
	s.dirty = false
	s.mu.Unlock()

	data, err := yaml.Marshal(sf)
	if err != nil {
		return errors.Wrap(err, "encode channel state")
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create state directory %s", dir)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrapf(err, "write channel state %s", tmp)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrapf(err, "replace channel state %s", s.path)
	}
	log.Debugf("Saved channel state to %s", s.path)
	return nil
}

// Close flushes pending changes.
func (s *Store) Close() error {
	s.mu.RLock()
	dirty := s.dirty
	s.mu.RUnlock()

	if !dirty {
		return nil
	}
	return s.Save()
}

// Forwarding returns the ids of channels with forwarding on, sorted.
func (s *Store) Forwarding() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, ch := range s.channels {
		if ch.Forwarding {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
