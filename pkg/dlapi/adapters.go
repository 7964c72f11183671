package dlapi

import (
	"github.com/pkg/errors"
	"github.com/txn2/devlog/pkg/dlapi/handlers"
	"github.com/txn2/devlog/pkg/dlapi/types"
	"github.com/txn2/devlog/pkg/dlchannels"
)

// ChannelStoreAdapter adapts *dlchannels.Store to types.ChannelStore
type ChannelStoreAdapter struct {
	store *dlchannels.Store
}

// NewChannelStoreAdapter creates a new ChannelStoreAdapter
func NewChannelStoreAdapter(store *dlchannels.Store) *ChannelStoreAdapter {
	return &ChannelStoreAdapter{store: store}
}

func mapChannel(ch dlchannels.Channel) types.Channel {
	return types.Channel{
		ID:           ch.ID,
		Name:         ch.Name,
		GuildName:    ch.Guild,
		CategoryName: ch.Category,
		Active:       ch.Active,
		Forwarding:   ch.Forwarding,
		UpdatedAt:    ch.UpdatedAt,
	}
}

// mapError translates store errors into the errors handlers expect
func mapError(id string, err error) error {
	if errors.Cause(err) == dlchannels.ErrNotFound {
		return errors.Wrap(handlers.ErrChannelNotFound, id)
	}
	return err
}

// List returns all channels
func (a *ChannelStoreAdapter) List() []types.Channel {
	channels := a.store.List()
	result := make([]types.Channel, len(channels))
	for i, ch := range channels {
		result[i] = mapChannel(ch)
	}
	return result
}

// Get returns a channel by id
func (a *ChannelStoreAdapter) Get(id string) (types.Channel, bool) {
	ch, ok := a.store.Get(id)
	if !ok {
		return types.Channel{}, false
	}
	return mapChannel(ch), true
}

// SetForwarding sets the forwarding flag of a channel
func (a *ChannelStoreAdapter) SetForwarding(id string, forwarding bool) (types.Channel, error) {
	ch, err := a.store.SetForwarding(id, forwarding)
	if err != nil {
		return types.Channel{}, mapError(id, err)
	}
	return mapChannel(ch), nil
}

// SetActive sets the active flag of a channel
func (a *ChannelStoreAdapter) SetActive(id string, active bool) (types.Channel, error) {
	ch, err := a.store.SetActive(id, active)
	if err != nil {
		return types.Channel{}, mapError(id, err)
	}
	return mapChannel(ch), nil
}

// Verify ChannelStoreAdapter implements ChannelStore
var _ types.ChannelStore = (*ChannelStoreAdapter)(nil)
