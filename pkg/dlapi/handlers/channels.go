package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/devlog/pkg/dlapi/types"
	"github.com/txn2/devlog/pkg/dlmetrics"
)

// ErrChannelNotFound must be returned (possibly wrapped) by a
// ChannelStore for an unknown id
var ErrChannelNotFound = errors.New("channel not found")

// ForwardingObserver counts forwarding updates by outcome
type ForwardingObserver interface {
	ForwardingUpdate(outcome string)
}

// ChannelsHandler handles channel endpoints
type ChannelsHandler struct {
	store    types.ChannelStore
	observer ForwardingObserver
}

// NewChannelsHandler creates a new channels handler. observer may be nil.
func NewChannelsHandler(store types.ChannelStore, observer ForwardingObserver) *ChannelsHandler {
	return &ChannelsHandler{
		store:    store,
		observer: observer,
	}
}

func mapChannel(ch types.Channel) types.ChannelResponse {
	return types.ChannelResponse{
		ID:           ch.ID,
		Name:         ch.Name,
		GuildName:    ch.GuildName,
		CategoryName: ch.CategoryName,
		IsActive:     ch.Active,
		IsForwarding: ch.Forwarding,
		UpdatedAt:    ch.UpdatedAt,
	}
}

func channelNotFound(c *gin.Context, id string) {
	c.JSON(http.StatusNotFound, types.Response{
		Success: false,
		Error: &types.ErrorInfo{
			Code:    types.CodeNotFound,
			Message: "Channel not found: " + id,
		},
	})
}

func (h *ChannelsHandler) observe(outcome string) {
	if h.observer != nil {
		h.observer.ForwardingUpdate(outcome)
	}
}

// List returns all channels
func (h *ChannelsHandler) List(c *gin.Context) {
	if h.store == nil {
		notReady(c, "Channel store")
		return
	}

	channels := h.store.List()
	response := types.ChannelListResponse{
		Channels: make([]types.ChannelResponse, len(channels)),
	}
	for i, ch := range channels {
		response.Channels[i] = mapChannel(ch)
	}

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data:    response,
		Meta: &types.MetaInfo{
			Count:     len(channels),
			Timestamp: time.Now(),
		},
	})
}

// Get returns a single channel by platform id
func (h *ChannelsHandler) Get(c *gin.Context) {
	if h.store == nil {
		notReady(c, "Channel store")
		return
	}

	id := c.Param("id")
	ch, ok := h.store.Get(id)
	if !ok {
		channelNotFound(c, id)
		return
	}

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data:    mapChannel(ch),
		Meta: &types.MetaInfo{
			Timestamp: time.Now(),
		},
	})
}

// SetForwarding updates the forwarding flag of a channel
func (h *ChannelsHandler) SetForwarding(c *gin.Context) {
	if h.store == nil {
		notReady(c, "Channel store")
		return
	}

	id := c.Param("id")

	var req types.ForwardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.observe(dlmetrics.OutcomeInvalid)
		badRequest(c, "Body must be {\"is_forwarding\": bool}")
		return
	}

	ch, err := h.store.SetForwarding(id, *req.IsForwarding)
	if err != nil {
		if errors.Is(err, ErrChannelNotFound) {
			h.observe(dlmetrics.OutcomeNotFound)
			channelNotFound(c, id)
			return
		}
		_ = c.Error(err)
		return
	}
	h.observe(dlmetrics.OutcomeSuccess)

	state := "disabled"
	if ch.Forwarding {
		state = "enabled"
	}
	log.WithField("logger", "channels").Infof("Forwarding %s for channel %s (%s)", state, ch.Name, ch.ID)

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data:    mapChannel(ch),
		Meta: &types.MetaInfo{
			Timestamp: time.Now(),
		},
	})
}

// Activate turns on listening for a channel
func (h *ChannelsHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate turns off listening for a channel
func (h *ChannelsHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *ChannelsHandler) setActive(c *gin.Context, active bool) {
	if h.store == nil {
		notReady(c, "Channel store")
		return
	}

	id := c.Param("id")
	ch, err := h.store.SetActive(id, active)
	if err != nil {
		if errors.Is(err, ErrChannelNotFound) {
			channelNotFound(c, id)
			return
		}
		_ = c.Error(err)
		return
	}

	verb := "deactivated"
	if active {
		verb = "activated"
	}
	log.WithField("logger", "channels").Infof("Channel %s %s", ch.Name, verb)

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data:    mapChannel(ch),
		Meta: &types.MetaInfo{
			Timestamp: time.Now(),
		},
	})
}
