package dlapi

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/txn2/devlog/pkg/dlapi/types"
	"github.com/txn2/devlog/pkg/dlevent"
	"github.com/txn2/devlog/pkg/dlhub"
	"github.com/txn2/devlog/pkg/dlmetrics"
)

// DefaultQueueSize bounds events waiting to be broadcast from the log hook.
const DefaultQueueSize = 512

// RootLogger names records that carry no "logger" field.
const RootLogger = "root"

// Broadcaster stamps log events, records them in the history and sends
// them to every stream subscriber.
type Broadcaster struct {
	hub     *dlhub.Hub
	history *History
	metrics *dlmetrics.Metrics
	queue   chan dlevent.LogEvent
	now     func() time.Time
}

// NewBroadcaster creates a broadcaster. metrics may be nil.
func NewBroadcaster(hub *dlhub.Hub, history *History, metrics *dlmetrics.Metrics) *Broadcaster {
	return &Broadcaster{
		hub:     hub,
		history: history,
		metrics: metrics,
		queue:   make(chan dlevent.LogEvent, DefaultQueueSize),
		now:     time.Now,
	}
}

// Publish broadcasts e now. Events without a timestamp are stamped.
func (b *Broadcaster) Publish(e dlevent.LogEvent) {
	if e.Timestamp == nil {
		e = e.Stamp(b.now())
	}
	if b.history != nil {
		b.history.Add(e)
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return
	}
	b.hub.Broadcast(payload)
	b.metrics.FrameBroadcast(e.Type)
}

// Enqueue hands e to Run without blocking. It reports false when the
// queue is full and the event was dropped.
func (b *Broadcaster) Enqueue(e dlevent.LogEvent) bool {
	select {
	case b.queue <- e:
		return true
	default:
		return false
	}
}

// Run publishes queued events until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-b.queue:
			b.Publish(e)
		}
	}
}

// Verify Broadcaster implements Publisher
var _ types.Publisher = (*Broadcaster)(nil)

// BroadcastHook is a logrus hook that streams every server log record
// to subscribers. Records are queued, never broadcast inline, so logging
// from inside the hub cannot deadlock.
type BroadcastHook struct {
	broadcaster *Broadcaster
	levels      []log.Level
}

// NewBroadcastHook creates a new BroadcastHook
func NewBroadcastHook(b *Broadcaster, levels []log.Level) *BroadcastHook {
	if levels == nil {
		levels = log.AllLevels
	}
	return &BroadcastHook{
		broadcaster: b,
		levels:      levels,
	}
}

// Levels returns the log levels this hook handles
func (h *BroadcastHook) Levels() []log.Level {
	return h.levels
}

// Fire is called when a log entry is made
func (h *BroadcastHook) Fire(entry *log.Entry) error {
	h.broadcaster.Enqueue(EventFromEntry(entry))
	return nil
}

// EventFromEntry converts a logrus entry into a stream event.
func EventFromEntry(entry *log.Entry) dlevent.LogEvent {
	logger := RootLogger
	if name, ok := entry.Data["logger"].(string); ok && name != "" {
		logger = name
	}

	e := dlevent.LogEvent{
		Type:    dlevent.TypeLog,
		Level:   strings.ToUpper(entry.Level.String()),
		Logger:  logger,
		Message: entry.Message,
	}
	return e.Stamp(entry.Time)
}
