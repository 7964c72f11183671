package dlapi

import (
	"sync"

	"github.com/txn2/devlog/pkg/dlapi/types"
	"github.com/txn2/devlog/pkg/dlevent"
)

// DefaultHistorySize is the number of recent events kept for /api/logs.
const DefaultHistorySize = 1000

// Maximum allocation limit for the history ring
const maxHistorySize = 10000

// boundedSize returns size bounded to limit for memory safety
func boundedSize(size, limit int) int {
	if size <= 0 {
		return 0
	}
	if size > limit {
		return limit
	}
	return size
}

// History is a ring buffer of recent log events.
// It implements types.LogHistory
type History struct {
	entries []dlevent.LogEvent
	size    int
	head    int
	count   int
	mu      sync.RWMutex
}

// NewHistory creates a history holding up to size events. A non-positive
// size uses DefaultHistorySize.
func NewHistory(size int) *History {
	size = boundedSize(size, maxHistorySize)
	if size == 0 {
		size = DefaultHistorySize
	}
	return &History{
		entries: make([]dlevent.LogEvent, size),
		size:    size,
	}
}

// Add records an event, evicting the oldest past capacity
func (h *History) Add(e dlevent.LogEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.head] = e
	h.head = (h.head + 1) % h.size
	if h.count < h.size {
		h.count++
	}
}

// GetLast returns the last n events, oldest first
func (h *History) GetLast(n int) []dlevent.LogEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n > h.count {
		n = h.count
	}
	allocSize := boundedSize(n, maxHistorySize)
	if allocSize == 0 {
		return nil
	}

	result := make([]dlevent.LogEvent, allocSize)
	start := (h.head - allocSize + h.size) % h.size
	for i := 0; i < allocSize; i++ {
		result[i] = h.entries[(start+i)%h.size]
	}
	return result
}

// Count returns the number of events held
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Size returns the capacity
func (h *History) Size() int {
	return h.size
}

// Clear removes all events and returns how many were removed
func (h *History) Clear() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := h.count
	for i := range h.entries {
		h.entries[i] = dlevent.LogEvent{}
	}
	h.head = 0
	h.count = 0
	return removed
}

// Verify History implements LogHistory
var _ types.LogHistory = (*History)(nil)
