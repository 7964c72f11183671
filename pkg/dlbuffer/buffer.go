// Package dlbuffer holds the bounded, ordered list of rendered log
// entries shown in the developer-log panel.
package dlbuffer

import (
	"sync"
	"time"

	"github.com/txn2/devlog/pkg/dlevent"
)

// DefaultMaxEntries is the capacity used when none is configured.
const DefaultMaxEntries = 1000

// Maximum allocation limit for a buffer
const maxBufferSize = 100000

// boundedSize returns size bounded to [1, limit], using def when size is unset
func boundedSize(size, def, limit int) int {
	if size <= 0 {
		return def
	}
	if size > limit {
		return limit
	}
	return size
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithMaxEntries sets the buffer capacity.
func WithMaxEntries(n int) Option {
	return func(b *Buffer) {
		b.size = boundedSize(n, DefaultMaxEntries, maxBufferSize)
	}
}

// WithScroller sets the scroll-to-end action.
func WithScroller(fn func()) Option {
	return func(b *Buffer) {
		b.scroll = fn
	}
}

// WithClock replaces time.Now for entries without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(b *Buffer) {
		b.now = now
	}
}

// Buffer is a ring of display entries. Once full, appending evicts the
// oldest entry. Auto-scroll starts enabled and the panel starts expanded.
type Buffer struct {
	entries []dlevent.DisplayEntry
	size    int
	head    int
	count   int

	autoScroll bool
	collapsed  bool

	scroll func()
	now    func() time.Time
	mu     sync.RWMutex
}

// New creates an empty buffer.
func New(opts ...Option) *Buffer {
	b := &Buffer{
		size:       DefaultMaxEntries,
		autoScroll: true,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.entries = make([]dlevent.DisplayEntry, b.size)
	return b
}

// Append renders p and adds the resulting entries at the end, evicting
// from the front past capacity. The scroll action runs once afterwards
// if auto-scroll is on and the panel is expanded.
func (b *Buffer) Append(p dlevent.Payload) {
	rendered := dlevent.Render(p, b.now())

	b.mu.Lock()
	for _, entry := range rendered {
		b.add(entry)
	}
	follow := b.autoScroll && !b.collapsed
	b.mu.Unlock()

	if follow {
		b.scrollToEnd()
	}
}

// add must be called with the lock held
func (b *Buffer) add(entry dlevent.DisplayEntry) {
	b.entries[b.head] = entry
	b.head = (b.head + 1) % b.size
	if b.count < b.size {
		b.count++
	}
}

// Entries returns the entries in arrival order, oldest first.
func (b *Buffer) Entries() []dlevent.DisplayEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return nil
	}

	result := make([]dlevent.DisplayEntry, b.count)
	start := (b.head - b.count + b.size) % b.size
	for i := 0; i < b.count; i++ {
		result[i] = b.entries[(start+i)%b.size]
	}
	return result
}

// Len returns the number of entries held.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return b.size
}

// Clear drops every entry. Flags are unchanged.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.entries {
		b.entries[i] = dlevent.DisplayEntry{}
	}
	b.head = 0
	b.count = 0
}

// SetAutoScroll sets the auto-scroll flag. Turning it on scrolls to the end.
func (b *Buffer) SetAutoScroll(on bool) {
	b.mu.Lock()
	b.autoScroll = on
	b.mu.Unlock()

	if on {
		b.scrollToEnd()
	}
}

// SetCollapsed collapses or expands the panel. Entries are kept either
// way; expanding while auto-scroll is on scrolls to the end.
func (b *Buffer) SetCollapsed(collapsed bool) {
	b.mu.Lock()
	b.collapsed = collapsed
	follow := !collapsed && b.autoScroll
	b.mu.Unlock()

	if follow {
		b.scrollToEnd()
	}
}

// AutoScroll reports the auto-scroll flag.
func (b *Buffer) AutoScroll() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.autoScroll
}

// Collapsed reports whether the panel is collapsed.
func (b *Buffer) Collapsed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.collapsed
}

// SetScroller replaces the scroll-to-end action.
func (b *Buffer) SetScroller(fn func()) {
	b.mu.Lock()
	b.scroll = fn
	b.mu.Unlock()
}

func (b *Buffer) scrollToEnd() {
	b.mu.RLock()
	fn := b.scroll
	b.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
