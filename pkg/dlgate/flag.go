package dlgate

import "sync"

// Flag is an observable boolean owned by the host, typically its debug
// mode. It satisfies Source, so a gate may poll it or Watch it.
type Flag struct {
	mu    sync.Mutex
	value bool
	subs  map[int]chan bool
	next  int
}

// NewFlag creates a flag with the given initial value.
func NewFlag(initial bool) *Flag {
	return &Flag{
		value: initial,
		subs:  make(map[int]chan bool),
	}
}

// Get returns the current value.
func (f *Flag) Get() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// DebugMode implements Source. A flag is always available.
func (f *Flag) DebugMode() (bool, bool) {
	return f.Get(), true
}

// Set updates the value and notifies subscribers if it changed.
func (f *Flag) Set(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setLocked(v)
}

func (f *Flag) setLocked(v bool) {
	if f.value == v {
		return
	}
	f.value = v
	for _, ch := range f.subs {
		// keep only the latest value for slow subscribers
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

// Toggle flips the value and returns the new one.
func (f *Flag) Toggle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setLocked(!f.value)
	return f.value
}

// Subscribe returns a channel receiving each new value and a function
// that ends the subscription.
func (f *Flag) Subscribe() (<-chan bool, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.next
	f.next++
	ch := make(chan bool, 1)
	f.subs[id] = ch

	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}
