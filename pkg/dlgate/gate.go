// Package dlgate shows or hides the developer-log panel according to a
// host debug-mode flag. It only changes visibility; what the panel
// holds is never touched.
package dlgate

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultInterval is the poll period used when none is configured.
const DefaultInterval = time.Second

// Source reports the host debug-mode flag. ok is false when the flag
// is not available yet, in which case the gate does nothing.
type Source interface {
	DebugMode() (value bool, ok bool)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (bool, bool)

// DebugMode calls f.
func (f SourceFunc) DebugMode() (bool, bool) { return f() }

// Target is the panel whose visibility the gate drives.
type Target interface {
	SetVisible(visible bool)
}

// TargetFunc adapts a function to Target.
type TargetFunc func(bool)

// SetVisible calls f(visible).
func (f TargetFunc) SetVisible(visible bool) { f(visible) }

// Gate mirrors a debug-mode flag onto a Target. The target is only
// called when the flag differs from the current visibility. The panel
// starts hidden.
type Gate struct {
	source   Source
	target   Target
	interval time.Duration

	mu        sync.Mutex
	visible   bool
	mutations int
}

// New creates a gate polling source every interval. A non-positive
// interval uses DefaultInterval.
func New(source Source, target Target, interval time.Duration) *Gate {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Gate{
		source:   source,
		target:   target,
		interval: interval,
	}
}

// Interval returns the poll period.
func (g *Gate) Interval() time.Duration {
	return g.interval
}

// Visible reports the visibility last applied.
func (g *Gate) Visible() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.visible
}

// Mutations returns how many times the target has been changed.
func (g *Gate) Mutations() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mutations
}

// Tick polls the source once and reports whether visibility changed.
func (g *Gate) Tick() bool {
	if g.source == nil {
		return false
	}
	value, ok := g.source.DebugMode()
	if !ok {
		return false
	}
	return g.apply(value)
}

func (g *Gate) apply(value bool) bool {
	g.mu.Lock()
	if value == g.visible {
		g.mu.Unlock()
		return false
	}
	g.visible = value
	g.mutations++
	g.mu.Unlock()

	log.Debugf("Developer log panel visible: %v", value)
	if g.target != nil {
		g.target.SetVisible(value)
	}
	return true
}

// Run polls until ctx is done.
func (g *Gate) Run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Tick()
		}
	}
}

// Watch follows flag until ctx is done, applying its current value first
// and then every change it publishes.
func (g *Gate) Watch(ctx context.Context, flag *Flag) {
	changes, cancel := flag.Subscribe()
	defer cancel()

	g.apply(flag.Get())
	for {
		select {
		case <-ctx.Done():
			return
		case v := <-changes:
			g.apply(v)
		}
	}
}
