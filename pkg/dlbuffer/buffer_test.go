package dlbuffer

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/txn2/devlog/pkg/dlevent"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 19, 12, 0, 0, 0, time.Local)
}

func TestBoundedSize(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		expected int
	}{
		{"zero uses default", 0, DefaultMaxEntries},
		{"negative uses default", -10, DefaultMaxEntries},
		{"within limit", 50, 50},
		{"at limit", maxBufferSize, maxBufferSize},
		{"exceeds limit", maxBufferSize + 1, maxBufferSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := boundedSize(tt.size, DefaultMaxEntries, maxBufferSize); got != tt.expected {
				t.Errorf("boundedSize(%d) = %d, want %d", tt.size, got, tt.expected)
			}
		})
	}
}

func TestNewDefaults(t *testing.T) {
	b := New()
	if b.Cap() != DefaultMaxEntries {
		t.Errorf("Expected capacity %d, got %d", DefaultMaxEntries, b.Cap())
	}
	if !b.AutoScroll() {
		t.Error("Expected auto-scroll on by default")
	}
	if b.Collapsed() {
		t.Error("Expected panel expanded by default")
	}
	if b.Len() != 0 || b.Entries() != nil {
		t.Error("Expected empty buffer")
	}
}

func TestAppendEvictsOldest(t *testing.T) {
	b := New(WithClock(fixedClock))

	for i := 0; i < 1001; i++ {
		b.Append(dlevent.Text(fmt.Sprintf("message %d", i)))
	}

	if b.Len() != 1000 {
		t.Fatalf("Expected 1000 entries, got %d", b.Len())
	}

	entries := b.Entries()
	if entries[0].Message != "message 1" {
		t.Errorf("Expected oldest entry 'message 1', got %q", entries[0].Message)
	}
	if entries[999].Message != "message 1000" {
		t.Errorf("Expected newest entry 'message 1000', got %q", entries[999].Message)
	}
}

func TestAppendWrapKeepsOrder(t *testing.T) {
	b := New(WithMaxEntries(3), WithClock(fixedClock))

	for i := 0; i < 5; i++ {
		b.Append(dlevent.Text(fmt.Sprintf("m%d", i)))
	}

	entries := b.Entries()
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	for i, want := range []string{"m2", "m3", "m4"} {
		if entries[i].Message != want {
			t.Errorf("entries[%d] = %q, want %q", i, entries[i].Message, want)
		}
	}
}

func TestAppendDiagnosticPrecedesEntry(t *testing.T) {
	b := New(WithClock(fixedClock))
	b.Append(dlevent.FromEvent(dlevent.LogEvent{Message: "50% off"}))

	entries := b.Entries()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Logger != dlevent.SystemLogger || entries[0].Class() != "error" {
		t.Errorf("Expected System error diagnostic first, got %+v", entries[0])
	}
	if entries[1].Message != "50% off" {
		t.Errorf("Expected raw text second, got %q", entries[1].Message)
	}
}

func TestAppendUsesClockWithoutTimestamp(t *testing.T) {
	b := New(WithClock(fixedClock))
	b.Append(dlevent.Text("hello"))

	if got := b.Entries()[0].Time; got != "12:00:00" {
		t.Errorf("Expected time 12:00:00, got %s", got)
	}
}

func TestScrollBehavior(t *testing.T) {
	tests := []struct {
		name       string
		autoScroll bool
		collapsed  bool
		expected   int
	}{
		{"auto-scroll expanded", true, false, 1},
		{"auto-scroll collapsed", true, true, 0},
		{"manual expanded", false, false, 0},
		{"manual collapsed", false, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scrolls := 0
			b := New(WithClock(fixedClock))
			b.autoScroll = tt.autoScroll
			b.collapsed = tt.collapsed
			b.SetScroller(func() { scrolls++ })

			b.Append(dlevent.Text("x"))

			if scrolls != tt.expected {
				t.Errorf("Expected %d scrolls, got %d", tt.expected, scrolls)
			}
		})
	}
}

func TestSetAutoScroll(t *testing.T) {
	scrolls := 0
	b := New(WithScroller(func() { scrolls++ }))

	b.SetAutoScroll(false)
	if scrolls != 0 || b.AutoScroll() {
		t.Errorf("Disabling should not scroll; scrolls=%d autoScroll=%v", scrolls, b.AutoScroll())
	}

	b.SetAutoScroll(true)
	if scrolls != 1 {
		t.Errorf("Enabling should scroll once, got %d", scrolls)
	}
}

func TestSetCollapsed(t *testing.T) {
	scrolls := 0
	b := New(WithScroller(func() { scrolls++ }), WithClock(fixedClock))
	b.Append(dlevent.Text("keep me"))
	scrolls = 0

	b.SetCollapsed(true)
	if !b.Collapsed() {
		t.Error("Expected collapsed")
	}
	if b.Len() != 1 {
		t.Errorf("Collapsing must keep entries, got %d", b.Len())
	}
	if scrolls != 0 {
		t.Errorf("Collapsing should not scroll, got %d", scrolls)
	}

	b.SetCollapsed(false)
	if scrolls != 1 {
		t.Errorf("Expanding with auto-scroll should scroll once, got %d", scrolls)
	}

	b.SetAutoScroll(false)
	b.SetCollapsed(true)
	b.SetCollapsed(false)
	if scrolls != 1 {
		t.Errorf("Expanding without auto-scroll should not scroll, got %d", scrolls)
	}
}

func TestClear(t *testing.T) {
	b := New(WithMaxEntries(2), WithClock(fixedClock))
	b.Append(dlevent.Text("a"))
	b.Append(dlevent.Text("b"))
	b.Append(dlevent.Text("c"))
	b.SetAutoScroll(false)

	b.Clear()

	if b.Len() != 0 {
		t.Errorf("Expected empty buffer, got %d", b.Len())
	}
	if b.AutoScroll() {
		t.Error("Clear should not change auto-scroll")
	}

	b.Append(dlevent.Text("d"))
	entries := b.Entries()
	if len(entries) != 1 || entries[0].Message != "d" {
		t.Errorf("Unexpected entries after clear: %+v", entries)
	}
}

func TestConcurrentAppend(t *testing.T) {
	b := New(WithMaxEntries(50))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				b.Append(dlevent.Text(fmt.Sprintf("%d-%d", n, j)))
				_ = b.Entries()
			}
		}(i)
	}
	wg.Wait()

	if b.Len() != 50 {
		t.Errorf("Expected 50 entries, got %d", b.Len())
	}
}
