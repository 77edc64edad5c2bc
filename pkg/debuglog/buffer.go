// Package debuglog backs the in-page debug log viewer: a bounded buffer of
// recent log lines that is streamed to every open viewer.
package debuglog

import (
	"sync"
	"time"

	"github.com/teslashibe/go-miniapp/pkg/hub"
)

// DefaultCapacity is the number of entries kept for late viewers.
const DefaultCapacity = 500

// Entry is one line in the debug log viewer.
type Entry struct {
	Time    string            `json:"time"`
	Level   string            `json:"level"`  // debug, info, warn, error
	Source  string            `json:"source"` // host, webview
	Session string            `json:"session,omitempty"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// Buffer keeps the last N entries and forwards new ones to a hub.
type Buffer struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	hub      *hub.Hub
	now      func() time.Time
}

// NewBuffer creates a buffer. h may be nil.
func NewBuffer(capacity int, h *hub.Hub) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
		hub:      h,
		now:      time.Now,
	}
}

// Add appends an entry, stamping its time if empty, and broadcasts it.
func (b *Buffer) Add(e Entry) {
	if e.Time == "" {
		e.Time = b.now().Format("15:04:05.000")
	}
	if e.Level == "" {
		e.Level = "info"
	}

	b.mu.Lock()
	b.entries = append(b.entries, e)
	if len(b.entries) > b.capacity {
		b.entries = b.entries[len(b.entries)-b.capacity:]
	}
	b.mu.Unlock()

	if b.hub != nil {
		b.hub.BroadcastJSON(e)
	}
}

// Entries returns a copy of the buffered entries, oldest first.
func (b *Buffer) Entries() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Tail returns at most n of the newest entries.
func (b *Buffer) Tail(n int) []Entry {
	entries := b.Entries()
	if n > 0 && n < len(entries) {
		entries = entries[len(entries)-n:]
	}
	return entries
}

// Clear drops every buffered entry.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.entries = b.entries[:0]
	b.mu.Unlock()
}

// Len returns the number of buffered entries.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
