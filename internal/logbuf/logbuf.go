// Package logbuf captures recent slog output in a ring buffer so the
// admin /config diagnostics can report what the daemon has been logging
// without shelling into the host.
package logbuf

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Entry is a single captured log record.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
}

// Buffer is a thread-safe ring buffer of log entries.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	size    int
	pos     int
	count   int
}

// New creates a ring buffer holding up to size entries.
func New(size int) *Buffer {
	return &Buffer{
		entries: make([]Entry, size),
		size:    size,
	}
}

// Write appends an entry, evicting the oldest when full.
func (b *Buffer) Write(e Entry) {
	b.mu.Lock()
	b.entries[b.pos] = e
	b.pos = (b.pos + 1) % b.size
	if b.count < b.size {
		b.count++
	}
	b.mu.Unlock()
}

// Recent returns up to limit entries at or above minLevel, oldest first.
func (b *Buffer) Recent(minLevel slog.Level, limit int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	var result []Entry
	start := 0
	if b.count == b.size {
		start = b.pos
	}
	for i := 0; i < b.count; i++ {
		e := b.entries[(start+i)%b.size]
		if e.Level >= minLevel {
			result = append(result, e)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result
}

// CountSince returns how many captured entries at or above minLevel were
// written after since.
func (b *Buffer) CountSince(since time.Time, minLevel slog.Level) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for i := 0; i < b.count; i++ {
		e := b.entries[i]
		if e.Level >= minLevel && e.Time.After(since) {
			n++
		}
	}
	return n
}

// Handler is an slog.Handler that captures records into a Buffer and
// delegates to an inner handler.
type Handler struct {
	inner slog.Handler
	buf   *Buffer
}

// NewHandler wraps inner so every record is also written to buf.
func NewHandler(inner slog.Handler, buf *Buffer) *Handler {
	return &Handler{inner: inner, buf: buf}
}

// Enabled always reports true so the buffer sees every level; the inner
// handler applies its own filter in Handle.
func (h *Handler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	h.buf.Write(Entry{Time: r.Time, Level: r.Level, Message: r.Message})
	if h.inner.Enabled(ctx, r.Level) {
		return h.inner.Handle(ctx, r)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{inner: h.inner.WithAttrs(attrs), buf: h.buf}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name), buf: h.buf}
}
