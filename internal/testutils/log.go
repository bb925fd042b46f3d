package testutils

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// LogRecorder is a slog.Handler keeping every record it handles. It is safe for concurrent use.
type LogRecorder struct {
	mu      sync.Mutex
	records []slog.Record
}

// Enabled implements slog.Handler.
func (h *LogRecorder) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
func (h *LogRecorder) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, r.Clone())
	return nil
}

// WithAttrs implements slog.Handler. Attributes are dropped.
func (h *LogRecorder) WithAttrs([]slog.Attr) slog.Handler {
	return h
}

// WithGroup implements slog.Handler. Groups are dropped.
func (h *LogRecorder) WithGroup(string) slog.Handler {
	return h
}

// Messages returns the messages logged at level or above.
func (h *LogRecorder) Messages(level slog.Level) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var msgs []string
	for _, r := range h.records {
		if r.Level >= level {
			msgs = append(msgs, r.Message)
		}
	}
	return msgs
}

// Contains reports whether msg was logged at level or above.
func (h *LogRecorder) Contains(level slog.Level, msg string) bool {
	return slices.Contains(h.Messages(level), msg)
}
