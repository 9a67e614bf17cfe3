package web

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LogHandler returns a slog.Handler that passes records to next and copies
// every record at Info or above to the dashboard.
func (s *Server) LogHandler(next slog.Handler) slog.Handler {
	return &teeHandler{next: next, server: s}
}

type teeHandler struct {
	next   slog.Handler
	server *Server
	attrs  []slog.Attr
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo || h.next.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelInfo {
		entry := LogEntry{
			Time:    r.Time.Format(time.TimeOnly),
			Level:   r.Level.String(),
			Message: r.Message,
		}
		if n := len(h.attrs) + r.NumAttrs(); n > 0 {
			entry.Attrs = make(map[string]any, n)
			for _, a := range h.attrs {
				entry.Attrs[a.Key] = attrValue(a.Value)
			}
			r.Attrs(func(a slog.Attr) bool {
				entry.Attrs[a.Key] = attrValue(a.Value)
				return true
			})
		}
		h.server.AddLog(entry)
	}

	if h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &teeHandler{next: h.next.WithAttrs(attrs), server: h.server, attrs: merged}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{next: h.next.WithGroup(name), server: h.server, attrs: h.attrs}
}

// attrValue converts v into something that survives JSON encoding. Errors
// and durations would otherwise encode as {} and nanoseconds.
func attrValue(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindGroup:
		group := make(map[string]any, len(v.Group()))
		for _, a := range v.Group() {
			group[a.Key] = attrValue(a.Value)
		}
		return group
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return x.Error()
		case fmt.Stringer:
			return x.String()
		}
	}
	return v.Any()
}
