// ABOUTME: slog.Handler that tees every record into the sink while delegating output.
// ABOUTME: Lets components log through standard slog and still feed session buffers.

package logsink

import (
	"context"
	"log/slog"
)

// Handler wraps another slog.Handler and mirrors every record into a Sink.
// Attribute values become the entry's metadata map; a session_id attribute
// carries the explicit session scope.
type Handler struct {
	inner slog.Handler
	sink  *Sink
	attrs []slog.Attr
}

// NewHandler builds a tee handler writing into sink and delegating to inner.
func NewHandler(inner slog.Handler, sink *Sink) *Handler {
	return &Handler{inner: inner, sink: sink}
}

// Enabled always reports true. Sink capture is independent of the console
// level: debug-only records (worker stdout mirror, state transitions) must
// still land in the session buffers when the output handler runs at info.
func (h *Handler) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle records the entry into the sink unconditionally, then delegates
// to the wrapped handler only when the record clears its output level.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	meta := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		meta[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		meta[a.Key] = a.Value.Any()
		return true
	})

	h.sink.Record(r.Level, r.Message, meta)
	if !h.inner.Enabled(ctx, r.Level) {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs returns a handler that includes attrs in every future record's
// metadata and delegates attribute handling to the wrapped handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(merged, h.attrs)
	merged = append(merged, attrs...)
	return &Handler{inner: h.inner.WithAttrs(attrs), sink: h.sink, attrs: merged}
}

// WithGroup delegates grouping to the wrapped handler. Group nesting is not
// reflected in sink metadata keys; session_id is always attached at the top
// level by convention.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name), sink: h.sink, attrs: h.attrs}
}
