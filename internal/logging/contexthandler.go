package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns attributes computed at log time, such as the
// current simulation tick.
type ContextProvider func() []slog.Attr

// ContextHandler wraps another handler and injects the provider's attributes
// into every record.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{inner: inner, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		r.AddAttrs(h.provider()...)
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), provider: h.provider}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{inner: h.inner.WithGroup(name), provider: h.provider}
}

// TickProvider reports the tick returned by tick under the "tick" key.
func TickProvider(tick func() uint64) ContextProvider {
	return func() []slog.Attr {
		return []slog.Attr{slog.Uint64("tick", tick())}
	}
}
