package logger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Notifier delivers rendered log lines to the operations channel.
// The bot satisfies this once its gateway session is open.
type Notifier interface {
	NotifyOps(msg string, level slog.Level)
}

// notifierRef is shared by a handler and all its WithAttrs/WithGroup clones,
// so a notifier attached after loggers were derived still reaches every clone.
type notifierRef struct {
	mu sync.Mutex
	n  Notifier
}

func (r *notifierRef) get() Notifier {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// DiscordHandler is a slog.Handler that mirrors log records to a Discord
// operations channel on top of a regular handler
type DiscordHandler struct {
	handler  slog.Handler
	minLevel slog.Level
	ref      *notifierRef
	attrs    []slog.Attr
	group    string
}

// NewDiscordHandler creates a new DiscordHandler
func NewDiscordHandler(handler slog.Handler, minLevel slog.Level) *DiscordHandler {
	return &DiscordHandler{
		handler:  handler,
		minLevel: minLevel,
		ref:      &notifierRef{},
		attrs:    make([]slog.Attr, 0),
		group:    "",
	}
}

// SetNotifier attaches the delivery target; until then records only reach
// the underlying handler.
func (h *DiscordHandler) SetNotifier(n Notifier) {
	h.ref.mu.Lock()
	defer h.ref.mu.Unlock()
	h.ref.n = n
}

// Enabled implements slog.Handler.Enabled
func (h *DiscordHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler.Handle
func (h *DiscordHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.handler.Handle(ctx, record)
	if err != nil {
		return err
	}

	if record.Level < h.minLevel {
		return nil
	}

	var msg string
	if h.group != "" {
		msg = fmt.Sprintf("**%s** `%s.%s`", record.Level.String(), h.group, record.Message)
	} else {
		msg = fmt.Sprintf("**%s** `%s`", record.Level.String(), record.Message)
	}

	// Attributes from .With() calls, then from the record itself
	for _, attr := range h.attrs {
		msg += formatAttr(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		msg += formatAttr(attr)
		return true
	})

	if n := h.ref.get(); n != nil {
		n.NotifyOps(msg, record.Level)
	}

	return nil
}

// WithAttrs implements slog.Handler.WithAttrs
func (h *DiscordHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)

	return &DiscordHandler{
		handler:  h.handler.WithAttrs(attrs),
		minLevel: h.minLevel,
		ref:      h.ref,
		attrs:    newAttrs,
		group:    h.group,
	}
}

// WithGroup implements slog.Handler.WithGroup
func (h *DiscordHandler) WithGroup(name string) slog.Handler {
	var group string
	if h.group != "" {
		group = h.group + "." + name
	} else {
		group = name
	}

	return &DiscordHandler{
		handler:  h.handler.WithGroup(name),
		minLevel: h.minLevel,
		ref:      h.ref,
		attrs:    h.attrs,
		group:    group,
	}
}

func formatAttr(attr slog.Attr) string {
	if attr.Key == "error" {
		return fmt.Sprintf("\n%s: ```%v```", attr.Key, attr.Value)
	}
	return fmt.Sprintf("\n%s: `%v`", attr.Key, attr.Value)
}
