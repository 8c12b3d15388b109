package observability

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

// DefaultRedactedKeys lists Data keys that can carry conversation text.
// SlogObserver logs only their length unless WithContent is set.
var DefaultRedactedKeys = []string{"text", "reply", "content", "query", "memories"}

// SlogOption configures a SlogObserver.
type SlogOption func(*SlogObserver)

// WithContent logs conversation text verbatim.
func WithContent() SlogOption {
	return func(o *SlogObserver) { o.redacted = nil }
}

// WithRedactedKeys replaces the set of redacted Data keys.
func WithRedactedKeys(keys ...string) SlogOption {
	return func(o *SlogObserver) { o.redacted = keySet(keys) }
}

// SlogObserver emits events to a slog.Logger. Event levels are mapped via
// SlogLevel, the event type becomes the log message, and Data keys are
// flattened as top-level attributes in sorted order.
type SlogObserver struct {
	logger   *slog.Logger
	redacted map[string]struct{}
}

// NewSlogObserver creates a SlogObserver that emits to the given logger.
func NewSlogObserver(logger *slog.Logger, opts ...SlogOption) *SlogObserver {
	o := &SlogObserver{logger: logger, redacted: keySet(DefaultRedactedKeys)}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *SlogObserver) OnEvent(ctx context.Context, event Event) {
	attrs := make([]slog.Attr, 0, len(event.Data)+1)
	attrs = append(attrs, slog.String("source", event.Source))
	for _, k := range slices.Sorted(maps.Keys(event.Data)) {
		attrs = append(attrs, o.attr(k, event.Data[k]))
	}

	o.logger.LogAttrs(ctx, event.Level.SlogLevel(), string(event.Type), attrs...)
}

func (o *SlogObserver) attr(key string, value any) slog.Attr {
	if _, ok := o.redacted[key]; !ok {
		return slog.Any(key, value)
	}
	if s, ok := value.(string); ok {
		return slog.String(key, fmt.Sprintf("[%d chars]", len(s)))
	}
	return slog.String(key, "[redacted]")
}

func keySet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
