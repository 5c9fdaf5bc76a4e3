package adapters

import (
	"context"
	"time"

	ports "github.com/ZanzyTHEbar/siteops/siteops/assistant/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type activeSpanKey struct{}

// activeSpan is what a span leaves in its context for nested spans and events.
type activeSpan struct {
	id     string
	logger zerolog.Logger
}

// ZerologTracer writes spans as structured log lines. Each span gets an id;
// spans started under another record it as their parent, so a chat turn and
// the tool dispatches inside it can be correlated.
type ZerologTracer struct {
	logger zerolog.Logger
}

func NewZerologTracer(logger zerolog.Logger) *ZerologTracer {
	return &ZerologTracer{logger: logger}
}

func (t *ZerologTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	id := uuid.NewString()
	fields := t.logger.With().Str("span", name).Str("span_id", id)
	if parent, ok := ctx.Value(activeSpanKey{}).(activeSpan); ok {
		fields = fields.Str("parent_span_id", parent.id)
	}
	if len(attrs) > 0 {
		fields = fields.Fields(attrs)
	}
	span := activeSpan{id: id, logger: fields.Logger()}

	span.logger.Debug().Str("event", "span_start").Send()
	started := time.Now()

	return context.WithValue(ctx, activeSpanKey{}, span), func(err error) {
		ev := span.logger.Info()
		if err != nil {
			ev = span.logger.Warn().Err(err)
		}
		ev.Str("event", "span_end").Dur("elapsed", time.Since(started)).Send()
	}
}

// Event records a point-in-time occurrence on the active span, if any.
func (t *ZerologTracer) Event(ctx context.Context, name string, attrs map[string]any) {
	logger := t.logger
	if span, ok := ctx.Value(activeSpanKey{}).(activeSpan); ok {
		logger = span.logger
	}
	logger.Info().Fields(attrs).Str("event", name).Send()
}

var _ ports.Tracer = (*ZerologTracer)(nil)
