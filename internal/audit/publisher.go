package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher fans audit events out to every configured sink. A failing sink is
// logged and skipped; audit emission never fails the calling operation.
type Publisher struct {
	sinks  []Sink
	logger *slog.Logger
}

func NewPublisher(logger *slog.Logger, sinks ...Sink) *Publisher {
	active := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	return &Publisher{sinks: active, logger: logger}
}

// Emit stamps the event if needed and delivers it to all sinks.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	for _, sink := range p.sinks {
		if err := sink.Append(ctx, event); err != nil {
			p.logger.Error("audit sink append failed",
				"event_type", string(event.Type),
				"content_hash", event.ContentHash,
				"error", err)
		}
	}
}
