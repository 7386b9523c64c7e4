package services

import (
	"context"
	"log/slog"

	"socios/internal/amqp"
	"socios/internal/metrics"
)

// EventPublisher hands roster events to the broker. A nil publisher disables events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *amqp.RosterEvent) error
}

// publish never fails the caller: the write it reports is already stored.
func publish(ctx context.Context, p EventPublisher, ev *amqp.RosterEvent) {
	if p == nil {
		return
	}
	if err := p.PublishEvent(ctx, ev); err != nil {
		metrics.EventsPublished.WithLabelValues(string(ev.Kind), "error").Inc()
		slog.WarnContext(ctx, "Failed to publish roster event",
			"kind", ev.Kind,
			"member_id", ev.MemberID,
			"error", err)
		return
	}
	metrics.EventsPublished.WithLabelValues(string(ev.Kind), "ok").Inc()
}
