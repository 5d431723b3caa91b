package service

import (
	"context"
	"log/slog"

	"issuetracker/internal/events"
)

// notifier publishes events on behalf of a service. A failed publish never
// fails the operation that produced the event.
type notifier struct {
	publisher events.Publisher
	logger    *slog.Logger
}

func (n notifier) publish(ctx context.Context, ev events.Event) {
	if err := n.publisher.Publish(ctx, ev); err != nil {
		n.logger.Warn("publish event failed", "type", ev.Type, "event_id", ev.ID, "error", err)
	}
}
