package events

import (
	"context"
	"log/slog"
	"sync"
)

// LocalPublisher hands events to a Handler on a goroutine of its own, so a
// slow mail server never delays the request that produced the event.
type LocalPublisher struct {
	handler Handler
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewLocalPublisher(handler Handler, logger *slog.Logger) *LocalPublisher {
	return &LocalPublisher{handler: handler, logger: logger.With("component", "events.local")}
}

func (p *LocalPublisher) Publish(ctx context.Context, event Event) error {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.handler.Handle(context.WithoutCancel(ctx), event); err != nil {
			p.logger.Error("handle event", "type", event.Type, "event_id", event.ID, "error", err)
		}
	}()
	return nil
}

// Close waits for events already published to be handled.
func (p *LocalPublisher) Close() error {
	p.wg.Wait()
	return nil
}
